package domain

// Member represents a connection's participation meta for a room.
// No transport or lifecycle logic here.
type Member struct {
	Username string
}

// NewMember avoids raw literals in adapters and keeps construction obvious.
func NewMember(username string) *Member {
	return &Member{Username: username}
}
