package core

import (
	"github.com/dkeye/Rendezvous/internal/domain"
)

// MaxRoomMembers is the hard cap on room membership.
const MaxRoomMembers = 2

// MemberDTO is a read-only view for APIs (no transport fields).
type MemberDTO struct {
	ID       ConnID `json:"id"`
	Username string `json:"username"`
}

type RoomInfo struct {
	ID          domain.RoomID `json:"roomId"`
	MemberCount int           `json:"memberCount"`
	Members     []MemberDTO   `json:"members"`
}
