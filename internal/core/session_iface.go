package core

import "github.com/dkeye/Rendezvous/internal/domain"

// MemberSession binds domain.Member and its transport endpoint.
// This is what a room stores and relays to.
type MemberSession interface {
	Meta() *domain.Member
	Signal() SignalConnection
}
