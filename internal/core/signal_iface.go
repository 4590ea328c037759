package core

import "errors"

//go:generate mockgen -source=signal_iface.go -destination=mock/signal_mock.go -package=mock

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// Frame is a raw text payload as it travels on the wire.
type Frame []byte

// ConnID identifies a single transport session.
type ConnID string

// ConnState is the liveness of a transport session.
type ConnState int32

const (
	StateOpen ConnState = iota
	StateClosing
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	ID() ConnID
	State() ConnState
	// TrySend enqueues f without blocking.
	TrySend(f Frame) error
	// Close flushes frames already enqueued, then tears the session down.
	Close()
}
