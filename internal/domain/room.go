package domain

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
)

const (
	MaxRoomIDLen = 64

	generatedRoomIDLen = 6
	roomIDAlphabet     = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var (
	ErrRoomIDEmpty   = errors.New("room id empty")
	ErrRoomIDTooLong = errors.New("room id too long")
)

// RoomID is the caller-chosen rendezvous key. It is compared byte for byte.
type RoomID string

func ParseRoomID(raw string) (RoomID, error) {
	id := strings.TrimSpace(raw)
	if len(id) == 0 {
		return "", ErrRoomIDEmpty
	}
	if len(id) > MaxRoomIDLen {
		return "", ErrRoomIDTooLong
	}
	return RoomID(id), nil
}

// NewRoomID returns a short upper-case id like "K3ZQ9A".
func NewRoomID() (RoomID, error) {
	var sb strings.Builder
	sb.Grow(generatedRoomIDLen)
	base := big.NewInt(int64(len(roomIDAlphabet)))
	for i := 0; i < generatedRoomIDLen; i++ {
		n, err := rand.Int(rand.Reader, base)
		if err != nil {
			return "", err
		}
		sb.WriteByte(roomIDAlphabet[n.Int64()])
	}
	return RoomID(sb.String()), nil
}
