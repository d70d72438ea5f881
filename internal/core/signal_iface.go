package core

import "errors"

//go:generate mockgen -destination=mocks/mock_signal.go -package=mocks github.com/dkeye/Rendezvous/internal/core SignalConnection

var ErrConnClosed = errors.New("connection closed")

// Frame is one encoded outbound message.
type Frame []byte

// SignalConnection abstracts for a system messaging transport.
// Owned by the registry; only the registry may Close() it.
type SignalConnection interface {
	// TrySend queues a frame without blocking.
	TrySend(Frame) error
	Close()
}
