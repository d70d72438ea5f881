package app

import (
	"errors"
	"fmt"

	"github.com/dkeye/Rendezvous/internal/core"
	"github.com/dkeye/Rendezvous/internal/domain"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickMember
)

// Policy decides what happens to a connection whose send failed.
type Policy interface {
	OnSendFailure(id domain.ConnID, err error) BackpressureAction
}

// SimplePolicy kicks slow consumers and dead transports alike, so every
// transport failure ends in the regular disconnect path.
type SimplePolicy struct{}

func (SimplePolicy) OnSendFailure(_ domain.ConnID, err error) BackpressureAction {
	if err == nil {
		return NoAction
	}
	return KickMember
}

// TolerantPolicy drops frames for slow consumers and only kicks closed ones.
type TolerantPolicy struct{}

func (TolerantPolicy) OnSendFailure(_ domain.ConnID, err error) BackpressureAction {
	switch {
	case err == nil:
		return NoAction
	case errors.Is(err, core.ErrConnClosed):
		return KickMember
	}
	return DropFrame
}

var ErrUnknownPolicy = errors.New("unknown send policy")

// PolicyFor maps the send_policy config value to a Policy. Empty means kick.
func PolicyFor(name string) (Policy, error) {
	switch name {
	case "", "kick":
		return SimplePolicy{}, nil
	case "tolerant":
		return TolerantPolicy{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
}
