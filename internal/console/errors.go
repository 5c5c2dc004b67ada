package console

import (
	"errors"

	"github.com/baaaaaaaka/caspar-console/internal/profile"
)

var (
	ErrNotConfigured   = errors.New("caspar install path is not configured")
	ErrNoActiveProfile = errors.New("no active profile")
	ErrDuplicateName   = errors.New("a profile with that name already exists")
	ErrInvalidName     = profile.ErrInvalidName
	ErrLastChannel     = profile.ErrLastChannel
	ErrChannelRange    = errors.New("channel out of range")
	ErrNotConnected    = errors.New("not connected to a playout server")
	// ErrBusy is returned when another call is already changing the same entity.
	ErrBusy = errors.New("operation already in progress")
)
