package decklink

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Inventory enumerates cards and changes their duplex mode.
type Inventory interface {
	ListDevices(ctx context.Context) ([]Device, error)
	SetDuplexMode(ctx context.Context, persistentID string, mode DuplexMode) error
	DriverVersion(ctx context.Context) (string, error)
}

// Open picks the inventory for this host: the helper when one is configured,
// otherwise the inventory file, otherwise Unavailable.
func Open(helper, inventoryFile string, timeout time.Duration, logger zerolog.Logger) Inventory {
	switch {
	case strings.TrimSpace(helper) != "":
		return NewHelperInventory(helper, timeout, logger)
	case strings.TrimSpace(inventoryFile) != "":
		return NewFileInventory(inventoryFile)
	default:
		return Unavailable{}
	}
}
