package console

import (
	"context"
	"fmt"

	"github.com/baaaaaaaka/caspar-console/internal/decklink"
	clog "github.com/baaaaaaaka/caspar-console/internal/log"
)

// Devices caches the DeckLink inventory.
type Devices struct{ c *Console }

// Refresh replaces the cached list. On failure the cache is emptied.
func (d Devices) Refresh(ctx context.Context) ([]decklink.Device, error) {
	release, err := enter(d.c.deviceGate)
	if err != nil {
		return nil, err
	}
	defer release()
	return d.refresh(ctx)
}

func (d Devices) refresh(ctx context.Context) ([]decklink.Device, error) {
	c := d.c
	list, err := c.b.Devices.ListDevices(ctx)
	if err != nil {
		list = nil
		err = fmt.Errorf("list devices: %w", err)
	}
	c.mu.Lock()
	c.devices = append([]decklink.Device(nil), list...)
	c.mu.Unlock()
	return list, err
}

// SetDuplexMode changes the duplex mode of a card and re-reads the inventory
// whatever the outcome. The mutation error wins over the refresh error. The
// driver applies the change after the host restarts.
func (d Devices) SetDuplexMode(ctx context.Context, persistentID string, mode decklink.DuplexMode) error {
	c := d.c
	release, err := enter(c.deviceGate)
	if err != nil {
		return err
	}
	defer release()

	setErr := c.b.Devices.SetDuplexMode(ctx, persistentID, mode)
	if setErr != nil {
		setErr = fmt.Errorf("set duplex mode: %w", setErr)
	} else {
		c.log.Info().Str(clog.FieldDevice, persistentID).Str("mode", mode.String()).Msg("duplex mode changed, restart required")
	}
	_, refreshErr := d.refresh(ctx)
	if setErr != nil {
		return setErr
	}
	return refreshErr
}

// List returns the cached devices.
func (d Devices) List() []decklink.Device {
	d.c.mu.Lock()
	defer d.c.mu.Unlock()
	return append([]decklink.Device(nil), d.c.devices...)
}
