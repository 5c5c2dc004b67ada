package decklink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/baaaaaaaka/caspar-console/internal/fsutil"
	clog "github.com/baaaaaaaka/caspar-console/internal/log"
)

var (
	// ErrSDKUnavailable means no driver access was configured on this host.
	ErrSDKUnavailable = errors.New("decklink SDK not available")
	ErrDeviceNotFound = errors.New("decklink device not found")
)

// Unavailable is the inventory used when neither a helper nor an inventory
// file is configured.
type Unavailable struct{}

func (Unavailable) ListDevices(context.Context) ([]Device, error) { return nil, ErrSDKUnavailable }

func (Unavailable) SetDuplexMode(context.Context, string, DuplexMode) error {
	return ErrSDKUnavailable
}

func (Unavailable) DriverVersion(context.Context) (string, error) { return "", ErrSDKUnavailable }

// HelperInventory talks to an external helper executable linked against the
// DeckLink SDK. The helper understands:
//
//	list --json              JSON array of devices on stdout
//	set-duplex <id> <mode>   change the duplex mode of one device
//	version                  driver/API version on stdout
type HelperInventory struct {
	path    string
	timeout time.Duration
	log     zerolog.Logger
}

func NewHelperInventory(path string, timeout time.Duration, logger zerolog.Logger) *HelperInventory {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HelperInventory{path: path, timeout: timeout, log: logger}
}

func (h *HelperInventory) run(ctx context.Context, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, h.path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %v", ErrSDKUnavailable, err)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("decklink helper %s: %w: %s", args[0], err, msg)
		}
		return nil, fmt.Errorf("decklink helper %s: %w", args[0], err)
	}
	return out, nil
}

func (h *HelperInventory) ListDevices(ctx context.Context) ([]Device, error) {
	out, err := h.run(ctx, "list", "--json")
	if err != nil {
		return nil, err
	}
	var devices []Device
	if err := json.Unmarshal(out, &devices); err != nil {
		return nil, fmt.Errorf("parse decklink device list: %w", err)
	}
	normalize(devices)
	h.log.Debug().Int("count", len(devices)).Msg("decklink devices listed")
	return devices, nil
}

func (h *HelperInventory) SetDuplexMode(ctx context.Context, persistentID string, mode DuplexMode) error {
	if _, err := ParseDuplexMode(string(mode)); err != nil {
		return err
	}
	if _, err := h.run(ctx, "set-duplex", persistentID, string(mode)); err != nil {
		return err
	}
	h.log.Info().Str(clog.FieldDevice, persistentID).Str("mode", string(mode)).Msg("duplex mode changed; restart required")
	return nil
}

func (h *HelperInventory) DriverVersion(ctx context.Context) (string, error) {
	out, err := h.run(ctx, "version")
	if err != nil {
		return "", err
	}
	v := strings.TrimSpace(string(out))
	if v == "" {
		return "", errors.New("decklink helper returned an empty version")
	}
	return v, nil
}

// FileInventory serves devices from a JSON file. Duplex changes are written
// back to the file. It stands in for the driver on hosts without one and in
// rehearsal setups.
type FileInventory struct {
	mu   sync.Mutex
	path string
}

func NewFileInventory(path string) *FileInventory {
	return &FileInventory{path: path}
}

func (f *FileInventory) load() ([]Device, error) {
	b, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read decklink inventory: %w", err)
	}
	var devices []Device
	if err := json.Unmarshal(b, &devices); err != nil {
		return nil, fmt.Errorf("parse decklink inventory: %w", err)
	}
	normalize(devices)
	return devices, nil
}

func (f *FileInventory) ListDevices(ctx context.Context) ([]Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.load()
}

func (f *FileInventory) SetDuplexMode(ctx context.Context, persistentID string, mode DuplexMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := ParseDuplexMode(string(mode)); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	devices, err := f.load()
	if err != nil {
		return err
	}
	found := false
	for i := range devices {
		if devices[i].PersistentID != persistentID {
			continue
		}
		if !devices[i].SupportsDuplex {
			return fmt.Errorf("device %s (%s) does not support duplex modes", persistentID, devices[i].ModelName)
		}
		devices[i].DuplexMode = mode
		found = true
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, persistentID)
	}
	b, err := json.MarshalIndent(devices, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal decklink inventory: %w", err)
	}
	return fsutil.WriteFileAtomic(f.path, append(b, '\n'), 0o644)
}

func (f *FileInventory) DriverVersion(context.Context) (string, error) {
	return "", ErrSDKUnavailable
}

// normalize fills in indexes and duplex flags the helper may leave out.
func normalize(devices []Device) {
	for i := range devices {
		if devices[i].Index == 0 {
			devices[i].Index = i + 1
		}
		if !devices[i].SupportsDuplex && devices[i].IsMultiPort() {
			devices[i].SupportsDuplex = true
		}
		if devices[i].SupportsDuplex && devices[i].DuplexMode == "" {
			devices[i].DuplexMode = DuplexHalf
		}
		if devices[i].DisplayName == "" {
			devices[i].DisplayName = devices[i].ModelName
		}
	}
}
