package console

import (
	"context"
	"errors"
	"fmt"

	"github.com/baaaaaaaka/caspar-console/internal/config"
	clog "github.com/baaaaaaaka/caspar-console/internal/log"
	"github.com/baaaaaaaka/caspar-console/internal/metrics"
)

// Control owns the control session with the playout server.
type Control struct{ c *Console }

// Connect opens a session and queries the server version. The session is
// Connected only when both succeed.
func (ctl Control) Connect(ctx context.Context, host string, port int) error {
	c := ctl.c
	release, err := enter(c.controlGate)
	if err != nil {
		return err
	}
	defer release()

	err = ctl.connect(ctx, host, port)
	metrics.IncControlConnect(err)
	if err != nil {
		c.setDisconnected()
		return err
	}
	c.Settings().saveBestEffort(ctx, config.SettingsPatch{
		LastHost:             config.String(host),
		LastPort:             config.Int(port),
		LastServerWasRunning: config.Bool(true),
	}, "remember connection")
	return nil
}

func (ctl Control) connect(ctx context.Context, host string, port int) error {
	c := ctl.c
	logger := c.log.With().Str(clog.FieldHost, host).Int(clog.FieldPort, port).Logger()
	if err := c.b.Control.Connect(ctx, host, port); err != nil {
		logger.Warn().Err(err).Msg("connect failed")
		return fmt.Errorf("connect %s:%d: %w", host, port, err)
	}
	version, err := c.b.Control.Version(ctx)
	if err != nil {
		if cerr := c.b.Control.Close(ctx); cerr != nil {
			logger.Debug().Err(cerr).Msg("close after failed version query")
		}
		logger.Warn().Err(err).Msg("version query failed")
		return fmt.Errorf("query server version: %w", err)
	}

	c.mu.Lock()
	c.conn = Connection{State: Connected, Host: host, Port: port, Version: version}
	c.tests.Channels = ChannelSet{}
	c.mu.Unlock()
	metrics.SetControlConnected(true)
	metrics.SetActiveChannelTests(0)
	logger.Info().Str("version", version).Msg("connected")
	return nil
}

// Disconnect closes the session. The state is Disconnected whatever the
// close result; the close error is returned.
func (ctl Control) Disconnect(ctx context.Context) error {
	c := ctl.c
	release, err := enter(c.controlGate)
	if err != nil {
		return err
	}
	defer release()

	closeErr := c.b.Control.Close(ctx)
	c.setDisconnected()
	c.log.Info().Msg("disconnected")
	c.Settings().saveBestEffort(ctx, config.SettingsPatch{LastServerWasRunning: config.Bool(false)}, "remember disconnect")
	if closeErr != nil {
		return fmt.Errorf("close session: %w", closeErr)
	}
	return nil
}

// CheckConnection reconciles the recorded state with the live session.
func (ctl Control) CheckConnection(ctx context.Context) Connection {
	c := ctl.c
	release, err := enter(c.controlGate)
	if err != nil {
		return ctl.State()
	}
	defer release()

	if err := ctl.probe(ctx); err != nil {
		c.log.Debug().Err(err).Msg("connection check failed")
		c.setDisconnected()
	}
	return ctl.State()
}

func (ctl Control) probe(ctx context.Context) error {
	c := ctl.c
	if !c.b.Control.IsConnected() {
		return ErrNotConnected
	}
	host, port, ok := c.b.Control.Endpoint()
	if !ok {
		return errors.New("session has no endpoint")
	}
	version, err := c.b.Control.Version(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	prev := c.conn.State
	c.conn = Connection{State: Connected, Host: host, Port: port, Version: version}
	if prev != Connected {
		c.tests.Channels = ChannelSet{}
	}
	c.mu.Unlock()
	metrics.SetControlConnected(true)
	return nil
}

func (ctl Control) State() Connection {
	ctl.c.mu.Lock()
	defer ctl.c.mu.Unlock()
	return ctl.c.conn
}

// setDisconnected drops the session state together with the channel tests it ran.
func (c *Console) setDisconnected() {
	c.mu.Lock()
	c.conn = Connection{State: Disconnected}
	c.tests.Channels = ChannelSet{}
	c.mu.Unlock()
	metrics.SetControlConnected(false)
	metrics.SetActiveChannelTests(0)
}
