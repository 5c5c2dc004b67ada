package sysinfo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	clog "github.com/baaaaaaaka/caspar-console/internal/log"
)

// Versions reports the software around the playout server. Empty fields mean
// the component was not found or did not answer.
type Versions struct {
	Caspar   string `json:"caspar_version,omitempty"`
	DeckLink string `json:"decklink_version,omitempty"`
	NDI      string `json:"ndi_version,omitempty"`
	Scanner  string `json:"scanner_version,omitempty"`
}

// VersionSource answers one version question.
type VersionSource func(ctx context.Context) (string, error)

type Collector struct {
	Caspar   VersionSource
	DeckLink VersionSource
	NDI      VersionSource
	Scanner  VersionSource
	Log      zerolog.Logger
}

// Collect queries every source concurrently. A failing source leaves its field
// empty; the joined errors are returned alongside the partial result.
func (c *Collector) Collect(ctx context.Context) (Versions, error) {
	var (
		out  Versions
		errs [4]error
	)
	g, gctx := errgroup.WithContext(ctx)
	probe := func(i int, name string, src VersionSource, dst *string) {
		if src == nil {
			return
		}
		g.Go(func() error {
			v, err := src(gctx)
			if err != nil {
				errs[i] = fmt.Errorf("%s version: %w", name, err)
				c.Log.Debug().Err(err).Str(clog.FieldStep, name).Msg("version probe failed")
				return nil
			}
			*dst = strings.TrimSpace(v)
			return nil
		})
	}
	probe(0, "caspar", c.Caspar, &out.Caspar)
	probe(1, "decklink", c.DeckLink, &out.DeckLink)
	probe(2, "ndi", c.NDI, &out.NDI)
	probe(3, "scanner", c.Scanner, &out.Scanner)
	_ = g.Wait()
	return out, errors.Join(errs[:]...)
}

// ScannerVersion fetches the media scanner's version endpoint.
func ScannerVersion(url string, timeout time.Duration) VersionSource {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return func(ctx context.Context) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return "", err
		}
		client := &http.Client{Transport: &http.Transport{Proxy: nil, DisableKeepAlives: true}}
		resp, err := client.Do(req)
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("unexpected status %s", resp.Status)
		}
		b, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if err != nil {
			return "", err
		}
		v := strings.Trim(strings.TrimSpace(string(b)), `"`)
		if v == "" {
			return "", errors.New("empty version")
		}
		return v, nil
	}
}
