// internal/ota/ota.go
package ota

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pion/logging"

	"github.com/tamzrod/sensor-node/internal/logutil"
)

// Result is the outcome of one update check.
type Result uint8

const (
	UpToDate Result = iota
	Updated
	CheckFailed
	UpdateFailed
)

func (r Result) String() string {
	switch r {
	case UpToDate:
		return "up-to-date"
	case Updated:
		return "updated"
	case CheckFailed:
		return "check-failed"
	case UpdateFailed:
		return "update-failed"
	default:
		return fmt.Sprintf("result(%d)", uint8(r))
	}
}

// Outcome is consumed synchronously by the caller; nothing is fatal.
type Outcome struct {
	Result    Result
	Current   int
	Available int
	Image     string
	Err       error
}

// Updater installs the image at url.
type Updater interface {
	Update(ctx context.Context, url string) error
}

// Reporter sends the running version to the hub.
type Reporter interface {
	Send(ctx context.Context, msg string) error
}

type Config struct {
	BaseURL string
	Version int

	// Timeout bounds the version fetch.
	Timeout time.Duration
	Client  *http.Client

	LoggerFactory logging.LoggerFactory
}

type Checker struct {
	cfg      Config
	client   *http.Client
	updater  Updater
	reporter Reporter
	log      logging.LeveledLogger
}

func New(cfg Config, u Updater, r Reporter) (*Checker, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("ota: base url required")
	}
	if u == nil {
		return nil, errors.New("ota: updater required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Checker{
		cfg:      cfg,
		client:   client,
		updater:  u,
		reporter: r,
		log:      logutil.Scoped(cfg.LoggerFactory, "ota"),
	}, nil
}

// VersionURL is <base>/<id>/latest.version.
func (c *Checker) VersionURL(deviceID string) string {
	return c.cfg.BaseURL + "/" + deviceID + "/latest.version"
}

// ImageURL is <base>/<id>/<id>-<version>.bin.
func (c *Checker) ImageURL(deviceID string, version int) string {
	return fmt.Sprintf("%s/%s/%s-%d.bin", c.cfg.BaseURL, deviceID, deviceID, version)
}

// Check reports the running version, then installs a newer image if one is published.
func (c *Checker) Check(ctx context.Context, deviceID string) Outcome {
	out := Outcome{Current: c.cfg.Version}

	if c.reporter != nil {
		if err := c.reporter.Send(ctx, "fwVersion "+strconv.Itoa(c.cfg.Version)); err != nil {
			c.log.Debugf("version report not delivered: %v", err)
		}
	}

	available, err := c.fetchVersion(ctx, c.VersionURL(deviceID))
	if err != nil {
		out.Result = CheckFailed
		out.Err = err
		c.log.Warnf("firmware version check failed: %v", err)
		return out
	}
	out.Available = available

	if available <= c.cfg.Version {
		out.Result = UpToDate
		c.log.Infof("already on latest version (%d, available %d)", c.cfg.Version, available)
		return out
	}

	out.Image = c.ImageURL(deviceID, available)
	c.log.Infof("updating %d -> %d from %s", c.cfg.Version, available, out.Image)
	if err := c.updater.Update(ctx, out.Image); err != nil {
		out.Result = UpdateFailed
		out.Err = err
		c.log.Errorf("update failed: %v", err)
		return out
	}
	out.Result = Updated
	return out
}

func (c *Checker) fetchVersion(ctx context.Context, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 32))
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(body)))
	if err != nil {
		return 0, fmt.Errorf("version %q: %w", body, err)
	}
	return v, nil
}
