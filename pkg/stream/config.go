package stream

import (
	"fmt"
	"net/url"
	"os"
	"time"

	yaml "gopkg.in/yaml.v3"
)

const (
	DefaultServerURL = "http://raspberrypi.local:3000"
	DefaultCamera    = 0
	DefaultFPS       = 5
	DefaultQuality   = 70
	DefaultWidth     = 640
	DefaultHeight    = 480
	DefaultTimeout   = 1 * time.Second

	UploadPath = "/api/camera/upload"
)

// Options is the whole configuration of a streaming session.
type Options struct {
	ServerURL  string        `yaml:"server"`
	Camera     int           `yaml:"camera"`
	FPS        int           `yaml:"fps"`
	Quality    int           `yaml:"quality"`
	Width      int           `yaml:"width"`
	Height     int           `yaml:"height"`
	DeviceID   string        `yaml:"device_id"`
	Timeout    time.Duration `yaml:"timeout"`
	HealthAddr string        `yaml:"health"`
}

func DefaultOptions() Options {
	return Options{
		ServerURL: DefaultServerURL,
		Camera:    DefaultCamera,
		FPS:       DefaultFPS,
		Quality:   DefaultQuality,
		Width:     DefaultWidth,
		Height:    DefaultHeight,
		DeviceID:  DefaultDeviceID,
		Timeout:   DefaultTimeout,
	}
}

// LoadConfig reads a YAML file on top of base. Keys missing from the file keep
// the value they have in base.
func LoadConfig(path string, base Options) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, err
	}

	opt := base
	if err := yaml.Unmarshal(data, &opt); err != nil {
		return base, fmt.Errorf("parse %s: %w", path, err)
	}
	return opt, nil
}

func (o Options) Validate() error {
	if o.ServerURL == "" {
		return fmt.Errorf("%w: server url is empty", ErrInvalidOptions)
	}
	if u, err := url.Parse(o.ServerURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: bad server url %q", ErrInvalidOptions, o.ServerURL)
	}
	if o.FPS <= 0 {
		return fmt.Errorf("%w: fps must be positive, got %d", ErrInvalidOptions, o.FPS)
	}
	if o.Quality < 0 || o.Quality > 100 {
		return fmt.Errorf("%w: quality must be between 0 and 100, got %d", ErrInvalidOptions, o.Quality)
	}
	if o.Width <= 0 || o.Height <= 0 {
		return fmt.Errorf("%w: resolution must be positive, got %dx%d", ErrInvalidOptions, o.Width, o.Height)
	}
	if o.Camera < 0 {
		return fmt.Errorf("%w: camera index must not be negative", ErrInvalidOptions)
	}
	if o.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidOptions)
	}
	return nil
}

// Interval is the pacing interval, 1/FPS.
func (o Options) Interval() time.Duration {
	return time.Second / time.Duration(o.FPS)
}

// UploadURL joins the server base address with the upload path.
func (o Options) UploadURL() (string, error) {
	return url.JoinPath(o.ServerURL, UploadPath)
}
