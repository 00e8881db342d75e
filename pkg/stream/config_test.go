package stream

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultOptions(t *testing.T) {
	opt := DefaultOptions()

	if err := opt.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	if opt.ServerURL != "http://raspberrypi.local:3000" || opt.Camera != 0 || opt.FPS != 5 ||
		opt.Quality != 70 || opt.Width != 640 || opt.Height != 480 ||
		opt.DeviceID != "computer_webcam" || opt.Timeout != time.Second {
		t.Errorf("unexpected defaults %+v", opt)
	}
	if u, _ := opt.UploadURL(); u != "http://raspberrypi.local:3000/api/camera/upload" {
		t.Errorf("unexpected upload url %s", u)
	}
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Options)
		valid  bool
	}{
		{"quality 0", func(o *Options) { o.Quality = 0 }, true},
		{"quality 100", func(o *Options) { o.Quality = 100 }, true},
		{"quality 101", func(o *Options) { o.Quality = 101 }, false},
		{"quality -1", func(o *Options) { o.Quality = -1 }, false},
		{"fps 0", func(o *Options) { o.FPS = 0 }, false},
		{"fps negative", func(o *Options) { o.FPS = -5 }, false},
		{"width 0", func(o *Options) { o.Width = 0 }, false},
		{"height 0", func(o *Options) { o.Height = 0 }, false},
		{"empty server", func(o *Options) { o.ServerURL = "" }, false},
		{"server without scheme", func(o *Options) { o.ServerURL = "raspberrypi.local:3000" }, false},
		{"negative camera", func(o *Options) { o.Camera = -1 }, false},
		{"zero timeout", func(o *Options) { o.Timeout = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opt := DefaultOptions()
			tt.modify(&opt)
			err := opt.Validate()
			if tt.valid && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tt.valid && !errors.Is(err, ErrInvalidOptions) {
				t.Errorf("expected ErrInvalidOptions, got %v", err)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uplink.yaml")
	data := []byte(`server: http://10.0.0.2:3000
fps: 10
quality: 90
timeout: 500ms
health: unix:///tmp/uplink.health
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	opt, err := LoadConfig(path, DefaultOptions())
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if opt.ServerURL != "http://10.0.0.2:3000" || opt.FPS != 10 || opt.Quality != 90 {
		t.Errorf("file values not applied: %+v", opt)
	}
	if opt.Timeout != 500*time.Millisecond {
		t.Errorf("expected 500ms timeout, got %v", opt.Timeout)
	}
	if opt.HealthAddr != "unix:///tmp/uplink.health" {
		t.Errorf("unexpected health addr %q", opt.HealthAddr)
	}
	if opt.Width != 640 || opt.Height != 480 || opt.DeviceID != "computer_webcam" {
		t.Errorf("missing keys must keep defaults: %+v", opt)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), DefaultOptions()); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("fps: [not, a, number]\n"), 0o644)
	if _, err := LoadConfig(path, DefaultOptions()); err == nil {
		t.Error("expected error for malformed file")
	}
}
