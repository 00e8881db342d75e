package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Frame is one uncompressed image read from a Device.
type Frame interface {
	// JPEG compresses the frame. quality follows the libjpeg 0-100 scale.
	JPEG(quality int) ([]byte, error)
	Close()
}

// Device is an open capture device. It is owned by a single Loop.
type Device interface {
	Read() (Frame, error)
	Close() error
}

// OpenFunc opens capture device index and requests the given resolution.
type OpenFunc func(index, width, height int) (Device, error)

// Reporter is notified when the loop or the uplink changes state.
type Reporter interface {
	SetStreaming(running bool)
	SetUplink(ok bool)
}

type outcome int

const (
	continueLoop outcome = iota
	terminate
	shutdown
)

// Stats counts what happened during one Run.
type Stats struct {
	Started        time.Time
	Frames         int
	Uploaded       int
	Failed         int
	EncodeFailures int
}

// FPS is the achieved capture rate up to now.
func (s Stats) FPS(now time.Time) float64 {
	elapsed := now.Sub(s.Started).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(s.Frames) / elapsed
}

// Loop captures, encodes and uploads frames until the device fails or ctx is
// cancelled.
type Loop struct {
	Options Options
	Open    OpenFunc
	Sender  Sender

	// optional
	Reporter Reporter
	Logger   *slog.Logger
	Pacer    *Pacer

	stats Stats
}

// Run drives the loop. It returns nil on cancellation, an error wrapping
// ErrOpen if the device could not be opened and one wrapping ErrCapture if
// the device stopped producing frames. The device is released exactly once
// on every path after a successful open.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.Options.Validate(); err != nil {
		return err
	}
	log := l.logger()
	pacer := l.pacer()

	dev, err := l.Open(l.Options.Camera, l.Options.Width, l.Options.Height)
	if err != nil {
		log.Error("could not open device", "camera", l.Options.Camera, "err", err)
		return fmt.Errorf("%w %d: %w", ErrOpen, l.Options.Camera, err)
	}
	defer func() {
		if err := dev.Close(); err != nil {
			log.Warn("failed to release device", "err", err)
		} else {
			log.Info("device released", "camera", l.Options.Camera)
		}
	}()

	l.stats = Stats{Started: pacer.now()}
	l.setStreaming(true)
	defer l.setStreaming(false)

	log.Info("streaming",
		"url", l.uploadURL(),
		"resolution", fmt.Sprintf("%dx%d", l.Options.Width, l.Options.Height),
		"fps", l.Options.FPS,
		"quality", l.Options.Quality)

	defer func() {
		log.Info("stream stopped",
			"frames", l.stats.Frames,
			"uploaded", l.stats.Uploaded,
			"failed", l.stats.Failed,
			"encodeFailures", l.stats.EncodeFailures,
			"fps", fmt.Sprintf("%.2f", l.stats.FPS(pacer.now())))
	}()

	for {
		if ctx.Err() != nil {
			log.Info("streaming stopped by user")
			return nil
		}

		start := pacer.now()
		out, err := l.iterate(ctx, dev, pacer)
		switch out {
		case terminate:
			log.Error("failed to capture frame", "err", err)
			return err
		case shutdown:
			log.Info("streaming stopped by user")
			return nil
		}

		if err := pacer.Wait(ctx, start); err != nil {
			log.Info("streaming stopped by user")
			return nil
		}
	}
}

// Stats returns the counters of the last Run.
func (l *Loop) Stats() Stats {
	return l.stats
}

func (l *Loop) iterate(ctx context.Context, dev Device, pacer *Pacer) (outcome, error) {
	log := l.logger()

	frame, err := dev.Read()
	if err != nil {
		return terminate, fmt.Errorf("%w: %w", ErrCapture, err)
	}
	defer frame.Close()
	l.stats.Frames++

	data, err := frame.JPEG(l.Options.Quality)
	if err != nil {
		l.stats.EncodeFailures++
		log.Warn("failed to encode frame", "err", err)
		return continueLoop, nil
	}

	payload := NewPayload(data, pacer.now(), l.Options.DeviceID)

	err = l.Sender.Upload(ctx, payload)
	if err == nil {
		l.stats.Uploaded++
		l.setUplink(true)
		log.Debug("frame uploaded", "bytes", len(data), "timestamp", payload.Timestamp)
		return continueLoop, nil
	}
	if ctx.Err() != nil {
		return shutdown, nil
	}

	l.stats.Failed++
	l.setUplink(false)
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		log.Warn("server rejected frame", "status", statusErr.StatusCode)
	} else {
		log.Warn("connection error", "err", err)
	}
	return continueLoop, nil
}

func (l *Loop) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

func (l *Loop) pacer() *Pacer {
	if l.Pacer == nil {
		l.Pacer = NewPacer(l.Options.Interval())
	}
	return l.Pacer
}

func (l *Loop) uploadURL() string {
	if u, ok := l.Sender.(*Uploader); ok {
		return u.URL
	}
	target, _ := l.Options.UploadURL()
	return target
}

func (l *Loop) setStreaming(running bool) {
	if l.Reporter != nil {
		l.Reporter.SetStreaming(running)
	}
}

func (l *Loop) setUplink(ok bool) {
	if l.Reporter != nil {
		l.Reporter.SetUplink(ok)
	}
}
