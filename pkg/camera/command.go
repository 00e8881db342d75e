package camera

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"time"

	uuid "github.com/google/uuid"
	health "github.com/mpoegel/sequoia-uplink/pkg/health"
	stream "github.com/mpoegel/sequoia-uplink/pkg/stream"
)

// Run is the stream subcommand.
func Run(ctx context.Context, args []string) error {
	opt, err := parseOptions("stream", args)
	if err != nil {
		return err
	}

	return streamLoop(ctx, opt, OpenDevice)
}

func parseOptions(name string, args []string) (stream.Options, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	opt := stream.DefaultOptions()
	var configPath string

	fs.StringVar(&configPath, "config", "", "YAML file with default options")
	fs.StringVar(&opt.ServerURL, "server", opt.ServerURL, "server URL")
	fs.IntVar(&opt.Camera, "camera", opt.Camera, "camera device ID")
	fs.IntVar(&opt.FPS, "fps", opt.FPS, "frames per second")
	fs.IntVar(&opt.Quality, "quality", opt.Quality, "JPEG quality (0-100)")
	fs.IntVar(&opt.Width, "width", opt.Width, "frame width")
	fs.IntVar(&opt.Height, "height", opt.Height, "frame height")
	fs.StringVar(&opt.DeviceID, "device-id", opt.DeviceID, "device_id sent with every frame")
	fs.DurationVar(&opt.Timeout, "timeout", opt.Timeout, "upload timeout")
	fs.StringVar(&opt.HealthAddr, "health", opt.HealthAddr, "gRPC health listen address, e.g. unix:///tmp/uplink.health")

	if err := fs.Parse(args); err != nil {
		return opt, err
	}

	if configPath != "" {
		fromFile, err := stream.LoadConfig(configPath, stream.DefaultOptions())
		if err != nil {
			return opt, err
		}
		// flags given on the command line win over the file
		explicit := opt
		opt = fromFile
		fs.Visit(func(f *flag.Flag) {
			applyFlag(&opt, explicit, f.Name)
		})
	}

	return opt, opt.Validate()
}

func applyFlag(dst *stream.Options, src stream.Options, name string) {
	switch name {
	case "server":
		dst.ServerURL = src.ServerURL
	case "camera":
		dst.Camera = src.Camera
	case "fps":
		dst.FPS = src.FPS
	case "quality":
		dst.Quality = src.Quality
	case "width":
		dst.Width = src.Width
	case "height":
		dst.Height = src.Height
	case "device-id":
		dst.DeviceID = src.DeviceID
	case "timeout":
		dst.Timeout = src.Timeout
	case "health":
		dst.HealthAddr = src.HealthAddr
	}
}

func streamLoop(ctx context.Context, opt stream.Options, open stream.OpenFunc) error {
	uploader, err := stream.NewUploader(opt)
	if err != nil {
		return err
	}
	defer uploader.CloseIdle()

	log := slog.Default().With("session", uuid.NewString(), "device", opt.DeviceID)

	loop := &stream.Loop{
		Options: opt,
		Open:    logResolution(log, open),
		Sender:  uploader,
		Logger:  log,
	}

	if opt.HealthAddr != "" {
		hs, err := health.NewServer(opt.HealthAddr)
		if err != nil {
			return err
		}
		if err := hs.Listen(ctx); err != nil {
			return err
		}
		go func() {
			if err := hs.Serve(); err != nil {
				log.Error("health server failed", "err", err)
			}
		}()
		defer hs.Stop()
		loop.Reporter = hs
	}

	return loop.Run(ctx)
}

// logResolution reports the mode the backend actually picked when it differs
// from the one requested.
func logResolution(log *slog.Logger, open stream.OpenFunc) stream.OpenFunc {
	return func(index, width, height int) (stream.Device, error) {
		dev, err := open(index, width, height)
		if err != nil {
			return nil, err
		}
		if r, ok := dev.(interface{ Resolution() (int, int) }); ok {
			w, h := r.Resolution()
			if w != width || h != height {
				log.Warn("camera substituted resolution", "requested", [2]int{width, height}, "actual", [2]int{w, h})
			} else {
				log.Debug("camera resolution", "width", w, "height", h)
			}
		}
		return dev, nil
	}
}

// Probe is the probe subcommand: it opens the device, encodes a single frame
// and reports what the backend negotiated.
func Probe(ctx context.Context, args []string) error {
	opt, err := parseOptions("probe", args)
	if err != nil {
		return err
	}
	return probe(ctx, opt, OpenDevice)
}

func probe(ctx context.Context, opt stream.Options, open stream.OpenFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dev, err := open(opt.Camera, opt.Width, opt.Height)
	if err != nil {
		slog.Error("could not open device", "camera", opt.Camera, "err", err)
		return errors.Join(stream.ErrOpen, err)
	}
	defer dev.Close()

	attrs := []any{"camera", opt.Camera, "requested", [2]int{opt.Width, opt.Height}}
	if r, ok := dev.(interface{ Resolution() (int, int) }); ok {
		w, h := r.Resolution()
		attrs = append(attrs, "actual", [2]int{w, h})
	}

	frame, err := dev.Read()
	if err != nil {
		return errors.Join(stream.ErrCapture, err)
	}
	defer frame.Close()

	data, err := frame.JPEG(opt.Quality)
	if err != nil {
		return err
	}
	payload := stream.NewPayload(data, time.Now(), opt.DeviceID)

	attrs = append(attrs, "quality", opt.Quality, "jpegBytes", len(data), "payloadImageBytes", len(payload.Image))
	slog.Info("probe ok", attrs...)
	return nil
}
