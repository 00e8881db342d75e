package health

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"

	grpc "google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	StreamService = "stream"
	UplinkService = "uplink"
)

// Server exposes the grpc.health.v1 service for a streaming session. It
// implements stream.Reporter.
type Server struct {
	fullAddr string
	network  string
	addr     string

	ln     net.Listener
	grpc   *grpc.Server
	health *grpchealth.Server
}

// NewServer parses addr, which is network://address with network one of unix
// or tcp.
func NewServer(addr string) (*Server, error) {
	splitKey := "://"
	splitIndex := strings.Index(addr, splitKey)
	if splitIndex == -1 {
		return nil, errors.New("invalid health address")
	}

	s := &Server{
		fullAddr: addr,
		network:  addr[:splitIndex],
		addr:     addr[splitIndex+len(splitKey):],
		health:   grpchealth.NewServer(),
	}
	if s.network != "unix" && s.network != "tcp" {
		return nil, errors.New("health address must be unix:// or tcp://")
	}

	s.health.SetServingStatus(StreamService, healthpb.HealthCheckResponse_NOT_SERVING)
	s.health.SetServingStatus(UplinkService, healthpb.HealthCheckResponse_NOT_SERVING)

	s.grpc = grpc.NewServer()
	healthpb.RegisterHealthServer(s.grpc, s.health)
	return s, nil
}

// Listen binds the configured address. Serve must be called afterwards.
func (s *Server) Listen(ctx context.Context) error {
	lnConfig := net.ListenConfig{}

	ln, err := lnConfig.Listen(ctx, s.network, s.addr)
	if err != nil {
		return err
	}
	s.ln = ln
	slog.Info("health listening", "addr", s.fullAddr)
	return nil
}

// Serve blocks until Stop is called.
func (s *Server) Serve() error {
	if s.ln == nil {
		return errors.New("health server is not listening")
	}
	return s.ServeListener(s.ln)
}

// ServeListener serves on an already bound listener.
func (s *Server) ServeListener(ln net.Listener) error {
	s.ln = ln
	err := s.grpc.Serve(ln)
	if errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return err
}

func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.Stop()
}

func (s *Server) SetStreaming(running bool) {
	s.health.SetServingStatus(StreamService, status(running))
}

func (s *Server) SetUplink(ok bool) {
	s.health.SetServingStatus(UplinkService, status(ok))
}

func status(ok bool) healthpb.HealthCheckResponse_ServingStatus {
	if ok {
		return healthpb.HealthCheckResponse_SERVING
	}
	return healthpb.HealthCheckResponse_NOT_SERVING
}
