package grpc

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the name orchestrators query for the storefront.
const ServiceName = "chucheritas.Storefront"

// HealthReporter keeps the gRPC health status in line with the database.
type HealthReporter struct {
	server  *health.Server
	ping    func(ctx context.Context) error
	timeout time.Duration
	log     *logrus.Logger
}

func NewHealthReporter(ping func(ctx context.Context) error, timeout time.Duration, logger *logrus.Logger) *HealthReporter {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HealthReporter{
		server:  health.NewServer(),
		ping:    ping,
		timeout: timeout,
		log:     logger,
	}
}

// NewServer builds a gRPC server exposing health and reflection.
func (h *HealthReporter) NewServer(opts ...grpc.ServerOption) *grpc.Server {
	grpcServer := grpc.NewServer(opts...)
	healthpb.RegisterHealthServer(grpcServer, h.server)
	reflection.Register(grpcServer)
	return grpcServer
}

// Probe pings once and publishes the result. It reports whether the store is up.
func (h *HealthReporter) Probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := h.ping(ctx); err != nil {
		h.log.Warnf("Health: database probe failed: %v", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(ServiceName, status)
	return status == healthpb.HealthCheckResponse_SERVING
}

// Run probes every interval until ctx is done, then marks everything as not serving.
func (h *HealthReporter) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	h.Probe(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.server.Shutdown()
			return
		case <-ticker.C:
			h.Probe(ctx)
		}
	}
}

// Check answers a health query without going through the network.
func (h *HealthReporter) Check(ctx context.Context, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := h.server.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}
