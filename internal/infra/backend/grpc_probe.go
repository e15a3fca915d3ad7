package backend

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// GRPCProbe checks upstream services over the standard gRPC health protocol.
// It is an alternative probe transport for backends that expose
// grpc.health.v1.Health alongside (or instead of) the HTTP status endpoint.
type GRPCProbe struct {
	endpoint string
	conn     *grpc.ClientConn
	client   healthpb.HealthClient
}

// NewGRPCProbe dials the gRPC health endpoint.
func NewGRPCProbe(ctx context.Context, endpoint string) (*GRPCProbe, error) {
	target := endpoint
	var opts []grpc.DialOption

	if strings.HasPrefix(endpoint, "https://") || strings.HasSuffix(endpoint, ":443") {
		creds := credentials.NewTLS(&tls.Config{})
		opts = append(opts, grpc.WithTransportCredentials(creds))
		target = strings.TrimPrefix(target, "https://")
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
		target = strings.TrimPrefix(target, "http://")
	}

	opts = append(opts, grpc.WithBlock())

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, err := grpc.DialContext(dialCtx, target, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to dial grpc endpoint %s: %w", target, err)
	}

	return &GRPCProbe{
		endpoint: endpoint,
		conn:     conn,
		client:   healthpb.NewHealthClient(conn),
	}, nil
}

// Check reports whether the named service is serving. An empty service name
// checks the overall server.
func (p *GRPCProbe) Check(ctx context.Context, service string) (bool, error) {
	resp, err := p.client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return false, fmt.Errorf("grpc health check %q: %w", service, err)
	}
	return resp.Status == healthpb.HealthCheckResponse_SERVING, nil
}

// Close closes the underlying connection.
func (p *GRPCProbe) Close() error {
	return p.conn.Close()
}
