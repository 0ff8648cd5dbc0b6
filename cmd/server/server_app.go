package main

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/SanjoDeundiak/broker-shell/pkg/lib/config"
)

// GRPCServer encapsulates TLS/mTLS configuration, gRPC server instance and listener.
type GRPCServer struct {
	lis net.Listener
	s   *grpc.Server
	tls bool
}

// NewGRPCServer registers the health server and prepares it to serve on
// cfg.Listen. With TLS material configured the server requires client certs
// (mTLS) and authorizes clients by SPIFFE ID, otherwise it serves plaintext
// and logs a warning.
func NewGRPCServer(cfg config.Config, health healthpb.HealthServer, logger zerolog.Logger) (*GRPCServer, error) {
	var opts []grpc.ServerOption
	if !cfg.TLS.Enabled() {
		logger.Warn().
			Str("listen", cfg.Listen).
			Msgf("No TLS material (%s, %s, %s), serving broker status in plaintext", config.EnvTLSKey, config.EnvTLSCert, config.EnvCACert)
	} else {
		tlsConfig, err := serverTLSConfig(cfg.TLS)
		if err != nil {
			return nil, err
		}
		auth := newAuthorizer(cfg.AllowedClients)
		opts = append(opts,
			grpc.Creds(credentials.NewTLS(tlsConfig)),
			grpc.ChainUnaryInterceptor(injectSpiffeIdUnary, auth.unary),
			grpc.ChainStreamInterceptor(injectSpiffeIdStream, auth.stream),
		)
	}

	lis, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}

	s := grpc.NewServer(opts...)
	healthpb.RegisterHealthServer(s, health)

	return &GRPCServer{lis: lis, s: s, tls: cfg.TLS.Enabled()}, nil
}

func serverTLSConfig(material config.TLS) (*tls.Config, error) {
	cert, err := tls.X509KeyPair([]byte(material.CertPEM), []byte(material.KeyPEM))
	if err != nil {
		return nil, fmt.Errorf("failed to load server key pair: %w", err)
	}

	caPool := x509.NewCertPool()
	if ok := caPool.AppendCertsFromPEM([]byte(material.CAPEM)); !ok {
		return nil, fmt.Errorf("failed to append CA certificate to pool")
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      caPool,
		ClientCAs:    caPool,
		ClientAuth:   tls.RequireAndVerifyClientCert,
		MinVersion:   tls.VersionTLS13,
	}, nil
}

// Serve starts serving gRPC on the configured listener.
func (g *GRPCServer) Serve() error {
	return g.s.Serve(g.lis)
}

// Addr returns the network address the server is bound to.
func (g *GRPCServer) Addr() net.Addr { return g.lis.Addr() }

func (g *GRPCServer) TLS() bool { return g.tls }

// Stop gracefully stops the gRPC server.
func (g *GRPCServer) Stop() { g.s.GracefulStop() }
