package main

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/SanjoDeundiak/broker-shell/pkg/lib/config"
)

// dial connects to the shell, presenting the client certificate when TLS
// material is configured.
func dial(cfg config.Config) (*grpc.ClientConn, error) {
	creds := insecure.NewCredentials()
	if cfg.TLS.Enabled() {
		cert, err := tls.X509KeyPair([]byte(cfg.TLS.CertPEM), []byte(cfg.TLS.KeyPEM))
		if err != nil {
			return nil, fmt.Errorf("failed to parse TLS cert/key from env: %w", err)
		}

		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM([]byte(cfg.TLS.CAPEM)) {
			return nil, fmt.Errorf("failed to parse CA cert from env")
		}

		creds = credentials.NewTLS(&tls.Config{
			Certificates: []tls.Certificate{cert},
			RootCAs:      pool,
			MinVersion:   tls.VersionTLS13,
		})
	}

	conn, err := grpc.NewClient(cfg.Listen, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func grpcCode(err error) codes.Code {
	st, ok := status.FromError(err)
	if !ok {
		return codes.Unknown
	}
	return st.Code()
}
