package main

import (
	"context"
	"strconv"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/SanjoDeundiak/broker-shell/pkg/lib"
)

type brokerSupervisor interface {
	Status() lib.BrokerStatus
	Subscribe() (chan lib.BrokerState, error)
	Unsubscribe(ch chan lib.BrokerState)
}

// BrokerHealthServer answers grpc.health.v1 queries about the supervised broker.
type BrokerHealthServer struct {
	healthpb.UnimplementedHealthServer
	supervisor brokerSupervisor
	logger     zerolog.Logger
}

func NewBrokerHealthServer(s brokerSupervisor, logger zerolog.Logger) *BrokerHealthServer {
	return &BrokerHealthServer{supervisor: s, logger: logger}
}

func servingStatus(state lib.BrokerState) healthpb.HealthCheckResponse_ServingStatus {
	if state == lib.BrokerStateRunning {
		return healthpb.HealthCheckResponse_SERVING
	}
	return healthpb.HealthCheckResponse_NOT_SERVING
}

func statusMetadata(st lib.BrokerStatus) metadata.MD {
	md := metadata.Pairs(
		lib.MetadataState, st.State.String(),
		lib.MetadataAttempts, strconv.Itoa(st.Attempts),
	)
	if st.PID != 0 {
		md.Set(lib.MetadataPID, strconv.Itoa(st.PID))
	}
	if st.AttemptID != "" {
		md.Set(lib.MetadataAttempt, st.AttemptID)
	}
	if st.ExitCode != nil {
		md.Set(lib.MetadataExitCode, strconv.Itoa(*st.ExitCode))
	}
	if st.Path != "" {
		md.Set(lib.MetadataPath, st.Path)
	}
	if st.LastError != "" {
		md.Set(lib.MetadataLastError, st.LastError)
	}
	return md
}

func checkService(service string) error {
	// The empty name asks about the server as a whole, which is the broker here.
	if service != "" && service != lib.HealthServiceName {
		return status.Errorf(codes.NotFound, "unknown service %q", service)
	}
	return nil
}

func (s *BrokerHealthServer) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	if err := checkService(req.GetService()); err != nil {
		return nil, err
	}

	st := s.supervisor.Status()
	if err := grpc.SetHeader(ctx, statusMetadata(st)); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to set status header")
	}

	return &healthpb.HealthCheckResponse{Status: servingStatus(st.State)}, nil
}

// Watch sends the current serving status, then one message per change.
func (s *BrokerHealthServer) Watch(req *healthpb.HealthCheckRequest, stream grpc.ServerStreamingServer[healthpb.HealthCheckResponse]) error {
	if err := checkService(req.GetService()); err != nil {
		return err
	}

	ch, err := s.supervisor.Subscribe()
	if err != nil {
		return status.Error(codes.Unavailable, err.Error())
	}
	defer s.supervisor.Unsubscribe(ch)

	st := s.supervisor.Status()
	if err := stream.SendHeader(statusMetadata(st)); err != nil {
		return err
	}
	last := servingStatus(st.State)
	if err := stream.Send(&healthpb.HealthCheckResponse{Status: last}); err != nil {
		return err
	}

	for {
		select {
		case <-stream.Context().Done():
			return status.FromContextError(stream.Context().Err()).Err()
		case state, ok := <-ch:
			if !ok {
				return status.Error(codes.Unavailable, "broker supervisor stopped")
			}
			next := servingStatus(state)
			if next == last {
				continue
			}
			last = next
			if err := stream.Send(&healthpb.HealthCheckResponse{Status: next}); err != nil {
				return err
			}
		}
	}
}
