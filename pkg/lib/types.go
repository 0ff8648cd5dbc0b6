package lib

import (
	"fmt"
	"strings"
	"time"
)

// BrokerState is the supervisor's last observed status of the broker process.
// The zero value is BrokerStateStopped, which is also the initial state.
type BrokerState int

const (
	BrokerStateStopped BrokerState = iota
	BrokerStateRunning
	BrokerStateStoppedWithError
)

func (s BrokerState) String() string {
	switch s {
	case BrokerStateStopped:
		return "STOPPED"
	case BrokerStateRunning:
		return "RUNNING"
	case BrokerStateStoppedWithError:
		return "STOPPED_WITH_ERROR"
	default:
		return fmt.Sprintf("BrokerState(%d)", int(s))
	}
}

// ParseBrokerState is the inverse of BrokerState.String.
func ParseBrokerState(raw string) (BrokerState, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "STOPPED":
		return BrokerStateStopped, nil
	case "RUNNING":
		return BrokerStateRunning, nil
	case "STOPPED_WITH_ERROR":
		return BrokerStateStoppedWithError, nil
	default:
		return BrokerStateStopped, fmt.Errorf("unknown broker state %q", raw)
	}
}

const (
	// EnvEnvironment selects the deployment mode of the host application.
	EnvEnvironment = "ENVIRONMENT"
	// DevelopmentMarker is the only EnvEnvironment value that selects development mode.
	DevelopmentMarker = "DEV"
)

// DeploymentMode decides where the broker binary is looked up.
type DeploymentMode int

const (
	// ModePackaged expects the binary directly in the working directory.
	ModePackaged DeploymentMode = iota
	// ModeDevelopment expects the binary in a subfolder of the working directory.
	ModeDevelopment
)

// ParseDeploymentMode maps an ENVIRONMENT value to a mode. Anything other than
// the exact development marker, including an empty value, is packaged.
func ParseDeploymentMode(value string) DeploymentMode {
	if value == DevelopmentMarker {
		return ModeDevelopment
	}
	return ModePackaged
}

func (m DeploymentMode) String() string {
	if m == ModeDevelopment {
		return "development"
	}
	return "packaged"
}

// BrokerStatus is a point-in-time snapshot of the supervisor.
type BrokerStatus struct {
	State     BrokerState
	AttemptID string
	Path      string
	// PID is zero when no process handle is held.
	PID       int
	StartTime *time.Time
	EndTime   *time.Time
	ExitCode  *int
	LastError string
	Attempts  int
}

// HealthServiceName is the gRPC health service name the host shell reports the broker under.
const HealthServiceName = "broker"

// Health response header keys carrying the exact broker status. Keys ending in
// -bin hold arbitrary bytes.
const (
	MetadataState     = "broker-state"
	MetadataPID       = "broker-pid"
	MetadataAttempt   = "broker-attempt"
	MetadataAttempts  = "broker-attempts"
	MetadataExitCode  = "broker-exit-code"
	MetadataPath      = "broker-path-bin"
	MetadataLastError = "broker-last-error-bin"
)
