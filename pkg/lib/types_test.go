package lib

import (
	"testing"

	"github.com/google/uuid"
)

func TestParseDeploymentMode(t *testing.T) {
	cases := map[string]DeploymentMode{
		"DEV":        ModeDevelopment,
		"":           ModePackaged,
		"dev":        ModePackaged,
		" DEV":       ModePackaged,
		"PROD":       ModePackaged,
		"production": ModePackaged,
	}
	for value, want := range cases {
		if got := ParseDeploymentMode(value); got != want {
			t.Fatalf("ParseDeploymentMode(%q) = %v, want %v", value, got, want)
		}
	}
}

func TestBrokerStateZeroValueIsStopped(t *testing.T) {
	var st BrokerState
	if st != BrokerStateStopped {
		t.Fatalf("expected zero value to be Stopped, got %v", st)
	}
}

func TestBrokerStateStringRoundTrip(t *testing.T) {
	for _, st := range []BrokerState{BrokerStateStopped, BrokerStateRunning, BrokerStateStoppedWithError} {
		parsed, err := ParseBrokerState(st.String())
		if err != nil {
			t.Fatalf("ParseBrokerState(%q) failed: %v", st.String(), err)
		}
		if parsed != st {
			t.Fatalf("expected %v, got %v", st, parsed)
		}
	}
	if _, err := ParseBrokerState("EXPLODED"); err == nil {
		t.Fatalf("expected error for unknown state")
	}
}

func TestNewID_IsUUIDv4(t *testing.T) {
	id, err := uuid.Parse(NewID())
	if err != nil {
		t.Fatalf("NewID returned invalid uuid: %v", err)
	}
	if id.Version() != 4 {
		t.Fatalf("expected version 4, got %d", id.Version())
	}
}
