package config

import (
	"os"
	"testing"
	"time"
)

var timeoutEnvVars = []string{
	"RSJOIN_POLL_SETTLE",
	"RSJOIN_POLL_INTERVAL",
	"RSJOIN_COMMAND_TIMEOUT",
	"RSJOIN_GATE_POLL_INTERVAL",
	"RSJOIN_GATE_DEADLINE_BUFFER",
	"RSJOIN_LEASE_TTL",
	"RSJOIN_RELEASE_TIMEOUT",
	"RSJOIN_RETRY_MAX_ATTEMPTS",
	"RSJOIN_RETRY_INITIAL_DELAY",
}

func clearTimeoutEnvVars(t *testing.T) {
	t.Helper()
	for _, v := range timeoutEnvVars {
		t.Setenv(v, "")
		_ = os.Unsetenv(v)
	}
}

func TestLoadTimeouts_Defaults(t *testing.T) {
	clearTimeoutEnvVars(t)

	timeouts := LoadTimeouts()

	if timeouts.PollSettle != 5*time.Second {
		t.Errorf("Expected PollSettle default 5s, got %v", timeouts.PollSettle)
	}
	if timeouts.PollInterval != 5*time.Second {
		t.Errorf("Expected PollInterval default 5s, got %v", timeouts.PollInterval)
	}
	if timeouts.Command != 30*time.Second {
		t.Errorf("Expected Command default 30s, got %v", timeouts.Command)
	}
	if timeouts.GatePollInterval != 5*time.Second {
		t.Errorf("Expected GatePollInterval default 5s, got %v", timeouts.GatePollInterval)
	}
	if timeouts.GateBuffer != time.Second {
		t.Errorf("Expected GateBuffer default 1s, got %v", timeouts.GateBuffer)
	}
	if timeouts.LeaseTTL != 15*time.Minute {
		t.Errorf("Expected LeaseTTL default 15m, got %v", timeouts.LeaseTTL)
	}
	if timeouts.ReleaseTimeout != 5*time.Second {
		t.Errorf("Expected ReleaseTimeout default 5s, got %v", timeouts.ReleaseTimeout)
	}
	if timeouts.RetryMaxAttempts != 5 {
		t.Errorf("Expected RetryMaxAttempts default 5, got %d", timeouts.RetryMaxAttempts)
	}
	if timeouts.RetryInitialDelay != time.Second {
		t.Errorf("Expected RetryInitialDelay default 1s, got %v", timeouts.RetryInitialDelay)
	}
}

func TestLoadTimeouts_EnvVars(t *testing.T) {
	clearTimeoutEnvVars(t)

	t.Setenv("RSJOIN_POLL_SETTLE", "2s")
	t.Setenv("RSJOIN_POLL_INTERVAL", "3s")
	t.Setenv("RSJOIN_COMMAND_TIMEOUT", "1m")
	t.Setenv("RSJOIN_GATE_DEADLINE_BUFFER", "1500ms")
	t.Setenv("RSJOIN_RETRY_MAX_ATTEMPTS", "10")
	t.Setenv("RSJOIN_RELEASE_TIMEOUT", "3s")

	timeouts := LoadTimeouts()

	if timeouts.ReleaseTimeout != 3*time.Second {
		t.Errorf("Expected ReleaseTimeout 3s, got %v", timeouts.ReleaseTimeout)
	}

	if timeouts.PollSettle != 2*time.Second {
		t.Errorf("Expected PollSettle 2s, got %v", timeouts.PollSettle)
	}
	if timeouts.PollInterval != 3*time.Second {
		t.Errorf("Expected PollInterval 3s, got %v", timeouts.PollInterval)
	}
	if timeouts.Command != time.Minute {
		t.Errorf("Expected Command 1m, got %v", timeouts.Command)
	}
	if timeouts.GateBuffer != 1500*time.Millisecond {
		t.Errorf("Expected GateBuffer 1.5s, got %v", timeouts.GateBuffer)
	}
	if timeouts.RetryMaxAttempts != 10 {
		t.Errorf("Expected RetryMaxAttempts 10, got %d", timeouts.RetryMaxAttempts)
	}
}

func TestLoadTimeouts_InvalidValues(t *testing.T) {
	clearTimeoutEnvVars(t)

	t.Setenv("RSJOIN_POLL_INTERVAL", "soon")
	t.Setenv("RSJOIN_RETRY_MAX_ATTEMPTS", "many")

	timeouts := LoadTimeouts()

	if timeouts.PollInterval != 5*time.Second {
		t.Errorf("Expected PollInterval fallback 5s, got %v", timeouts.PollInterval)
	}
	if timeouts.RetryMaxAttempts != 5 {
		t.Errorf("Expected RetryMaxAttempts fallback 5, got %d", timeouts.RetryMaxAttempts)
	}
}
