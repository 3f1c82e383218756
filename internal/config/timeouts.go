package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts holds all configurable wait and poll values.
// These values can be customized via environment variables.
type Timeouts struct {
	PollSettle        time.Duration // Wait after submitting a command before the first status check
	PollInterval      time.Duration // Wait between status checks of a command or automation
	Command           time.Duration // Remote execution timeout handed to the command service
	GatePollInterval  time.Duration // Wait between active-run checks while a run is in flight
	GateBuffer        time.Duration // Time left before the invocation deadline at which the gate defers
	LeaseTTL          time.Duration // Lifetime of a run lease if its holder dies without releasing
	ReleaseTimeout    time.Duration // Time reserved for releasing a run or completing a lifecycle action
	RetryMaxAttempts  int           // Maximum number of retries for throttled writes
	RetryInitialDelay time.Duration // Initial delay between write retries
}

// LoadTimeouts loads timeout configuration from environment variables.
// If an environment variable is not set or invalid, a default value is used.
//
// Environment Variables:
//   - RSJOIN_POLL_SETTLE (default: 5s)
//   - RSJOIN_POLL_INTERVAL (default: 5s)
//   - RSJOIN_COMMAND_TIMEOUT (default: 30s)
//   - RSJOIN_GATE_POLL_INTERVAL (default: 5s)
//   - RSJOIN_GATE_DEADLINE_BUFFER (default: 1s)
//   - RSJOIN_LEASE_TTL (default: 15m)
//   - RSJOIN_RELEASE_TIMEOUT (default: 5s)
//   - RSJOIN_RETRY_MAX_ATTEMPTS (default: 5)
//   - RSJOIN_RETRY_INITIAL_DELAY (default: 1s)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		PollSettle:        parseDuration("RSJOIN_POLL_SETTLE", 5*time.Second),
		PollInterval:      parseDuration("RSJOIN_POLL_INTERVAL", 5*time.Second),
		Command:           parseDuration("RSJOIN_COMMAND_TIMEOUT", 30*time.Second),
		GatePollInterval:  parseDuration("RSJOIN_GATE_POLL_INTERVAL", 5*time.Second),
		GateBuffer:        parseDuration("RSJOIN_GATE_DEADLINE_BUFFER", 1*time.Second),
		LeaseTTL:          parseDuration("RSJOIN_LEASE_TTL", 15*time.Minute),
		ReleaseTimeout:    parseDuration("RSJOIN_RELEASE_TIMEOUT", 5*time.Second),
		RetryMaxAttempts:  parseInt("RSJOIN_RETRY_MAX_ATTEMPTS", 5),
		RetryInitialDelay: parseDuration("RSJOIN_RETRY_INITIAL_DELAY", 1*time.Second),
	}
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}

	return d
}

// parseInt parses an integer from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return i
}
