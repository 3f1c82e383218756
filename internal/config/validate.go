package config

import (
	"fmt"
	"strings"

	"github.com/imamik/rsjoin/internal/cluster"
)

// ValidRegistryBackends lists the supported registry stores.
var ValidRegistryBackends = map[string]bool{
	RegistrySSM:    true,
	RegistryConsul: true,
}

// ValidOracleBackends lists the supported run oracles.
var ValidOracleBackends = map[string]bool{
	OracleStepFunctions: true,
	OracleRedis:         true,
}

// ValidateFor checks the settings the given component depends on.
// Missing values are reported as *cluster.ConfigError.
func (c *Config) ValidateFor(component Component) error {
	var problems []string

	if !ValidRegistryBackends[c.Registry.Backend] {
		problems = append(problems, fmt.Sprintf("unknown registry backend %q", c.Registry.Backend))
	}
	if c.Registry.Backend == RegistryConsul && c.Registry.ConsulAddr == "" {
		problems = append(problems, "registry.consul_addr is required for the consul backend")
	}

	switch component {
	case ComponentProvisioner:
		if c.Provisioner.AutomationDocument == "" {
			problems = append(problems, "provisioner.automation_document (DOCNAME) is required")
		}
		if c.Provisioner.QueueURL == "" {
			problems = append(problems, "provisioner.queue_url (QUEUEURL) is required")
		}
		if c.Provisioner.VolumeIOPS < 0 {
			problems = append(problems, "provisioner.volume_iops must not be negative")
		}
	case ComponentGate:
		problems = append(problems, c.validateOracle()...)
		problems = append(problems, c.validateConvergence()...)
	case ComponentConverge:
		problems = append(problems, c.validateOracle()...)
		problems = append(problems, c.validateConvergence()...)
	default:
		problems = append(problems, fmt.Sprintf("unknown component %q", component))
	}

	if len(problems) > 0 {
		return &cluster.ConfigError{Field: string(component), Reason: strings.Join(problems, "; ")}
	}
	return nil
}

func (c *Config) validateOracle() []string {
	var problems []string
	if !ValidOracleBackends[c.Oracle.Backend] {
		return []string{fmt.Sprintf("unknown oracle backend %q", c.Oracle.Backend)}
	}
	if c.Oracle.Backend == OracleStepFunctions && c.Oracle.StateMachineARN == "" {
		problems = append(problems, "oracle.state_machine_arn (SFN_ARN) is required for the stepfunctions oracle")
	}
	if c.Oracle.Backend == OracleRedis && c.Oracle.RedisAddr == "" {
		problems = append(problems, "oracle.redis_addr (REDIS_ADDR) is required for the redis oracle")
	}
	return problems
}

func (c *Config) validateConvergence() []string {
	var problems []string
	if c.Convergence.MemberPort <= 0 || c.Convergence.MemberPort > 65535 {
		problems = append(problems, fmt.Sprintf("convergence.member_port %d out of range", c.Convergence.MemberPort))
	}
	if c.Convergence.NewMemberVotes < 0 || c.Convergence.NewMemberVotes > 1 {
		problems = append(problems, "convergence.new_member_votes must be 0 or 1")
	}
	if c.Convergence.NewMemberPriority < 0 {
		problems = append(problems, "convergence.new_member_priority must not be negative")
	}
	return problems
}
