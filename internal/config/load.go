package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables read by Load.
const (
	EnvConfigPath      = "RSJOIN_CONFIG"
	EnvRegion          = "AWS_REGION"
	EnvDebug           = "DEBUG"
	EnvDocName         = "DOCNAME"
	EnvQueueURL        = "QUEUEURL"
	EnvPIOPS           = "PIOPS"
	EnvStateMachineARN = "SFN_ARN"
	EnvOracle          = "RSJOIN_ORACLE"
	EnvRegistry        = "RSJOIN_REGISTRY"
	EnvRedisAddr       = "REDIS_ADDR"
	EnvConsulAddr      = "CONSUL_ADDR"
	EnvJournalBucket   = "RSJOIN_JOURNAL_BUCKET"
	EnvMetricsAddr     = "RSJOIN_METRICS_ADDR"
)

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are skipped; existing variables win.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// Load builds the configuration: YAML file (if any), then environment, then
// defaults. Validation is left to ValidateFor so each handler checks only what
// it needs.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}

	cfg := &Config{}
	if path != "" {
		// #nosec G304
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	cfg.Timeouts = LoadTimeouts()

	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Region, EnvRegion)
	setString(&c.Provisioner.AutomationDocument, EnvDocName)
	setString(&c.Provisioner.QueueURL, EnvQueueURL)
	setString(&c.Oracle.StateMachineARN, EnvStateMachineARN)
	setString(&c.Oracle.Backend, EnvOracle)
	setString(&c.Oracle.RedisAddr, EnvRedisAddr)
	setString(&c.Registry.Backend, EnvRegistry)
	setString(&c.Registry.ConsulAddr, EnvConsulAddr)
	setString(&c.Journal.Bucket, EnvJournalBucket)
	setString(&c.Metrics.Addr, EnvMetricsAddr)

	if v := os.Getenv(EnvDebug); v != "" {
		c.Debug = v == "true" || v == "1"
	}
	if v := os.Getenv(EnvPIOPS); v != "" {
		iops, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvPIOPS, v, err)
		}
		c.Provisioner.VolumeIOPS = int32(iops)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Region == "" {
		c.Region = DefaultRegion
	}
	if c.Registry.Backend == "" {
		c.Registry.Backend = RegistrySSM
	}
	if c.Oracle.Backend == "" {
		c.Oracle.Backend = OracleStepFunctions
	}
	if c.Provisioner.VolumeType == "" {
		c.Provisioner.VolumeType = DefaultVolumeType
	}
	if c.Provisioner.VolumeIOPS == 0 {
		c.Provisioner.VolumeIOPS = DefaultVolumeIOPS
	}
	if c.Convergence.CommandDocument == "" {
		c.Convergence.CommandDocument = DefaultCommandDocument
	}
	if c.Convergence.MemberPort == 0 {
		c.Convergence.MemberPort = DefaultMemberPort
	}
}

func setString(dst *string, envVar string) {
	if v := os.Getenv(envVar); v != "" {
		*dst = v
	}
}
