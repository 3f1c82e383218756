package config

// Config is the complete runtime configuration.
type Config struct {
	Region      string            `yaml:"region"`
	Debug       bool              `yaml:"debug"`
	Registry    RegistryConfig    `yaml:"registry"`
	Oracle      OracleConfig      `yaml:"oracle"`
	Provisioner ProvisionerConfig `yaml:"provisioner"`
	Convergence ConvergenceConfig `yaml:"convergence"`
	Journal     JournalConfig     `yaml:"journal"`
	Metrics     MetricsConfig     `yaml:"metrics"`

	// Timeouts is populated from the environment by Load.
	Timeouts *Timeouts `yaml:"-"`
}

// RegistryConfig selects where node identities and volume IDs are stored.
type RegistryConfig struct {
	Backend    string `yaml:"backend"`
	ConsulAddr string `yaml:"consul_addr"`
}

// OracleConfig selects the source of truth for active convergence runs.
type OracleConfig struct {
	Backend         string `yaml:"backend"`
	StateMachineARN string `yaml:"state_machine_arn"`
	RedisAddr       string `yaml:"redis_addr"`
	RedisDB         int    `yaml:"redis_db"`
}

// ProvisionerConfig drives node bootstrap on lifecycle events.
type ProvisionerConfig struct {
	AutomationDocument string `yaml:"automation_document"`
	QueueURL           string `yaml:"queue_url"`
	VolumeType         string `yaml:"volume_type"`
	VolumeIOPS         int32  `yaml:"volume_iops"`
	EncryptVolumes     *bool  `yaml:"encrypt_volumes"`
}

// Encrypted reports whether new data volumes are encrypted (default true).
func (p ProvisionerConfig) Encrypted() bool {
	return p.EncryptVolumes == nil || *p.EncryptVolumes
}

// ConvergenceConfig tunes the commands issued against the replica set.
type ConvergenceConfig struct {
	CommandDocument   string `yaml:"command_document"`
	MemberPort        int    `yaml:"member_port"`
	NewMemberPriority int    `yaml:"new_member_priority"`
	NewMemberVotes    int    `yaml:"new_member_votes"`
	VerifyProcesses   *bool  `yaml:"verify_processes"`
}

// ShouldVerifyProcesses reports whether members are checked for a running
// database process before inspection (default true).
func (c ConvergenceConfig) ShouldVerifyProcesses() bool {
	return c.VerifyProcesses == nil || *c.VerifyProcesses
}

// JournalConfig enables persisting run reports to object storage.
type JournalConfig struct {
	Bucket   string `yaml:"bucket"`
	Prefix   string `yaml:"prefix"`
	Endpoint string `yaml:"endpoint"`
}

// Enabled reports whether a journal bucket is configured.
func (j JournalConfig) Enabled() bool {
	return j.Bucket != ""
}

// MetricsConfig enables the metrics HTTP listener.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}
