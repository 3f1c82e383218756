package config

// Defaults for the replica set and the remote command transport.
const (
	// DefaultMemberPort is the port appended to every member address.
	DefaultMemberPort = 27017

	// DefaultCommandDocument runs shell commands on a managed instance.
	DefaultCommandDocument = "AWS-RunShellScript"

	DefaultVolumeType = "io1"
	DefaultVolumeIOPS = 1000

	DefaultRegion = "us-west-2"
)

// Backends for the registry and the run oracle.
const (
	RegistrySSM    = "ssm"
	RegistryConsul = "consul"

	OracleStepFunctions = "stepfunctions"
	OracleRedis         = "redis"
)

// Component names a runnable handler, used to scope validation.
type Component string

const (
	ComponentProvisioner Component = "provisioner"
	ComponentGate        Component = "gate"
	ComponentConverge    Component = "converge"
)
