package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/rsjoin/cmd/rsjoin/handlers"
)

// Provisioner returns the command running the lifecycle hook handler.
//
// Optional flags:
//
//	--config, -c: Path to configuration file (default: $RSJOIN_CONFIG)
func Provisioner() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "provisioner",
		Short: "Bootstrap launching instances from lifecycle notifications",
		Long: `Run the provisioner Lambda handler.

Each lifecycle notification names an instance and its slot. The handler
attaches the slot's network interface and volumes, runs the bootstrap
automation and registers the instance. The lifecycle action is completed
with CONTINUE on success and ABANDON otherwise.

Required environment: DOCNAME, QUEUEURL.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Provision(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	return cmd
}

// Gate returns the command running the admission gate handler.
//
// Optional flags:
//
//	--config, -c: Path to configuration file (default: $RSJOIN_CONFIG)
func Gate() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "gate",
		Short: "Admit node-ready messages one convergence run at a time",
		Long: `Run the admission gate Lambda handler.

Node-ready messages are admitted only while no convergence run is active for
their cluster. Messages that cannot be admitted before the invocation deadline
are returned to the queue.

Each admitted run is claimed on the run oracle and executed in this
invocation. With the stepfunctions oracle, SFN_ARN must name a lease-only
state machine (a single Wait state longer than a run); the gate stops the
execution when the run finishes.

Required environment: SFN_ARN (stepfunctions oracle) or REDIS_ADDR (redis oracle).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Gate(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	return cmd
}

// Converge returns the command running one local convergence pass.
//
// Required flags:
//
//	--input, -i: Path to a JSON run input
//
// Optional flags:
//
//	--config, -c: Path to configuration file (default: $RSJOIN_CONFIG)
func Converge() *cobra.Command {
	var configPath string
	var inputPath string

	cmd := &cobra.Command{
		Use:   "converge",
		Short: "Initiate the replica set or add missing members",
		Long: `Run a single convergence pass locally and print the report as JSON.

The pass claims the cluster on the run oracle first, exactly like the gate,
and fails without touching the cluster while another run is active. With the
stepfunctions oracle, SFN_ARN must name a lease-only state machine (a single
Wait state): its executions mark active runs and never converge themselves.

Examples:
  # Converge the members listed in run.json
  rsjoin converge --input run.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Converge(cmd.Context(), configPath, inputPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "Path to a JSON run input")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}
