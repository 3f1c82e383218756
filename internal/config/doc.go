// Package config defines the runtime configuration shared by the provisioner,
// the admission gate and the convergence controller.
//
// A [Config] is read from an optional YAML file, then overridden by
// environment variables (the same names the deployment templates set, such as
// DOCNAME, QUEUEURL, PIOPS and SFN_ARN), then completed with defaults and
// validated for the component that is about to run. Wait and poll timings live
// in [Timeouts] and come from the environment only.
package config
