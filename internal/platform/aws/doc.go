// Package aws implements the rsjoin collaborator contracts on AWS.
//
// SSM carries remote commands, bootstrap automations and the parameter
// registry. EC2 supplies snapshots and data volumes, Auto Scaling receives
// lifecycle completions, and Step Functions executions serve as the run
// oracle. Each adapter depends on a narrow interface over the SDK client so
// it can be tested against a fake.
package aws
