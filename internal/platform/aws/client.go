package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// Clients holds the SDK clients for every service rsjoin calls.
type Clients struct {
	SSM         *ssm.Client
	EC2         *ec2.Client
	AutoScaling *autoscaling.Client
	SFN         *sfn.Client
	Config      aws.Config
}

// LoadOption configures LoadClients.
type LoadOption func(*loadOptions)

type loadOptions struct {
	endpoint  string
	accessKey string
	secretKey string
}

// WithEndpoint sends every request to endpoint, for local emulators.
func WithEndpoint(endpoint string) LoadOption {
	return func(o *loadOptions) {
		o.endpoint = endpoint
	}
}

// WithStaticCredentials uses fixed credentials instead of the default chain.
func WithStaticCredentials(accessKey, secretKey string) LoadOption {
	return func(o *loadOptions) {
		o.accessKey = accessKey
		o.secretKey = secretKey
	}
}

// LoadClients resolves the AWS configuration for region and builds clients.
func LoadClients(ctx context.Context, region string, opts ...LoadOption) (*Clients, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	cfgOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if o.accessKey != "" {
		cfgOpts = append(cfgOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(o.accessKey, o.secretKey, "")))
	}
	cfg, err := config.LoadDefaultConfig(ctx, cfgOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if o.endpoint != "" {
		cfg.BaseEndpoint = aws.String(o.endpoint)
	}

	return &Clients{
		SSM:         ssm.NewFromConfig(cfg),
		EC2:         ec2.NewFromConfig(cfg),
		AutoScaling: autoscaling.NewFromConfig(cfg),
		SFN:         sfn.NewFromConfig(cfg),
		Config:      cfg,
	}, nil
}
