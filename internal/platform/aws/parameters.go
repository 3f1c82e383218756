package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"github.com/imamik/rsjoin/internal/registry"
	"github.com/imamik/rsjoin/internal/util/retry"
)

// ParameterAPI is the subset of the SSM client used by ParameterStore.
type ParameterAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
	GetParametersByPath(ctx context.Context, params *ssm.GetParametersByPathInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersByPathOutput, error)
	PutParameter(ctx context.Context, params *ssm.PutParameterInput, optFns ...func(*ssm.Options)) (*ssm.PutParameterOutput, error)
}

// ParameterOption configures a ParameterStore.
type ParameterOption func(*ParameterStore)

// WithPutRetries sets how often a throttled PutParameter is retried.
func WithPutRetries(attempts int, initialDelay time.Duration) ParameterOption {
	return func(s *ParameterStore) {
		s.putRetries = attempts
		s.putDelay = initialDelay
	}
}

// WithRetryClock sets the clock used between throttled writes.
func WithRetryClock(clock retry.Clock) ParameterOption {
	return func(s *ParameterStore) {
		s.clock = clock
	}
}

// ParameterStore implements registry.Store on SSM Parameter Store.
type ParameterStore struct {
	api        ParameterAPI
	putRetries int
	putDelay   time.Duration
	clock      retry.Clock
}

var _ registry.Store = (*ParameterStore)(nil)

// NewParameterStore returns a ParameterStore.
func NewParameterStore(api ParameterAPI, opts ...ParameterOption) *ParameterStore {
	s := &ParameterStore{
		api:        api,
		putRetries: 5,
		putDelay:   time.Second,
		clock:      retry.RealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the parameter at key.
func (s *ParameterStore) Get(ctx context.Context, key string) (string, bool, error) {
	out, err := s.api.GetParameter(ctx, &ssm.GetParameterInput{Name: aws.String(key)})
	if err != nil {
		if IsParameterNotFound(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get parameter %s: %w", key, err)
	}
	if out.Parameter == nil {
		return "", false, nil
	}
	return aws.ToString(out.Parameter.Value), true, nil
}

// List returns every parameter below prefix.
func (s *ParameterStore) List(ctx context.Context, prefix string) (map[string]string, error) {
	entries := make(map[string]string)
	paginator := ssm.NewGetParametersByPathPaginator(s.api, &ssm.GetParametersByPathInput{
		Path:      aws.String(prefix),
		Recursive: aws.Bool(true),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list parameters under %s: %w", prefix, err)
		}
		for _, p := range page.Parameters {
			entries[aws.ToString(p.Name)] = aws.ToString(p.Value)
		}
	}
	return entries, nil
}

// Put writes a String parameter. Throttled writes are retried with backoff.
func (s *ParameterStore) Put(ctx context.Context, key, value string, overwrite bool) error {
	err := retry.WithExponentialBackoff(ctx, func(ctx context.Context) error {
		_, err := s.api.PutParameter(ctx, &ssm.PutParameterInput{
			Name:      aws.String(key),
			Value:     aws.String(value),
			Type:      ssmtypes.ParameterTypeString,
			Overwrite: aws.Bool(overwrite),
		})
		return err
	},
		retry.WithMaxRetries(s.putRetries),
		retry.WithInitialDelay(s.putDelay),
		retry.WithClock(s.clock),
		retry.WithRetryable(IsThrottled),
	)
	if err != nil {
		if IsParameterExists(err) {
			return &registry.KeyExistsError{Key: key}
		}
		return fmt.Errorf("failed to put parameter %s: %w", key, err)
	}
	return nil
}
