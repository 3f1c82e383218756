package aws

import (
	"errors"

	"github.com/aws/smithy-go"
)

// isAPIErrorCode checks if the error is an AWS API error with one of the given codes.
func isAPIErrorCode(err error, codes ...string) bool {
	if err == nil {
		return false
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		for _, code := range codes {
			if apiErr.ErrorCode() == code {
				return true
			}
		}
	}
	return false
}

// IsParameterNotFound checks if a parameter lookup missed.
func IsParameterNotFound(err error) bool {
	return isAPIErrorCode(err, "ParameterNotFound")
}

// IsInvocationPending checks if a command invocation is not visible yet.
// Invocations lag behind SendCommand by a few seconds.
func IsInvocationPending(err error) bool {
	return isAPIErrorCode(err, "InvocationDoesNotExist")
}

// IsThrottled checks if an error indicates rate limiting. These errors are retryable.
func IsThrottled(err error) bool {
	return isAPIErrorCode(err,
		"ThrottlingException",
		"Throttling",
		"TooManyUpdates",
		"RequestLimitExceeded",
	)
}

// IsParameterExists checks if a non-overwriting put hit an existing parameter.
func IsParameterExists(err error) bool {
	return isAPIErrorCode(err, "ParameterAlreadyExists")
}

// IsExecutionNotFound checks if a Step Functions execution no longer exists.
func IsExecutionNotFound(err error) bool {
	return isAPIErrorCode(err, "ExecutionDoesNotExist")
}
