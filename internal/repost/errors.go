package repost

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Validation check identifiers carried on ValidationError for observability.
const (
	CheckEmptyText         = "empty_text"
	CheckTextTooLong       = "text_too_long"
	CheckMediaNoncompliant = "media_noncompliant"
)

// MissingEnvError is returned when required publisher configuration is missing.
type MissingEnvError struct {
	Provider  string
	Variables []string
}

func (e MissingEnvError) Error() string {
	if len(e.Variables) == 0 {
		return fmt.Sprintf("%s credentials not configured", e.Provider)
	}
	return fmt.Sprintf("%s credentials not configured (missing %s)", e.Provider, strings.Join(e.Variables, ", "))
}

// ValidationError reports which post-shaping check rejected a payload.
type ValidationError struct {
	Check  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed (%s): %s", e.Check, e.Reason)
}

// ProviderError marks a text-generation provider failure. Callers recover
// from it by switching to the deterministic fallback transform.
type ProviderError struct {
	Err error
}

func (e ProviderError) Error() string {
	return fmt.Sprintf("text provider unavailable: %v", e.Err)
}

func (e ProviderError) Unwrap() error { return e.Err }

// Classify maps an error from a collaborator to an ErrorKind.
func Classify(err error) ErrorKind {
	var ve ValidationError
	if errors.As(err, &ve) {
		return KindValidationFailed
	}
	var pe ProviderError
	if errors.As(err, &pe) {
		return KindProviderUnavailable
	}
	var me MissingEnvError
	if errors.As(err, &me) {
		return KindPublishRejected
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindUnknown
	}
	var re RejectedError
	if errors.As(err, &re) {
		return KindPublishRejected
	}
	return KindUnknown
}

// RejectedError wraps a remote refusal from a platform API (auth, quota,
// content policy) so batch summaries can distinguish it from transport bugs.
type RejectedError struct {
	Provider string
	Err      error
}

func (e RejectedError) Error() string {
	return fmt.Sprintf("%s rejected post: %v", e.Provider, e.Err)
}

func (e RejectedError) Unwrap() error { return e.Err }
