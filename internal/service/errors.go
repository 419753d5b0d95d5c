package service

import "errors"

// Failure taxonomy surfaced to the route layer. Access denials on the read
// path are deliberately NOT errors: those calls return nil/false so the
// caller cannot tell a denied resource from a missing one.
var (
	// ErrResourceNotFound: a mutator referenced a resource that does not
	// exist (or is soft-deleted).
	ErrResourceNotFound = errors.New("resource not found")

	// ErrShareNotFound: a share grant ID did not resolve.
	ErrShareNotFound = errors.New("share grant not found")

	// ErrShareTargetRequired: a share request named no user, role or tenant.
	ErrShareTargetRequired = errors.New("share target is required")
)
