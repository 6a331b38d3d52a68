package domain

import "errors"

var (
	// ErrNotCredible means a strategy ran and found its source untrustworthy.
	ErrNotCredible = errors.New("source not credible")
	// ErrNoCredibleResults means no strategy exists for the requested role.
	ErrNoCredibleResults = errors.New("no credible results")

	ErrContextExists      = errors.New("context already present")
	ErrRoleContextMissing = errors.New("role points at missing context")
	ErrInvalidSubject     = errors.New("invalid subject")
)
