package constants

import "errors"

// CLI errors.
var (
	ErrNoAPIConfigured   = errors.New("no API configured, use --api or 'skella config set api <url>'")
	ErrNotLoggedIn       = errors.New("not logged in")
	ErrInvalidAttribute  = errors.New("invalid attribute, expected key=value")
	ErrInvalidOutput     = errors.New("invalid output format, expected table, json or yaml")
	ErrUnknownConfigKey  = errors.New("unknown configuration key")
	ErrEmailRequired     = errors.New("email is required")
	ErrFileFieldRequired = errors.New("--field and --file are required")
	ErrUnknownResource   = errors.New("unknown resource")
)

// Batch errors.
var (
	ErrBatchEmpty  = errors.New("batch file holds no operations")
	ErrBatchFailed = errors.New("batch operations failed")
)
