package cli

import "errors"

var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrConfigFileRead     = errors.New("cannot read config file")
	ErrConfigInvalid      = errors.New("invalid config")
	ErrDBPathEmpty        = errors.New("db path cannot be empty")
	ErrInvalidLogLevel    = errors.New("invalid log level")
	ErrInvalidLogFormat   = errors.New("invalid log format")
	ErrUnknownCommand     = errors.New("unknown command")
	ErrTableRequired      = errors.New("table name is required")
	ErrInvalidWhere       = errors.New("invalid where expression")
	ErrInvalidFormat      = errors.New("invalid output format")
	ErrInvalidRowJSON     = errors.New("row must be a JSON object or an array of objects")
	ErrNoRowSelector      = errors.New("one of --where, --at or --all is required")
	ErrConflictingFlags   = errors.New("conflicting flags")
)
