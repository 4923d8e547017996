package mysql

import "errors"

var (
	// ErrDBRequired is returned when a nil *sql.DB is provided.
	ErrDBRequired = errors.New("tracker mysql: db is required")
	// ErrKeyRequired is returned when a storage key is empty.
	ErrKeyRequired = errors.New("tracker mysql: key is required")
	// ErrTableNameRequired is returned when the table name is empty.
	ErrTableNameRequired = errors.New("tracker mysql: table name is required")
	// ErrInvalidTableName is returned when the table name has disallowed characters.
	ErrInvalidTableName = errors.New("tracker mysql: invalid table name")
	// ErrKeyTooLong is returned when a storage key does not fit the key column.
	ErrKeyTooLong = errors.New("tracker mysql: key is too long")
	// ErrPruneBeforeRequired is returned when prune cutoff is missing.
	ErrPruneBeforeRequired = errors.New("tracker mysql: prune before time is required")
	// ErrPruneLimitInvalid is returned when prune limit is negative.
	ErrPruneLimitInvalid = errors.New("tracker mysql: prune limit must be non-negative")
	// ErrPruneRetentionInvalid is returned when prune retention is not positive.
	ErrPruneRetentionInvalid = errors.New("tracker mysql: prune retention must be positive")
)
