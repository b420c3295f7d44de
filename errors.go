package gotable

import "errors"

var (
	// ErrPageNotFound is returned when a requested page lies outside the known
	// page range. HTTP adapters translate it to 404.
	ErrPageNotFound = errors.New("page not found")

	ErrUnknownColumn           = errors.New("unknown column")
	ErrDuplicateColumn         = errors.New("duplicate column")
	ErrInvalidColumnName       = errors.New("invalid column name")
	ErrUnsupportedPredicate    = errors.New("unsupported predicate")
	ErrDuplicateDefaultProfile = errors.New("default profile already exists")
	ErrProfileStoreMissing     = errors.New("profile store is not configured")
	ErrRendererMissing         = errors.New("renderer is not configured")
	ErrAnonymousUser           = errors.New("anonymous users have no profiles")
)
