package filter

import "errors"

var (
	// ErrInvalidWhere is returned when a where clause cannot be parsed.
	ErrInvalidWhere = errors.New("invalid where clause")

	// ErrInvalidOrder is returned for unparseable order clauses.
	ErrInvalidOrder = errors.New("invalid order clause")

	// ErrInvalidFilter covers limit, skip and fields values.
	ErrInvalidFilter = errors.New("invalid filter")
)
