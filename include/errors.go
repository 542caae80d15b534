package include

import "fmt"

// MalformedSpecError reports an include value that cannot be normalized.
// It is returned before any query is issued.
type MalformedSpecError struct {
	Path   string
	Reason string
	Err    error
}

func (e *MalformedSpecError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("malformed include: %s", e.Reason)
	}
	return fmt.Sprintf("malformed include at %s: %s", e.Path, e.Reason)
}

func (e *MalformedSpecError) Unwrap() error { return e.Err }

// QueryError reports a backend failure while resolving one relation. The
// whole resolution fails and no parent is decorated.
type QueryError struct {
	Model    string
	Relation string
	Target   string
	Err      error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("failed to include %s.%s from %s: %v", e.Model, e.Relation, e.Target, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }
