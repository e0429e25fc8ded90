package export

import "errors"

var (
	ErrUnknownFormat = errors.New("unknown export format")
	ErrEmptyMesh     = errors.New("mesh has no triangles")
)

// Error reports a failure in one format's exporter.
type Error struct {
	Format string
	Err    error
}

func (e *Error) Error() string {
	return "export " + e.Format + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrap(format string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Format: format, Err: err}
}
