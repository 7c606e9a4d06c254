package icp

import "fmt"

// LineError records a failed operation on one of the programming lines.
// Line faults do not abort a session; the session counts them and keeps
// the first one for inspection via LineFaults.
type LineError struct {
	// Op names the line operation that failed, e.g. "set DAT"
	Op string

	// Err is the error reported by the LineDriver
	Err error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}
