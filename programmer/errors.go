package programmer

import "fmt"

// DeviceMismatchError indicates that the connected device reported an
// unexpected device ID, or that no device answered at all (a floating DAT
// line reads as an arbitrary ID). The session is closed cleanly through the
// exit handshake before this error is returned, and no flash operation is
// issued.
type DeviceMismatchError struct {
	Expected uint16
	Actual   uint16
}

func (e *DeviceMismatchError) Error() string {
	return fmt.Sprintf("unknown device ID 0x%04X, want 0x%04X", e.Actual, e.Expected)
}

// VerificationError indicates that the flash read-back after programming
// differs from the programmed image. Nothing is rolled back or retried.
type VerificationError struct {
	// Offset is the first differing flash address
	Offset int

	// Expected is the byte that was programmed
	Expected byte

	// Actual is the byte read back
	Actual byte
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("flash verification failed at 0x%04X: wrote 0x%02X, read 0x%02X",
		e.Offset, e.Expected, e.Actual)
}
