package icp

// Direction selects who drives the DAT line.
type Direction int

const (
	// Input releases DAT so the target can drive it
	Input Direction = iota

	// Output lets the programmer drive DAT
	Output
)

// LineDriver is the hardware contract for the three programming lines.
// CLK and RST are always outputs; DAT switches direction during byte reads.
//
// Open acquires the lines and must leave DAT as an input and CLK and RST
// driven low. Close releases the lines; implementations should leave RST
// high so the target runs normally afterwards.
//
// A Session owns the driver for its whole lifetime. Implementations do not
// need to be safe for concurrent use.
type LineDriver interface {
	Open() error
	Close() error

	SetDAT(high bool) error
	GetDAT() (bool, error)
	SetCLK(high bool) error
	SetRST(high bool) error
	SetDATDirection(dir Direction) error
}
