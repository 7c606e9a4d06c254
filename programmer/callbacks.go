package programmer

import (
	"time"

	"github.com/steve-m/go-nuvoicp/icp"
)

// Workflow phases reported through ProgressCallback.
const (
	PhaseEntering         = "entering"
	PhaseIdentifying      = "identifying"
	PhaseErasing          = "erasing"
	PhaseProgrammingLDROM = "programming ldrom"
	PhaseProgrammingAPROM = "programming aprom"
	PhaseVerifying        = "verifying"
	PhaseReading          = "reading"
	PhaseExiting          = "exiting"
	PhaseComplete         = "complete"
)

// Progress contains information about a running session.
// Passed to ProgressCallback as the workflow advances.
type Progress struct {
	// Phase is the current workflow phase, one of the Phase constants
	Phase string

	// BytesDone is the number of bytes transferred in the current phase
	BytesDone int

	// TotalBytes is the transfer length of the current phase, 0 if none
	TotalBytes int

	// ElapsedTime is the time elapsed since the session started
	ElapsedTime time.Duration
}

// ProgressCallback is called as the programming workflow advances.
// During the programming phases it additionally fires once per 256 written
// bytes. Implementations should return quickly; flash strobe timing resumes
// only after the callback returns.
type ProgressCallback func(Progress)

// Logger is re-exported from the icp package so that one implementation
// can serve both layers.
type Logger = icp.Logger
