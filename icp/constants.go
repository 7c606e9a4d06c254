package icp

import "time"

// Command opcodes per the N76E003 ICP command set.
// Each command is transmitted as the low 6 bits of a 24-bit frame,
// with the payload (address or sub-index) occupying the upper 18 bits.
const (
	// CmdReadFlash reads a sequence of flash bytes starting at the payload address
	CmdReadFlash = 0x00

	// CmdReadUID reads one byte of the unique ID; the payload selects the byte index.
	// Indices 0x20-0x23 select the unique customer ID instead.
	CmdReadUID = 0x04

	// CmdReadCID reads the single company ID byte
	CmdReadCID = 0x0B

	// CmdReadDeviceID reads the 16-bit device ID, low byte first
	CmdReadDeviceID = 0x0C

	// CmdWriteFlash programs a sequence of flash bytes starting at the payload address
	CmdWriteFlash = 0x21

	// CmdPageErase erases the flash page containing the payload address
	CmdPageErase = 0x22

	// CmdMassErase erases the entire flash array; the payload must be MassEraseKey
	CmdMassErase = 0x26
)

// MassEraseKey is the fixed payload required by CmdMassErase.
const MassEraseKey = 0x3A5A5

// Handshake sequences. All three are transmitted most-significant-bit first
// and must be reproduced bit-exactly; the target resynchronizes on them.
const (
	// EntrySequence is driven onto RST one bit per EntryBitTime to start a session
	EntrySequence = 0x9E1CB6

	// UnlockSequence is clocked out on DAT right after the RST pattern,
	// switching the target into programming mode
	UnlockSequence = 0x5AA503

	// ExitSequence is clocked out on DAT during the exit handshake,
	// returning the target to normal run mode
	ExitSequence = 0xF78F0
)

// Handshake timing.
const (
	// EntryBitTime is how long each bit of EntrySequence is held on RST
	EntryBitTime = 10 * time.Millisecond

	// EntrySettleTime elapses between the RST pattern and UnlockSequence
	EntrySettleTime = 100 * time.Microsecond

	// ExitResetHighTime is the initial RST high period of the exit handshake
	ExitResetHighTime = 5 * time.Millisecond

	// ExitResetLowTime is the RST low period preceding ExitSequence
	ExitResetLowTime = 10 * time.Millisecond

	// ExitSettleTime elapses after ExitSequence before RST is released high
	ExitSettleTime = 500 * time.Microsecond
)

// Program and erase strobes. The first duration of each pair is the settling
// time before the CLK strobe is asserted, the second is the strobe width.
const (
	// FlashWriteSettleTime precedes each byte program strobe
	FlashWriteSettleTime = 200 * time.Microsecond

	// FlashWriteStrobeTime is the per-byte program strobe width
	FlashWriteStrobeTime = 50 * time.Microsecond

	// MassEraseSettleTime precedes the mass erase strobe
	MassEraseSettleTime = 100 * time.Millisecond

	// MassEraseStrobeTime is the mass erase strobe width
	MassEraseStrobeTime = 10 * time.Millisecond

	// PageEraseSettleTime precedes the page erase strobe
	PageEraseSettleTime = 10 * time.Millisecond

	// PageEraseStrobeTime is the page erase strobe width
	PageEraseStrobeTime = 1 * time.Millisecond
)

// Flash geometry of the N76E003.
const (
	// FlashSize is the size of the entire flash address space in bytes
	FlashSize = 18 * 1024

	// LDROMMaxSize is the largest configurable LDROM size in bytes
	LDROMMaxSize = 4 * 1024

	// PageSize is the erase page size in bytes
	PageSize = 128

	// APROMFlashAddr is the start address of the APROM region
	APROMFlashAddr = 0x0

	// CfgFlashAddr is the fixed address of the config block
	CfgFlashAddr = 0x30000

	// CfgFlashLen is the config block length in bytes
	CfgFlashLen = 5
)

// DeviceIDN76E003 is the device ID reported by the supported target family.
const DeviceIDN76E003 = 0x3650

// Frame layout.
const (
	// CommandBits is the width of a command frame in bits
	CommandBits = 24

	// OpcodeBits is the width of the opcode field at the bottom of a frame
	OpcodeBits = 6

	// MaxSendBits is the widest bit group SendBits can transmit
	MaxSendBits = 32

	// UCIDIndexOffset is added to the CmdReadUID payload to select UCID bytes
	UCIDIndexOffset = 0x20
)

// writeProgressStep is how often WriteFlash reports progress, in bytes.
const writeProgressStep = 256
