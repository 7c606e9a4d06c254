// Package sim provides a simulated N76E003 wired to a simulated three-line
// bus. Device implements icp.LineDriver and decodes the real bit-level
// protocol: the entry pattern on RST, the unlock word, 24-bit command
// frames and the per-byte end markers. It exists so that sessions and
// programming workflows can be exercised without hardware.
package sim

import (
	"github.com/steve-m/go-nuvoicp/icp"
)

// Transfer phases of the simulated target.
type mode int

const (
	// modeCommand accumulates the 24 bits of the next command frame
	modeCommand mode = iota

	// modeRead shifts a data byte out to the programmer
	modeRead

	// modeReadEnd waits for the end-marker clock after a shifted byte
	modeReadEnd

	// modeWrite shifts a data byte in, then commits it on the strobe clock
	modeWrite
)

// Device simulates an N76E003 target. The zero value is not usable; create
// devices with NewDevice.
//
// The simulation is driven entirely by line transitions: every rising CLK
// edge advances the protocol state machine, and RST transitions are matched
// against the entry pattern. Until the pattern and the unlock word have
// both been seen, clock edges are ignored, exactly like a real part that
// has not been switched into programming mode.
type Device struct {
	DeviceID uint16
	CID      byte
	UID      uint32
	UCID     uint32

	flash  [icp.FlashSize]byte
	config [icp.CfgFlashLen]byte

	opened  bool
	openErr error

	// line state as driven by the programmer
	dat    bool
	clk    bool
	datDir icp.Direction

	// outBit is what the device drives on DAT while the programmer reads
	outBit bool

	// entry handshake tracking
	rstWindow uint32
	rstCount  int
	armed     bool
	unlocked  bool

	// command frame accumulator
	shift uint32
	nbits int

	// current transfer
	mode      mode
	opcode    byte
	addr      uint32
	flashRead bool
	pending   []byte
	cur       byte
	curBit    int
	wByte     byte
	wBits     int

	ops []byte
}

// NewDevice returns a simulated device with an erased flash array and the
// identity values of a factory-fresh N76E003.
func NewDevice() *Device {
	d := &Device{
		DeviceID: icp.DeviceIDN76E003,
		CID:      0xDA,
		UID:      0x123456,
		UCID:     0xDEADBEEF,
	}
	d.eraseAll()
	return d
}

// SetOpenError makes the next Open call fail with err.
func (d *Device) SetOpenError(err error) {
	d.openErr = err
}

// LoadFlash copies img into the flash array starting at address 0.
func (d *Device) LoadFlash(img []byte) {
	copy(d.flash[:], img)
}

// FlashImage returns a copy of the entire flash array.
func (d *Device) FlashImage() []byte {
	img := make([]byte, len(d.flash))
	copy(img, d.flash[:])
	return img
}

// ConfigBytes returns a copy of the config block.
func (d *Device) ConfigBytes() []byte {
	cfg := make([]byte, len(d.config))
	copy(cfg, d.config[:])
	return cfg
}

// InProgrammingMode reports whether the device has seen the full entry
// handshake and not yet the exit sequence.
func (d *Device) InProgrammingMode() bool {
	return d.unlocked
}

// Commands returns the opcodes of all command frames decoded so far.
func (d *Device) Commands() []byte {
	ops := make([]byte, len(d.ops))
	copy(ops, d.ops)
	return ops
}

// icp.LineDriver implementation.

func (d *Device) Open() error {
	if d.openErr != nil {
		return d.openErr
	}
	d.opened = true
	d.datDir = icp.Input
	d.clk = false
	return nil
}

func (d *Device) Close() error {
	d.opened = false
	return nil
}

func (d *Device) SetDAT(high bool) error {
	d.dat = high
	return nil
}

func (d *Device) GetDAT() (bool, error) {
	if d.datDir == icp.Input {
		return d.outBit, nil
	}
	return d.dat, nil
}

func (d *Device) SetCLK(high bool) error {
	rising := high && !d.clk
	d.clk = high
	if rising {
		d.clockRise()
	}
	return nil
}

func (d *Device) SetRST(high bool) error {
	bit := uint32(0)
	if high {
		bit = 1
	}
	d.rstWindow = (d.rstWindow<<1 | bit) & 0xFFFFFF
	d.rstCount++

	if d.rstCount >= icp.CommandBits && d.rstWindow == icp.EntrySequence {
		d.armed = true
		d.unlocked = false
		d.shift = 0
		d.nbits = 0
	}
	return nil
}

func (d *Device) SetDATDirection(dir icp.Direction) error {
	d.datDir = dir
	return nil
}

// clockRise advances the protocol state machine by one clock.
func (d *Device) clockRise() {
	if !d.armed {
		return
	}
	if !d.unlocked {
		d.shiftInUnlock()
		return
	}

	switch d.mode {
	case modeCommand:
		d.shiftInCommand()
	case modeRead:
		d.shiftOutData()
	case modeReadEnd:
		d.finishReadByte()
	case modeWrite:
		d.shiftInWrite()
	}
}

func (d *Device) shiftInUnlock() {
	d.shift = d.shift<<1 | d.datBit()
	d.nbits++
	if d.nbits < icp.CommandBits {
		return
	}

	if d.shift == icp.UnlockSequence {
		d.unlocked = true
		d.mode = modeCommand
	}
	d.shift = 0
	d.nbits = 0
}

func (d *Device) shiftInCommand() {
	d.shift = (d.shift<<1 | d.datBit()) & 0xFFFFFF
	d.nbits++
	if d.nbits < icp.CommandBits {
		return
	}

	frame := d.shift
	d.shift = 0
	d.nbits = 0

	if frame == icp.ExitSequence {
		d.unlocked = false
		d.armed = false
		return
	}

	opcode := byte(frame & 0x3F)
	payload := frame >> icp.OpcodeBits
	d.ops = append(d.ops, opcode)

	switch opcode {
	case icp.CmdReadDeviceID:
		d.startRead([]byte{byte(d.DeviceID), byte(d.DeviceID >> 8)})
	case icp.CmdReadCID:
		d.startRead([]byte{d.CID})
	case icp.CmdReadUID:
		if payload >= icp.UCIDIndexOffset {
			d.startRead([]byte{byte(d.UCID >> (8 * (payload - icp.UCIDIndexOffset)))})
		} else {
			d.startRead([]byte{byte(d.UID >> (8 * payload))})
		}
	case icp.CmdReadFlash:
		d.opcode = opcode
		d.addr = payload
		d.flashRead = true
		d.pending = nil
		d.loadReadByte()
	case icp.CmdWriteFlash, icp.CmdPageErase:
		d.opcode = opcode
		d.addr = payload
		d.wByte = 0
		d.wBits = 0
		d.mode = modeWrite
	case icp.CmdMassErase:
		if payload != icp.MassEraseKey {
			return
		}
		d.opcode = opcode
		d.wByte = 0
		d.wBits = 0
		d.mode = modeWrite
	}
}

func (d *Device) startRead(data []byte) {
	d.flashRead = false
	d.pending = data
	d.loadReadByte()
}

// loadReadByte prepares the next byte to shift out and presents its MSB on
// DAT before the programmer samples it.
func (d *Device) loadReadByte() {
	if d.flashRead {
		d.cur = d.memRead(d.addr)
		d.addr++
	} else if len(d.pending) > 0 {
		d.cur = d.pending[0]
		d.pending = d.pending[1:]
	} else {
		d.cur = 0xFF
	}

	d.curBit = 7
	d.outBit = d.cur>>7&1 == 1
	d.mode = modeRead
}

func (d *Device) shiftOutData() {
	d.curBit--
	if d.curBit < 0 {
		d.mode = modeReadEnd
		return
	}
	d.outBit = d.cur>>d.curBit&1 == 1
}

func (d *Device) finishReadByte() {
	if d.dat {
		// end marker set: transfer over
		d.mode = modeCommand
		d.pending = nil
		return
	}
	d.loadReadByte()
}

func (d *Device) shiftInWrite() {
	if d.wBits < 8 {
		d.wByte = d.wByte<<1 | byte(d.datBit())
		d.wBits++
		return
	}

	// ninth clock: DAT carries the end marker and CLK high is the strobe
	last := d.dat
	d.commitWrite(d.wByte)
	d.wByte = 0
	d.wBits = 0
	if last {
		d.mode = modeCommand
	}
}

func (d *Device) commitWrite(b byte) {
	switch d.opcode {
	case icp.CmdWriteFlash:
		d.memWrite(d.addr, b)
		d.addr++
	case icp.CmdMassErase:
		d.eraseAll()
	case icp.CmdPageErase:
		if d.addr < icp.FlashSize {
			page := d.addr &^ (icp.PageSize - 1)
			for i := uint32(0); i < icp.PageSize; i++ {
				d.flash[page+i] = 0xFF
			}
		}
	}
}

func (d *Device) eraseAll() {
	for i := range d.flash {
		d.flash[i] = 0xFF
	}
	for i := range d.config {
		d.config[i] = 0xFF
	}
}

func (d *Device) memRead(addr uint32) byte {
	switch {
	case addr < icp.FlashSize:
		return d.flash[addr]
	case addr >= icp.CfgFlashAddr && addr < icp.CfgFlashAddr+icp.CfgFlashLen:
		return d.config[addr-icp.CfgFlashAddr]
	}
	return 0xFF
}

func (d *Device) memWrite(addr uint32, b byte) {
	switch {
	case addr < icp.FlashSize:
		d.flash[addr] = b
	case addr >= icp.CfgFlashAddr && addr < icp.CfgFlashAddr+icp.CfgFlashLen:
		d.config[addr-icp.CfgFlashAddr] = b
	}
}

func (d *Device) datBit() uint32 {
	if d.dat {
		return 1
	}
	return 0
}
