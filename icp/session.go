package icp

import (
	"fmt"
	"time"
)

// Session is one programming-mode session with the target. It owns the
// three lines between Open and Close; no other code may drive them while
// the session exists.
//
// Session is not safe for concurrent use. The ICP protocol is strictly
// sequential and depends on real-time ordering of line transitions.
type Session struct {
	drv    LineDriver
	config Config

	// sleep is swapped out in tests; protocol timing goes through it
	sleep func(time.Duration)

	faults     int
	firstFault error
}

// Open acquires the lines and performs the power-on entry handshake,
// leaving the target in programming mode. The returned session must be
// closed to run the exit handshake and release the lines.
//
// Example:
//
//	drv := rpi.New(20, 26, 21)
//	sess, err := icp.Open(drv, icp.WithLogger(myLogger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sess.Close()
func Open(drv LineDriver, opts ...Option) (*Session, error) {
	if drv == nil {
		panic("driver cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Session{
		drv:    drv,
		config: cfg,
		sleep:  time.Sleep,
	}

	if err := drv.Open(); err != nil {
		return nil, fmt.Errorf("acquire lines: %w", err)
	}

	s.logDebug("entering programming mode")
	s.enter()

	return s, nil
}

// Close performs the exit handshake, returning the target to normal run
// mode, and releases the lines.
func (s *Session) Close() error {
	s.logDebug("leaving programming mode")
	s.exit()

	if err := s.drv.Close(); err != nil {
		return fmt.Errorf("release lines: %w", err)
	}
	return nil
}

// LineFaults reports how many line operations failed during the session so
// far, and the first recorded fault. Line faults are deliberately non-fatal:
// the protocol has no way to resynchronize mid-transfer, so the session
// presses on and leaves the caller to judge the damage.
func (s *Session) LineFaults() (int, error) {
	return s.faults, s.firstFault
}

// enter drives the fixed power-on entry handshake: the 24-bit RST pattern
// at one bit per EntryBitTime, a short settle, then the unlock word.
func (s *Session) enter() {
	for i := CommandBits - 1; i >= 0; i-- {
		s.setRST(EntrySequence>>i&1 == 1)
		s.sleep(EntryBitTime)
	}

	s.sleep(EntrySettleTime)

	s.SendBits(UnlockSequence, CommandBits)
}

// exit drives the fixed exit handshake and leaves RST high.
func (s *Session) exit() {
	s.setRST(true)
	s.sleep(ExitResetHighTime)
	s.setRST(false)
	s.sleep(ExitResetLowTime)

	s.SendBits(ExitSequence, CommandBits)

	s.sleep(ExitSettleTime)
	s.setRST(true)
}

// SendBits shifts out the low count bits of value on DAT, most significant
// first, pulsing CLK once per bit. DAT is switched to an output first.
// count must be between 1 and MaxSendBits.
func (s *Session) SendBits(value uint32, count int) error {
	if count < 1 || count > MaxSendBits {
		return fmt.Errorf("bit count must be between 1 and %d, got %d", MaxSendBits, count)
	}

	s.setDATDirection(Output)

	for i := count - 1; i >= 0; i-- {
		s.setDAT(value>>i&1 == 1)
		s.setCLK(true)
		s.setCLK(false)
	}

	return nil
}

// SendCommand transmits one 24-bit command frame: the opcode in the low
// 6 bits, the payload (an address or sub-index) in the upper 18.
func (s *Session) SendCommand(opcode byte, payload uint32) {
	s.SendBits(payload<<OpcodeBits|uint32(opcode), CommandBits)
}

// ReadByte clocks in one byte from the target, most significant bit first,
// then acknowledges it with the end marker: last reports whether this was
// the final byte of the transfer.
func (s *Session) ReadByte(last bool) byte {
	s.setDATDirection(Input)

	var data byte
	for i := 7; i >= 0; i-- {
		if s.getDAT() {
			data |= 1 << i
		}
		s.setCLK(true)
		s.setCLK(false)
	}

	s.setDATDirection(Output)
	s.setDAT(last)
	s.setCLK(true)
	s.setCLK(false)
	s.setDAT(false)

	return data
}

// WriteByte shifts out one byte followed by the end marker, then holds CLK
// high for the program/erase strobe. settle elapses between asserting the
// end marker and raising CLK; strobe is the CLK high period, which is the
// actual flash program or erase pulse and varies by operation.
func (s *Session) WriteByte(data byte, last bool, settle, strobe time.Duration) {
	s.SendBits(uint32(data), 8)

	s.setDAT(last)
	s.sleep(settle)
	s.setCLK(true)
	s.sleep(strobe)
	s.setDAT(false)
	s.setCLK(false)
}

// Line helpers. A failing line operation is logged and counted but does not
// abort the sequence; see LineFaults.

func (s *Session) setDAT(high bool) {
	if err := s.drv.SetDAT(high); err != nil {
		s.lineFault("set DAT", err)
	}
}

func (s *Session) getDAT() bool {
	high, err := s.drv.GetDAT()
	if err != nil {
		s.lineFault("get DAT", err)
		return false
	}
	return high
}

func (s *Session) setCLK(high bool) {
	if err := s.drv.SetCLK(high); err != nil {
		s.lineFault("set CLK", err)
	}
}

func (s *Session) setRST(high bool) {
	if err := s.drv.SetRST(high); err != nil {
		s.lineFault("set RST", err)
	}
}

func (s *Session) setDATDirection(dir Direction) {
	if err := s.drv.SetDATDirection(dir); err != nil {
		s.lineFault("set DAT direction", err)
	}
}

func (s *Session) lineFault(op string, err error) {
	s.faults++
	if s.firstFault == nil {
		s.firstFault = &LineError{Op: op, Err: err}
	}
	s.logError(op+" failed", "err", err)
}

func (s *Session) logDebug(msg string, keysAndValues ...interface{}) {
	if s.config.Logger != nil {
		s.config.Logger.Debug(msg, keysAndValues...)
	}
}

func (s *Session) logError(msg string, keysAndValues ...interface{}) {
	if s.config.Logger != nil {
		s.config.Logger.Error(msg, keysAndValues...)
	}
}
