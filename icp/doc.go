// Package icp implements the Nuvoton N76E003 In-Circuit Programming protocol
// over three GPIO lines: clock (CLK), bidirectional data (DAT) and reset (RST).
//
// # Protocol Overview
//
// The interface is software clocked. Commands are 24-bit frames shifted out
// on DAT most-significant-bit first:
//
//	[PAYLOAD(18)][OPCODE(6)]
//
// where the payload carries a flash address or a sub-index. Data bytes follow
// in either direction, eight bits MSB-first, each byte terminated by a single
// end-marker bit: 0 means another byte follows in the current transfer,
// 1 means the transfer is over. The end marker is the only framing the
// protocol has.
//
// Programming and erasing are driven by the CLK line itself: after a byte
// (or the 0xFF dummy byte of an erase) is shifted out, CLK is held high for
// the flash program/erase pulse. The two durations passed to WriteByte are
// the settle time before that strobe and the strobe width; they differ per
// operation and must not be shortened.
//
// # Sessions
//
// A target enters programming mode through a fixed handshake: a 24-bit
// pattern on RST at 10 ms per bit followed by an unlock word on DAT. Open
// runs the handshake and returns a Session owning the lines; Close runs the
// exit handshake and releases them.
//
//	sess, err := icp.Open(drv)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sess.Close()
//
//	if id := sess.ReadDeviceID(); id != icp.DeviceIDN76E003 {
//	    log.Fatalf("unknown device ID: 0x%04X", id)
//	}
//
// # Hardware Access
//
// The session drives the lines through the LineDriver interface. The
// driver/rpi and driver/periph packages provide implementations for
// Raspberry Pi memory-mapped GPIO and for any platform periph.io supports;
// the sim package provides a simulated target for tests.
//
// # Error Handling
//
// Individual line operations are assumed to succeed: there is no way to
// retry or resynchronize a half-shifted frame. A failing line operation is
// therefore logged and counted rather than aborting the sequence; inspect
// LineFaults after a session to decide whether its results can be trusted.
package icp
