package programmer

import (
	"context"
	"fmt"
	"time"

	"github.com/steve-m/go-nuvoicp/icp"
	"github.com/steve-m/go-nuvoicp/target"
)

// Programmer orchestrates complete programming sessions against an N76E003
// connected through a LineDriver. Every public operation runs one full
// session: entry handshake, identity gate, the requested work, and the exit
// handshake. The exit handshake runs even when the identity gate rejects
// the device, so the target is always left in normal run mode.
//
// A Programmer may be reused for consecutive sessions, but not concurrently:
// the three lines carry exactly one session at a time.
type Programmer struct {
	drv    icp.LineDriver
	config Config
}

// New creates a new Programmer driving the given lines.
//
// Example:
//
//	drv := rpi.New(20, 26, 21)
//	prog := programmer.New(drv,
//	    programmer.WithLogger(myLogger),
//	    programmer.WithProgressCallback(progressFunc),
//	)
func New(drv icp.LineDriver, opts ...Option) *Programmer {
	if drv == nil {
		panic("line driver cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Programmer{
		drv:    drv,
		config: cfg,
	}
}

// Result describes what one programming session did. When Program returns
// an error, the Result still carries everything gathered up to that point.
type Result struct {
	// Info is the identity read from the device
	Info target.DeviceInfo

	// Config is the config block read back from the device
	Config target.Config

	// BytesWritten counts all programmed bytes, config block included
	BytesWritten int

	// Verified reports whether the full-flash read-back matched the
	// programmed image
	Verified bool

	// LineFaults counts failed line operations during the session
	LineFaults int

	// ElapsedTime is the total session duration
	ElapsedTime time.Duration
}

// Program performs a complete write session:
//  1. Enter programming mode and check the device ID
//  2. Read and log CID, UID and UCID
//  3. Mass erase the entire flash
//  4. If ldrom is non-empty, write the config block (boot from LDROM,
//     LDROM sized up to whole kilobytes) and the LDROM image at the top
//     of flash
//  5. If aprom is non-empty, write it at address 0
//  6. Read back and decode the config block
//  7. Read back the entire flash and verify it byte-for-byte
//  8. Exit programming mode
//
// At least one of aprom and ldrom must be non-empty. Images that do not
// fit their region are rejected before the device is touched.
//
// The context is checked between workflow steps only; an individual
// transfer or protocol delay is never interrupted, since the target cannot
// resynchronize mid-operation.
func (p *Programmer) Program(ctx context.Context, aprom, ldrom []byte) (res *Result, err error) {
	if len(aprom) == 0 && len(ldrom) == 0 {
		return nil, fmt.Errorf("nothing to program: no APROM or LDROM image given")
	}

	expected, err := target.ExpectedImage(aprom, ldrom)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res = &Result{}

	phase := PhaseEntering
	report := func(done, total int) {
		if p.config.ProgressCallback != nil {
			p.config.ProgressCallback(Progress{
				Phase:       phase,
				BytesDone:   done,
				TotalBytes:  total,
				ElapsedTime: time.Since(start),
			})
		}
	}
	report(0, 0)

	sess, err := icp.Open(p.drv,
		icp.WithLogger(p.config.Logger),
		icp.WithWriteProgress(report),
	)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}

	defer func() {
		phase = PhaseExiting
		report(0, 0)
		res.LineFaults, _ = sess.LineFaults()
		if cerr := sess.Close(); cerr != nil && err == nil {
			err = cerr
		}
		res.ElapsedTime = time.Since(start)
		if err == nil {
			phase = PhaseComplete
			report(res.BytesWritten, res.BytesWritten)
		}
	}()

	phase = PhaseIdentifying
	report(0, 0)
	res.Info, err = p.identify(sess)
	if err != nil {
		return res, err
	}

	if cerr := ctx.Err(); cerr != nil {
		return res, fmt.Errorf("cancelled: %w", cerr)
	}

	phase = PhaseErasing
	report(0, 0)
	sess.MassErase()

	ldromKB := target.LDROMKilobytes(len(ldrom))

	if len(ldrom) > 0 {
		if cerr := ctx.Err(); cerr != nil {
			return res, fmt.Errorf("cancelled: %w", cerr)
		}

		phase = PhaseProgrammingLDROM
		report(0, len(ldrom))

		cfg := target.Config{BootSource: target.BootFromLDROM, LDROMSizeKB: ldromKB}
		cfgRaw, cerr := cfg.MarshalBinary()
		if cerr != nil {
			return res, cerr
		}

		sess.WriteFlash(icp.CfgFlashAddr, cfgRaw)
		sess.WriteFlash(uint32(icp.FlashSize-ldromKB*1024), ldrom)
		res.BytesWritten += len(cfgRaw) + len(ldrom)

		p.logInfo("programmed LDROM", "bytes", len(ldrom), "size_kb", ldromKB)
	}

	if len(aprom) > 0 {
		if cerr := ctx.Err(); cerr != nil {
			return res, fmt.Errorf("cancelled: %w", cerr)
		}

		phase = PhaseProgrammingAPROM
		report(0, len(aprom))

		sess.WriteFlash(icp.APROMFlashAddr, aprom)
		res.BytesWritten += len(aprom)

		p.logInfo("programmed APROM", "bytes", len(aprom))
	}

	if err = p.readConfig(sess, &res.Config); err != nil {
		return res, err
	}

	if cerr := ctx.Err(); cerr != nil {
		return res, fmt.Errorf("cancelled: %w", cerr)
	}

	phase = PhaseVerifying
	report(0, icp.FlashSize)

	readback := make([]byte, icp.FlashSize)
	sess.ReadFlash(icp.APROMFlashAddr, readback)

	for i := range expected {
		if readback[i] != expected[i] {
			return res, &VerificationError{
				Offset:   i,
				Expected: expected[i],
				Actual:   readback[i],
			}
		}
	}
	res.Verified = true

	p.logInfo("flash verified",
		"bytes", res.BytesWritten,
		"elapsed", time.Since(start).String(),
	)

	return res, nil
}

// Dump performs a pure read session: identity gate, config block report,
// then a read of the entire 18 KiB flash image.
func (p *Programmer) Dump(ctx context.Context) (img []byte, err error) {
	start := time.Now()

	phase := PhaseEntering
	report := func(done, total int) {
		if p.config.ProgressCallback != nil {
			p.config.ProgressCallback(Progress{
				Phase:       phase,
				BytesDone:   done,
				TotalBytes:  total,
				ElapsedTime: time.Since(start),
			})
		}
	}
	report(0, 0)

	sess, err := icp.Open(p.drv, icp.WithLogger(p.config.Logger))
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}

	defer func() {
		phase = PhaseExiting
		report(0, 0)
		if cerr := sess.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if err == nil {
			phase = PhaseComplete
			report(len(img), len(img))
		}
	}()

	phase = PhaseIdentifying
	report(0, 0)
	if _, err = p.identify(sess); err != nil {
		return nil, err
	}

	var cfg target.Config
	if err = p.readConfig(sess, &cfg); err != nil {
		return nil, err
	}

	if cerr := ctx.Err(); cerr != nil {
		return nil, fmt.Errorf("cancelled: %w", cerr)
	}

	phase = PhaseReading
	report(0, icp.FlashSize)

	img = make([]byte, icp.FlashSize)
	sess.ReadFlash(icp.APROMFlashAddr, img)

	return img, nil
}

// Identify runs a minimal session that only reads the device identity.
func (p *Programmer) Identify(ctx context.Context) (info target.DeviceInfo, err error) {
	sess, err := icp.Open(p.drv, icp.WithLogger(p.config.Logger))
	if err != nil {
		return target.DeviceInfo{}, fmt.Errorf("open session: %w", err)
	}

	defer func() {
		if cerr := sess.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return p.identify(sess)
}

// identify reads the device ID and applies the identity gate. CID, UID and
// UCID are read only once the gate has passed; an unrecognized device sees
// no command beyond the device ID read.
func (p *Programmer) identify(sess *icp.Session) (target.DeviceInfo, error) {
	info := target.DeviceInfo{DeviceID: sess.ReadDeviceID()}

	if info.DeviceID != p.config.DeviceID {
		return info, &DeviceMismatchError{
			Expected: p.config.DeviceID,
			Actual:   info.DeviceID,
		}
	}

	info.CID = sess.ReadCID()
	info.UID = sess.ReadUID()
	info.UCID = sess.ReadUCID()

	p.logInfo("found N76E003",
		"cid", fmt.Sprintf("0x%02X", info.CID),
		"uid", fmt.Sprintf("0x%06X", info.UID),
		"ucid", fmt.Sprintf("0x%08X", info.UCID),
	)

	return info, nil
}

// readConfig reads back and decodes the config block, logging the decoded
// boot selection and region sizes.
func (p *Programmer) readConfig(sess *icp.Session, cfg *target.Config) error {
	raw := make([]byte, icp.CfgFlashLen)
	sess.ReadFlash(icp.CfgFlashAddr, raw)

	if err := cfg.UnmarshalBinary(raw); err != nil {
		return fmt.Errorf("decode config block: %w", err)
	}

	p.logInfo("device configuration",
		"boot_select", cfg.BootSource.String(),
		"ldrom_bytes", cfg.LDROMSize(),
		"aprom_bytes", cfg.APROMSize(),
	)

	return nil
}

// logInfo logs an info message if a logger is configured.
func (p *Programmer) logInfo(msg string, keysAndValues ...interface{}) {
	if p.config.Logger != nil {
		p.config.Logger.Info(msg, keysAndValues...)
	}
}
