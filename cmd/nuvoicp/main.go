// nuvoicp reads, writes and erases the flash of a Nuvoton N76E003 over the
// three-wire ICP interface, bit-banged on GPIO lines. It is the Go
// counterpart of the original nuvoicp C tool and keeps its flag surface:
//
//	nuvoicp -r dump.bin             read entire flash to file
//	nuvoicp -w firmware.bin         write file to APROM
//	nuvoicp -w app.bin -l boot.bin  write APROM and LDROM, boot from LDROM
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/steve-m/go-nuvoicp/driver/periph"
	"github.com/steve-m/go-nuvoicp/driver/rpi"
	"github.com/steve-m/go-nuvoicp/icp"
	"github.com/steve-m/go-nuvoicp/programmer"
	"github.com/steve-m/go-nuvoicp/target"
)

var (
	readFile  = flag.String("r", "", "read entire flash to `file`")
	apromFile = flag.String("w", "", "write `file` to APROM (entire flash if LDROM is disabled)")
	ldromFile = flag.String("l", "", "write `file` to LDROM, enable boot from LDROM")
	backend   = flag.String("backend", "rpi", "gpio backend: rpi or periph")
	datPin    = flag.Int("dat", rpi.DefaultDAT, "DAT gpio number")
	clkPin    = flag.Int("clk", rpi.DefaultCLK, "CLK gpio number")
	rstPin    = flag.Int("rst", rpi.DefaultRST, "RST gpio number")
	verbose   = flag.Bool("v", false, "verbose output")
)

func usage() {
	fmt.Fprint(os.Stderr,
		"nuvoicp, an ICP flasher for the Nuvoton N76E003\n\n"+
			"Usage:\n"+
			"\t[-r <filename> read entire flash to file]\n"+
			"\t[-w <filename> write file to APROM/entire flash (if LDROM is disabled)]\n"+
			"\t[-l <filename> write file to LDROM, enable LDROM, enable boot from LDROM]\n"+
			"Pinout (Raspberry Pi header):\n"+
			"         [...]\n"+
			"        G19 G16\n"+
			"        CLK DAT\n"+
			"        GND RST\n"+
			"    ________\n"+
			"   |   USB  |\n"+
			"   |  PORTS |\n"+
			"   |________|\n\n"+
			"Options:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	writing := *apromFile != "" || *ldromFile != ""
	if !writing && *readFile == "" {
		usage()
		os.Exit(1)
	}
	if writing && *readFile != "" {
		fmt.Fprintln(os.Stderr, "cannot read and write in the same session")
		os.Exit(1)
	}

	drv, err := newDriver()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	prog := programmer.New(drv,
		programmer.WithLogger(&stderrLogger{verbose: *verbose}),
		programmer.WithProgressCallback(newDotPrinter()),
	)

	if writing {
		os.Exit(runProgram(prog))
	}
	os.Exit(runDump(prog))
}

func runProgram(prog *programmer.Programmer) int {
	ldrom, err := loadImage(*ldromFile, icp.LDROMMaxSize, "LDROM")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	apromMax := icp.FlashSize - target.LDROMKilobytes(len(ldrom))*1024
	aprom, err := loadImage(*apromFile, apromMax, "APROM")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	res, err := prog.Program(context.Background(), aprom, ldrom)

	var mismatch *programmer.DeviceMismatchError
	switch {
	case errors.As(err, &mismatch):
		// not a hard failure: no device, or not one of ours
		fmt.Fprintf(os.Stderr, "Unknown Device ID: 0x%04x\n", mismatch.Actual)
		return 0
	case err != nil:
		fmt.Fprintf(os.Stderr, "Error when programming flash: %v\n", err)
		return 1
	}

	if res.LineFaults > 0 {
		fmt.Fprintf(os.Stderr, "Warning: %d line faults during session\n", res.LineFaults)
	}
	fmt.Fprintln(os.Stderr, "Entire flash verified successfully!")
	return 0
}

func runDump(prog *programmer.Programmer) int {
	img, err := prog.Dump(context.Background())

	var mismatch *programmer.DeviceMismatchError
	switch {
	case errors.As(err, &mismatch):
		fmt.Fprintf(os.Stderr, "Unknown Device ID: 0x%04x\n", mismatch.Actual)
		return 0
	case err != nil:
		fmt.Fprintf(os.Stderr, "Error when reading flash: %v\n", err)
		return 1
	}

	if err := os.WriteFile(*readFile, img, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		return 1
	}
	fmt.Fprintln(os.Stderr, "Flash successfully read.")
	return 0
}

// loadImage reads a raw binary image, rejecting files that do not fit the
// region they are meant for. name may be empty, which yields an empty image.
func loadImage(name string, max int, region string) ([]byte, error) {
	if name == "" {
		return nil, nil
	}

	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	if len(data) > max {
		return nil, &target.ImageSizeError{Region: region, Size: len(data), Max: max}
	}
	return data, nil
}

func newDriver() (icp.LineDriver, error) {
	switch *backend {
	case "rpi":
		return rpi.New(uint8(*datPin), uint8(*clkPin), uint8(*rstPin)), nil
	case "periph":
		return periph.New(
			fmt.Sprintf("GPIO%d", *datPin),
			fmt.Sprintf("GPIO%d", *clkPin),
			fmt.Sprintf("GPIO%d", *rstPin),
		), nil
	}
	return nil, fmt.Errorf("unknown backend %q (want rpi or periph)", *backend)
}

// newDotPrinter returns a progress callback that prints one dot per 256
// programmed bytes, and terminates the dot line when the phase moves on.
func newDotPrinter() programmer.ProgressCallback {
	var dots bool
	var lastPhase string
	var lastDone int

	return func(p programmer.Progress) {
		if p.Phase == lastPhase && p.BytesDone == lastDone {
			return
		}
		lastPhase, lastDone = p.Phase, p.BytesDone

		writingPhase := p.Phase == programmer.PhaseProgrammingLDROM ||
			p.Phase == programmer.PhaseProgrammingAPROM
		if writingPhase && p.TotalBytes > icp.CfgFlashLen {
			fmt.Fprint(os.Stderr, ".")
			dots = true
			return
		}
		if dots {
			fmt.Fprintln(os.Stderr)
			dots = false
		}
	}
}

// stderrLogger adapts the programmer's Logger interface to plain stderr
// lines, the way the original tool reports.
type stderrLogger struct {
	verbose bool
}

func (l *stderrLogger) Debug(msg string, keysAndValues ...interface{}) {
	if l.verbose {
		l.print(msg, keysAndValues)
	}
}

func (l *stderrLogger) Info(msg string, keysAndValues ...interface{}) {
	l.print(msg, keysAndValues)
}

func (l *stderrLogger) Error(msg string, keysAndValues ...interface{}) {
	l.print("error: "+msg, keysAndValues)
}

func (l *stderrLogger) print(msg string, keysAndValues []interface{}) {
	fmt.Fprint(os.Stderr, msg)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fmt.Fprintf(os.Stderr, " %v=%v", keysAndValues[i], keysAndValues[i+1])
	}
	fmt.Fprintln(os.Stderr)
}
