// Package rpi drives the ICP lines through the Raspberry Pi's memory-mapped
// GPIO. This is the native backend for the wiring the original nuvoicp tool
// documents: DAT on GPIO20, RST on GPIO21, CLK on GPIO26.
package rpi

import (
	"fmt"

	"github.com/stianeikeland/go-rpio/v4"

	"github.com/steve-m/go-nuvoicp/icp"
)

// Default BCM pin numbers.
const (
	DefaultDAT = 20
	DefaultRST = 21
	DefaultCLK = 26
)

// Driver implements icp.LineDriver on top of go-rpio.
type Driver struct {
	dat rpio.Pin
	clk rpio.Pin
	rst rpio.Pin
}

// New returns a driver using the given BCM pin numbers.
func New(dat, clk, rst uint8) *Driver {
	return &Driver{
		dat: rpio.Pin(dat),
		clk: rpio.Pin(clk),
		rst: rpio.Pin(rst),
	}
}

// Open maps the GPIO registers and configures the lines: DAT as input, CLK
// and RST as outputs driven low. RST low holds the target in reset until
// the entry handshake starts.
func (d *Driver) Open() error {
	if err := rpio.Open(); err != nil {
		return fmt.Errorf("open gpio memory: %w", err)
	}

	d.dat.Input()
	d.clk.Output()
	d.clk.Low()
	d.rst.Output()
	d.rst.Low()

	return nil
}

// Close releases RST high so the target runs, then unmaps the registers.
func (d *Driver) Close() error {
	d.rst.High()
	return rpio.Close()
}

func (d *Driver) SetDAT(high bool) error {
	d.dat.Write(level(high))
	return nil
}

func (d *Driver) GetDAT() (bool, error) {
	return d.dat.Read() == rpio.High, nil
}

func (d *Driver) SetCLK(high bool) error {
	d.clk.Write(level(high))
	return nil
}

func (d *Driver) SetRST(high bool) error {
	d.rst.Write(level(high))
	return nil
}

func (d *Driver) SetDATDirection(dir icp.Direction) error {
	if dir == icp.Output {
		d.dat.Output()
	} else {
		d.dat.Input()
	}
	return nil
}

func level(high bool) rpio.State {
	if high {
		return rpio.High
	}
	return rpio.Low
}
