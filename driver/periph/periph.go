// Package periph drives the ICP lines through periph.io GPIO pins, which
// makes the programmer usable on any single-board computer periph.io
// supports. Pins are addressed by name, e.g. "GPIO20".
package periph

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/steve-m/go-nuvoicp/icp"
)

// Driver implements icp.LineDriver on top of periph.io.
type Driver struct {
	datName string
	clkName string
	rstName string

	dat gpio.PinIO
	clk gpio.PinIO
	rst gpio.PinIO
}

// New returns a driver using the given periph.io pin names.
func New(dat, clk, rst string) *Driver {
	return &Driver{
		datName: dat,
		clkName: clk,
		rstName: rst,
	}
}

// Open initializes the periph host, resolves the three pins and configures
// them: DAT as input, CLK and RST as outputs driven low.
func (d *Driver) Open() error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("init gpio host: %w", err)
	}

	for _, p := range []struct {
		name string
		pin  *gpio.PinIO
	}{
		{d.datName, &d.dat},
		{d.clkName, &d.clk},
		{d.rstName, &d.rst},
	} {
		*p.pin = gpioreg.ByName(p.name)
		if *p.pin == nil {
			return fmt.Errorf("no such pin: %s", p.name)
		}
	}

	if err := d.dat.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		return fmt.Errorf("configure %s as input: %w", d.datName, err)
	}
	if err := d.clk.Out(gpio.Low); err != nil {
		return fmt.Errorf("configure %s as output: %w", d.clkName, err)
	}
	if err := d.rst.Out(gpio.Low); err != nil {
		return fmt.Errorf("configure %s as output: %w", d.rstName, err)
	}

	return nil
}

// Close releases RST high so the target runs normally.
func (d *Driver) Close() error {
	return d.rst.Out(gpio.High)
}

func (d *Driver) SetDAT(high bool) error {
	return d.dat.Out(gpio.Level(high))
}

func (d *Driver) GetDAT() (bool, error) {
	return bool(d.dat.Read()), nil
}

func (d *Driver) SetCLK(high bool) error {
	return d.clk.Out(gpio.Level(high))
}

func (d *Driver) SetRST(high bool) error {
	return d.rst.Out(gpio.Level(high))
}

// SetDATDirection switches DAT between input and output. Switching to
// output drives the line low first, matching the idle DAT level.
func (d *Driver) SetDATDirection(dir icp.Direction) error {
	if dir == icp.Output {
		return d.dat.Out(gpio.Low)
	}
	return d.dat.In(gpio.PullNoChange, gpio.NoEdge)
}
