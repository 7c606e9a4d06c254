package programmer

import "github.com/steve-m/go-nuvoicp/icp"

// Config holds the programmer configuration.
type Config struct {
	// ProgressCallback is called as the workflow advances (optional)
	ProgressCallback ProgressCallback

	// Logger is used for logging operations (optional)
	Logger Logger

	// DeviceID is the device ID the identity gate accepts
	DeviceID uint16
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		DeviceID: icp.DeviceIDN76E003,
	}
}

// Option is a functional option for configuring the Programmer.
type Option func(*Config)

// WithProgressCallback sets a callback function to track workflow progress.
//
// Example:
//
//	prog := programmer.New(drv,
//	    programmer.WithProgressCallback(func(p programmer.Progress) {
//	        fmt.Printf("[%s] %d/%d\n", p.Phase, p.BytesDone, p.TotalBytes)
//	    }),
//	)
func WithProgressCallback(callback ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = callback
	}
}

// WithLogger sets a logger for the programmer operations.
//
// Example:
//
//	prog := programmer.New(drv, programmer.WithLogger(myLogger))
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithDeviceID overrides the device ID accepted by the identity gate.
// The default is the N76E003 family ID.
func WithDeviceID(id uint16) Option {
	return func(c *Config) {
		c.DeviceID = id
	}
}
