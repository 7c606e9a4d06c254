package icp

// Config holds the session configuration.
type Config struct {
	// Logger is used for logging line faults and session events (optional)
	Logger Logger

	// WriteProgress is called during WriteFlash to report progress (optional)
	WriteProgress WriteProgressFunc
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{}
}

// Option is a functional option for configuring a Session.
type Option func(*Config)

// WithLogger sets a logger for session events and line faults.
//
// Example:
//
//	sess, err := icp.Open(drv, icp.WithLogger(myLogger))
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithWriteProgress sets a callback invoked while flash bytes are being
// programmed. It fires once per 256 written bytes, and only for transfers
// longer than the config block.
//
// Example:
//
//	sess, err := icp.Open(drv, icp.WithWriteProgress(func(written, total int) {
//	    fmt.Fprintf(os.Stderr, ".")
//	}))
func WithWriteProgress(fn WriteProgressFunc) Option {
	return func(c *Config) {
		c.WriteProgress = fn
	}
}
