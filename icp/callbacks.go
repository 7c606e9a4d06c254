package icp

// WriteProgressFunc is called periodically while WriteFlash is running.
// written is the number of bytes sent so far, total the transfer length.
// Implementations should return quickly; the flash program strobe timing
// resumes as soon as the callback returns.
type WriteProgressFunc func(written, total int)

// Logger is an optional logging interface that can be provided to a Session
// or Programmer. This allows integration with any logging framework.
//
// Example with standard log package:
//
//	type StdLogger struct{}
//	func (l *StdLogger) Debug(msg string, kv ...interface{}) { log.Println(msg, kv) }
//	func (l *StdLogger) Info(msg string, kv ...interface{})  { log.Println(msg, kv) }
//	func (l *StdLogger) Error(msg string, kv ...interface{}) { log.Println(msg, kv) }
type Logger interface {
	// Debug logs a debug message with optional key-value pairs
	Debug(msg string, keysAndValues ...interface{})

	// Info logs an info message with optional key-value pairs
	Info(msg string, keysAndValues ...interface{})

	// Error logs an error message with optional key-value pairs
	Error(msg string, keysAndValues ...interface{})
}
