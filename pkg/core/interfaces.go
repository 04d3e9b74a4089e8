package core

// Logger interface for engine and host logging
type Logger interface {
	Printf(format string, args ...interface{})
}
