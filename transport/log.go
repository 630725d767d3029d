package transport

import "log"

// Logger receives a node's diagnostics. Host binaries plug in their own
// logger; motes keep the default, which writes through the standard log
// package and drops debug output.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type stdLogger struct{}

func (stdLogger) Debugf(string, ...any) {}

func (stdLogger) Infof(format string, args ...any) {
	log.Printf(format+"\r\n", args...)
}

func (stdLogger) Warnf(format string, args ...any) {
	log.Printf("WARN "+format+"\r\n", args...)
}

func (stdLogger) Errorf(format string, args ...any) {
	log.Printf("ERROR "+format+"\r\n", args...)
}
