// Package util holds the process-wide logger and small helpers shared by the
// gateway, collector and controller binaries.
package util

import (
	"fmt"

	"github.com/pterm/pterm"
)

func init() {
	pterm.DefaultLogger.ShowTime = true
	pterm.DefaultLogger.TimeFormat = "02 Jan 15:04:05"
	pterm.DefaultLogger.MaxWidth = 1000
}

// Leveled logging backed by pterm's default logger (stderr).

func LogDebug(format string, args ...interface{}) {
	pterm.DefaultLogger.Debug(fmt.Sprintf(format, args...))
}

func LogInfo(format string, args ...interface{}) {
	pterm.DefaultLogger.Info(fmt.Sprintf(format, args...))
}

func LogSuccess(format string, args ...interface{}) {
	pterm.DefaultLogger.Info(fmt.Sprintf(format, args...))
}

func LogWarning(format string, args ...interface{}) {
	pterm.DefaultLogger.Warn(fmt.Sprintf(format, args...))
}

func LogError(format string, args ...interface{}) {
	pterm.DefaultLogger.Error(fmt.Sprintf(format, args...))
}

// EnableDebug makes LogDebug output visible.
func EnableDebug() {
	pterm.DefaultLogger.Level = pterm.LogLevelDebug
}

// Truncate renders at most n bytes of b as hex for log lines.
func Truncate(b []byte, n int) string {
	if len(b) <= n {
		return fmt.Sprintf("% X", b)
	}
	return fmt.Sprintf("% X…", b[:n])
}

// Logger exposes the leveled functions as a value, for packages that take
// an injected logger such as transport.Node.
type Logger struct{}

func (Logger) Debugf(format string, args ...any) { LogDebug(format, args...) }
func (Logger) Infof(format string, args ...any)  { LogInfo(format, args...) }
func (Logger) Warnf(format string, args ...any)  { LogWarning(format, args...) }
func (Logger) Errorf(format string, args ...any) { LogError(format, args...) }
