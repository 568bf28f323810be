package logger

import (
	"log"

	"github.com/fatih/color"
)

// Logger is passed explicitly to every component so tests can swap in a
// silent instance instead of touching a package-level singleton.
type Logger struct {
	verbose bool
}

func NewLogger(verbose bool) *Logger {
	return &Logger{verbose: verbose}
}

// Creates a standard log (use it for nonharmful and useful informations)
func (l *Logger) Log(format string, a ...interface{}) {
	log.Printf(format, a...)
}

// Sends a warn (use it for pottential problem)
func (l *Logger) Warn(format string, a ...interface{}) {
	color.Set(color.FgYellow)
	log.Printf("[WARN]: "+format, a...)
	color.Unset()
}

// Sends an error (use it to inform about a real problem with a system but with no need to stop the service)
func (l *Logger) Err(format string, a ...interface{}) {
	color.Set(color.FgHiRed)
	log.Printf("[ERR]: "+format, a...)
	color.Unset()
}

// We are fucked
func (l *Logger) Fatal(format string, a ...interface{}) {
	color.Set(color.FgRed)
	log.Fatalf("[FATAL]: "+format, a...)
	color.Unset()
}

// Logs if verbose flag is true
func (l *Logger) LogV(format string, a ...interface{}) {
	if l.verbose {
		l.Log(format, a...)
	}
}

// Scoped variants prefix the message with the subsystem that produced it.

func (l *Logger) SWarn(scope, format string, a ...interface{}) {
	l.Warn("["+scope+"]: "+format, a...)
}

func (l *Logger) SErr(scope, format string, a ...interface{}) {
	l.Err("["+scope+"]: "+format, a...)
}
