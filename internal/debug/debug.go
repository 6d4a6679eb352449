package debug

import (
	"fmt"
	"io"
	"log"
	"os"
)

// Debug levels
const (
	LevelOff     = 0 // No output
	LevelInfo    = 1 // State transitions, calibration phases
	LevelLive    = 2 // Position/status updates
	LevelVerbose = 3 // Config and startup detail
	LevelTrace   = 4 // Pin writes, ADC reads, very low level
)

var (
	level  int
	logger *log.Logger
)

// Init initializes the debug system with a level (0-4).
func Init(debugLevel int) {
	level = debugLevel
	if level > LevelOff {
		logger = log.New(os.Stdout, "[g5500d] ", log.LstdFlags|log.Lmicroseconds)
	}
}

// SetOutput redirects the logger's output, e.g. to also feed a websocket broadcaster.
func SetOutput(w io.Writer) {
	if logger != nil {
		logger.SetOutput(w)
	}
}

// Level returns the current debug level.
func Level() int {
	return level
}

// IsEnabled returns true if debug level is >= the requested level.
func IsEnabled(minLevel int) bool {
	return level >= minLevel
}

// CycleVerbosity advances the level by one, wrapping back to off after Trace.
// Intended for SIGUSR1.
func CycleVerbosity() int {
	level = (level + 1) % (LevelTrace + 1)
	if level > LevelOff && logger == nil {
		logger = log.New(os.Stdout, "[g5500d] ", log.LstdFlags|log.Lmicroseconds)
	}
	return level
}

// --- Level 1 functions (Info) ---

// Info prints a level 1 message.
func Info(format string, args ...interface{}) {
	if level >= LevelInfo && logger != nil {
		logger.Printf("[INFO] "+format, args...)
	}
}

// State logs a controller state transition (level 1).
func State(from, to string) {
	if level >= LevelInfo && logger != nil {
		logger.Printf("[STATE] %s -> %s", from, to)
	}
}

// Cal logs a calibration phase transition (level 1).
func Cal(format string, args ...interface{}) {
	if level >= LevelInfo && logger != nil {
		logger.Printf("[CAL] "+format, args...)
	}
}

// Value prints a named value (level 1).
func Value(name string, value interface{}) {
	if level >= LevelInfo && logger != nil {
		logger.Printf("[INFO]   %s = %v", name, value)
	}
}

// Section prints a section separator (level 1).
func Section(name string) {
	if level >= LevelInfo && logger != nil {
		logger.Printf("=== %s ===", name)
	}
}

// --- Level 2 functions (Live) ---

// Live prints a level 2 message.
func Live(format string, args ...interface{}) {
	if level >= LevelLive && logger != nil {
		logger.Printf("[LIVE] "+format, args...)
	}
}

// Position logs a position/status snapshot (level 2).
func Position(azDeg, elDeg float64, status uint32) {
	if level >= LevelLive && logger != nil {
		logger.Printf("[LIVE] az=%.1f el=%.1f status=0x%04x", azDeg, elDeg, status)
	}
}

// --- Level 3 functions (Verbose) ---

// Verbose prints a level 3 message.
func Verbose(format string, args ...interface{}) {
	if level >= LevelVerbose && logger != nil {
		logger.Printf("[VERBOSE] "+format, args...)
	}
}

// PrintStruct prints a struct in formatted form (level 3).
func PrintStruct(name string, v interface{}) {
	if level >= LevelVerbose && logger != nil {
		logger.Printf("[VERBOSE] %s: %+v", name, v)
	}
}

// Step prints a numbered startup step (level 3).
func Step(num int, description string) {
	if level >= LevelVerbose && logger != nil {
		logger.Printf("[VERBOSE] Step %d: %s", num, description)
	}
}

// --- Level 4 functions (Trace) ---

// Trace prints a level 4 message.
func Trace(format string, args ...interface{}) {
	if level >= LevelTrace && logger != nil {
		logger.Printf("[TRACE] "+format, args...)
	}
}

// Pin logs a relay pin write (level 4).
func Pin(op string, pin int, value interface{}) {
	if level >= LevelTrace && logger != nil {
		logger.Printf("[PIN] %s pin=%d value=%v", op, pin, value)
	}
}

// ADC logs an ADC read (level 4).
func ADC(channel int, counts uint16, ok bool) {
	if level >= LevelTrace && logger != nil {
		logger.Printf("[ADC] channel=%d counts=%d ok=%v", channel, counts, ok)
	}
}

// --- General functions ---

// Error prints a debug error (level 1+).
func Error(err error) {
	if level >= LevelInfo && logger != nil {
		logger.Printf("[ERROR] %v", err)
	}
}

// Fmt returns a formatted string only if debug is enabled, to avoid
// unnecessary allocations on the hot tick path.
func Fmt(format string, args ...interface{}) string {
	if level > 0 {
		return fmt.Sprintf(format, args...)
	}
	return ""
}
