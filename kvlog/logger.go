// Package kvlog is a small leveled, color-coded logger in the style of
// morphling's mplogger/mpcommon printers, generalized from raft
// term/role context to replica identity/role context.
package kvlog

import (
	"fmt"
	"log"
	"os"
)

const (
	colorInfo  = "%s"
	colorError = "\033[1;31m%s\033[0m"            // red
	colorWarn  = "\033[1;33m%s\033[0m"            // yellow
	colorRole  = "\033[1;48;5;198m%s\033[0m"      // DeepPink1 background
	colorAck   = "\033[1;48;5;65m%s\033[0m"       // DarkSeaGreen4 background
	colorSeq   = "\033[1;38;5;100m%s\033[0m"      // Yellow4
)

type level struct {
	prefix string
	color  string
	enable bool
}

// DebugOn gates the verbose levels (Seq, Ack); Error/Warn/Info/Role always
// print. Flip during development the same way morphling flips debugOn.
var DebugOn = false

// Logger tags every line with a component identity and role, mirroring
// RaftLogger.commonPrint / Printer.CommonPrint.
type Logger struct {
	out      *log.Logger
	identity string
	role     string
}

func New(identity, role string) *Logger {
	l := &Logger{
		out:      log.New(os.Stderr, "", log.Ltime|log.Lmicroseconds),
		identity: identity,
		role:     role,
	}
	return l
}

func (l *Logger) SetRole(role string) { l.role = role }

func (l *Logger) common() string {
	return fmt.Sprintf("%s[%s]", l.identity, l.role)
}

func (l *Logger) print(lv level, format string, args ...interface{}) {
	if !lv.enable {
		return
	}
	str := fmt.Sprintf("[%s| %s] %s", lv.prefix, l.common(), format)
	str = fmt.Sprintf(lv.color, str)
	l.out.Printf(str, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.print(level{"ERROR", colorError, true}, format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.print(level{"WARN", colorWarn, true}, format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.print(level{"INFO", colorInfo, true}, format, args...)
}

func (l *Logger) RoleChange(format string, args ...interface{}) {
	l.print(level{"ROLE", colorRole, true}, format, args...)
}

func (l *Logger) Ack(format string, args ...interface{}) {
	l.print(level{"ACK", colorAck, DebugOn}, format, args...)
}

func (l *Logger) Seq(format string, args ...interface{}) {
	l.print(level{"SEQ", colorSeq, DebugOn}, format, args...)
}
