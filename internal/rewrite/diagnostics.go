// internal/rewrite/diagnostics.go
package rewrite

import (
	"fmt"
)

// Level is the severity of a Diagnostic.
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// MarshalText encodes the level by name.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText decodes a level name.
func (l *Level) UnmarshalText(text []byte) error {
	switch string(text) {
	case "info":
		*l = LevelInfo
	case "warning", "warn":
		*l = LevelWarning
	case "error":
		*l = LevelError
	default:
		return fmt.Errorf("unknown diagnostic level %q", text)
	}
	return nil
}

// Diagnostic is one message produced while rewriting.
type Diagnostic struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Sink receives diagnostics as a rewrite finishes.
type Sink interface {
	Emit(Diagnostic)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Diagnostic)

func (f SinkFunc) Emit(d Diagnostic) { f(d) }

// Discard drops every diagnostic.
var Discard Sink = SinkFunc(func(Diagnostic) {})

type collector struct {
	diags []Diagnostic
}

func (c *collector) add(level Level, format string, args ...any) {
	c.diags = append(c.diags, Diagnostic{Level: level, Message: fmt.Sprintf(format, args...)})
}

func (c *collector) infof(format string, args ...any)  { c.add(LevelInfo, format, args...) }
func (c *collector) warnf(format string, args ...any)  { c.add(LevelWarning, format, args...) }
func (c *collector) errorf(format string, args ...any) { c.add(LevelError, format, args...) }

// Count returns how many diagnostics in diags have the given level.
func Count(diags []Diagnostic, level Level) int {
	n := 0
	for _, d := range diags {
		if d.Level == level {
			n++
		}
	}
	return n
}
