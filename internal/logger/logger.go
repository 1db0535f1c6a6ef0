package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Field names shared by every component so log lines can be joined across
// the scheduler, the worker and the controller.
const (
	ComponentField  = "component"
	AutomationField = "automation_id"
	TaskField       = "task"
	ToolField       = "tool"
	CallField       = "call_id"
	StepField       = "step"
)

// New builds a zerolog.Logger at the given level. Pretty switches to the
// human readable console writer.
func New(level string, pretty bool) (zerolog.Logger, error) {
	return NewWithWriter(os.Stderr, level, pretty)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, level string, pretty bool) (zerolog.Logger, error) {
	if level == "" {
		level = "info"
	}
	l, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(l).With().Timestamp().Logger(), nil
}

// Component returns a child logger tagged with the component name.
func Component(base zerolog.Logger, name string) zerolog.Logger {
	return base.With().Str(ComponentField, name).Logger()
}
