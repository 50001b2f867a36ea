package relay

import (
	"errors"
	"fmt"
)

// Severity classifies a fault raised while processing one loop step.
type Severity int

const (
	// Recoverable faults affect one message or one batch. They are logged and
	// the loop moves on.
	Recoverable Severity = iota
	// Fatal faults stop the loop.
	Fatal
)

func (s Severity) String() string {
	switch s {
	case Recoverable:
		return "recoverable"
	case Fatal:
		return "fatal"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Fault is an error raised by one relay operation.
type Fault struct {
	Op       string // "decode", "dispatch", "panic", "subscribe"
	Channel  string
	Severity Severity
	Err      error
}

func (f *Fault) Error() string {
	if f.Channel != "" {
		return fmt.Sprintf("%s %s (channel %s): %v", f.Severity, f.Op, f.Channel, f.Err)
	}
	return fmt.Sprintf("%s %s: %v", f.Severity, f.Op, f.Err)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

func recoverable(op, channel string, err error) *Fault {
	return &Fault{Op: op, Channel: channel, Severity: Recoverable, Err: err}
}

func fatal(op string, err error) *Fault {
	return &Fault{Op: op, Severity: Fatal, Err: err}
}

// IsFatal reports whether err contains a fatal fault.
func IsFatal(err error) bool {
	var f *Fault
	return errors.As(err, &f) && f.Severity == Fatal
}
