package session

import (
	"fmt"
	"strings"
)

// Status is the lifecycle state of a call.
type Status int

const (
	StatusInactive Status = iota
	StatusConnecting
	StatusActive
	StatusFinished
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusInactive:
		return "inactive"
	case StatusConnecting:
		return "connecting"
	case StatusActive:
		return "active"
	case StatusFinished:
		return "finished"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// InCall reports whether a call is connecting or active.
func (s Status) InCall() bool {
	return s == StatusConnecting || s == StatusActive
}

// MarshalText renders s by name in JSON snapshots.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Mode selects what a call is for.
type Mode int

const (
	// ModeGenerate collects interview parameters by voice and stores the
	// resulting interview when the call ends.
	ModeGenerate Mode = iota

	// ModeStructured runs an interview from a fixed question list and asks
	// for feedback when the call ends.
	ModeStructured
)

func (m Mode) String() string {
	switch m {
	case ModeGenerate:
		return "generate"
	case ModeStructured:
		return "structured"
	default:
		return "unknown"
	}
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText. "interview" is
// accepted as an alias of "structured".
func (m *Mode) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "generate":
		*m = ModeGenerate
	case "structured", "interview":
		*m = ModeStructured
	default:
		return fmt.Errorf("session: unknown mode %q", b)
	}
	return nil
}
