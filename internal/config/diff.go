package config

import (
	"reflect"
	"slices"
)

// ConfigDiff describes what changed between two configs. Only settings that
// take effect without a restart are tracked.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// InterviewChanged is set when any field of the interview section
	// differs. The new values apply to calls started afterwards.
	InterviewChanged bool

	// RestartRequired lists the sections whose changes are ignored until
	// the next restart.
	RestartRequired []string
}

// Diff compares old and new.
func Diff(old, new *Config) ConfigDiff {
	var d ConfigDiff

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}
	d.InterviewChanged = !reflect.DeepEqual(old.Interview, new.Interview)

	oldServer, newServer := old.Server, new.Server
	oldServer.LogLevel, newServer.LogLevel = "", ""
	for _, s := range []struct {
		name     string
		old, new any
	}{
		{"server", oldServer, newServer},
		{"providers", old.Providers, new.Providers},
		{"storage", old.Storage, new.Storage},
		{"firebase", old.Firebase, new.Firebase},
		{"feedback", old.Feedback, new.Feedback},
	} {
		if !reflect.DeepEqual(s.old, s.new) {
			d.RestartRequired = append(d.RestartRequired, s.name)
		}
	}
	slices.Sort(d.RestartRequired)
	return d
}
