package config

import "strings"

// ConfigError collects everything wrong with a config file into one report,
// so a broken file surfaces all of its problems in a single load attempt.
type ConfigError struct {
	Path    string   // file the problems were found in
	Missing []string // environment variables that did not resolve
	Errors  []string // field validation failures
}

func (e *ConfigError) Error() string {
	if !e.HasErrors() {
		return ""
	}

	var b strings.Builder
	if len(e.Missing) > 0 {
		b.WriteString("missing environment variables: ")
		b.WriteString(strings.Join(e.Missing, ", "))
	}
	if len(e.Errors) > 0 {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("validation failed:")
		for _, msg := range e.Errors {
			b.WriteString("\n  - ")
			b.WriteString(msg)
		}
	}
	return b.String()
}

// HasErrors reports whether the load actually failed.
func (e *ConfigError) HasErrors() bool {
	return len(e.Missing) > 0 || len(e.Errors) > 0
}
