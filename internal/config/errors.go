package config

import "fmt"

// ConfigError is a malformed configuration file. Msg is the parser's message.
type ConfigError struct {
	Path string
	Msg  string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Path, e.Msg)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ResolutionError is a missing account or tool. Key names the config
// setting that would fix it.
type ResolutionError struct {
	Key string
	Msg string
}

func (e *ResolutionError) Error() string {
	if e.Key == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s (set %q in the project config or pass it explicitly)", e.Msg, e.Key)
}
