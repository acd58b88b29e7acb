package config

import "time"

// Config is the root configuration for hellotodo.
type Config struct {
	Storage StorageConfig `json:"storage"`
	Events  EventsConfig  `json:"events"`
	TUI     TUIConfig     `json:"tui"`
}

// StorageConfig selects and configures the key-value slot backing the task list.
type StorageConfig struct {
	Driver       string   `json:"driver"`                  // "file", "sqlite", "memory"
	Dir          string   `json:"dir"`                     // data directory (default: $HELLOTODO_PATH/data)
	Key          string   `json:"key"`                     // slot key holding the snapshot (default: "toDos")
	Encrypt      bool     `json:"encrypt"`                 // wrap the slot with age encryption
	KeyFile      string   `json:"key_file,omitempty"`      // age identity (default: $HELLOTODO_PATH/.age-key)
	FlushTimeout Duration `json:"flush_timeout,omitempty"` // upper bound for the final flush on exit
}

// EventsConfig holds event bus settings.
type EventsConfig struct {
	BufferSize int `json:"buffer_size"`
}

// TUIConfig holds terminal UI settings.
type TUIConfig struct {
	Title   string `json:"title"`
	LogFile string `json:"log_file"` // slog output while the alt screen is active
}

// Duration wraps time.Duration for JSON unmarshaling.
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	// Remove quotes
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}
