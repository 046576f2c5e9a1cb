package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Config holds all configuration for breeze
type Config struct {
	Credentials string `json:"credentials"`
	Token       string `json:"token"`

	// AccountEmail scopes the local database (history, snapshot cache)
	AccountEmail string `json:"account_email"`

	// Categories are the lists the client renders, in display order.
	// Each maps to a Gmail label.
	Categories []Category `json:"categories"`

	// Timing knobs for the undo and chord windows
	Timing TimingConfig `json:"timing"`

	// Keyboard shortcuts
	Keys KeyBindings `json:"keys"`

	// Logging
	LogFile string `json:"log_file"`

	// DBPath overrides the local database location
	DBPath string `json:"db_path"`
}

// Category maps a display name to its backing Gmail label
type Category struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

// TimingConfig holds the grace and chord windows, in milliseconds
type TimingConfig struct {
	// UndoGraceMs is how long a destructive action stays cancellable
	// before the real remote call is issued
	UndoGraceMs int `json:"undo_grace_ms"`

	// SendGraceMs is the undo window for an outgoing message
	SendGraceMs int `json:"send_grace_ms"`

	// ChordWindowMs is how long a leading chord key waits for a
	// follow-up before resolving on its own
	ChordWindowMs int `json:"chord_window_ms"`

	// PollIntervalMs is how often the live feed refreshes
	PollIntervalMs int `json:"poll_interval_ms"`
}

// KeyBindings defines keyboard shortcuts for the TUI
type KeyBindings struct {
	Reply      string `json:"reply"`
	ReplyAll   string `json:"reply_all"` // follow-up key after reply, inside the chord window
	Forward    string `json:"forward"`
	Compose    string `json:"compose"`
	Search     string `json:"search"`
	ToggleRead string `json:"toggle_read"`
	Trash      string `json:"trash"`
	Done       string `json:"done"`
	Move       string `json:"move"`
	Undo       string `json:"undo"`
	BulkSelect string `json:"bulk_select"`
	NextList   string `json:"next_list"`
	Quit       string `json:"quit"`
	Help       string `json:"help"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Categories: []Category{
			{Name: "urgent", Label: "URGENT"},
			{Name: "others", Label: "OTHERS"},
			{Name: "done", Label: "DONE"},
			{Name: "scheduled", Label: "SCHEDULED"},
		},
		Timing:  DefaultTimingConfig(),
		Keys:    DefaultKeyBindings(),
		LogFile: "",
	}
}

// DefaultTimingConfig returns the default undo and chord windows
func DefaultTimingConfig() TimingConfig {
	return TimingConfig{
		UndoGraceMs:    3000,
		SendGraceMs:    5000,
		ChordWindowMs:  300,
		PollIntervalMs: 15000,
	}
}

// DefaultKeyBindings returns default keyboard shortcuts
func DefaultKeyBindings() KeyBindings {
	return KeyBindings{
		Reply:      "r",
		ReplyAll:   "a", // only meaningful right after Reply
		Forward:    "f",
		Compose:    "c",
		Search:     "/",
		ToggleRead: "t",
		Trash:      "d",
		Done:       "e",
		Move:       "m",
		Undo:       "u",
		BulkSelect: "space",
		NextList:   "tab",
		Quit:       "q",
		Help:       "?",
	}
}

// LoadConfig loads configuration from file, falling back to defaults
// when the file is absent
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		}
	}
	cfg.applyTimingDefaults()

	return cfg, nil
}

// applyTimingDefaults backfills zero or negative timing values so a
// sparse config file cannot produce an instant-commit undo window
func (c *Config) applyTimingDefaults() {
	def := DefaultTimingConfig()
	if c.Timing.UndoGraceMs <= 0 {
		c.Timing.UndoGraceMs = def.UndoGraceMs
	}
	if c.Timing.SendGraceMs <= 0 {
		c.Timing.SendGraceMs = def.SendGraceMs
	}
	if c.Timing.ChordWindowMs <= 0 {
		c.Timing.ChordWindowMs = def.ChordWindowMs
	}
	if c.Timing.PollIntervalMs <= 0 {
		c.Timing.PollIntervalMs = def.PollIntervalMs
	}
}

// UndoGrace returns the destructive-action undo window as a Duration
func (c *Config) UndoGrace() time.Duration {
	return time.Duration(c.Timing.UndoGraceMs) * time.Millisecond
}

// SendGrace returns the outgoing-message undo window as a Duration
func (c *Config) SendGrace() time.Duration {
	return time.Duration(c.Timing.SendGraceMs) * time.Millisecond
}

// ChordWindow returns the chord follow-up window as a Duration
func (c *Config) ChordWindow() time.Duration {
	return time.Duration(c.Timing.ChordWindowMs) * time.Millisecond
}

// PollInterval returns the live feed refresh interval as a Duration
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Timing.PollIntervalMs) * time.Millisecond
}

// CategoryNames returns the configured category names in display order
func (c *Config) CategoryNames() []string {
	out := make([]string, 0, len(c.Categories))
	for _, cat := range c.Categories {
		out = append(out, cat.Name)
	}
	return out
}

// CategoryLabels returns the category name to Gmail label mapping
func (c *Config) CategoryLabels() map[string]string {
	out := make(map[string]string, len(c.Categories))
	for _, cat := range c.Categories {
		out[cat.Name] = cat.Label
	}
	return out
}

// DefaultConfigPath returns the default configuration file path
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "breeze", "config.json")
}

// DefaultCredentialPaths returns the default paths for credentials and token
func DefaultCredentialPaths() (string, string) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", ""
	}

	configDir := filepath.Join(home, ".config", "breeze")
	credentialsPath := filepath.Join(configDir, "credentials.json")
	tokenPath := filepath.Join(configDir, "token.json")

	return credentialsPath, tokenPath
}

// DefaultDBPath returns the default local database path
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "breeze", "breeze.db")
}

// DefaultLogDir returns the default log directory path
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "breeze")
}

// SaveConfig saves the configuration to a file
func (c *Config) SaveConfig(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
