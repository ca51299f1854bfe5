package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Theme is the persisted colour preference.
type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// ParseTheme validates a theme name.
func ParseTheme(s string) (Theme, error) {
	switch t := Theme(s); t {
	case ThemeLight, ThemeDark, ThemeSystem:
		return t, nil
	default:
		return "", fmt.Errorf("unknown theme %q (want light, dark or system)", s)
	}
}

type stateFile struct {
	Token string `yaml:"token,omitempty"`
	Theme Theme  `yaml:"theme,omitempty"`
}

// State is the small amount of client state that survives between runs:
// the admin bearer token and the theme preference. Safe for concurrent use.
type State struct {
	mu   sync.Mutex
	path string
	data stateFile
}

// LoadState reads the state file at path. A missing file yields empty state.
func LoadState(path string) (*State, error) {
	s := &State{path: path}

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}
	if err := yaml.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("parse state %s: %w", path, err)
	}
	return s, nil
}

// Token returns the stored bearer token, or "" when logged out.
func (s *State) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Token
}

// SetToken stores a bearer token and persists it.
func (s *State) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Token = token
	return s.save()
}

// ClearToken forgets the bearer token.
func (s *State) ClearToken() error {
	return s.SetToken("")
}

// Theme returns the theme preference, defaulting to system.
func (s *State) Theme() Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.Theme == "" {
		return ThemeSystem
	}
	return s.data.Theme
}

// SetTheme stores the theme preference and persists it.
func (s *State) SetTheme(t Theme) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Theme = t
	return s.save()
}

// save writes the state file. Caller must hold the lock.
func (s *State) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	raw, err := yaml.Marshal(s.data)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	// Token is a credential
	if err := os.WriteFile(s.path, raw, 0600); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}
