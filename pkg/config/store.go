package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Store loads and saves the credential/config record.
type Store interface {
	Load() (*Record, error)
	Save(*Record) error
}

// GetConfigDir returns the 123pan configuration directory
func GetConfigDir() string {
	// Check environment variable first
	if dir := os.Getenv("PAN123_CONFIG_DIR"); dir != "" {
		return dir
	}

	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "Qxyz17", "123pan")
	}

	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "Qxyz17", "123pan")
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ".123pan" // Fallback to current directory
	}
	return filepath.Join(home, ".config", "Qxyz17", "123pan")
}

// GetConfigPath returns the path to the main config file
func GetConfigPath() string {
	return filepath.Join(GetConfigDir(), "config.json")
}

// GetLogPath returns the path of the client log file
func GetLogPath() string {
	return filepath.Join(GetConfigDir(), "123pan.log")
}

// FileStore keeps the record as indented JSON on disk.
type FileStore struct {
	Path string
}

// NewFileStore returns a store for path, or the default config path if empty.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = GetConfigPath()
	}
	return &FileStore{Path: path}
}

// Load reads the record. A missing file yields the defaults.
func (s *FileStore) Load() (*Record, error) {
	rec := Default()

	data, err := os.ReadFile(s.Path)
	if os.IsNotExist(err) {
		return rec, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return rec, nil
}

// Save writes the record with owner-only permissions.
func (s *FileStore) Save(rec *Record) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write to file with restricted permissions
	if err := os.WriteFile(s.Path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// MemoryStore is an in-process Store, used when nothing should touch disk.
type MemoryStore struct {
	Record *Record
	Saves  int
}

func (m *MemoryStore) Load() (*Record, error) {
	if m.Record == nil {
		m.Record = Default()
	}
	cp := *m.Record
	return &cp, nil
}

func (m *MemoryStore) Save(rec *Record) error {
	cp := *rec
	m.Record = &cp
	m.Saves++
	return nil
}
