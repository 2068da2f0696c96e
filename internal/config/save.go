package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const fileHeader = "# texinfo configuration\n"

// Save writes the config to FileName in the user's config directory.
func (c *Config) Save() error {
	dir := ConfigDir()
	if dir == "" {
		return fmt.Errorf("saving config: no user config directory")
	}
	return c.SaveTo(filepath.Join(dir, FileName))
}

// Encode writes the config as YAML, preceded by a comment header.
func (c *Config) Encode(w io.Writer) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if _, err := io.WriteString(w, fileHeader); err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// SaveTo writes the config to path, creating parent directories. The file
// is written beside path and renamed over it, so readers never see a
// partial config.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	defer os.Remove(tmp.Name())

	err = c.Encode(tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	return nil
}
