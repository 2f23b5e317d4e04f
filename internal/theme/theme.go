// Package theme persists the dark-mode preference and announces changes.
package theme

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	appLog "eventme/internal/log"
	"eventme/internal/notify"
)

// DarkModeKey is the fixed key the preference is stored under.
const DarkModeKey = "EventME.isDarkMode"

// Preference is a single persisted boolean. An empty path keeps it in memory.
type Preference struct {
	mu   sync.Mutex
	path string
	dark bool
	pub  notify.Publisher
}

// Open loads the preference from path. A missing file means light mode.
func Open(path string, pub notify.Publisher) (*Preference, error) {
	p := &Preference{path: path, pub: pub}
	if path == "" {
		return p, nil
	}

	values, err := readState(path)
	if err != nil {
		return p, err
	}
	p.dark = values[DarkModeKey]
	return p, nil
}

// DarkMode reports the current preference.
func (p *Preference) DarkMode() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dark
}

// SetDarkMode stores v and publishes ThemeChanged. The in-memory value
// changes even if writing the state file fails; the error is returned.
func (p *Preference) SetDarkMode(v bool) error {
	p.mu.Lock()
	p.dark = v
	var err error
	if p.path != "" {
		err = writeState(p.path, map[string]bool{DarkModeKey: v})
	}
	p.mu.Unlock()

	if err != nil {
		appLog.Error("theme: save failed", err, "path", p.path)
	}
	if p.pub != nil {
		p.pub.Publish(notify.ThemeChanged)
	}
	return err
}

func readState(path string) (map[string]bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]bool{}, nil
		}
		return nil, err
	}
	values := map[string]bool{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, err
	}
	return values, nil
}

// writeState writes values atomically via a temp file in the same directory.
func writeState(path string, values map[string]bool) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(values)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".eventme-state-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
