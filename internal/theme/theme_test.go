package theme

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"eventme/internal/notify"
)

func TestPersistAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "state.yaml")
	bus := notify.NewBus()
	var got []notify.Kind
	sub := bus.Subscribe(func(k notify.Kind) { got = append(got, k) })
	defer sub.Release()

	p, err := Open(path, bus)
	if err != nil {
		t.Fatal(err)
	}
	if p.DarkMode() {
		t.Fatal("default should be light mode")
	}
	if err := p.SetDarkMode(true); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != notify.ThemeChanged {
		t.Fatalf("expected one theme_changed, got %v", got)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), DarkModeKey) {
		t.Fatalf("state file missing key: %s", data)
	}

	reopened, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !reopened.DarkMode() {
		t.Fatal("preference not persisted")
	}
}

func TestInMemory(t *testing.T) {
	p, err := Open("", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.SetDarkMode(true); err != nil || !p.DarkMode() {
		t.Fatalf("SetDarkMode: %v", err)
	}
}

func TestCorruptStateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	if err := os.WriteFile(path, []byte("{not yaml: ["), 0o600); err != nil {
		t.Fatal(err)
	}
	p, err := Open(path, nil)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if p == nil || p.DarkMode() {
		t.Fatal("expected usable light-mode preference")
	}
}
