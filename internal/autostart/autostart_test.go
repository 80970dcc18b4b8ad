package autostart

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMacPlistLifecycle(t *testing.T) {
	home := t.TempDir()
	userHomeDir = func() (string, error) { return home, nil }
	t.Cleanup(func() { userHomeDir = os.UserHomeDir })

	if isEnabledMac() {
		t.Fatal("Expected disabled before enable")
	}
	if err := enableMac("/opt/rdev/rdev", []string{"-tray", "-keyboard-only"}); err != nil {
		t.Fatalf("enable: %v", err)
	}
	if !isEnabledMac() {
		t.Fatal("Expected enabled after enable")
	}

	data, err := os.ReadFile(filepath.Join(home, "Library", "LaunchAgents", "com.rdev.listener.plist"))
	if err != nil {
		t.Fatalf("read plist: %v", err)
	}
	for _, want := range []string{"<string>com.rdev.listener</string>", "<string>/opt/rdev/rdev</string>", "<string>-keyboard-only</string>"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("Expected plist to contain %s", want)
		}
	}

	if err := disableMac(); err != nil {
		t.Fatalf("disable: %v", err)
	}
	if isEnabledMac() {
		t.Error("Expected disabled after disable")
	}
	if err := disableMac(); err != nil {
		t.Errorf("Expected second disable to be a no-op, got %v", err)
	}
}

func TestCommandLine(t *testing.T) {
	got := commandLine(`C:\Program Files\rdev\rdev.exe`, []string{"-tray"})
	want := `"C:\Program Files\rdev\rdev.exe" -tray`
	if got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}
