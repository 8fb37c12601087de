// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Thermoquad/romloader/internal/config"
	"github.com/Thermoquad/romloader/pkg/romloader"
	"github.com/spf13/cobra"
	"go.bug.st/serial/enumerator"
)

type settings struct {
	port, url, user, file, profile, level string
	baud, timeout                         int
	size                                  uint32
}

func saveSettings() settings {
	return settings{portName, wsURL, wsUsername, dataFile, profileName, logLevel, baudRate, timeoutSecs, deviceSize}
}

func (s settings) restore() {
	portName, wsURL, wsUsername, dataFile, profileName, logLevel = s.port, s.url, s.user, s.file, s.profile, s.level
	baudRate, timeoutSecs, deviceSize = s.baud, s.timeout, s.size
}

// newFlagCommand binds the settings flags to a throwaway command and parses
// args, restoring the globals when the test ends.
func newFlagCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	saved := saveSettings()
	t.Cleanup(saved.restore)

	c := &cobra.Command{Use: "test"}
	f := c.Flags()
	f.StringVarP(&portName, "port", "p", "/dev/ttyACM0", "")
	f.IntVarP(&baudRate, "baud", "b", 0, "")
	f.StringVarP(&wsURL, "url", "u", "", "")
	f.StringVar(&wsUsername, "username", "", "")
	f.Uint32VarP(&deviceSize, "size", "s", romloader.DefaultDeviceSize, "")
	f.StringVarP(&dataFile, "file", "f", "hexData.txt", "")
	f.IntVar(&timeoutSecs, "timeout", 5, "")
	f.StringVar(&profileName, "profile", "standard", "")
	f.StringVar(&logLevel, "log-level", "", "")
	if err := f.Parse(args); err != nil {
		t.Fatalf("Parse(%v) error = %v", args, err)
	}
	return c
}

func TestApplyConfig(t *testing.T) {
	cfg := &config.Config{
		Port:    "/dev/ttyUSB1",
		Baud:    9600,
		Size:    32768,
		Timeout: 10,
		Profile: "legacy",
	}

	tests := []struct {
		name    string
		args    []string
		port    string
		baud    int
		size    uint32
		profile string
	}{
		{"file over defaults", nil, "/dev/ttyUSB1", 9600, 32768, "legacy"},
		{"flags over file", []string{"-p", "COM4", "--profile", "standard"}, "COM4", 9600, 32768, "standard"},
		{"flag equal to default still wins", []string{"--size", "262144"}, "/dev/ttyUSB1", 9600, 262144, "legacy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newFlagCommand(t, tt.args...)
			applyConfig(c, cfg)

			if portName != tt.port {
				t.Errorf("port = %q, want %q", portName, tt.port)
			}
			if baudRate != tt.baud {
				t.Errorf("baud = %d, want %d", baudRate, tt.baud)
			}
			if deviceSize != tt.size {
				t.Errorf("size = %d, want %d", deviceSize, tt.size)
			}
			if profileName != tt.profile {
				t.Errorf("profile = %q, want %q", profileName, tt.profile)
			}
			if timeoutSecs != 10 {
				t.Errorf("timeout = %d, want 10", timeoutSecs)
			}
		})
	}
}

func TestApplyConfig_EmptyFileKeepsDefaults(t *testing.T) {
	c := newFlagCommand(t)
	applyConfig(c, &config.Config{})

	if portName != "/dev/ttyACM0" || deviceSize != romloader.DefaultDeviceSize || dataFile != "hexData.txt" {
		t.Errorf("defaults changed: port=%q size=%d file=%q", portName, deviceSize, dataFile)
	}
}

func TestSelectedProfileAndBaud(t *testing.T) {
	tests := []struct {
		profile string
		baud    int
		want    int
		wantErr bool
	}{
		{"standard", 0, 115200, false},
		{"LEGACY", 0, 9600, false},
		{"legacy", 19200, 19200, false},
		{"turbo", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.profile, func(t *testing.T) {
			newFlagCommand(t)
			profileName, baudRate = tt.profile, tt.baud

			p, err := selectedProfile()
			if tt.wantErr {
				if err == nil {
					t.Error("selectedProfile() expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("selectedProfile() error = %v", err)
			}
			if got := effectiveBaud(p); got != tt.want {
				t.Errorf("effectiveBaud() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestLoadPayload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hexData.txt")
	if err := os.WriteFile(path, []byte("# rom\nDE ad\nbe-ef\n"), 0644); err != nil {
		t.Fatal(err)
	}

	newFlagCommand(t)
	dataFile = path

	payload, err := loadPayload()
	if err != nil {
		t.Fatalf("loadPayload() error = %v", err)
	}
	if !bytes.Equal(payload, []byte{0xDE, 0xAD, 0xBE, 0xEF}) {
		t.Errorf("loadPayload() = % x", payload)
	}

	deviceSize = 3
	if _, err := loadPayload(); err == nil || !strings.Contains(err.Error(), "exceeds device size") {
		t.Errorf("loadPayload() error = %v, want size error", err)
	}
}

func TestPrintPorts(t *testing.T) {
	var buf bytes.Buffer
	printPorts(&buf, nil)
	if !strings.Contains(buf.String(), "No serial ports found.") {
		t.Errorf("empty list output = %q", buf.String())
	}

	buf.Reset()
	printPorts(&buf, []*enumerator.PortDetails{
		{Name: "/dev/ttyS0"},
		{Name: "/dev/ttyACM0", IsUSB: true, VID: "2341", PID: "0043", SerialNumber: "A1B2"},
	})
	out := buf.String()
	if !strings.Contains(out, "/dev/ttyS0\n") {
		t.Errorf("missing plain port:\n%s", out)
	}
	if !strings.Contains(out, "/dev/ttyACM0  USB 2341:0043  serial A1B2") {
		t.Errorf("missing USB details:\n%s", out)
	}
}

func TestConfigSaveRoundTrip(t *testing.T) {
	newFlagCommand(t, "--port", "/dev/ttyUSB7", "--profile", "legacy")
	path := filepath.Join(t.TempDir(), "config.yaml")

	if err := config.Save(path, currentSettings()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "/dev/ttyUSB7" || cfg.Profile != "legacy" || cfg.Size != romloader.DefaultDeviceSize {
		t.Errorf("Load() = %+v", cfg)
	}
}

func TestLineBuffer(t *testing.T) {
	var lb lineBuffer
	var got []string
	for _, b := range []byte("...ready\r\n\xbf\r\npass\r\nwrite") {
		if line, ok := lb.add(b); ok {
			got = append(got, formatLine(line))
		}
	}

	want := []string{"...ready", `\xbf`, "pass"}
	if len(got) != len(want) {
		t.Fatalf("lines = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
	if rest := lb.flush(); string(rest) != "write" {
		t.Errorf("flush() = %q, want %q", rest, "write")
	}
}
