package cliconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestApplyFileConfig(t *testing.T) {
	trueVal := true
	falseVal := false
	zero := 0

	tests := []struct {
		name       string
		fileConfig FileConfig
		changed    map[string]bool
		initial    Config
		expected   Config
		wantErr    bool
	}{
		{
			name: "applies all valid config values",
			fileConfig: FileConfig{
				LaneWidth:        4,
				IFG:              &zero,
				TxEnable:         &falseVal,
				ForwardBadFrames: &trueVal,
				ClockPeriod:      "8ns",
				Payload:          "prbs",
				Sizes:            "60-63",
				UARTBaud:         115200,
				LogLevel:         "debug",
			},
			changed: map[string]bool{},
			initial: Config{IFG: 12, TxEnable: true},
			expected: Config{
				LaneWidth:        4,
				IFG:              0,
				TxEnable:         false,
				ForwardBadFrames: true,
				ClockPeriod:      8 * time.Nanosecond,
				Payload:          "prbs",
				Sizes:            "60-63",
				UARTBaud:         115200,
				LogLevel:         "debug",
			},
		},
		{
			name: "respects changed flags",
			fileConfig: FileConfig{
				LaneWidth: 2,
				Trace:     "file.json",
			},
			changed: map[string]bool{"lane-width": true},
			initial: Config{LaneWidth: 8},
			expected: Config{
				LaneWidth: 8, // unchanged because flag was set
				Trace:     "file.json",
			},
		},
		{
			name:       "absent ifg keeps current value",
			fileConfig: FileConfig{Cycles: 1000},
			changed:    map[string]bool{},
			initial:    Config{IFG: 12},
			expected:   Config{IFG: 12, Cycles: 1000},
		},
		{
			name:       "invalid clock period",
			fileConfig: FileConfig{ClockPeriod: "fast"},
			changed:    map[string]bool{},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.initial
			err := ApplyFileConfig(&cfg, tt.fileConfig, tt.changed)

			if tt.wantErr {
				if err == nil {
					t.Error("ApplyFileConfig() expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ApplyFileConfig() unexpected error: %v", err)
			}
			if cfg != tt.expected {
				t.Errorf("config = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}

func TestLoadFileConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.toml")

	tomlContent := `
lane_width = 8
ifg = 0
tx_enable = false
payload = "prbs"
sizes = "1-15,128"
clock_period = "3.2ns"
uart_data_bits = 7
`

	if err := os.WriteFile(configPath, []byte(tomlContent), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	fc, err := LoadFileConfig(configPath)
	if err != nil {
		t.Fatalf("LoadFileConfig() error = %v", err)
	}

	if fc.LaneWidth != 8 {
		t.Errorf("LaneWidth = %v, want 8", fc.LaneWidth)
	}
	if fc.IFG == nil || *fc.IFG != 0 {
		t.Errorf("IFG = %v, want pointer to 0", fc.IFG)
	}
	if fc.TxEnable == nil || *fc.TxEnable {
		t.Errorf("TxEnable = %v, want false", fc.TxEnable)
	}
	if fc.ForwardBadFrames != nil {
		t.Errorf("ForwardBadFrames = %v, want nil", fc.ForwardBadFrames)
	}
	if fc.Payload != "prbs" || fc.Sizes != "1-15,128" {
		t.Errorf("Payload, Sizes = %q, %q", fc.Payload, fc.Sizes)
	}
	if fc.ClockPeriod != "3.2ns" {
		t.Errorf("ClockPeriod = %v, want 3.2ns", fc.ClockPeriod)
	}
	if fc.UARTDataBits != 7 {
		t.Errorf("UARTDataBits = %v, want 7", fc.UARTDataBits)
	}
}

func TestLoadFileConfig_InvalidFile(t *testing.T) {
	_, err := LoadFileConfig("/nonexistent/path/config.toml")
	if err == nil {
		t.Error("LoadFileConfig() expected error for nonexistent file")
	}
}

func TestLoadFileConfig_InvalidTOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.toml")

	invalidContent := `
lane_width = 8
this is not valid toml
`

	if err := os.WriteFile(configPath, []byte(invalidContent), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	_, err := LoadFileConfig(configPath)
	if err == nil {
		t.Error("LoadFileConfig() expected error for invalid TOML")
	}
}

func TestDefaultConfigPath(t *testing.T) {
	path := DefaultConfigPath()

	if path != "" && !strings.Contains(path, ".ethlink") {
		t.Errorf("DefaultConfigPath() = %v, should contain .ethlink", path)
	}
}

func TestFileExists(t *testing.T) {
	tmpDir := t.TempDir()
	existingFile := filepath.Join(tmpDir, "exists.txt")

	if err := os.WriteFile(existingFile, []byte("test"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	if !FileExists(existingFile) {
		t.Error("FileExists() = false, want true for existing file")
	}

	if FileExists(filepath.Join(tmpDir, "nonexistent.txt")) {
		t.Error("FileExists() = true, want false for nonexistent file")
	}
}
