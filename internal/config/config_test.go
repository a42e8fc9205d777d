package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"beltsensor/internal/model"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != 5000 {
		t.Errorf("Expected port 5000, got %d", cfg.Port)
	}
	if cfg.Camera.Index != -1 || cfg.Camera.ProbeCount != 10 {
		t.Errorf("Expected auto-probe over 10 indices, got index=%d count=%d", cfg.Camera.Index, cfg.Camera.ProbeCount)
	}
	if cfg.Vision.MinArea != 400 {
		t.Errorf("Expected min area 400, got %v", cfg.Vision.MinArea)
	}
	if cfg.TelemetryInterval() != 500*time.Millisecond {
		t.Errorf("Expected 500ms throttle, got %v", cfg.TelemetryInterval())
	}
	if cfg.MQTT.ClientID == "" {
		t.Error("Expected a generated client id")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("VISION_MODE", "predominant")
	t.Setenv("LCD_I2C_ADDR", "0x3f")
	t.Setenv("MQTT_TLS", "false")
	t.Setenv("MQTT_CLIENT_ID", "sorter-1")
	t.Setenv("TELEMETRY_INTERVAL_MS", "250")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != 8081 {
		t.Errorf("Expected port 8081, got %d", cfg.Port)
	}
	if cfg.Vision.Mode != ModePredominant {
		t.Errorf("Expected predominant mode, got %s", cfg.Vision.Mode)
	}
	if cfg.Hardware.LCDAddress != 0x3f {
		t.Errorf("Expected LCD address 0x3f, got %#x", cfg.Hardware.LCDAddress)
	}
	if cfg.MQTT.TLS {
		t.Error("Expected TLS disabled")
	}
	if cfg.MQTT.ClientID != "sorter-1" {
		t.Errorf("Expected client id sorter-1, got %s", cfg.MQTT.ClientID)
	}
	if cfg.TelemetryInterval() != 250*time.Millisecond {
		t.Errorf("Expected 250ms, got %v", cfg.TelemetryInterval())
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"VISION_MODE", "rainbow"},
		{"CAMERA_INDEX", "-5"},
		{"HARDWARE_MODE", "serial"},
		{"MQTT_QOS_CONTROL", "3"},
		{"STREAM_JPEG_QUALITY", "101"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Expected ValidationError for %s=%s, got %v", tt.key, tt.value, err)
			}
		})
	}
}

func TestLoad_GPIORequiresPin(t *testing.T) {
	cfg := Default()
	cfg.MQTT.ClientID = "x"
	cfg.Hardware.Mode = HardwareGPIO
	cfg.Hardware.BeltPin = ""

	var verr *ValidationError
	if err := Validate(cfg); !errors.As(err, &verr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
	if verr.Field != "Hardware.BeltPin" {
		t.Errorf("Expected Hardware.BeltPin, got %s", verr.Field)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sensor.yaml")
	content := []byte(`
port: 7000
vision:
  min_area: 900
mqtt:
  broker: tcp://broker.local:1883
  topic_telemetry: line/colors
`)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "7001")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != 7001 {
		t.Errorf("Env should override file: expected 7001, got %d", cfg.Port)
	}
	if cfg.Vision.MinArea != 900 {
		t.Errorf("Expected min area 900, got %v", cfg.Vision.MinArea)
	}
	if cfg.MQTT.TopicTelemetry != "line/colors" {
		t.Errorf("Expected topic line/colors, got %s", cfg.MQTT.TopicTelemetry)
	}
	if cfg.MQTT.TopicBelt != "dados/app" {
		t.Errorf("Expected default belt topic to survive, got %s", cfg.MQTT.TopicBelt)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	var verr *ValidationError
	if _, err := Load(); !errors.As(err, &verr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
}

func TestLoad_EmptyEnvDisablesEventStore(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("EVENTS_DB_PATH", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Events.DBPath != "" {
		t.Errorf("Expected empty DBPath, got %q", cfg.Events.DBPath)
	}
}

func TestLoad_EmptyEnvClearsFileValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sensor.yaml")
	content := []byte(`
password: secret
endpoint_host: 10.0.0.5
telemetry:
  label_prefix: "Cor:"
hardware:
  lcd_bus: "1"
`)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PASSWORD", "")
	t.Setenv("ENDPOINT_HOST", "")
	t.Setenv("TELEMETRY_LABEL_PREFIX", "")
	t.Setenv("LCD_I2C_BUS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Password != "" || cfg.EndpointHost != "" || cfg.Telemetry.LabelPrefix != "" || cfg.Hardware.LCDBus != "" {
		t.Errorf("Expected empty variables to clear file values, got %+v", cfg)
	}
}

func TestLoad_VisionColors(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("VISION_COLORS", "Blue, red,blue")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	got := cfg.Vision.EnabledColors()
	if len(got) != 2 || got[0] != model.Blue || got[1] != model.Red {
		t.Errorf("Expected [Blue Red], got %v", got)
	}
}

func TestLoad_VisionColorsRejectsUnknownName(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("VISION_COLORS", "Red,Magenta")

	var verr *ValidationError
	if _, err := Load(); !errors.As(err, &verr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	} else if verr.Field != "Vision.Colors" {
		t.Errorf("Expected Vision.Colors, got %s", verr.Field)
	}
}

func TestVisionConfig_EnabledColorsDefaultsToAll(t *testing.T) {
	cfg := Default()
	if got := cfg.Vision.EnabledColors(); len(got) != len(model.Colors) {
		t.Errorf("Expected all %d colors, got %v", len(model.Colors), got)
	}
}
