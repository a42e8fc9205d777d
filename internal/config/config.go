package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"beltsensor/internal/model"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Vision modes.
const (
	ModeMulti       = "multi"
	ModePredominant = "predominant"
)

// Hardware modes.
const (
	HardwareSimulated = "simulated"
	HardwareGPIO      = "gpio"
)

type Config struct {
	Port            int    `yaml:"port" validate:"min=1,max=65535"`
	Password        string `yaml:"password"`
	LogDirectory    string `yaml:"log_dir" validate:"required"`
	EndpointHost    string `yaml:"endpoint_host"`
	ShutdownTimeout int    `yaml:"shutdown_timeout_s" validate:"min=1"`
	StatusRateLimit int    `yaml:"status_rate_limit" validate:"min=1"`

	Camera    CameraConfig    `yaml:"camera"`
	Vision    VisionConfig    `yaml:"vision"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Hardware  HardwareConfig  `yaml:"hardware"`
	Events    EventsConfig    `yaml:"events"`
}

type CameraConfig struct {
	Index        int `yaml:"index" validate:"min=-1,max=63"` // -1 probes ProbeCount indices starting at 0
	ProbeCount   int `yaml:"probe_count" validate:"min=1,max=64"`
	Width        int `yaml:"width" validate:"min=1"`
	Height       int `yaml:"height" validate:"min=1"`
	FPS          int `yaml:"fps" validate:"min=1,max=240"`
	RetryDelayMS int `yaml:"retry_delay_ms" validate:"min=1,max=5000"`
}

type VisionConfig struct {
	MaxWidth    int     `yaml:"max_width" validate:"min=16"`
	MinArea     float64 `yaml:"min_area" validate:"gte=0"`
	KernelSize  int     `yaml:"kernel_size" validate:"min=1,max=31"`
	BlurSize    int     `yaml:"blur_size" validate:"min=1,max=31"`
	Mode        string  `yaml:"mode" validate:"oneof=multi predominant"`
	JPEGQuality int     `yaml:"jpeg_quality" validate:"min=1,max=100"`
	Colors      string  `yaml:"colors" validate:"colorlist"` // comma-separated; empty enables all
}

type TelemetryConfig struct {
	IntervalMS         int    `yaml:"interval_ms" validate:"min=1"`
	LabelPrefix        string `yaml:"label_prefix"`
	NotifyOnChangeOnly bool   `yaml:"notify_on_change_only"`
}

type MQTTConfig struct {
	Broker           string `yaml:"broker" validate:"required,url"`
	Username         string `yaml:"username"`
	Password         string `yaml:"password"`
	ClientID         string `yaml:"client_id" validate:"required"`
	TLS              bool   `yaml:"tls"`
	TLSInsecure      bool   `yaml:"tls_insecure"`
	ConnectTimeoutS  int    `yaml:"connect_timeout_s" validate:"min=1"`
	PublishTimeoutMS int    `yaml:"publish_timeout_ms" validate:"min=1"`
	KeepAliveS       int    `yaml:"keepalive_s" validate:"min=1"`
	TopicTelemetry   string `yaml:"topic_telemetry" validate:"required"`
	TopicIPRequest   string `yaml:"topic_ip_request" validate:"required"`
	TopicBelt        string `yaml:"topic_belt" validate:"required"`
	QoSTelemetry     int    `yaml:"qos_telemetry" validate:"min=0,max=2"`
	QoSControl       int    `yaml:"qos_control" validate:"min=0,max=2"`
}

type HardwareConfig struct {
	Mode       string `yaml:"mode" validate:"oneof=simulated gpio"`
	BeltPin    string `yaml:"belt_pin" validate:"required_if=Mode gpio"`
	LCDBus     string `yaml:"lcd_bus"`
	LCDAddress int    `yaml:"lcd_address" validate:"min=0,max=127"`
}

type EventsConfig struct {
	DBPath        string `yaml:"db_path"`
	FlushInterval int    `yaml:"flush_interval_s" validate:"min=1"`
	BufferLimit   int    `yaml:"buffer_limit" validate:"min=1"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:            5000,
		LogDirectory:    filepath.Join(".", "logs"),
		ShutdownTimeout: 5,
		StatusRateLimit: 5,
		Camera: CameraConfig{
			Index:        -1,
			ProbeCount:   10,
			Width:        640,
			Height:       480,
			FPS:          15,
			RetryDelayMS: 100,
		},
		Vision: VisionConfig{
			MaxWidth:    640,
			MinArea:     400,
			KernelSize:  5,
			BlurSize:    5,
			Mode:        ModeMulti,
			JPEGQuality: 85,
		},
		Telemetry: TelemetryConfig{
			IntervalMS: 500,
		},
		MQTT: MQTTConfig{
			Broker:           "ssl://localhost:8883",
			TLS:              true,
			ConnectTimeoutS:  10,
			PublishTimeoutMS: 2000,
			KeepAliveS:       60,
			TopicTelemetry:   "dados/camera",
			TopicIPRequest:   "dados/solicitar_ip",
			TopicBelt:        "dados/app",
			QoSTelemetry:     0,
			QoSControl:       1,
		},
		Hardware: HardwareConfig{
			Mode:       HardwareSimulated,
			BeltPin:    "GPIO17",
			LCDAddress: 0x27,
		},
		Events: EventsConfig{
			DBPath:        filepath.Join(".", "data", "events.db"),
			FlushInterval: 30,
			BufferLimit:   100,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file named by
// CONFIG_FILE, and environment variables (a .env file is loaded first when present).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "belt-sensor-" + strings.Split(uuid.NewString(), "-")[0]
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &ValidationError{Field: "CONFIG_FILE", Reason: fmt.Sprintf("failed to read %s: %v", path, err)}
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return &ValidationError{Field: "CONFIG_FILE", Reason: fmt.Sprintf("failed to parse %s: %v", path, err)}
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnvAsInt("PORT", c.Port)
	c.Password = getEnvOrEmpty("PASSWORD", c.Password)
	c.LogDirectory = getEnv("LOG_DIR", c.LogDirectory)
	c.EndpointHost = getEnvOrEmpty("ENDPOINT_HOST", c.EndpointHost)
	c.ShutdownTimeout = getEnvAsInt("SHUTDOWN_TIMEOUT_S", c.ShutdownTimeout)
	c.StatusRateLimit = getEnvAsInt("STATUS_RATE_LIMIT", c.StatusRateLimit)

	c.Camera.Index = getEnvAsInt("CAMERA_INDEX", c.Camera.Index)
	c.Camera.ProbeCount = getEnvAsInt("CAMERA_PROBE_COUNT", c.Camera.ProbeCount)
	c.Camera.Width = getEnvAsInt("CAMERA_WIDTH", c.Camera.Width)
	c.Camera.Height = getEnvAsInt("CAMERA_HEIGHT", c.Camera.Height)
	c.Camera.FPS = getEnvAsInt("CAMERA_FPS", c.Camera.FPS)
	c.Camera.RetryDelayMS = getEnvAsInt("CAMERA_RETRY_DELAY_MS", c.Camera.RetryDelayMS)

	c.Vision.MaxWidth = getEnvAsInt("VISION_MAX_WIDTH", c.Vision.MaxWidth)
	c.Vision.MinArea = getEnvAsFloat("VISION_MIN_AREA", c.Vision.MinArea)
	c.Vision.KernelSize = getEnvAsInt("VISION_KERNEL_SIZE", c.Vision.KernelSize)
	c.Vision.BlurSize = getEnvAsInt("VISION_BLUR_SIZE", c.Vision.BlurSize)
	c.Vision.Mode = getEnv("VISION_MODE", c.Vision.Mode)
	c.Vision.JPEGQuality = getEnvAsInt("STREAM_JPEG_QUALITY", c.Vision.JPEGQuality)
	c.Vision.Colors = getEnvOrEmpty("VISION_COLORS", c.Vision.Colors)

	c.Telemetry.IntervalMS = getEnvAsInt("TELEMETRY_INTERVAL_MS", c.Telemetry.IntervalMS)
	c.Telemetry.LabelPrefix = getEnvOrEmpty("TELEMETRY_LABEL_PREFIX", c.Telemetry.LabelPrefix)
	c.Telemetry.NotifyOnChangeOnly = getEnvAsBool("NOTIFY_ON_CHANGE_ONLY", c.Telemetry.NotifyOnChangeOnly)

	c.MQTT.Broker = getEnv("MQTT_BROKER", c.MQTT.Broker)
	c.MQTT.Username = getEnvOrEmpty("MQTT_USERNAME", c.MQTT.Username)
	c.MQTT.Password = getEnvOrEmpty("MQTT_PASSWORD", c.MQTT.Password)
	c.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", c.MQTT.ClientID)
	c.MQTT.TLS = getEnvAsBool("MQTT_TLS", c.MQTT.TLS)
	c.MQTT.TLSInsecure = getEnvAsBool("MQTT_TLS_INSECURE", c.MQTT.TLSInsecure)
	c.MQTT.ConnectTimeoutS = getEnvAsInt("MQTT_CONNECT_TIMEOUT_S", c.MQTT.ConnectTimeoutS)
	c.MQTT.PublishTimeoutMS = getEnvAsInt("MQTT_PUBLISH_TIMEOUT_MS", c.MQTT.PublishTimeoutMS)
	c.MQTT.KeepAliveS = getEnvAsInt("MQTT_KEEPALIVE_S", c.MQTT.KeepAliveS)
	c.MQTT.TopicTelemetry = getEnv("MQTT_TOPIC_TELEMETRY", c.MQTT.TopicTelemetry)
	c.MQTT.TopicIPRequest = getEnv("MQTT_TOPIC_IP_REQUEST", c.MQTT.TopicIPRequest)
	c.MQTT.TopicBelt = getEnv("MQTT_TOPIC_BELT", c.MQTT.TopicBelt)
	c.MQTT.QoSTelemetry = getEnvAsInt("MQTT_QOS_TELEMETRY", c.MQTT.QoSTelemetry)
	c.MQTT.QoSControl = getEnvAsInt("MQTT_QOS_CONTROL", c.MQTT.QoSControl)

	c.Hardware.Mode = getEnv("HARDWARE_MODE", c.Hardware.Mode)
	c.Hardware.BeltPin = getEnv("BELT_GPIO_PIN", c.Hardware.BeltPin)
	c.Hardware.LCDBus = getEnvOrEmpty("LCD_I2C_BUS", c.Hardware.LCDBus)
	c.Hardware.LCDAddress = getEnvAsInt("LCD_I2C_ADDR", c.Hardware.LCDAddress)

	c.Events.DBPath = getEnvOrEmpty("EVENTS_DB_PATH", c.Events.DBPath)
	c.Events.FlushInterval = getEnvAsInt("EVENTS_FLUSH_INTERVAL_S", c.Events.FlushInterval)
	c.Events.BufferLimit = getEnvAsInt("EVENTS_BUFFER_LIMIT", c.Events.BufferLimit)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrEmpty lets a variable that is set but empty clear the value.
func getEnvOrEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		// base 0 so LCD_I2C_ADDR=0x27 works
		if intValue, err := strconv.ParseInt(value, 0, 64); err == nil {
			return int(intValue)
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// EnabledColors returns the labels named in Colors, or every label when it is
// empty. Unknown names are skipped; Validate rejects them at load.
func (v VisionConfig) EnabledColors() []model.ColorLabel {
	if strings.TrimSpace(v.Colors) == "" {
		return slices.Clone(model.Colors)
	}

	var enabled []model.ColorLabel
	for _, name := range strings.Split(v.Colors, ",") {
		label := model.ParseColor(name)
		if label == model.Unknown || slices.Contains(enabled, label) {
			continue
		}
		enabled = append(enabled, label)
	}
	return enabled
}

func (c *Config) TelemetryInterval() time.Duration {
	return time.Duration(c.Telemetry.IntervalMS) * time.Millisecond
}

func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Camera.RetryDelayMS) * time.Millisecond
}

func (c *Config) ShutdownGrace() time.Duration {
	return time.Duration(c.ShutdownTimeout) * time.Second
}

func (c *Config) FlushEvery() time.Duration {
	return time.Duration(c.Events.FlushInterval) * time.Second
}
