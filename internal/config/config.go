package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPathEnv names an optional YAML file applied before the environment
const ConfigPathEnv = "MEASURE_CONFIG"

// Config 应用配置
type Config struct {
	Port      string          `yaml:"port"`
	DBPath    string          `yaml:"db_path"`
	JWTSecret string          `yaml:"jwt_secret"` // empty disables auth
	Log       LogConfig       `yaml:"log"`
	Storage   StorageConfig   `yaml:"storage"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Redis     RedisConfig     `yaml:"redis"`
	Measure   MeasureConfig   `yaml:"measure"`
	Export    ExportConfig    `yaml:"export"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// StorageConfig locates exported images and photos
type StorageConfig struct {
	Dir     string `yaml:"dir"`
	BaseURL string `yaml:"base_url"`
}

// MQTTConfig reaches the BLE gateway. An empty broker disables device support.
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
}

// RedisConfig receives the reading stream. An empty addr disables publishing.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Stream   string `yaml:"stream"`
}

type MeasureConfig struct {
	Timeout        time.Duration `yaml:"timeout"`         // single shot
	GatewayTimeout time.Duration `yaml:"gateway_timeout"` // scan and connect round trips
}

type ExportConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Port:   ":8080",
		DBPath: "./data/measure/measure.db",
		Log:    LogConfig{Level: "info", Format: "json"},
		Storage: StorageConfig{
			Dir:     "./data/blobs",
			BaseURL: "/files",
		},
		MQTT: MQTTConfig{
			ClientID:    "measure-backend",
			TopicPrefix: "measure/ble",
		},
		Redis: RedisConfig{Stream: "measure:readings:stream"},
		Measure: MeasureConfig{
			Timeout:        30 * time.Second,
			GatewayTimeout: 60 * time.Second,
		},
		Export:    ExportConfig{Width: 1600, Height: 1200},
		RateLimit: RateLimitConfig{Requests: 120, Window: time.Minute},
	}
}

// Load 加载配置: defaults, then the YAML file named by MEASURE_CONFIG, then
// environment variables
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(ConfigPathEnv); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile merges a YAML file over cfg
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// LoadFromEnv 从环境变量加载配置
func (c *Config) LoadFromEnv() error {
	setString(&c.Port, "PORT")
	setString(&c.DBPath, "DB_PATH")
	setString(&c.JWTSecret, "JWT_SECRET")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")
	setString(&c.Storage.Dir, "STORAGE_DIR")
	setString(&c.Storage.BaseURL, "STORAGE_BASE_URL")
	setString(&c.MQTT.Broker, "MQTT_BROKER")
	setString(&c.MQTT.ClientID, "MQTT_CLIENT_ID")
	setString(&c.MQTT.Username, "MQTT_USERNAME")
	setString(&c.MQTT.Password, "MQTT_PASSWORD")
	setString(&c.MQTT.TopicPrefix, "MQTT_TOPIC_PREFIX")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setString(&c.Redis.Stream, "REDIS_STREAM")

	if err := setInt(&c.Redis.DB, "REDIS_DB"); err != nil {
		return err
	}
	if err := setInt(&c.Export.Width, "EXPORT_WIDTH"); err != nil {
		return err
	}
	if err := setInt(&c.Export.Height, "EXPORT_HEIGHT"); err != nil {
		return err
	}
	if err := setInt(&c.RateLimit.Requests, "RATE_LIMIT_REQUESTS"); err != nil {
		return err
	}
	if err := setDuration(&c.Measure.Timeout, "MEASURE_TIMEOUT"); err != nil {
		return err
	}
	if err := setDuration(&c.Measure.GatewayTimeout, "GATEWAY_TIMEOUT"); err != nil {
		return err
	}
	return setDuration(&c.RateLimit.Window, "RATE_LIMIT_WINDOW")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}
