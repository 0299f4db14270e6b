package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Upload  UploadConfig  `mapstructure:"upload"`
	Segment SegmentConfig `mapstructure:"segment"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type UploadConfig struct {
	MaxSize       int64         `mapstructure:"max_size"`
	MaxPixels     int           `mapstructure:"max_pixels"`
	UploadDir     string        `mapstructure:"upload_dir"`
	AllowedTypes  []string      `mapstructure:"allowed_types"`
	SweepSchedule string        `mapstructure:"sweep_schedule"`
	MaxAge        time.Duration `mapstructure:"max_age"`
}

type SegmentConfig struct {
	Iterations        int     `mapstructure:"iterations"`
	CoverageThreshold float64 `mapstructure:"coverage_threshold"`
	MaxDimension      int     `mapstructure:"max_dimension"`
	MaxConcurrent     int     `mapstructure:"max_concurrent"`
	QueueTimeout      int     `mapstructure:"queue_timeout"`
	CleanupTempFiles  bool    `mapstructure:"cleanup_temp_files"`
}

// Load 从 YAML 文件加载配置
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// 设置默认值
	setDefaults(v)

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// New 使用默认配置路径加载配置
func New() *Config {
	cfg, err := Load("config.yaml")
	if err != nil {
		// 如果加载失败，返回默认配置
		return getDefaultConfig()
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":5000")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 24*time.Hour)

	v.SetDefault("upload.max_size", 16*1024*1024)
	v.SetDefault("upload.max_pixels", 64*1024*1024)
	v.SetDefault("upload.upload_dir", "./uploads")
	v.SetDefault("upload.allowed_types", []string{"image/jpeg", "image/png", "image/webp", "image/bmp"})
	v.SetDefault("upload.sweep_schedule", "*/10 * * * *")
	v.SetDefault("upload.max_age", time.Hour)

	v.SetDefault("segment.iterations", 5)
	v.SetDefault("segment.coverage_threshold", 0.01)
	v.SetDefault("segment.max_dimension", 1600)
	v.SetDefault("segment.max_concurrent", 3)
	v.SetDefault("segment.queue_timeout", 30)
	v.SetDefault("segment.cleanup_temp_files", true)
}

func getDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         ":5000",
			Mode:         "debug",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			TTL:      24 * time.Hour,
		},
		Upload: UploadConfig{
			MaxSize:       16 * 1024 * 1024,
			MaxPixels:     64 * 1024 * 1024,
			UploadDir:     "./uploads",
			AllowedTypes:  []string{"image/jpeg", "image/png", "image/webp", "image/bmp"},
			SweepSchedule: "*/10 * * * *",
			MaxAge:        time.Hour,
		},
		Segment: SegmentConfig{
			Iterations:        5,
			CoverageThreshold: 0.01,
			MaxDimension:      1600,
			MaxConcurrent:     3,
			QueueTimeout:      30,
			CleanupTempFiles:  true,
		},
	}
}
