package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ynhind/open-library-client/internal/logger"

	"github.com/spf13/viper"
)

// Config 客户端配置结构
type Config struct {
	Client ClientConfig `mapstructure:"client"`
	API    APIConfig    `mapstructure:"api"`
	State  StateConfig  `mapstructure:"state"`
	Log    LogConfig    `mapstructure:"log"`
}

// ClientConfig 客户端运行配置
type ClientConfig struct {
	Mode string `mapstructure:"mode"` // debug / release
}

// APIConfig 后端接口配置
type APIConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// StateConfig 本地状态库配置
type StateConfig struct {
	Path string `mapstructure:"path"` // 会话状态 sqlite 文件路径
}

// LogConfig 日志配置
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// ResolveStatePath 计算状态库路径，空值回落到用户配置目录
func (c StateConfig) ResolveStatePath() (string, error) {
	path := strings.TrimSpace(c.Path)
	if path != "" {
		return path, nil
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir failed: %w", err)
	}
	dir := filepath.Join(configDir, "openlib")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create state dir failed: %w", err)
	}
	return filepath.Join(dir, "state.db"), nil
}

// Load 从 config.yml 加载配置
func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".") // 从当前目录查找
	if configDir, err := os.UserConfigDir(); err == nil {
		viper.AddConfigPath(filepath.Join(configDir, "openlib"))
	}

	viper.SetDefault("client.mode", "release")
	viper.SetDefault("api.base_url", "http://localhost:4000/api")
	viper.SetDefault("api.timeout_seconds", 15)
	viper.SetDefault("state.path", "")
	viper.SetDefault("log.dir", "")
	viper.SetDefault("log.filename", "client.log")
	viper.SetDefault("log.max_size_mb", 20)
	viper.SetDefault("log.max_backups", 3)
	viper.SetDefault("log.max_age_days", 14)
	viper.SetDefault("log.compress", true)

	// 环境变量支持（api.base_url -> OPENLIB_API_BASE_URL）
	viper.SetEnvPrefix("openlib")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		logger.Debugw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Debugw("config_file_loaded", "file", viper.ConfigFileUsed())
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}

	return &cfg
}
