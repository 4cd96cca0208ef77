package config

import (
	"fmt"
	"log"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Database DatabaseConfig `mapstructure:"database"`
	Bilibili BilibiliConfig `mapstructure:"bilibili"`
	Download DownloadConfig `mapstructure:"download"`
}

type ServerConfig struct {
	Port     string `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`      // json 或 text
	Output     string `mapstructure:"output"`      // stdout 或 file
	Dir        string `mapstructure:"dir"`         // 日志目录，output 为 file 时生效
	MaxSize    int    `mapstructure:"max_size"`    // 兆字节
	MaxBackups int    `mapstructure:"max_backups"` // 备份数量
	MaxAge     int    `mapstructure:"max_age"`     // 天数
	Compress   bool   `mapstructure:"compress"`    // 是否压缩旧文件
}

type JWTConfig struct {
	Secret     string `mapstructure:"secret"`      // JWT 密钥
	ExpireTime int    `mapstructure:"expire_time"` // 过期时间（小时）
	Issuer     string `mapstructure:"issuer"`      // 签发者
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// BilibiliConfig 上游平台访问配置
type BilibiliConfig struct {
	UserAgent       string        `mapstructure:"user_agent"`
	WebBase         string        `mapstructure:"web_base"`
	APIBase         string        `mapstructure:"api_base"`
	Timeout         time.Duration `mapstructure:"timeout"`
	RequestInterval time.Duration `mapstructure:"request_interval"` // 分P之间的请求间隔
	TierCacheTTL    time.Duration `mapstructure:"tier_cache_ttl"`   // 用户等级缓存时间
	LoginCheckSpec  string        `mapstructure:"login_check_spec"` // 登录状态巡检 cron 表达式，空则不启用
}

// DownloadConfig 下载相关设置的初始值，首次启动时写入设置表
type DownloadConfig struct {
	Path          string `mapstructure:"path"`
	IsFolder      bool   `mapstructure:"is_folder"`
	MaxConcurrent int    `mapstructure:"max_concurrent"`
	SESSDATA      string `mapstructure:"sessdata"`
}

func Load() *Config {
	setDefaults()

	// 读取配置
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("未找到配置文件，使用默认配置")
		} else {
			log.Fatalf("读取配置文件出错: %v", err)
		}
	}

	config, err := decode()
	if err != nil {
		log.Fatalf("无法解码配置: %v", err)
	}

	// 验证配置
	if err := validateConfig(config); err != nil {
		log.Fatalf("配置验证失败: %v", err)
	}

	return config
}

// Watch 监听配置文件变化，变化后重新解码并回调
func Watch(onChange func(*Config)) {
	viper.OnConfigChange(func(e fsnotify.Event) {
		if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			return
		}
		cfg, err := decode()
		if err != nil {
			log.Printf("配置文件 %s 变更后解码失败: %v", e.Name, err)
			return
		}
		if err := validateConfig(cfg); err != nil {
			log.Printf("配置文件 %s 变更后验证失败: %v", e.Name, err)
			return
		}
		onChange(cfg)
	})
	viper.WatchConfig()
}

func decode() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// setDefaults 设置默认配置
func setDefaults() {
	viper.SetDefault("server.port", "5000")

	// 日志默认配置
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.dir", "data/logs")
	viper.SetDefault("log.max_size", 100)
	viper.SetDefault("log.max_backups", 3)
	viper.SetDefault("log.max_age", 28)
	viper.SetDefault("log.compress", true)

	// JWT默认配置
	viper.SetDefault("jwt.secret", "your-secret-key-change-in-production")
	viper.SetDefault("jwt.expire_time", 24) // 24小时
	viper.SetDefault("jwt.issuer", "bili-downloader")

	viper.SetDefault("database.path", "data/bili-downloader.db")

	viper.SetDefault("bilibili.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36")
	viper.SetDefault("bilibili.web_base", "https://www.bilibili.com")
	viper.SetDefault("bilibili.api_base", "https://api.bilibili.com")
	viper.SetDefault("bilibili.timeout", 15*time.Second)
	viper.SetDefault("bilibili.request_interval", time.Second)
	viper.SetDefault("bilibili.tier_cache_ttl", 5*time.Minute)
	viper.SetDefault("bilibili.login_check_spec", "@every 30m")

	viper.SetDefault("download.path", "data/downloads")
	viper.SetDefault("download.is_folder", true)
	viper.SetDefault("download.max_concurrent", 3)
}

// validateConfig 验证配置的有效性
func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return fmt.Errorf("服务器端口未设置")
	}
	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT密钥未设置")
	}
	if config.Database.Path == "" {
		return fmt.Errorf("数据库路径未设置")
	}
	if config.Bilibili.APIBase == "" || config.Bilibili.WebBase == "" {
		return fmt.Errorf("bilibili 接口地址未设置")
	}
	if config.Bilibili.RequestInterval < 0 {
		return fmt.Errorf("分P请求间隔不能为负数")
	}
	if config.Download.MaxConcurrent < 0 {
		return fmt.Errorf("最大同时下载数不能为负数")
	}
	return nil
}
