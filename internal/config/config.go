package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Business BusinessConfig `mapstructure:"business"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	LedgerEvents string `mapstructure:"ledger_events"`
}

// BusinessConfig 业务参数
// MaxCASRetries/CASRetryIntervalMS 控制乐观锁冲突的有界重试
// 超过次数后向调用方返回竞争过高错误，绝不无限等待
type BusinessConfig struct {
	MaxCASRetries      int `mapstructure:"max_cas_retries"`
	CASRetryIntervalMS int `mapstructure:"cas_retry_interval_ms"`
	MaxRetryCount      int `mapstructure:"max_retry_count"` // outbox 投递最大重试次数
}

// CASRetryInterval 重试间隔
func (b *BusinessConfig) CASRetryInterval() time.Duration {
	return time.Duration(b.CASRetryIntervalMS) * time.Millisecond
}

var GlobalConfig *Config

// LoadConfig 加载配置文件
func LoadConfig(configPath string) *Config {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("读取配置文件失败: %v", err)
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		log.Fatalf("解析配置文件失败: %v", err)
	}

	GlobalConfig = config
	return config
}

// DefaultBusinessConfig 测试与缺省场景使用的业务参数
func DefaultBusinessConfig() BusinessConfig {
	return BusinessConfig{
		MaxCASRetries:      5,
		CASRetryIntervalMS: 10,
		MaxRetryCount:      3,
	}
}
