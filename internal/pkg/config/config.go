package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 是整个应用的配置根结构，从 YAML 文件加载，
// 并允许通过 COMERGE_* 环境变量覆盖关键项。
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	MySQL   MySQLConfig   `yaml:"mysql"`
	Redis   RedisConfig   `yaml:"redis"`
	Kafka   KafkaConfig   `yaml:"kafka"`
	Jaeger  JaegerConfig  `yaml:"jaeger"`
	Logging LoggingConfig `yaml:"logging"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
	// LockWaitTimeout 是批量下单时单行锁等待的上限，
	// 超时将被归类为并发冲突而不是无限等待。
	LockWaitTimeout Duration `yaml:"lock_wait_timeout"`
}

// Duration 包装 time.Duration，支持 "5s" 形式的 YAML 标量。
type Duration time.Duration

// UnmarshalYAML 实现 yaml.Unmarshaler。
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std 返回标准库的 time.Duration。
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type MySQLConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	Database     string `yaml:"database"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// DSN 拼接 go-sql-driver 格式的连接串。
func (m MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		m.User, m.Password, m.Host, m.Port, m.Database)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// Enabled 为 false 时缓存整体降级为直读数据库。
	Enabled bool `yaml:"enabled"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	// OrderTopic 是订单完成事件的目标 topic。
	OrderTopic string `yaml:"order_topic"`
	Enabled    bool   `yaml:"enabled"`
}

type JaegerConfig struct {
	Endpoint string `yaml:"endpoint"`
	Enabled  bool   `yaml:"enabled"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Default 返回本地开发可直接使用的默认配置。
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			LockWaitTimeout: Duration(5 * time.Second),
		},
		MySQL: MySQLConfig{
			Host:         "localhost",
			Port:         3306,
			User:         "comerge",
			Password:     "comerge",
			Database:     "comerge",
			MaxOpenConns: 50,
			MaxIdleConns: 10,
		},
		Redis: RedisConfig{
			Addr:    "localhost:6379",
			Enabled: true,
		},
		Kafka: KafkaConfig{
			Brokers:    []string{"localhost:9092"},
			OrderTopic: "comerge.order.placed",
			Enabled:    false,
		},
		Jaeger: JaegerConfig{
			Endpoint: "http://localhost:14268/api/traces",
			Enabled:  false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: false,
		},
	}
}

// Load 按以下优先级合并配置: 默认值 < YAML 文件 < 环境变量。
// path 为空或文件不存在时不报错，直接使用默认值加环境变量。
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config file %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// 没有配置文件是合法场景，走默认值
		default:
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("COMERGE_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("COMERGE_MYSQL_HOST"); v != "" {
		c.MySQL.Host = v
	}
	if v := os.Getenv("COMERGE_MYSQL_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.MySQL.Port = p
		}
	}
	if v := os.Getenv("COMERGE_MYSQL_USER"); v != "" {
		c.MySQL.User = v
	}
	if v := os.Getenv("COMERGE_MYSQL_PASSWORD"); v != "" {
		c.MySQL.Password = v
	}
	if v := os.Getenv("COMERGE_MYSQL_DATABASE"); v != "" {
		c.MySQL.Database = v
	}
	if v := os.Getenv("COMERGE_REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("COMERGE_JAEGER_ENDPOINT"); v != "" {
		c.Jaeger.Endpoint = v
		c.Jaeger.Enabled = true
	}
	if v := os.Getenv("COMERGE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}
