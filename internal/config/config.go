package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Agent  AgentConfig  `mapstructure:"agent"`
	Server ServerConfig `mapstructure:"server"`
	Redis  RedisConfig  `mapstructure:"redis"`
	MySQL  MySQLConfig  `mapstructure:"mysql"`
}

// AgentConfig configures the client session daemon.
type AgentConfig struct {
	ServerURL       string        `mapstructure:"server_url"`
	APIBaseURL      string        `mapstructure:"api_base_url"`
	UserID          string        `mapstructure:"user_id"`
	Port            int           `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	FeedCapacity    int           `mapstructure:"feed_capacity"`
	ResyncInterval  time.Duration `mapstructure:"resync_interval"`
	IdentifyTimeout time.Duration `mapstructure:"identify_timeout"`
}

// ServerConfig configures the notification-service listener.
type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MySQLConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

func Load() (*Config, error) {
	// Set default values
	viper.SetDefault("agent.server_url", "ws://localhost:8080/ws")
	viper.SetDefault("agent.api_base_url", "http://localhost:8080")
	viper.SetDefault("agent.user_id", "")
	viper.SetDefault("agent.port", 8090)
	viper.SetDefault("agent.host", "127.0.0.1")
	viper.SetDefault("agent.feed_capacity", 20)
	viper.SetDefault("agent.resync_interval", 5*time.Minute)
	viper.SetDefault("agent.identify_timeout", time.Second)
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("mysql.dsn", "notify_user:notify_pass@tcp(localhost:3306)/notify_db?parseTime=true")
	viper.SetDefault("mysql.max_open_conns", 25)
	viper.SetDefault("mysql.max_idle_conns", 10)
	viper.SetDefault("mysql.conn_max_lifetime", 5*time.Minute)

	// Configuration file settings
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/notification-system/")

	// Environment variable support
	viper.AutomaticEnv()

	// Environment variable mappings
	viper.BindEnv("agent.server_url", "AGENT_SERVER_URL")
	viper.BindEnv("agent.api_base_url", "AGENT_API_BASE_URL")
	viper.BindEnv("agent.user_id", "AGENT_USER_ID")
	viper.BindEnv("agent.port", "AGENT_PORT")
	viper.BindEnv("agent.host", "AGENT_HOST")
	viper.BindEnv("agent.feed_capacity", "AGENT_FEED_CAPACITY")
	viper.BindEnv("agent.resync_interval", "AGENT_RESYNC_INTERVAL")
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.host", "SERVER_HOST")
	viper.BindEnv("redis.address", "REDIS_ADDRESS")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")
	viper.BindEnv("mysql.dsn", "MYSQL_DSN")
	viper.BindEnv("mysql.max_open_conns", "MYSQL_MAX_OPEN_CONNS")
	viper.BindEnv("mysql.max_idle_conns", "MYSQL_MAX_IDLE_CONNS")
	viper.BindEnv("mysql.conn_max_lifetime", "MYSQL_CONN_MAX_LIFETIME")

	// Read configuration file (optional - will use defaults/env vars if not found)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// Config file not found, continue with defaults and environment variables
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// GetConfigString returns a formatted string representation of the config
func (c *Config) GetConfigString() string {
	return fmt.Sprintf(
		"Agent: %s (user %s), Server: %s:%d, Redis: %s, MySQL: %s",
		c.Agent.ServerURL,
		c.Agent.UserID,
		c.Server.Host,
		c.Server.Port,
		c.Redis.Address,
		c.MySQL.DSN,
	)
}
