package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	MongoDB  MongoDBConfig
	JWT      JWTConfig
	Game     GameConfig
	LogLevel string
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         string
	AllowedHosts []string
}

// MongoDBConfig holds MongoDB-specific configuration
type MongoDBConfig struct {
	URI      string
	Database string
}

// JWTConfig holds JWT-specific configuration
type JWTConfig struct {
	Secret    string
	ExpiresIn int // seconds
}

// GameConfig holds the calling scheduler's timing configuration
type GameConfig struct {
	// SweepInterval is the cadence of the promotion sweep that moves
	// past-deadline upcoming games to live.
	SweepInterval time.Duration
	// StartDelay is the pause between a game going live and the first
	// called number.
	StartDelay time.Duration
	// Calling cadences selectable per game.
	SlowInterval   time.Duration
	MediumInterval time.Duration
	FastInterval   time.Duration
	DefaultSpeed   string
}

// Load loads configuration from environment variables and config files
func Load(path string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(path)
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional; environment variables and defaults apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults sets default values for configuration
func setDefaults() {
	viper.SetDefault("Server.Port", "4000")
	viper.SetDefault("Server.AllowedHosts", []string{"localhost:3000"})
	viper.SetDefault("MongoDB.URI", "mongodb://localhost:27017")
	viper.SetDefault("MongoDB.Database", "housie")
	viper.SetDefault("JWT.ExpiresIn", 24*60*60) // 24 hours
	viper.SetDefault("Game.SweepInterval", "30s")
	viper.SetDefault("Game.StartDelay", "5s")
	viper.SetDefault("Game.SlowInterval", "8s")
	viper.SetDefault("Game.MediumInterval", "5s")
	viper.SetDefault("Game.FastInterval", "3s")
	viper.SetDefault("Game.DefaultSpeed", "medium")
	viper.SetDefault("LogLevel", "info")
}
