package config

import (
	"github.com/rs/zerolog"
)

// Config holds all configuration for the application
type Config struct {
	// File paths
	TargetsCSVPath string
	DBPath         string
	RulesPath      string

	// Feed provider settings
	FeedLang   string
	FeedRegion string

	// Log settings
	LogLevel zerolog.Level
}

// DefaultConfig returns an initial configuration with hardcoded defaults.
func DefaultConfig() *Config {
	logLevel, _ := zerolog.ParseLevel(DefaultLogLevel)

	return &Config{
		TargetsCSVPath: DefaultTargetsCSVPath,
		DBPath:         DefaultDBPath,
		RulesPath:      GetEnvString("CRAWLER_RULES_PATH", ""),
		FeedLang:       GetEnvString("CRAWLER_FEED_LANG", DefaultFeedLang),
		FeedRegion:     GetEnvString("CRAWLER_FEED_REGION", DefaultFeedRegion),
		LogLevel:       logLevel,
	}
}
