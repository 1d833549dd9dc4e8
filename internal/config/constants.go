package config

// Constants defining default values for application configuration
const (
	DefaultTargetsCSVPath = "./targets.csv"
	DefaultDBPath         = "./goods.db"

	DefaultFeedLang   = "ja"
	DefaultFeedRegion = "JP"

	DefaultLogLevel = "debug"
)
