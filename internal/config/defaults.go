package config

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/mystock",
			},
		},
		Clients: ClientsConfig{
			AlphaVantage: AlphaVantageConfig{
				BaseURL:    "https://www.alphavantage.co/query",
				UseDelayed: true,
				Timeout:    "10s",
			},
		},
		Cache: CacheConfig{
			QuoteTTL:  "5m",
			SeriesTTL: "1h",
		},
		Updater: UpdaterConfig{
			Schedule: "0 * * * *",
			LeaseTTL: "30m",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
