package config

// Default returns the built-in configuration. Values mirror the public
// Jikan API limits: one request per 300ms, three per second, four per
// four seconds, at most ten in flight.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:      "~/.local/share/animap/data",
			StoreDir:     "~/.local/share/animap/store",
			OverridesDir: "~/.local/share/animap/overrides",
			LogDir:       "~/.local/share/animap/logs",
		},
		Jikan: Jikan{
			BaseURL:        "https://api.jikan.moe/v4",
			RequestTimeout: 30,
			SearchLimit:    10,
		},
		Gateway: Gateway{
			Windows: []Window{
				{Calls: 1, PerMillis: 300},
				{Calls: 3, PerMillis: 1000},
				{Calls: 4, PerMillis: 4000},
			},
			MaxInFlight:      10,
			RetryAttempts:    5,
			BackoffInitialMS: 1000,
			BackoffMaxSec:    60,
		},
		Matcher: Matcher{
			Threshold:         85,
			SubtitleThreshold: 90,
			RelationThreshold: 85,
		},
		Workflow: Workflow{
			SeriesWorkers: 4,
		},
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
	}
}
