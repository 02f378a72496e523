package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate reports every configuration problem at once so a user can fix
// the file in a single pass.
func (c *Config) Validate() error {
	var problems []string

	if c.Paths.DataDir == "" {
		problems = append(problems, "paths.data_dir must be set")
	}
	if c.Paths.StoreDir == "" {
		problems = append(problems, "paths.store_dir must be set")
	}

	if c.Jikan.BaseURL == "" {
		problems = append(problems, "jikan.base_url must be set")
	}
	if c.Jikan.RequestTimeout <= 0 {
		problems = append(problems, "jikan.request_timeout must be positive")
	}
	if c.Jikan.SearchLimit < 1 || c.Jikan.SearchLimit > 25 {
		problems = append(problems, "jikan.search_limit must be between 1 and 25")
	}

	if len(c.Gateway.Windows) == 0 {
		problems = append(problems, "gateway.windows must define at least one window")
	}
	for i, w := range c.Gateway.Windows {
		if w.Calls <= 0 || w.PerMillis <= 0 {
			problems = append(problems, fmt.Sprintf("gateway.windows[%d] calls and per_ms must be positive", i))
		}
	}
	if c.Gateway.MaxInFlight <= 0 {
		problems = append(problems, "gateway.max_in_flight must be positive")
	}
	if c.Gateway.RetryAttempts <= 0 {
		problems = append(problems, "gateway.retry_attempts must be positive")
	}
	if c.Gateway.BackoffInitialMS <= 0 {
		problems = append(problems, "gateway.backoff_initial_ms must be positive")
	}
	if c.Gateway.BackoffMaxSec <= 0 {
		problems = append(problems, "gateway.backoff_max_seconds must be positive")
	}

	for _, t := range []struct {
		name  string
		value float64
	}{
		{"matcher.threshold", c.Matcher.Threshold},
		{"matcher.subtitle_threshold", c.Matcher.SubtitleThreshold},
		{"matcher.relation_threshold", c.Matcher.RelationThreshold},
	} {
		if t.value < 0 || t.value > 100 {
			problems = append(problems, t.name+" must be between 0 and 100")
		}
	}

	if c.Workflow.SeriesWorkers <= 0 {
		problems = append(problems, "workflow.series_workers must be positive")
	}

	switch c.Logging.Format {
	case "console", "json":
	default:
		problems = append(problems, "logging.format must be console or json")
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration:\n  - " + strings.Join(problems, "\n  - "))
	}
	return nil
}
