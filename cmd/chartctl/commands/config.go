package commands

import (
	"fmt"
	"spotify-charts/internal/aggregate"
	"spotify-charts/internal/chart"
	"spotify-charts/internal/scrapers/kworb"
	"spotify-charts/internal/store"
	"time"
)

type FilterConfig struct {
	MaxRank   *int     `json:"max_rank"`
	Songs     []string `json:"songs"`
	Artists   []string `json:"artists"`
	StartDate string   `json:"start_date"`
	EndDate   string   `json:"end_date"`
}

type Config struct {
	BaseUrl   string `json:"base_url"`
	UserAgent string `json:"user_agent"`
	// Delay and Timeout are go durations like "2s" or "1m30s".
	Delay            string       `json:"delay"`
	Timeout          string       `json:"timeout"`
	Workers          int          `json:"workers"`
	CloudflareBypass bool         `json:"cloudflare_bypass"`
	StrictContainer  bool         `json:"strict_container"`
	Database         store.Config `json:"database"`
	// Tracks are scraped when no track is given on the command line.
	Tracks     []string            `json:"tracks"`
	SongGroups map[string][]string `json:"song_groups"`
	Filter     FilterConfig        `json:"filter"`
	LogLevel   string              `json:"log_level"`
	// Timezone is an IANA name, the date in default output file names is taken there.
	Timezone string `json:"timezone"`
}

func parseDuration(name, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("config key %s: %w", name, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("config key %s: negative duration %s", name, value)
	}
	return d, nil
}

func (c Config) ClientOptions() (kworb.ClientOptions, error) {
	delay, err := parseDuration("delay", c.Delay, kworb.DefaultDelay)
	if err != nil {
		return kworb.ClientOptions{}, err
	}
	timeout, err := parseDuration("timeout", c.Timeout, kworb.DefaultTimeout)
	if err != nil {
		return kworb.ClientOptions{}, err
	}
	return kworb.ClientOptions{
		BaseUrl:          c.BaseUrl,
		UserAgent:        c.UserAgent,
		Delay:            delay,
		Timeout:          timeout,
		CloudflareBypass: c.CloudflareBypass,
	}, nil
}

func parseOptionalDate(name, value string) (*chart.Date, error) {
	if value == "" {
		return nil, nil
	}
	d, err := chart.ParseISODate(value)
	if err != nil {
		return nil, fmt.Errorf("%s: expected YYYY-MM-DD: %w", name, err)
	}
	return &d, nil
}

// BuildFilter layers `override` on top of the configured filter, song group names are
// expanded into their songs.
func (c Config) BuildFilter(override FilterConfig) (aggregate.Filter, error) {
	merged := c.Filter
	if override.MaxRank != nil {
		merged.MaxRank = override.MaxRank
	}
	if len(override.Songs) > 0 {
		merged.Songs = override.Songs
	}
	if len(override.Artists) > 0 {
		merged.Artists = override.Artists
	}
	if override.StartDate != "" {
		merged.StartDate = override.StartDate
	}
	if override.EndDate != "" {
		merged.EndDate = override.EndDate
	}

	start, err := parseOptionalDate("start_date", merged.StartDate)
	if err != nil {
		return aggregate.Filter{}, err
	}
	end, err := parseOptionalDate("end_date", merged.EndDate)
	if err != nil {
		return aggregate.Filter{}, err
	}

	return aggregate.Filter{
		MaxRank:   merged.MaxRank,
		Songs:     aggregate.SongGroups(c.SongGroups).Expand(merged.Songs),
		Artists:   merged.Artists,
		StartDate: start,
		EndDate:   end,
	}, nil
}
