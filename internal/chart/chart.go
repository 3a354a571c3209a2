// Package chart holds the observation model shared by every source and the aggregator.
package chart

import (
	"fmt"
	"strings"
)

// View is the measurement window of an observation.
type View int

const (
	VIEW_DAILY View = iota
	VIEW_WEEKLY
)

func (v View) String() string {
	switch v {
	case VIEW_DAILY:
		return "daily"
	case VIEW_WEEKLY:
		return "weekly"
	}
	return fmt.Sprintf("view(%d)", int(v))
}

// ParseView accepts "daily" or "weekly" in any case.
func ParseView(s string) (View, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "daily":
		return VIEW_DAILY, nil
	case "weekly":
		return VIEW_WEEKLY, nil
	}
	return 0, fmt.Errorf("unknown view '%s', expected 'daily' or 'weekly'", s)
}

// ParseViews accepts a single view name or "both".
func ParseViews(s string) ([]View, error) {
	if strings.EqualFold(strings.TrimSpace(s), "both") {
		return []View{VIEW_WEEKLY, VIEW_DAILY}, nil
	}
	v, err := ParseView(s)
	if err != nil {
		return nil, err
	}
	return []View{v}, nil
}

const GlobalRegion = "Global"

// Key identifies an observation, no two observations in a dataset share one.
type Key struct {
	TrackID string
	Region  string
	Date    Date
	View    View
}

// Observation is one (track, region, date, view) data point as it was scraped or imported.
// Rank and Streams are nil when the track was not charting there that day.
type Observation struct {
	Date    Date
	TrackID string
	Title   string
	Artist  string
	Region  string
	Rank    *int
	Streams *int64
	View    View
}

func (o Observation) Key() Key {
	return Key{
		TrackID: o.TrackID,
		Region:  o.Region,
		Date:    o.Date,
		View:    o.View,
	}
}

func IntPtr(n int) *int {
	return &n
}

func Int64Ptr(n int64) *int64 {
	return &n
}
