package feed

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/lysyi3m/quake-report/app/quake"
)

type Filterer struct{}

func NewFilterer() *Filterer {
	return &Filterer{}
}

// Run returns the records that pass the feed's magnitude and field filters,
// in their original order, capped at MaxItems.
func (f *Filterer) Run(records []quake.Record, feedConfig *Config) []quake.Record {
	filtered := make([]quake.Record, 0, len(records))
	for _, record := range records {
		if isFiltered, filterReason := f.applyFilters(record, feedConfig); isFiltered {
			slog.Debug("Record filtered", "feed", feedConfig.Name, "url", record.DetailURL(), "reason", filterReason)
			continue
		}
		filtered = append(filtered, record)
	}

	if maxItems := feedConfig.Settings.MaxItems; maxItems > 0 && len(filtered) > maxItems {
		filtered = filtered[:maxItems]
	}

	return filtered
}

func (f *Filterer) applyFilters(record quake.Record, feedConfig *Config) (bool, string) {
	if minMagnitude := feedConfig.Settings.MinMagnitude; minMagnitude != nil {
		mag, ok := record.Magnitude()
		if !ok {
			return true, "Excluded by min magnitude: magnitude unknown"
		}
		if mag < *minMagnitude {
			return true, fmt.Sprintf("Excluded by min magnitude: %.1f < %.1f", mag, *minMagnitude)
		}
	}

	for _, filter := range feedConfig.Filters {
		value := f.getFieldValue(record, filter.Field)

		for _, exclude := range filter.Excludes {
			if f.matchesFilter(value, exclude) {
				return true, fmt.Sprintf("Excluded by %s filter: contains '%s'", filter.Field, exclude)
			}
		}

		if len(filter.Includes) > 0 {
			matched := false
			for _, include := range filter.Includes {
				if f.matchesFilter(value, include) {
					matched = true
					break
				}
			}
			if !matched {
				return true, fmt.Sprintf("Excluded by %s filter: does not contain any of %v", filter.Field, filter.Includes)
			}
		}
	}

	return false, ""
}

func (f *Filterer) matchesFilter(value, pattern string) bool {
	return strings.Contains(strings.ToLower(value), strings.ToLower(pattern))
}

func (f *Filterer) getFieldValue(record quake.Record, field string) string {
	switch field {
	case "place":
		return record.Location()
	case "title":
		return record.Title()
	case "url":
		return record.DetailURL()
	default:
		return ""
	}
}
