package quake

import (
	"fmt"
	"net/url"
	"time"
)

// Record is one decoded seismic event. Fields are only readable through
// accessors so a Record cannot change after it leaves the Decoder.
type Record struct {
	magnitude        float64
	hasMagnitude     bool
	location         string
	occurredAtMillis int64
	detailURL        string
}

// NewRecord builds a Record. A nil magnitude means the feed reported none.
func NewRecord(magnitude *float64, location string, occurredAtMillis int64, detailURL string) (Record, error) {
	if occurredAtMillis < 0 {
		return Record{}, fmt.Errorf("negative event time: %d", occurredAtMillis)
	}
	if !isAbsoluteURL(detailURL) {
		return Record{}, fmt.Errorf("detail URL is not absolute: %q", detailURL)
	}

	r := Record{
		location:         location,
		occurredAtMillis: occurredAtMillis,
		detailURL:        detailURL,
	}
	if magnitude != nil {
		r.magnitude = *magnitude
		r.hasMagnitude = true
	}
	return r, nil
}

func (r Record) Magnitude() (float64, bool) {
	return r.magnitude, r.hasMagnitude
}

func (r Record) Location() string {
	return r.location
}

func (r Record) OccurredAtMillis() int64 {
	return r.occurredAtMillis
}

func (r Record) OccurredAt() time.Time {
	return time.UnixMilli(r.occurredAtMillis)
}

func (r Record) DetailURL() string {
	return r.detailURL
}

// Title renders the event the way USGS lists it, e.g. "M 6.6 - 89km NW of Port-Vila, Vanuatu".
func (r Record) Title() string {
	mag := "M ?"
	if r.hasMagnitude {
		mag = fmt.Sprintf("M %.1f", r.magnitude)
	}
	if r.location == "" {
		return mag
	}
	return mag + " - " + r.location
}

func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.IsAbs() && u.Host != ""
}
