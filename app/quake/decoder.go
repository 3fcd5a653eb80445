package quake

import (
	"io"
	"log/slog"
	"strings"

	"github.com/goccy/go-json"
)

// Decoder maps a USGS GeoJSON document to Records. It keeps no state.
type Decoder struct{}

func NewDecoder() *Decoder {
	return &Decoder{}
}

// Run decodes raw into Records in feature order. Blank input yields zero
// Records and no error. Any structural problem rejects the whole document:
// no partial list is ever returned.
func (d *Decoder) Run(raw string) ([]Record, error) {
	if strings.TrimSpace(raw) == "" {
		slog.Debug("Empty feed body, no data")
		return []Record{}, nil
	}

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, &Error{Kind: KindMalformedJSON, Op: "decode", Err: err}
	}

	var trailing any
	if err := dec.Decode(&trailing); err != io.EOF {
		return nil, malformed("unexpected content after top-level value")
	}

	root, ok := doc.(map[string]any)
	if !ok {
		return nil, malformed("top-level value is not an object")
	}

	rawFeatures, ok := root["features"]
	if !ok {
		return nil, malformed("missing \"features\"")
	}
	features, ok := rawFeatures.([]any)
	if !ok {
		return nil, malformed("\"features\" is not an array")
	}

	records := make([]Record, 0, len(features))
	for i, f := range features {
		record, err := d.decodeFeature(i, f)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	slog.Debug("Decoded feed", "records", len(records))
	return records, nil
}

func (d *Decoder) decodeFeature(i int, f any) (Record, error) {
	feature, ok := f.(map[string]any)
	if !ok {
		return Record{}, malformed("feature %d is not an object", i)
	}
	props, ok := feature["properties"].(map[string]any)
	if !ok {
		return Record{}, malformed("feature %d: missing \"properties\" object", i)
	}

	magValue, ok := props["mag"]
	if !ok {
		return Record{}, malformed("feature %d: missing \"mag\"", i)
	}
	var magnitude *float64
	if magValue != nil {
		n, ok := magValue.(json.Number)
		if !ok {
			return Record{}, malformed("feature %d: \"mag\" is not a number", i)
		}
		m, err := n.Float64()
		if err != nil {
			return Record{}, malformed("feature %d: \"mag\": %v", i, err)
		}
		magnitude = &m
	}

	place, ok := props["place"].(string)
	if !ok {
		return Record{}, malformed("feature %d: \"place\" is missing or not a string", i)
	}

	timeValue, ok := props["time"].(json.Number)
	if !ok {
		return Record{}, malformed("feature %d: \"time\" is missing or not a number", i)
	}
	millis, err := timeValue.Int64()
	if err != nil {
		return Record{}, malformed("feature %d: \"time\" is not an integer: %v", i, err)
	}

	detailURL, ok := props["url"].(string)
	if !ok {
		return Record{}, malformed("feature %d: \"url\" is missing or not a string", i)
	}

	record, err := NewRecord(magnitude, place, millis, detailURL)
	if err != nil {
		return Record{}, malformed("feature %d: %v", i, err)
	}
	return record, nil
}
