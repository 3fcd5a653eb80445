package feed

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"html"
	"time"

	"github.com/lysyi3m/quake-report/app/cfg"
	"github.com/lysyi3m/quake-report/app/quake"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Run renders records as an RSS 2.0 channel for feedConfig. The records are
// expected to be already filtered.
func (g *Generator) Run(feedConfig *Config, snapshot Snapshot, records []quake.Record) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", fmt.Sprintf("Earthquakes: %s", feedConfig.Name), 4)
	g.writeElement(&buf, "link", feedConfig.URL, 4)
	g.writeElement(&buf, "description", fmt.Sprintf("Recent earthquakes from %s", feedConfig.URL), 4)

	var selfLink string
	if cfg.Get().BaseUrl != "" {
		selfLink = fmt.Sprintf("%s/feeds/%s", cfg.Get().BaseUrl, feedConfig.Name)
	} else {
		selfLink = fmt.Sprintf("http://localhost:%s/feeds/%s", cfg.Get().Port, feedConfig.Name)
	}
	buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
		html.EscapeString(selfLink)))

	lastBuildDate := cmp.Or(snapshot.UpdatedAt, time.Now())

	g.writeElement(&buf, "lastBuildDate", lastBuildDate.In(time.Local).Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("QuakeReport/%s", cfg.Get().Version), 4)
	if ttl := feedConfig.Settings.RefreshInterval / 60; ttl > 0 {
		g.writeElement(&buf, "ttl", fmt.Sprintf("%d", ttl), 4)
	}

	for _, record := range records {
		g.writeItem(&buf, record)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, record quake.Record) {
	buf.WriteString("    <item>\n")

	buf.WriteString("      <guid isPermaLink=\"true\">")
	xml.EscapeText(buf, []byte(record.DetailURL()))
	buf.WriteString("</guid>\n")

	g.writeElement(buf, "title", record.Title(), 6)
	g.writeElement(buf, "link", record.DetailURL(), 6)
	g.writeElement(buf, "description", g.describe(record), 6)
	g.writeElement(buf, "pubDate", record.OccurredAt().In(time.Local).Format(time.RFC1123Z), 6)

	buf.WriteString("    </item>\n")
}

func (g *Generator) describe(record quake.Record) string {
	magnitude := "Unknown magnitude"
	if mag, ok := record.Magnitude(); ok {
		magnitude = fmt.Sprintf("Magnitude %.1f", mag)
	}

	occurredAt := record.OccurredAt().In(time.Local).Format("2006-01-02 15:04:05 MST")
	if record.Location() == "" {
		return fmt.Sprintf("%s earthquake at %s", magnitude, occurredAt)
	}
	return fmt.Sprintf("%s earthquake, %s, at %s", magnitude, record.Location(), occurredAt)
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}
