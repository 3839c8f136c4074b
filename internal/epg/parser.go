// Package epg ingests an XMLTV guide feed: streaming download, gunzip,
// incremental parse, validation, transformation, and batched persistence.
// Memory stays bounded regardless of feed size because programmes are
// decoded one element at a time and handed to the consumer over a bounded
// channel.
package epg

import (
	"context"
	"encoding/xml"
	"io"
	"log"
	"strings"
	"time"

	"github.com/voyagen/streamvault/internal/models"
)

// timestampLayout is the provider's compact format: YYYYMMDDHHMMSS ±HHMM.
const timestampLayout = "20060102150405 -0700"

// ParseTimestamp converts a provider timestamp to RFC3339 UTC. When the
// string does not parse it is returned unchanged with ok=false, so records
// with odd timestamps pass through rather than being dropped.
func ParseTimestamp(s string) (value string, ok bool) {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		t, err = time.Parse("20060102150405", s)
		if err != nil {
			return s, false
		}
	}
	return t.UTC().Format(time.RFC3339), true
}

// xmlText captures element text regardless of whether the source nests it
// as plain character data or CDATA, plus the optional lang attribute.
type xmlText struct {
	Lang string `xml:"lang,attr"`
	Text string `xml:",chardata"`
}

// xmlProgramme is the raw XML structure for <programme>.
type xmlProgramme struct {
	Start   string  `xml:"start,attr"`
	Stop    string  `xml:"stop,attr"`
	Channel string  `xml:"channel,attr"`
	Title   xmlText `xml:"title"`
	Desc    xmlText `xml:"desc"`
}

// parseResult is what the parser goroutine reports back when the stream ends.
type parseResult struct {
	dropped int
	err     error
}

// parsePrograms incrementally decodes <programme> elements from r, validates
// and transforms each one, and sends the survivors on out. Elements missing
// any of start/stop/channel are dropped with a warning; malformed elements
// are skipped. Sends block when the channel is full, which is the
// backpressure that pauses parsing while a batch is being flushed.
func parsePrograms(ctx context.Context, r io.Reader, out chan<- models.Program, now func() time.Time) parseResult {
	decoder := xml.NewDecoder(r)
	dropped := 0

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			return parseResult{dropped: dropped}
		}
		if err != nil {
			return parseResult{dropped: dropped, err: err}
		}

		el, isStart := token.(xml.StartElement)
		if !isStart || el.Name.Local != "programme" {
			continue
		}

		var raw xmlProgramme
		if err := decoder.DecodeElement(&raw, &el); err != nil {
			dropped++
			log.Printf("[epg] skipping malformed programme: %v", err)
			continue
		}

		if missing := missingFields(raw); len(missing) > 0 {
			dropped++
			log.Printf("[epg] dropping programme, missing required fields: %s", strings.Join(missing, ", "))
			continue
		}

		select {
		case out <- transformProgramme(raw, now()):
		case <-ctx.Done():
			return parseResult{dropped: dropped, err: ctx.Err()}
		}
	}
}

func missingFields(raw xmlProgramme) []string {
	var missing []string
	if raw.Start == "" {
		missing = append(missing, "start")
	}
	if raw.Stop == "" {
		missing = append(missing, "stop")
	}
	if raw.Channel == "" {
		missing = append(missing, "channel")
	}
	return missing
}

// transformProgramme maps a validated raw element to the stored shape.
// Language prefers the title-level attribute over the description-level one.
func transformProgramme(raw xmlProgramme, createdAt time.Time) models.Program {
	start, _ := ParseTimestamp(raw.Start)
	stop, _ := ParseTimestamp(raw.Stop)

	lang := raw.Title.Lang
	if lang == "" {
		lang = raw.Desc.Lang
	}

	return models.Program{
		Channel:     raw.Channel,
		Start:       start,
		Stop:        stop,
		Title:       strings.TrimSpace(raw.Title.Text),
		Description: strings.TrimSpace(raw.Desc.Text),
		Language:    lang,
		CreatedAt:   createdAt.UTC(),
	}
}
