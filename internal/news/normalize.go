package news

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/RobinCoderZhao/solana-news/pkg/htmltext"
)

// ErrEmptyPayload is reported when a generated payload has no text left
// after the code fences are removed.
var ErrEmptyPayload = errors.New("empty payload")

// ParseResult is the outcome of parsing generated text: either records, or
// the reason nothing could be used. Records is never nil on failure paths,
// it is simply empty.
type ParseResult struct {
	Records []Record
	Err     error
}

// OK reports whether the payload parsed as a JSON array.
func (p ParseResult) OK() bool { return p.Err == nil }

var fenceOpenRe = regexp.MustCompile("(?i)```json")

// StripCodeFences removes the first "```json" opener (any case) and every
// "```" marker.
func StripCodeFences(s string) string {
	if loc := fenceOpenRe.FindStringIndex(s); loc != nil {
		s = s[:loc[0]] + s[loc[1]:]
	}
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// ParseGenerated parses generative-provider text as a JSON array of records.
func ParseGenerated(text string) ParseResult {
	body := StripCodeFences(text)
	if body == "" {
		return ParseResult{Records: []Record{}, Err: ErrEmptyPayload}
	}
	var records []Record
	if err := json.Unmarshal([]byte(body), &records); err != nil {
		return ParseResult{Records: []Record{}, Err: fmt.Errorf("parse generated JSON array: %w", err)}
	}
	if records == nil {
		records = []Record{}
	}
	return ParseResult{Records: records}
}

// SearchItem is one raw result from the search provider.
type SearchItem struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
	Date    string `json:"date"`
}

// FromSearch maps search results to records. A missing snippet becomes empty
// content and a missing or unreadable date becomes today's UTC date. Items
// without a link are kept.
func FromSearch(items []SearchItem, now time.Time) []Record {
	records := make([]Record, 0, len(items))
	for _, it := range items {
		records = append(records, Record{
			Title:     htmltext.Plain(it.Title),
			Content:   htmltext.Plain(it.Snippet),
			SourceURL: it.Link,
			EventDate: ItemDate(it.Date, now),
		})
	}
	return records
}

var dateLayouts = []string{
	DateLayout,
	time.RFC3339,
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"01/02/2006",
}

var relativeRe = regexp.MustCompile(`^(\d+)\s+(minute|min|hour|day|week)s?\s+ago$`)

// ItemDate converts a provider date string to YYYY-MM-DD, defaulting to the
// UTC date of now.
func ItemDate(raw string, now time.Time) string {
	today := now.UTC().Format(DateLayout)
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return today
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(DateLayout)
		}
	}
	// news results look like "06/10/2024, 07:00 AM, +0000 UTC"
	if head, _, ok := strings.Cut(raw, ","); ok {
		if t, err := time.Parse("01/02/2006", head); err == nil {
			return t.Format(DateLayout)
		}
	}
	if m := relativeRe.FindStringSubmatch(strings.ToLower(raw)); m != nil {
		n, _ := strconv.Atoi(m[1])
		var d time.Duration
		switch m[2] {
		case "minute", "min":
			d = time.Duration(n) * time.Minute
		case "hour":
			d = time.Duration(n) * time.Hour
		case "day":
			d = time.Duration(n) * 24 * time.Hour
		case "week":
			d = time.Duration(n) * 7 * 24 * time.Hour
		}
		return now.UTC().Add(-d).Format(DateLayout)
	}
	return today
}
