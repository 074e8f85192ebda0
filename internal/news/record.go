// Package news defines the canonical Solana news record and the normalizers
// that turn provider payloads into records.
package news

import (
	"encoding/json"
	"time"
)

// DateLayout is the calendar date format used for event_date and snapshot dates.
const DateLayout = "2006-01-02"

// Event types produced by the opportunity extractor.
const (
	EventTokenLaunch     = "New Token Launch"
	EventAirdrop         = "Airdrop"
	EventExchangeListing = "Exchange Listing"
)

// Record is a single news item or opportunity.
type Record struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	SourceURL   string `json:"source_url"`
	EventDate   string `json:"event_date"`
	TokenSymbol string `json:"token_symbol,omitempty"`
	EventType   string `json:"event_type,omitempty"`
}

// UnmarshalJSON accepts the opportunity field names (project_name,
// short_description) as aliases for title and content.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw struct {
		Title            string `json:"title"`
		ProjectName      string `json:"project_name"`
		Content          string `json:"content"`
		ShortDescription string `json:"short_description"`
		Description      string `json:"description"`
		SourceURL        string `json:"source_url"`
		URL              string `json:"url"`
		EventDate        string `json:"event_date"`
		TokenSymbol      string `json:"token_symbol"`
		EventType        string `json:"event_type"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Record{
		Title:       firstNonEmpty(raw.Title, raw.ProjectName),
		Content:     firstNonEmpty(raw.Content, raw.ShortDescription, raw.Description),
		SourceURL:   firstNonEmpty(raw.SourceURL, raw.URL),
		EventDate:   raw.EventDate,
		TokenSymbol: raw.TokenSymbol,
		EventType:   raw.EventType,
	}
	return nil
}

// Key identifies a record across snapshots: the source URL, or the title
// when the provider gave no link.
func (r Record) Key() string {
	if r.SourceURL != "" {
		return r.SourceURL
	}
	return r.Title
}

// Snapshot is the complete cached result of one successful refresh.
type Snapshot struct {
	Timestamp time.Time
	Date      string
	Provider  string
	Records   []Record
}

// NewSnapshot stamps records with the current instant and UTC date.
func NewSnapshot(provider string, records []Record, now time.Time) Snapshot {
	return Snapshot{
		Timestamp: now,
		Date:      now.UTC().Format(DateLayout),
		Provider:  provider,
		Records:   records,
	}
}

// Empty reports whether the snapshot holds no records.
func (s Snapshot) Empty() bool { return len(s.Records) == 0 }

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
