package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// LogEntry is a single game log line published by the game application.
// Images are resource paths, in the order the application listed them.
type LogEntry struct {
	Text   string
	Images []string
}

// HasImages reports whether the entry carries at least one image.
func (e LogEntry) HasImages() bool {
	return len(e.Images) > 0
}

// entryPayload is the wire form of a LogEntry.
type entryPayload struct {
	Text   *string `json:"text"`
	Images string  `json:"images,omitempty"` // comma-separated resource paths
}

// DecodeError is returned when a published payload is not a well-formed LogEntry.
type DecodeError struct {
	Topic string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode entry on %q: %v", e.Topic, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

var errMissingText = errors.New("missing required field \"text\"")

// DecodeEntry parses a bus payload into a LogEntry.
func DecodeEntry(topic, payload string) (LogEntry, error) {
	var p entryPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return LogEntry{}, &DecodeError{Topic: topic, Err: err}
	}
	if p.Text == nil {
		return LogEntry{}, &DecodeError{Topic: topic, Err: errMissingText}
	}

	entry := LogEntry{Text: *p.Text}
	for _, img := range strings.Split(p.Images, ",") {
		img = strings.TrimSpace(img)
		if img != "" {
			entry.Images = append(entry.Images, img)
		}
	}
	return entry, nil
}

// EncodeEntry renders a LogEntry in its wire form.
func EncodeEntry(entry LogEntry) ([]byte, error) {
	text := entry.Text
	return json.Marshal(entryPayload{
		Text:   &text,
		Images: strings.Join(entry.Images, ","),
	})
}
