package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/gamelog-relay/internal/compose"
	"github.com/eldtechnologies/gamelog-relay/internal/metrics"
	"github.com/eldtechnologies/gamelog-relay/internal/models"
)

// MaxMessageLength is the chat platform's limit for one message body.
const MaxMessageLength = 2000

// ErrUnknownChannel is returned by a Sender when the destination channel
// cannot be resolved.
var ErrUnknownChannel = errors.New("unknown channel")

// Message is one outbound chat send.
type Message struct {
	ChannelID  string
	Text       string
	Attachment *compose.Image
}

// Sender delivers messages to the chat platform.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// TextFormatter renders raw log text for display.
type TextFormatter interface {
	Format(text string) (string, error)
}

// ImageSource loads single images and builds composites.
type ImageSource interface {
	Original(path string) (compose.Image, error)
	Compose(paths []string) (compose.Result, error)
}

// Dispatcher turns a flushed channel buffer into chat messages.
type Dispatcher struct {
	sender    Sender
	formatter TextFormatter
	images    ImageSource
	logger    zerolog.Logger
	maxLength int
}

// New creates a Dispatcher.
func New(sender Sender, formatter TextFormatter, images ImageSource, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		sender:    sender,
		formatter: formatter,
		images:    images,
		logger:    logger,
		maxLength: MaxMessageLength,
	}
}

// Dispatch sends entries to a channel in order. Consecutive text-only entries
// are coalesced into one message; an entry with images is sent on its own,
// after any pending text. If the channel is unknown the rest of the batch is
// dropped and an error wrapping ErrUnknownChannel is returned. Other send
// failures are collected and dispatch continues with the next message.
func (d *Dispatcher) Dispatch(ctx context.Context, batchID, channelID string, entries []models.LogEntry) error {
	start := time.Now()
	defer func() { metrics.DispatchDuration.Observe(time.Since(start).Seconds()) }()

	logger := d.logger.With().Str("batch", batchID).Str("channel", channelID).Logger()

	var (
		pending []string
		errs    []error
	)

	// send reports whether dispatch may continue.
	send := func(msg Message, kind string) bool {
		err := d.sender.Send(ctx, msg)
		if err == nil {
			metrics.MessagesSent.WithLabelValues(kind).Inc()
			return true
		}
		if errors.Is(err, ErrUnknownChannel) {
			metrics.SendFailures.WithLabelValues("unknown_channel").Inc()
			errs = append(errs, err)
			return false
		}
		metrics.SendFailures.WithLabelValues("error").Inc()
		errs = append(errs, fmt.Errorf("send %s message: %w", kind, err))
		return true
	}

	flushText := func() bool {
		lines := pending
		pending = nil
		for _, chunk := range splitMessage(lines, d.maxLength) {
			if !send(Message{ChannelID: channelID, Text: chunk}, "text") {
				return false
			}
		}
		return true
	}

	for i, entry := range entries {
		text, err := d.formatter.Format(entry.Text)
		if err != nil {
			logger.Error().Err(err).Int("entry", i).Str("text", entry.Text).Msg("log text not fully formatted")
		}

		if !entry.HasImages() {
			pending = append(pending, text)
			continue
		}

		if !flushText() {
			return errors.Join(errs...)
		}

		attachment, kind := d.attachment(logger, entry.Images)
		if attachment == nil && strings.TrimSpace(text) == "" {
			logger.Warn().Int("entry", i).Strs("images", entry.Images).Msg("no caption and no readable image, entry skipped")
			continue
		}
		if !send(Message{ChannelID: channelID, Text: text, Attachment: attachment}, kind) {
			return errors.Join(errs...)
		}
	}

	flushText()
	return errors.Join(errs...)
}

// attachment loads the image for an entry. A failure degrades to a text-only
// send rather than dropping the entry.
func (d *Dispatcher) attachment(logger zerolog.Logger, paths []string) (*compose.Image, string) {
	if len(paths) == 1 {
		img, err := d.images.Original(paths[0])
		if err != nil {
			logger.Warn().Err(err).Str("image", paths[0]).Msg("image unreadable, sending text only")
			return nil, "text"
		}
		return &img, "image"
	}

	res, err := d.images.Compose(paths)
	for i, skipped := range res.Skipped {
		logger.Warn().Err(res.Errs[i]).Str("image", skipped).Msg("image left out of composite")
	}
	if err != nil {
		logger.Warn().Err(err).Strs("images", paths).Msg("composite failed, sending text only")
		return nil, "text"
	}
	if !res.Composite {
		return &res.Image, "image"
	}
	return &res.Image, "composite"
}

// splitMessage joins lines with newlines into chunks no longer than max
// characters. Blank results are dropped.
func splitMessage(lines []string, max int) []string {
	var (
		chunks  []string
		cur     strings.Builder
		curLen  int
		started bool
	)
	emit := func() {
		if strings.TrimSpace(cur.String()) != "" {
			chunks = append(chunks, cur.String())
		}
		cur.Reset()
		curLen = 0
		started = false
	}

	for _, line := range lines {
		for _, part := range splitLong(line, max) {
			n := utf8.RuneCountInString(part)
			if started && curLen+1+n > max {
				emit()
			}
			if started {
				cur.WriteByte('\n')
				curLen++
			}
			started = true
			cur.WriteString(part)
			curLen += n
		}
	}
	emit()
	return chunks
}

// splitLong cuts a single line that exceeds max characters. A cut never lands
// inside a <...> token such as custom emoji markup unless the token alone is
// longer than max.
func splitLong(line string, max int) []string {
	if utf8.RuneCountInString(line) <= max {
		return []string{line}
	}
	var parts []string
	runes := []rune(line)
	for len(runes) > max {
		cut := tokenSafeCut(runes[:max])
		parts = append(parts, string(runes[:cut]))
		runes = runes[cut:]
	}
	return append(parts, string(runes))
}

// tokenSafeCut returns the cut index for a chunk: before an unclosed '<' when
// there is one past the start, otherwise the full chunk length.
func tokenSafeCut(chunk []rune) int {
	for i := len(chunk) - 1; i >= 0; i-- {
		switch chunk[i] {
		case '>':
			return len(chunk)
		case '<':
			if i > 0 {
				return i
			}
			return len(chunk)
		}
	}
	return len(chunk)
}
