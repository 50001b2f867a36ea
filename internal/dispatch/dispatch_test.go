package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eldtechnologies/gamelog-relay/internal/compose"
	"github.com/eldtechnologies/gamelog-relay/internal/format"
	"github.com/eldtechnologies/gamelog-relay/internal/models"
)

type recordingSender struct {
	sent   []Message
	failOn map[int]error // send index -> error
}

func (s *recordingSender) Send(_ context.Context, msg Message) error {
	idx := len(s.sent)
	s.sent = append(s.sent, msg)
	if err, ok := s.failOn[idx]; ok {
		return err
	}
	return nil
}

type fakeImages struct {
	composed  [][]string
	originals []string
	broken    map[string]bool
}

func (f *fakeImages) Original(path string) (compose.Image, error) {
	f.originals = append(f.originals, path)
	if f.broken[path] {
		return compose.Image{}, fmt.Errorf("open %s: no such file", path)
	}
	return compose.Image{Name: path, Data: []byte("original:" + path)}, nil
}

func (f *fakeImages) Compose(paths []string) (compose.Result, error) {
	f.composed = append(f.composed, paths)
	var readable []string
	var res compose.Result
	for _, p := range paths {
		if f.broken[p] {
			res.Skipped = append(res.Skipped, p)
			res.Errs = append(res.Errs, errors.New("unreadable"))
			continue
		}
		readable = append(readable, p)
	}
	switch len(readable) {
	case 0:
		return res, compose.ErrNoReadableImages
	case 1:
		res.Image = compose.Image{Name: readable[0], Data: []byte("original:" + readable[0])}
		return res, nil
	}
	res.Image = compose.Image{Name: "strip.png", Data: []byte(strings.Join(readable, "+"))}
	res.Composite = true
	return res, nil
}

func newTestDispatcher(sender Sender, images ImageSource) *Dispatcher {
	icons := format.NewIconRegistry([]format.Icon{
		{Name: format.IconEnergy1, Glyph: "[1]"},
		{Name: format.IconEnergy2, Glyph: "[2]"},
		{Name: format.IconEnergy3, Glyph: "[3]"},
	})
	return New(sender, format.NewFormatter(icons), images, zerolog.Nop())
}

func TestDispatchCoalescesTextBeforeImage(t *testing.T) {
	sender := &recordingSender{}
	images := &fakeImages{}
	d := newTestDispatcher(sender, images)

	err := d.Dispatch(context.Background(), "b1", "42", []models.LogEntry{
		{Text: "a"},
		{Text: "b"},
		{Text: "c", Images: []string{"card.png"}},
	})
	require.NoError(t, err)

	require.Len(t, sender.sent, 2)
	assert.Equal(t, Message{ChannelID: "42", Text: "a\nb"}, sender.sent[0])
	assert.Equal(t, "c", sender.sent[1].Text)
	require.NotNil(t, sender.sent[1].Attachment)
	assert.Equal(t, []byte("original:card.png"), sender.sent[1].Attachment.Data)

	assert.Equal(t, []string{"card.png"}, images.originals)
	assert.Empty(t, images.composed, "a single image must not be composited")
}

func TestDispatchTrailingTextSentLast(t *testing.T) {
	sender := &recordingSender{}
	d := newTestDispatcher(sender, &fakeImages{})

	err := d.Dispatch(context.Background(), "b1", "42", []models.LogEntry{
		{Text: "plays", Images: []string{"x.png", "y.png", "z.png"}},
		{Text: "gains 5 energy"},
		{Text: "done"},
	})
	require.NoError(t, err)

	require.Len(t, sender.sent, 2)
	assert.Equal(t, "plays", sender.sent[0].Text)
	assert.Equal(t, []byte("x.png+y.png+z.png"), sender.sent[0].Attachment.Data)
	assert.Equal(t, "gains [3][2]\ndone", sender.sent[1].Text)
	assert.Nil(t, sender.sent[1].Attachment)
}

func TestDispatchConsecutiveImageEntries(t *testing.T) {
	sender := &recordingSender{}
	d := newTestDispatcher(sender, &fakeImages{})

	err := d.Dispatch(context.Background(), "b1", "42", []models.LogEntry{
		{Text: "one", Images: []string{"a.png"}},
		{Text: "two", Images: []string{"b.png"}},
	})
	require.NoError(t, err)

	require.Len(t, sender.sent, 2)
	assert.Equal(t, "one", sender.sent[0].Text)
	assert.Equal(t, "two", sender.sent[1].Text)
}

func TestDispatchUnknownChannelAbandonsBatch(t *testing.T) {
	sender := &recordingSender{failOn: map[int]error{
		0: fmt.Errorf("channel 42: %w", ErrUnknownChannel),
	}}
	d := newTestDispatcher(sender, &fakeImages{})

	err := d.Dispatch(context.Background(), "b1", "42", []models.LogEntry{
		{Text: "a"},
		{Text: "b", Images: []string{"a.png"}},
		{Text: "c"},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownChannel))
	assert.Len(t, sender.sent, 1)
}

func TestDispatchOtherSendErrorsContinue(t *testing.T) {
	sender := &recordingSender{failOn: map[int]error{0: errors.New("rate limited")}}
	d := newTestDispatcher(sender, &fakeImages{})

	err := d.Dispatch(context.Background(), "b1", "42", []models.LogEntry{
		{Text: "a"},
		{Text: "b", Images: []string{"a.png"}},
	})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnknownChannel))
	assert.Len(t, sender.sent, 2)
}

func TestDispatchDegradesUnreadableImages(t *testing.T) {
	sender := &recordingSender{}
	images := &fakeImages{broken: map[string]bool{"bad1.png": true, "bad2.png": true, "gone.png": true}}
	d := newTestDispatcher(sender, images)

	err := d.Dispatch(context.Background(), "b1", "42", []models.LogEntry{
		{Text: "single missing", Images: []string{"gone.png"}},
		{Text: "one survivor", Images: []string{"bad1.png", "ok.png"}},
		{Text: "none readable", Images: []string{"bad1.png", "bad2.png"}},
	})
	require.NoError(t, err)

	require.Len(t, sender.sent, 3)
	assert.Nil(t, sender.sent[0].Attachment)
	require.NotNil(t, sender.sent[1].Attachment)
	assert.Equal(t, []byte("original:ok.png"), sender.sent[1].Attachment.Data)
	assert.Nil(t, sender.sent[2].Attachment)
	assert.Equal(t, "none readable", sender.sent[2].Text)
}

func TestDispatchInvalidMagnitudeStillSends(t *testing.T) {
	sender := &recordingSender{}
	d := newTestDispatcher(sender, &fakeImages{})

	err := d.Dispatch(context.Background(), "b1", "42", []models.LogEntry{{Text: "loses -1 energy"}})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "loses -1 energy", sender.sent[0].Text)
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"a\nb"}, splitMessage([]string{"a", "b"}, 10))
	assert.Equal(t, []string{"aaaa\nbbbb", "cccc"}, splitMessage([]string{"aaaa", "bbbb", "cccc"}, 10))
	assert.Equal(t, []string{"abcde", "fgh"}, splitMessage([]string{"abcdefgh"}, 5))
	assert.Empty(t, splitMessage([]string{"", " "}, 10))
	assert.Equal(t, []string{"\nb"}, splitMessage([]string{"", "b"}, 10))
	assert.Nil(t, splitMessage(nil, 10))
}

func TestDispatchHugeEnergyStaysOneMessage(t *testing.T) {
	sender := &recordingSender{}
	icons := format.NewIconRegistry([]format.Icon{
		{Name: format.IconEnergy1, Glyph: "<:energy1:123456789012345678>"},
		{Name: format.IconEnergy2, Glyph: "<:energy2:123456789012345678>"},
		{Name: format.IconEnergy3, Glyph: "<:energy3:123456789012345678>"},
	})
	d := New(sender, format.NewFormatter(icons), &fakeImages{}, zerolog.Nop())

	err := d.Dispatch(context.Background(), "b1", "42", []models.LogEntry{{Text: "gains 3000000 energy"}})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "gains 3000000 energy", sender.sent[0].Text)
}

func TestSplitLongKeepsEmojiMarkupWhole(t *testing.T) {
	glyph := "<:energy3:123456789012345678>"
	line := "gains " + strings.Repeat(glyph, 10)

	parts := splitLong(line, 50)
	require.Greater(t, len(parts), 1)
	assert.Equal(t, line, strings.Join(parts, ""))
	for _, p := range parts {
		assert.LessOrEqual(t, len([]rune(p)), 50)
		assert.Equal(t, strings.Count(p, "<"), strings.Count(p, ">"), "cut inside markup: %q", p)
	}
}

func TestSplitLongOversizedTokenIsHardCut(t *testing.T) {
	parts := splitLong("<"+strings.Repeat("x", 12)+">", 5)
	assert.Equal(t, []string{"<xxxx", "xxxxx", "xxx>"}, parts)
}

func TestDispatchSkipsEmptyEntryWithUnreadableImage(t *testing.T) {
	sender := &recordingSender{}
	images := &fakeImages{broken: map[string]bool{"x.png": true}}
	d := newTestDispatcher(sender, images)

	err := d.Dispatch(context.Background(), "b1", "42", []models.LogEntry{
		{Text: "before"},
		{Text: "  ", Images: []string{"x.png"}},
		{Text: "after"},
	})
	require.NoError(t, err)

	require.Len(t, sender.sent, 2)
	assert.Equal(t, "before", sender.sent[0].Text)
	assert.Equal(t, "after", sender.sent[1].Text)
}
