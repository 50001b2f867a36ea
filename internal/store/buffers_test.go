package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eldtechnologies/gamelog-relay/internal/models"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestBuffersAppendPreservesOrder(t *testing.T) {
	b := NewBuffers()
	b.Append("100", models.LogEntry{Text: "a"}, t0)
	b.Append("100", models.LogEntry{Text: "b"}, t0.Add(time.Second))
	b.Append("100", models.LogEntry{Text: "c"}, t0.Add(2*time.Second))

	assert.Equal(t, 1, b.Len())
	assert.Equal(t, 3, b.Pending("100"))

	flushed := b.TakeAll()
	require.Len(t, flushed, 1)
	assert.Equal(t, "100", flushed[0].ChannelID)
	assert.Equal(t, t0.Add(2*time.Second), flushed[0].LastActivity)

	var texts []string
	for _, e := range flushed[0].Entries {
		texts = append(texts, e.Text)
	}
	assert.Equal(t, []string{"a", "b", "c"}, texts)
}

func TestBuffersLastActivityNeverDecreases(t *testing.T) {
	b := NewBuffers()
	b.Append("1", models.LogEntry{Text: "late"}, t0.Add(5*time.Second))
	b.Append("1", models.LogEntry{Text: "skewed"}, t0)

	flushed := b.TakeAll()
	require.Len(t, flushed, 1)
	assert.Equal(t, t0.Add(5*time.Second), flushed[0].LastActivity)
	assert.Len(t, flushed[0].Entries, 2)
}

func TestBuffersTakeIdle(t *testing.T) {
	b := NewBuffers()
	b.Append("quiet", models.LogEntry{Text: "q"}, t0)
	b.Append("busy", models.LogEntry{Text: "b1"}, t0)
	b.Append("busy", models.LogEntry{Text: "b2"}, t0.Add(15*time.Second))

	idle := b.TakeIdle(t0.Add(20*time.Second), 20*time.Second)
	require.Len(t, idle, 1)
	assert.Equal(t, "quiet", idle[0].ChannelID)

	assert.Equal(t, 0, b.Pending("quiet"))
	assert.Equal(t, 2, b.Pending("busy"))

	assert.Empty(t, b.TakeIdle(t0.Add(34*time.Second), 20*time.Second))

	idle = b.TakeIdle(t0.Add(35*time.Second), 20*time.Second)
	require.Len(t, idle, 1)
	assert.Equal(t, "busy", idle[0].ChannelID)
	assert.Equal(t, 0, b.Len())
}

func TestBuffersAppendAfterTakeStartsFresh(t *testing.T) {
	b := NewBuffers()
	b.Append("1", models.LogEntry{Text: "old"}, t0)
	require.Len(t, b.TakeIdle(t0.Add(time.Minute), 20*time.Second), 1)

	b.Append("1", models.LogEntry{Text: "new"}, t0.Add(time.Minute))
	flushed := b.TakeAll()
	require.Len(t, flushed, 1)
	require.Len(t, flushed[0].Entries, 1)
	assert.Equal(t, "new", flushed[0].Entries[0].Text)
}
