package store

import (
	"sort"
	"time"

	"github.com/eldtechnologies/gamelog-relay/internal/models"
)

// ChannelBuffer accumulates entries for one destination channel until it goes quiet.
type ChannelBuffer struct {
	ChannelID    string
	LastActivity time.Time
	Entries      []models.LogEntry
}

// Buffers maps destination channel IDs to their pending entries.
//
// Buffers is not safe for concurrent use. It is owned by the relay loop, which
// is the only goroutine that reads or mutates it.
type Buffers struct {
	buffers map[string]*ChannelBuffer
}

// NewBuffers creates an empty buffer store.
func NewBuffers() *Buffers {
	return &Buffers{buffers: make(map[string]*ChannelBuffer)}
}

// Append queues an entry for a channel, creating the buffer if needed, and
// records now as the channel's last activity.
func (b *Buffers) Append(channelID string, entry models.LogEntry, now time.Time) {
	buf, ok := b.buffers[channelID]
	if !ok {
		buf = &ChannelBuffer{ChannelID: channelID}
		b.buffers[channelID] = buf
	}
	buf.Entries = append(buf.Entries, entry)
	if now.After(buf.LastActivity) {
		buf.LastActivity = now
	}
}

// TakeIdle removes and returns every non-empty buffer that has been quiet for
// at least threshold. Buffers still receiving entries are left in place.
func (b *Buffers) TakeIdle(now time.Time, threshold time.Duration) []ChannelBuffer {
	var idle []ChannelBuffer
	for id, buf := range b.buffers {
		if len(buf.Entries) == 0 || now.Sub(buf.LastActivity) < threshold {
			continue
		}
		delete(b.buffers, id)
		idle = append(idle, *buf)
	}
	sortBuffers(idle)
	return idle
}

// TakeAll removes and returns every non-empty buffer regardless of activity.
func (b *Buffers) TakeAll() []ChannelBuffer {
	all := make([]ChannelBuffer, 0, len(b.buffers))
	for id, buf := range b.buffers {
		delete(b.buffers, id)
		if len(buf.Entries) > 0 {
			all = append(all, *buf)
		}
	}
	sortBuffers(all)
	return all
}

// Len returns the number of channels with a buffer.
func (b *Buffers) Len() int {
	return len(b.buffers)
}

// Pending returns the number of queued entries for a channel.
func (b *Buffers) Pending(channelID string) int {
	if buf, ok := b.buffers[channelID]; ok {
		return len(buf.Entries)
	}
	return 0
}

// sortBuffers orders flushed buffers oldest activity first so flush order is stable.
func sortBuffers(bufs []ChannelBuffer) {
	sort.Slice(bufs, func(i, j int) bool {
		if !bufs[i].LastActivity.Equal(bufs[j].LastActivity) {
			return bufs[i].LastActivity.Before(bufs[j].LastActivity)
		}
		return bufs[i].ChannelID < bufs[j].ChannelID
	})
}
