// Package relay buffers game log entries per destination channel and sends
// each buffer once its channel has gone quiet.
package relay

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/eldtechnologies/gamelog-relay/internal/metrics"
	"github.com/eldtechnologies/gamelog-relay/internal/models"
	"github.com/eldtechnologies/gamelog-relay/internal/store"
)

// Defaults for Config fields left zero.
const (
	DefaultIdleThreshold   = 20 * time.Second
	DefaultScanInterval    = time.Second
	DefaultShutdownTimeout = 10 * time.Second
)

var errSubscriptionClosed = errors.New("subscription channel closed")

// Dispatcher sends one flushed channel buffer.
type Dispatcher interface {
	Dispatch(ctx context.Context, batchID, channelID string, entries []models.LogEntry) error
}

// Config controls debounce timing.
type Config struct {
	Prefix          string
	IdleThreshold   time.Duration
	ScanInterval    time.Duration
	ShutdownTimeout time.Duration
}

func (c Config) normalized() Config {
	if c.IdleThreshold <= 0 {
		c.IdleThreshold = DefaultIdleThreshold
	}
	if c.ScanInterval <= 0 {
		c.ScanInterval = DefaultScanInterval
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
	return c
}

// Option configures a Relay.
type Option func(*Relay)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Relay) { r.now = now }
}

// Relay owns the channel buffers. All buffer access happens on the goroutine
// running Run (or on the test driving HandleMessage and Tick directly).
type Relay struct {
	cfg        Config
	buffers    *store.Buffers
	dispatcher Dispatcher
	logger     zerolog.Logger
	now        func() time.Time

	lastScan time.Time
	alive    atomic.Int64 // unix nanos of the last loop step
}

// New creates a Relay.
func New(cfg Config, buffers *store.Buffers, dispatcher Dispatcher, logger zerolog.Logger, opts ...Option) *Relay {
	r := &Relay{
		cfg:        cfg.normalized(),
		buffers:    buffers,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// HandleMessage buffers one bus message. Malformed messages are rejected with
// a recoverable fault and leave the buffers untouched.
func (r *Relay) HandleMessage(msg *redis.Message) error {
	channelID, ok := store.ChannelFromTopic(r.cfg.Prefix, msg.Channel)
	if !ok {
		metrics.DecodeFailures.Inc()
		return recoverable("decode", "", &models.DecodeError{
			Topic: msg.Channel,
			Err:   fmt.Errorf("topic outside prefix %q", r.cfg.Prefix),
		})
	}

	entry, err := models.DecodeEntry(msg.Channel, msg.Payload)
	if err != nil {
		metrics.DecodeFailures.Inc()
		return recoverable("decode", channelID, err)
	}

	r.buffers.Append(channelID, entry, r.now())
	metrics.EntriesReceived.Inc()
	metrics.ChannelsBuffered.Set(float64(r.buffers.Len()))
	return nil
}

// Tick flushes every channel that has been idle for the idle threshold. Calls
// closer together than the scan interval do nothing.
func (r *Relay) Tick(ctx context.Context) error {
	now := r.now()
	if !r.lastScan.IsZero() && now.Sub(r.lastScan) < r.cfg.ScanInterval {
		return nil
	}
	r.lastScan = now

	idle := r.buffers.TakeIdle(now, r.cfg.IdleThreshold)
	metrics.ChannelsBuffered.Set(float64(r.buffers.Len()))
	return r.dispatchAll(ctx, idle)
}

// Drain flushes every pending buffer regardless of activity.
func (r *Relay) Drain(ctx context.Context) error {
	all := r.buffers.TakeAll()
	metrics.ChannelsBuffered.Set(0)
	return r.dispatchAll(ctx, all)
}

func (r *Relay) dispatchAll(ctx context.Context, bufs []store.ChannelBuffer) error {
	var errs []error
	for _, buf := range bufs {
		batchID := ulid.Make().String()
		metrics.Flushes.Inc()
		metrics.EntriesFlushed.Add(float64(len(buf.Entries)))

		r.logger.Debug().
			Str("batch", batchID).
			Str("channel", buf.ChannelID).
			Int("entries", len(buf.Entries)).
			Msg("flushing channel")

		if err := r.dispatchOne(ctx, batchID, buf); err != nil {
			errs = append(errs, recoverable("dispatch", buf.ChannelID, err))
		}
	}
	return errors.Join(errs...)
}

// dispatchOne isolates a panicking dispatch so other channels still flush.
func (r *Relay) dispatchOne(ctx context.Context, batchID string, buf store.ChannelBuffer) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return r.dispatcher.Dispatch(ctx, batchID, buf.ChannelID, buf.Entries)
}

// Run consumes bus messages until ctx is cancelled or the subscription
// closes. Each received message is buffered and followed by a flush scan; the
// ticker drives scans while the bus is quiet. In both cases the remaining
// buffers are flushed once before Run returns.
func (r *Relay) Run(ctx context.Context, messages <-chan *redis.Message) error {
	ticker := time.NewTicker(r.cfg.ScanInterval)
	defer ticker.Stop()

	r.logger.Info().
		Str("pattern", store.TopicPattern(r.cfg.Prefix)).
		Dur("idle_threshold", r.cfg.IdleThreshold).
		Dur("scan_interval", r.cfg.ScanInterval).
		Msg("relay started")

	for {
		select {
		case <-ctx.Done():
			r.shutdown()
			return nil

		case msg, ok := <-messages:
			if !ok {
				// The dispatcher may still work; flush what is already buffered.
				r.shutdown()
				return fatal("subscribe", errSubscriptionClosed)
			}
			if err := r.step("message", func() error { return r.HandleMessage(msg) }); err != nil {
				return err
			}
			if err := r.step("tick", func() error { return r.Tick(ctx) }); err != nil {
				return err
			}

		case <-ticker.C:
			if err := r.step("tick", func() error { return r.Tick(ctx) }); err != nil {
				return err
			}
		}
	}
}

// LastStep returns when the loop last completed a step.
func (r *Relay) LastStep() time.Time {
	n := r.alive.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// step runs one trigger, logging recoverable faults and recovering panics.
// Only fatal faults are returned.
func (r *Relay) step(op string, fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = r.report(op, recoverable("panic", "", fmt.Errorf("%s: %v", op, p)))
		}
		r.alive.Store(r.now().UnixNano())
	}()
	return r.report(op, fn())
}

func (r *Relay) report(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsFatal(err) {
		return err
	}

	metrics.FaultsRecovered.WithLabelValues(op).Inc()
	event := r.logger.Error()
	var decodeErr *models.DecodeError
	if errors.As(err, &decodeErr) {
		event = r.logger.Warn()
	}
	event.Err(err).Str("op", op).Msg("relay step failed")
	return nil
}

func (r *Relay) shutdown() {
	pending := r.buffers.Len()
	if pending == 0 {
		r.logger.Info().Msg("relay stopped")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.ShutdownTimeout)
	defer cancel()

	r.logger.Info().Int("channels", pending).Msg("flushing pending buffers before shutdown")
	if err := r.Drain(ctx); err != nil {
		r.logger.Error().Err(err).Msg("shutdown flush incomplete")
	}
	r.logger.Info().Msg("relay stopped")
}
