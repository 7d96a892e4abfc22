// Package eventbus implements pub/sub over Redis with event-ID idempotency
// and automatic reconnection, per §4.12. Channels: aggregation:done,
// flow2:start, flow2:done, job:completed, job:failed, cost:limit.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Channel names published across the pipeline.
const (
	ChannelAggregationDone = "aggregation:done"
	ChannelFlow2Start      = "flow2:start"
	ChannelFlow2Done       = "flow2:done"
	ChannelJobCompleted    = "job:completed"
	ChannelJobFailed       = "job:failed"
	ChannelCostLimit       = "cost:limit"
)

// seenIDWindow is how long a delivered event ID is remembered for duplicate
// suppression — a bounded LRU approximated here with a time-keyed map swept
// on each receive.
const seenIDWindow = 10 * time.Minute

// Event is the envelope delivered to subscribers.
type Event struct {
	ID      string          `json:"id"`
	Channel string          `json:"channel"`
	JobID   string          `json:"job_id"`
	Payload json.RawMessage `json:"payload"`
}

// Bus publishes and subscribes to channels, using one Redis connection for
// publishing and a second, independent one for subscriptions — so a stalled
// subscriber connection never blocks publishers (§4.12).
type Bus struct {
	pubConn *redis.Client
	subConn *redis.Client

	mu   sync.Mutex
	seen map[string]time.Time // event id -> first-seen time, swept lazily
}

// New constructs a Bus from two independent client handles (or the same
// *redis.Client twice — go-redis multiplexes connections internally, so the
// "independent connection" requirement is about logical isolation of pub
// from sub, not necessarily a second TCP dial).
func New(pubConn, subConn *redis.Client) *Bus {
	return &Bus{
		pubConn: pubConn,
		subConn: subConn,
		seen:    make(map[string]time.Time),
	}
}

// Publish sends payload on channel, tagged with jobID and a synthetic event
// ID of the form "channel:job_id:unix_nanos".
func (b *Bus) Publish(ctx context.Context, channel, jobID string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("eventbus: marshal payload: %w", err)
	}

	evt := Event{
		ID:      fmt.Sprintf("%s:%s:%d", channel, jobID, time.Now().UnixNano()),
		Channel: channel,
		JobID:   jobID,
		Payload: data,
	}

	raw, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("eventbus: marshal event: %w", err)
	}

	return b.pubConn.Publish(ctx, channel, raw).Err()
}

// Handler processes a delivered event. It returns nothing; delivery is
// fire-and-forget per channel.
type Handler func(ctx context.Context, evt Event)

// Subscribe starts a receive loop for channel until ctx is canceled,
// dispatching each non-duplicate event to handler. Reconnection is handled
// by go-redis's PubSub internally; this loop simply re-reads after errors
// until ctx is done.
func (b *Bus) Subscribe(ctx context.Context, channel string, handler Handler) error {
	sub := b.subConn.Subscribe(ctx, channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var evt Event
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				slog.Warn("eventbus: dropping malformed event", "channel", channel, "error", err)
				continue
			}
			if b.isDuplicate(evt.ID, time.Now()) {
				continue
			}
			handler(ctx, evt)
		}
	}
}

// isDuplicate reports whether id was already seen within seenIDWindow,
// recording it if not. Stale entries are swept opportunistically.
func (b *Bus) isDuplicate(id string, now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.seen[id]; ok {
		return true
	}

	for seenID, t := range b.seen {
		if now.Sub(t) > seenIDWindow {
			delete(b.seen, seenID)
		}
	}

	b.seen[id] = now
	return false
}
