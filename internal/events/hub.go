package events

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ytget/fetchmux/internal/model"
)

// Type names one kind of lifecycle or progress event
type Type string

const (
	// TypeQueuePosition reports a queued job's current position (1-based)
	TypeQueuePosition Type = "queue-position"

	// TypeCooldown reports the inter-job cooldown before the next dequeue
	TypeCooldown Type = "cooldown"

	// TypeStart reports a job transitioning to downloading
	TypeStart Type = "start"

	// TypeProgress carries a merged progress snapshot
	TypeProgress Type = "progress"

	// TypeCompleted reports a successful terminal state
	TypeCompleted Type = "completed"

	// TypeError reports a failed terminal state
	TypeError Type = "error"

	// TypeCancelled reports a cancelled terminal state
	TypeCancelled Type = "cancelled"
)

// Event is one notification delivered to subscribers
type Event struct {
	Type     Type           `json:"type"`
	JobID    string         `json:"job_id,omitempty"`
	Position int            `json:"position,omitempty"`    // queue-position events
	Cooldown time.Duration  `json:"cooldown,omitempty"`    // cooldown events
	Progress model.Progress `json:"progress"`              // progress events
	Message  string         `json:"message,omitempty"`     // human-readable detail
	At       time.Time      `json:"at"`
}

// DefaultSubscriberBuffer is the per-subscriber channel capacity
const DefaultSubscriberBuffer = 64

// Hub fans events out to registered subscribers. Delivery order across
// subscribers is not guaranteed; a subscriber that stops draining its channel
// loses events rather than blocking publishers.
type Hub struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	log    *zap.Logger
}

// NewHub creates an event hub. A nil logger disables logging.
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		subs: make(map[int]chan Event),
		log:  log,
	}
}

// Subscription is one observer registration
type Subscription struct {
	C  <-chan Event
	id int
	h  *Hub
}

// Unsubscribe removes the registration and closes the channel.
// It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.h.mu.Lock()
	defer s.h.mu.Unlock()
	if ch, ok := s.h.subs[s.id]; ok {
		delete(s.h.subs, s.id)
		close(ch)
	}
}

// Subscribe registers an observer. buffer <= 0 uses the default capacity.
func (h *Hub) Subscribe(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	ch := make(chan Event, buffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch

	return &Subscription{C: ch, id: id, h: h}
}

// Publish delivers an event to every subscriber, dropping it for subscribers
// whose buffers are full.
func (h *Hub) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			h.log.Debug("event dropped for slow subscriber",
				zap.Int("subscriber", id),
				zap.String("type", string(ev.Type)),
				zap.String("job_id", ev.JobID))
		}
	}
}

// SubscriberCount returns the number of registered observers
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
