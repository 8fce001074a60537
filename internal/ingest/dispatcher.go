// Package ingest routes decoded pub/sub payloads into the message store.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kmindev/chat-archiver/internal/store"
	"github.com/kmindev/chat-archiver/internal/validate"
)

// Archive is the subset of the message store the dispatcher writes to.
type Archive interface {
	SaveMessage(ctx context.Context, nickname, content string, mentions []string) (int64, time.Time, error)
	RecentDuplicateExists(ctx context.Context, nickname, content string, window time.Duration) (bool, error)
	ToggleReaction(ctx context.Context, messageID int64, reactionType, nickname string) error
}

// Delivery is one decoded transport message.
type Delivery struct {
	Topic   string
	Payload []byte
}

// Options tunes the dispatcher.
type Options struct {
	ChatTopic     string
	ReactionTopic string
	Workers       int
	QueueSize     int
	OpTimeout     time.Duration
	// DedupeWindow > 0 drops a chat payload whose (nickname, content) pair
	// was archived within the window. Zero disables the gate and accepts
	// duplicate archival under at-least-once delivery.
	DedupeWindow time.Duration
}

// Dispatcher consumes deliveries from a bounded queue with a fixed pool of
// workers. One malformed payload never affects others; no payload is ever
// retried here.
type Dispatcher struct {
	archive    Archive
	opts       Options
	deliveries chan Delivery
	wg         sync.WaitGroup
	log        *zerolog.Logger

	mu     sync.Mutex
	closed bool
}

// New creates a dispatcher. Start must be called before Dispatch.
func New(archive Archive, opts Options, logger *zerolog.Logger) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = 5 * time.Second
	}
	return &Dispatcher{
		archive:    archive,
		opts:       opts,
		deliveries: make(chan Delivery, opts.QueueSize),
		log:        logger,
	}
}

// Start launches the worker pool. Workers exit when Stop closes the queue.
func (d *Dispatcher) Start() {
	for i := 0; i < d.opts.Workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for del := range d.deliveries {
				d.handle(del)
			}
		}()
	}
}

// Stop closes the queue and waits for in-flight deliveries to drain.
// Safe to call more than once.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.deliveries)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

// Dispatch enqueues a delivery. When the queue is full the delivery is
// dropped with a warning so a stalled store cannot block the transport
// callback. A delivery racing Stop is dropped, never a panic on the
// closed queue.
func (d *Dispatcher) Dispatch(topic string, payload []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		d.log.Warn().Str("topic", topic).Msg("dispatcher stopped, dropping payload")
		return
	}

	select {
	case d.deliveries <- Delivery{Topic: topic, Payload: payload}:
	default:
		d.log.Warn().Str("topic", topic).Msg("ingest queue full, dropping payload")
	}
}

func (d *Dispatcher) handle(del Delivery) {
	ctx, cancel := context.WithTimeout(context.Background(), d.opts.OpTimeout)
	defer cancel()

	if strings.TrimSpace(string(del.Payload)) == "" {
		d.log.Warn().Str("topic", del.Topic).Msg("empty payload received")
		return
	}

	switch del.Topic {
	case d.opts.ChatTopic:
		d.handleChat(ctx, del.Payload)
	case d.opts.ReactionTopic:
		d.handleReaction(ctx, del.Payload)
	default:
		d.log.Warn().Str("topic", del.Topic).Msg("delivery on unknown topic")
	}
}

type chatPayload struct {
	Nickname string          `json:"nickname"`
	Content  string          `json:"content"`
	Mentions json.RawMessage `json:"mentions"`
}

func (d *Dispatcher) handleChat(ctx context.Context, payload []byte) {
	var p chatPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		d.log.Error().Err(err).Str("payload", truncate(payload)).Msg("chat payload decode failed")
		return
	}

	nickname, err := validate.Nickname(p.Nickname)
	if err != nil {
		d.log.Error().Err(err).Str("payload", truncate(payload)).Msg("chat nickname rejected")
		return
	}
	content, err := validate.MessageContent(p.Content)
	if err != nil {
		d.log.Error().Err(err).Str("payload", truncate(payload)).Msg("chat content rejected")
		return
	}
	mentions, err := validate.Mentions(p.Mentions)
	if err != nil {
		d.log.Error().Err(err).Str("payload", truncate(payload)).Msg("chat mentions rejected")
		return
	}

	if d.opts.DedupeWindow > 0 {
		dup, err := d.archive.RecentDuplicateExists(ctx, nickname, content, d.opts.DedupeWindow)
		if err != nil {
			d.log.Error().Err(err).Msg("duplicate check failed")
			return
		}
		if dup {
			d.log.Info().Str("nickname", nickname).Msg("duplicate chat payload dropped")
			return
		}
	}

	id, createdAt, err := d.archive.SaveMessage(ctx, nickname, content, mentions)
	if err != nil {
		d.log.Error().Err(err).Str("nickname", nickname).Msg("message save failed")
		return
	}

	d.log.Info().Int64("message_id", id).Time("created_at", createdAt).Msg("message archived")
}

type reactionPayload struct {
	MessageID    any    `json:"messageId"`
	ReactionType string `json:"reactionType"`
	Nickname     string `json:"nickname"`
}

func (d *Dispatcher) handleReaction(ctx context.Context, payload []byte) {
	var p reactionPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		d.log.Error().Err(err).Str("payload", truncate(payload)).Msg("reaction payload decode failed")
		return
	}

	reaction, err := validate.ReactionPayload(p.MessageID, p.ReactionType, p.Nickname)
	if err != nil {
		d.log.Error().Err(err).Str("payload", truncate(payload)).Msg("reaction payload rejected")
		return
	}

	err = d.archive.ToggleReaction(ctx, reaction.MessageID, reaction.ReactionType, reaction.Nickname)
	if err != nil {
		if errors.Is(err, store.ErrMessageNotFound) {
			d.log.Error().Int64("message_id", reaction.MessageID).Msg("reaction target not found")
			return
		}
		d.log.Error().Err(err).Int64("message_id", reaction.MessageID).Msg("reaction toggle failed")
		return
	}

	d.log.Info().
		Int64("message_id", reaction.MessageID).
		Str("reaction_type", reaction.ReactionType).
		Str("nickname", reaction.Nickname).
		Msg("reaction toggled")
}

func truncate(payload []byte) string {
	const max = 100
	if len(payload) > max {
		return string(payload[:max]) + "..."
	}
	return string(payload)
}
