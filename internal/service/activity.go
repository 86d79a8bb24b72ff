package service

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/loyalty-rewards/internal/model"
	"github.com/iliyamo/loyalty-rewards/internal/queue"
)

// EventPublisher sends an activity event to the broker.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.ActivityEvent) error
}

// ActivityStore writes activity rows directly.
type ActivityStore interface {
	Insert(ctx context.Context, l *model.ActivityLog) error
}

// AMQPPublisher publishes activity events to the durable activity queue.
// Each publish opens its own connection.
type AMQPPublisher struct {
	URL         string
	DialTimeout time.Duration
}

func NewAMQPPublisher(url string) *AMQPPublisher {
	return &AMQPPublisher{URL: url, DialTimeout: 2 * time.Second}
}

// Publish marks the message persistent and routes it through the default
// exchange.
func (p *AMQPPublisher) Publish(ctx context.Context, ev queue.ActivityEvent) error {
	conn, err := amqp.DialConfig(p.URL, amqp.Config{Dial: amqp.DefaultDial(p.DialTimeout)})
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queue.ActivityQueue, true, false, false, false, nil); err != nil {
		return err
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return ch.PublishWithContext(ctx, "", queue.ActivityQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.OccurredAt,
		Body:         body,
	})
}

// ActivityRecorder records activity through the broker and falls back to a
// direct insert when publishing fails.  After a failed publish the broker
// is skipped for Cooldown.  Recording never fails the caller.
type ActivityRecorder struct {
	Publisher EventPublisher
	Store     ActivityStore
	Cooldown  time.Duration
	Now       func() time.Time

	skipUntil atomic.Int64
}

func NewActivityRecorder(pub EventPublisher, store ActivityStore) *ActivityRecorder {
	return &ActivityRecorder{
		Publisher: pub,
		Store:     store,
		Cooldown:  30 * time.Second,
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

// Record stores one event.
func (r *ActivityRecorder) Record(ctx context.Context, ev queue.ActivityEvent) {
	if r == nil {
		return
	}
	now := r.Now()
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = now
	}
	log := logrus.WithFields(logrus.Fields{"action": ev.Action, "entity": ev.Entity})

	if r.Publisher != nil && now.UnixNano() >= r.skipUntil.Load() {
		err := r.Publisher.Publish(ctx, ev)
		if err == nil {
			return
		}
		r.skipUntil.Store(now.Add(r.Cooldown).UnixNano())
		log.WithError(err).Warn("publish activity failed; writing directly")
	}
	if r.Store == nil {
		return
	}
	l := ev.Log()
	if err := r.Store.Insert(ctx, &l); err != nil {
		log.WithError(err).Error("store activity failed")
	}
}

// Event is a shorthand for building an activity event.
func Event(actor uint64, action, entity string, entityID uint64, details string) queue.ActivityEvent {
	ev := queue.ActivityEvent{Action: action, Entity: entity, Details: details}
	if actor != 0 {
		ev.ActorID = &actor
	}
	if entityID != 0 {
		ev.EntityID = &entityID
	}
	return ev
}
