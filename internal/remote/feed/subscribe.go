package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/Ryuko2/dinerito/internal/log"
	"github.com/Ryuko2/dinerito/internal/remote"
)

// changeEvent is the payload published by the document API whenever a
// collection changes. The event carries no document data; subscribers
// re-fetch the full snapshot, which keeps the feed idempotent and
// tolerant of lost or reordered messages.
type changeEvent struct {
	Collection string `json:"collection"`
}

func (c *collection) Subscribe(ctx context.Context, opts remote.SubscribeOptions) (*remote.Subscription, error) {
	snaps := make(chan remote.Snapshot, 4)
	errs := make(chan error, 1)

	subCtx, cancelCtx := context.WithCancel(ctx)
	var once sync.Once
	cancel := func() {
		once.Do(cancelCtx)
	}

	// Initial snapshot before any change event, so the manager reaches
	// Live without waiting for the first mutation.
	snap, err := c.fetch(subCtx, opts)
	if err != nil {
		cancel()
		return nil, &remote.SubscriptionError{Collection: c.name, Err: err}
	}

	events := make(chan struct{}, 1)
	if c.store.cfg.AMQPURL != "" {
		if err := c.consumeChanges(subCtx, events); err != nil {
			cancel()
			return nil, &remote.SubscriptionError{Collection: c.name, Err: err}
		}
	} else {
		go c.pollChanges(subCtx, events)
	}

	go func() {
		defer close(snaps)
		snaps <- snap
		for {
			select {
			case <-subCtx.Done():
				return
			case _, ok := <-events:
				if !ok {
					errs <- &remote.SubscriptionError{Collection: c.name,
						Err: fmt.Errorf("change feed closed")}
					return
				}
				next, err := c.fetch(subCtx, opts)
				if err != nil {
					if subCtx.Err() != nil {
						return
					}
					errs <- &remote.SubscriptionError{Collection: c.name, Err: err}
					return
				}
				select {
				case snaps <- next:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &remote.Subscription{Snapshots: snaps, Errors: errs, Cancel: cancel}, nil
}

// consumeChanges binds an exclusive queue to the change exchange with
// this collection as the routing key and forwards deliveries as ticks.
func (c *collection) consumeChanges(ctx context.Context, events chan<- struct{}) error {
	conn, err := amqp091.Dial(c.store.cfg.AMQPURL)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	exchange := c.store.cfg.AMQPExchange
	if err := ch.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, c.name, exchange, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("bind queue: %w", err)
	}
	msgs, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("start consuming: %w", err)
	}

	c.store.logger.InfoContext(ctx, "change feed connected",
		log.FieldCollection, c.name, "exchange", exchange, "queue", q.Name)

	go func() {
		defer close(events)
		defer conn.Close()
		defer ch.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case delivery, ok := <-msgs:
				if !ok {
					return
				}
				var ev changeEvent
				if err := json.Unmarshal(delivery.Body, &ev); err != nil {
					c.store.logger.WarnContext(ctx, "malformed change event",
						log.FieldCollection, c.name, log.FieldError, err)
					continue
				}
				if ev.Collection != "" && ev.Collection != c.name {
					continue
				}
				select {
				case events <- struct{}{}:
				default:
					// A refresh is already queued; one fetch covers both.
				}
			}
		}
	}()
	return nil
}

// pollChanges drives periodic re-fetch when no AMQP feed is configured.
func (c *collection) pollChanges(ctx context.Context, events chan<- struct{}) {
	defer close(events)
	ticker := time.NewTicker(c.store.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			select {
			case events <- struct{}{}:
			default:
			}
		}
	}
}
