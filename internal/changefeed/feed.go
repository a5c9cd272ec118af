// Package changefeed is an in-process broker for row-level change
// notifications. Events are delivery triggers only: they carry entity and
// operation kind plus a session scope for filtering, never row data.
// Delivery is at-least-once — duplicates and reordering are permitted,
// silent loss is not. A subscriber that falls behind has its pending
// events coalesced and receives them in one batch on the next wait.
package changefeed

import (
	"context"
	"sync"
)

// Entity enumerates the persisted tables the feed reports on.
type Entity string

const (
	EntitySession      Entity = "session"
	EntityMembership   Entity = "membership"
	EntityGame         Entity = "game"
	EntityRanking      Entity = "ranking"
	EntityConfirmation Entity = "confirmation"
	EntityDebt         Entity = "debt"
)

// Op enumerates row-level mutation kinds.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Event is one change notification.
type Event struct {
	Entity    Entity
	Op        Op
	SessionID string
}

// Filter restricts which events a subscription receives. A zero Filter
// matches everything.
type Filter struct {
	Entities  []Entity
	SessionID string
}

func (filter Filter) matches(event Event) bool {
	if filter.SessionID != "" && filter.SessionID != event.SessionID {
		return false
	}
	if len(filter.Entities) == 0 {
		return true
	}
	for _, entity := range filter.Entities {
		if entity == event.Entity {
			return true
		}
	}
	return false
}

// Feed fans events out to subscribers.
type Feed struct {
	mu            sync.Mutex
	subscriptions map[*Subscription]struct{}
	closed        bool
}

// New wires an empty Feed.
func New() *Feed {
	return &Feed{subscriptions: make(map[*Subscription]struct{})}
}

// Subscribe registers a new subscription. Cancel it when done.
func (feed *Feed) Subscribe(filter Filter) *Subscription {
	subscription := &Subscription{
		feed:   feed,
		filter: filter,
		signal: make(chan struct{}, 1),
	}
	feed.mu.Lock()
	defer feed.mu.Unlock()
	if feed.closed {
		subscription.closed = true
		close(subscription.signal)
		return subscription
	}
	feed.subscriptions[subscription] = struct{}{}
	return subscription
}

// Publish delivers events to every matching subscription.
func (feed *Feed) Publish(events ...Event) {
	if len(events) == 0 {
		return
	}
	feed.mu.Lock()
	subscriptions := make([]*Subscription, 0, len(feed.subscriptions))
	for subscription := range feed.subscriptions {
		subscriptions = append(subscriptions, subscription)
	}
	feed.mu.Unlock()

	for _, subscription := range subscriptions {
		subscription.deliver(events)
	}
}

// Close ends every subscription; further publishes are dropped.
func (feed *Feed) Close() {
	feed.mu.Lock()
	subscriptions := make([]*Subscription, 0, len(feed.subscriptions))
	for subscription := range feed.subscriptions {
		subscriptions = append(subscriptions, subscription)
	}
	feed.subscriptions = make(map[*Subscription]struct{})
	feed.closed = true
	feed.mu.Unlock()

	for _, subscription := range subscriptions {
		subscription.close()
	}
}

// Subscription is one consumer's view of the feed.
type Subscription struct {
	feed   *Feed
	filter Filter
	signal chan struct{}

	mu      sync.Mutex
	pending []Event
	closed  bool
}

func (subscription *Subscription) deliver(events []Event) {
	subscription.mu.Lock()
	if subscription.closed {
		subscription.mu.Unlock()
		return
	}
	delivered := false
	for _, event := range events {
		if subscription.filter.matches(event) {
			subscription.pending = append(subscription.pending, event)
			delivered = true
		}
	}
	subscription.mu.Unlock()
	if delivered {
		select {
		case subscription.signal <- struct{}{}:
		default:
		}
	}
}

// Wait blocks until at least one event is pending, then returns the
// accumulated batch and clears it. Returns a nil batch once the
// subscription is cancelled or the feed closes; returns the context error
// on cancellation.
func (subscription *Subscription) Wait(ctx context.Context) ([]Event, error) {
	for {
		subscription.mu.Lock()
		if len(subscription.pending) > 0 {
			batch := subscription.pending
			subscription.pending = nil
			subscription.mu.Unlock()
			return batch, nil
		}
		closed := subscription.closed
		subscription.mu.Unlock()
		if closed {
			return nil, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-subscription.signal:
		}
	}
}

// Cancel detaches the subscription from the feed.
func (subscription *Subscription) Cancel() {
	subscription.feed.mu.Lock()
	delete(subscription.feed.subscriptions, subscription)
	subscription.feed.mu.Unlock()
	subscription.close()
}

func (subscription *Subscription) close() {
	subscription.mu.Lock()
	alreadyClosed := subscription.closed
	subscription.closed = true
	subscription.mu.Unlock()
	if !alreadyClosed {
		close(subscription.signal)
	}
}
