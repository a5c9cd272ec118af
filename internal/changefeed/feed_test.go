package changefeed

import (
	"context"
	"testing"
	"time"
)

func TestSubscriptionReceivesMatchingEvents(test *testing.T) {
	test.Parallel()
	feed := New()
	defer feed.Close()
	subscription := feed.Subscribe(Filter{Entities: []Entity{EntityGame}, SessionID: "s1"})
	defer subscription.Cancel()

	feed.Publish(
		Event{Entity: EntityGame, Op: OpInsert, SessionID: "s1"},
		Event{Entity: EntityGame, Op: OpInsert, SessionID: "other"},
		Event{Entity: EntityDebt, Op: OpInsert, SessionID: "s1"},
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	batch, err := subscription.Wait(ctx)
	if err != nil {
		test.Fatalf("wait: %v", err)
	}
	if len(batch) != 1 {
		test.Fatalf("expected 1 filtered event, got %d", len(batch))
	}
	if batch[0].Entity != EntityGame || batch[0].SessionID != "s1" || batch[0].Op != OpInsert {
		test.Fatalf("unexpected event: %+v", batch[0])
	}
}

func TestZeroFilterMatchesEverything(test *testing.T) {
	test.Parallel()
	feed := New()
	defer feed.Close()
	subscription := feed.Subscribe(Filter{})
	defer subscription.Cancel()

	feed.Publish(
		Event{Entity: EntitySession, Op: OpUpdate, SessionID: "a"},
		Event{Entity: EntityRanking, Op: OpDelete, SessionID: "b"},
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	batch, err := subscription.Wait(ctx)
	if err != nil {
		test.Fatalf("wait: %v", err)
	}
	if len(batch) != 2 {
		test.Fatalf("expected 2 events, got %d", len(batch))
	}
}

func TestWaitCoalescesBacklogIntoOneBatch(test *testing.T) {
	test.Parallel()
	feed := New()
	defer feed.Close()
	subscription := feed.Subscribe(Filter{})
	defer subscription.Cancel()

	for i := 0; i < 5; i++ {
		feed.Publish(Event{Entity: EntityDebt, Op: OpInsert, SessionID: "s"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	batch, err := subscription.Wait(ctx)
	if err != nil {
		test.Fatalf("wait: %v", err)
	}
	if len(batch) != 5 {
		test.Fatalf("expected coalesced batch of 5, got %d", len(batch))
	}
}

func TestWaitHonorsContextCancellation(test *testing.T) {
	test.Parallel()
	feed := New()
	defer feed.Close()
	subscription := feed.Subscribe(Filter{})
	defer subscription.Cancel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := subscription.Wait(ctx); err == nil {
		test.Fatalf("expected context error")
	}
}

func TestCancelledSubscriptionStopsReceiving(test *testing.T) {
	test.Parallel()
	feed := New()
	defer feed.Close()
	subscription := feed.Subscribe(Filter{})
	subscription.Cancel()

	feed.Publish(Event{Entity: EntityGame, Op: OpInsert, SessionID: "s"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	batch, err := subscription.Wait(ctx)
	if err != nil {
		test.Fatalf("wait: %v", err)
	}
	if batch != nil {
		test.Fatalf("expected nil batch after cancel, got %v", batch)
	}
}

func TestCloseEndsAllSubscriptions(test *testing.T) {
	test.Parallel()
	feed := New()
	subscription := feed.Subscribe(Filter{})
	feed.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if batch, err := subscription.Wait(ctx); err != nil || batch != nil {
		test.Fatalf("expected clean end, got %v %v", batch, err)
	}
	if late := feed.Subscribe(Filter{}); late == nil {
		test.Fatalf("expected subscription object even after close")
	}
}
