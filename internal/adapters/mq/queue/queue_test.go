package queue

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/okian/handnav/internal/domain/model"
)

func msg(id string) model.Message {
	return model.Message{Type: model.TypeGestureAction, Gesture: "pointing_up", ID: id, Timestamp: time.Now().UnixMilli()}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2), WithName("test-basic"))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
	if err := q.Enqueue(ctx, msg("m1")); err != nil {
		t.Fatalf("expected enqueue to succeed, got %v", err)
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	got := <-q.Dequeue(ctx)
	if got.ID != "m1" {
		t.Errorf("expected m1, got %v", got.ID)
	}
}

func TestInMemoryQueue_Full(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2), WithName("test-full"))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := q.Enqueue(ctx, msg(fmt.Sprint(i))); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	if err := q.Enqueue(ctx, msg("overflow")); !errors.Is(err, ErrFull) {
		t.Errorf("expected ErrFull, got %v", err)
	}
}

func TestInMemoryQueue_Order(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(100), WithName("test-order"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for i := 0; i < 50; i++ {
		if err := q.Enqueue(ctx, msg(fmt.Sprint(i))); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	_ = q.Close()

	i := 0
	for m := range q.Dequeue(ctx) {
		if m.ID != fmt.Sprint(i) {
			t.Fatalf("position %d: got %s", i, m.ID)
		}
		i++
	}
	if i != 50 {
		t.Errorf("expected 50 messages after close, got %d", i)
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue(WithName("test-close"))
	ctx := context.Background()

	if q.IsClosed() {
		t.Error("new queue reported closed")
	}
	if err := q.Close(); err != nil {
		t.Fatal(err)
	}
	if err := q.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected closed")
	}
	if err := q.Enqueue(ctx, msg("late")); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	select {
	case _, ok := <-q.Dequeue(ctx):
		if ok {
			t.Error("expected closed dequeue channel")
		}
	case <-time.After(time.Second):
		t.Fatal("dequeue did not close")
	}
}

func TestInMemoryQueue_ContextCancelled(t *testing.T) {
	q := NewInMemoryQueue(WithName("test-ctx"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := q.Enqueue(ctx, msg("x")); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}

	select {
	case _, ok := <-q.Dequeue(ctx):
		if ok {
			t.Error("expected no message on cancelled dequeue")
		}
	case <-time.After(time.Second):
		t.Fatal("dequeue did not stop")
	}
}
