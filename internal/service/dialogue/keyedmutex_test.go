package dialogue

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestKeyedMutex_CancelledWaitReleasesKey(t *testing.T) {
	// Arrange
	k := newKeyedMutex()
	unlock, err := k.Lock(context.Background(), "a")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// Act
	_, err = k.Lock(ctx, "a")
	other, otherErr := k.Lock(context.Background(), "b")

	// Assert
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if otherErr != nil {
		t.Fatalf("expected other keys to stay free, got %v", otherErr)
	}
	other()
	unlock()
	if len(k.locks) != 0 {
		t.Errorf("expected no tracked keys, got %d", len(k.locks))
	}
}

func TestKeyedMutex_WaiterGetsKeyAfterUnlock(t *testing.T) {
	// Arrange
	k := newKeyedMutex()
	unlock, err := k.Lock(context.Background(), "a")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	acquired := make(chan func())

	// Act
	go func() {
		next, err := k.Lock(context.Background(), "a")
		if err != nil {
			t.Errorf("expected no error, got %v", err)
			close(acquired)
			return
		}
		acquired <- next
	}()
	select {
	case <-acquired:
		t.Fatal("expected the second lock to wait")
	case <-time.After(20 * time.Millisecond):
	}
	unlock()

	// Assert
	select {
	case next := <-acquired:
		if next == nil {
			t.Fatal("expected the waiter to hold the key")
		}
		next()
	case <-time.After(time.Second):
		t.Fatal("expected the waiter to acquire the key after unlock")
	}
}
