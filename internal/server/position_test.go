package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/claude/mapty/internal/models"
)

// TestPositionResolveOnce verifies the first resolution wins.
func TestPositionResolveOnce(t *testing.T) {
	p := NewPositionRequest()
	want := models.Coordinates{Lat: 39.7, Lng: -105.2}

	if err := p.Resolve(want); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if err := p.Resolve(models.Coordinates{}); !errors.Is(err, ErrPositionResolved) {
		t.Errorf("second Resolve = %v, want ErrPositionResolved", err)
	}
	if err := p.Reject(errors.New("late")); !errors.Is(err, ErrPositionResolved) {
		t.Errorf("Reject after Resolve = %v, want ErrPositionResolved", err)
	}

	got, err := p.CurrentPosition(context.Background())
	if err != nil || got != want {
		t.Errorf("CurrentPosition = %v, %v; want %v", got, err, want)
	}
}

// TestPositionReject verifies the rejection error reaches the waiter.
func TestPositionReject(t *testing.T) {
	p := NewPositionRequest()
	denied := errors.New("permission denied")

	go func() {
		time.Sleep(10 * time.Millisecond)
		p.Reject(denied)
	}()

	if _, err := p.CurrentPosition(context.Background()); !errors.Is(err, denied) {
		t.Errorf("err = %v, want %v", err, denied)
	}
}

// TestPositionContextCanceled verifies waiting stops with the context.
func TestPositionContextCanceled(t *testing.T) {
	p := NewPositionRequest()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := p.CurrentPosition(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}
