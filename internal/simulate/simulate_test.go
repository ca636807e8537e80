package simulate

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestInstantDoesNotWait(t *testing.T) {
	start := time.Now()
	if err := Instant.Wait(context.Background(), time.Hour); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("instant delayer waited")
	}
}

func TestWaitHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := Delayer{Scale: 1}
	if err := d.Wait(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestWaitScaled(t *testing.T) {
	d := Delayer{Scale: 0.001}
	start := time.Now()
	if err := d.Wait(context.Background(), 10*time.Second); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if el := time.Since(start); el < 10*time.Millisecond {
		t.Errorf("waited %v, want >= 10ms", el)
	}
}

func TestBetween(t *testing.T) {
	for range 100 {
		got := Between(time.Second, 2*time.Second)
		if got < time.Second || got >= 2*time.Second {
			t.Fatalf("Between = %v", got)
		}
	}
	if got := Between(time.Second, time.Second); got != time.Second {
		t.Errorf("degenerate range = %v", got)
	}
}
