package syncer

import (
	"context"
	"testing"
	"time"
)

func TestFinalEventDeliveredWhenBufferHasRoom(t *testing.T) {
	ch := make(chan Progress, 1)
	em := &emitter{ch: ch}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	em.final(ctx, Progress{Message: "scan completed"})

	select {
	case p := <-ch:
		if !p.Completed {
			t.Error("Final event must carry Completed=true")
		}
	default:
		t.Fatal("Final event was not delivered despite buffer room")
	}
}

func TestFinalEventAbandonedWithGoneConsumer(t *testing.T) {
	// No buffer and no reader: the consumer is gone. The send must not
	// strand the goroutine once the scan context ends.
	ch := make(chan Progress)
	em := &emitter{ch: ch}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		em.final(ctx, Progress{Message: "scan completed"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("final() blocked forever with a canceled context and no consumer")
	}
}

func TestEmitDropsWhenConsumerLags(t *testing.T) {
	ch := make(chan Progress, 1)
	em := &emitter{ch: ch}

	em.emit(Progress{Message: "first"})
	em.emit(Progress{Message: "second"}) // buffer full, dropped

	p := <-ch
	if p.Message != "first" {
		t.Errorf("Message = %q, want first", p.Message)
	}
	select {
	case p := <-ch:
		t.Errorf("Expected the lagging event to be dropped, got %q", p.Message)
	default:
	}
}

func TestNilEmitterIsSafe(t *testing.T) {
	var em *emitter
	em.emit(Progress{})
	em.final(context.Background(), Progress{})
}
