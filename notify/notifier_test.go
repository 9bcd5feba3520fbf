package notify

import (
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/maxpert/geyserbridge/publisher"
)

func match(slot uint64, programs ...solana.PublicKey) publisher.Match {
	return publisher.Match{Slot: slot, Programs: programs}
}

func TestHub_BasicSubscribeSignal(t *testing.T) {
	hub := NewHub()

	// Subscribe to all programs
	matches, cancel := hub.Subscribe(Filter{})
	defer cancel()

	hub.Signal(match(1, solana.TokenProgramID))

	select {
	case m := <-matches:
		if m.Slot != 1 {
			t.Errorf("expected slot 1, got %d", m.Slot)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for match")
	}
}

func TestHub_FilterSpecificProgram(t *testing.T) {
	hub := NewHub()

	matches, cancel := hub.Subscribe(Filter{Programs: []solana.PublicKey{solana.TokenProgramID}})
	defer cancel()

	hub.Signal(match(1, solana.SystemProgramID, solana.TokenProgramID))

	select {
	case m := <-matches:
		if m.Slot != 1 {
			t.Errorf("expected slot 1, got %d", m.Slot)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for match")
	}

	// Different program (should NOT receive)
	hub.Signal(match(2, solana.SystemProgramID))

	select {
	case m := <-matches:
		t.Errorf("should not receive match for system program, got slot %d", m.Slot)
	case <-time.After(50 * time.Millisecond):
		// Expected - no match
	}
}

func TestHub_CancelUnsubscribes(t *testing.T) {
	hub := NewHub()

	matches, cancel := hub.Subscribe(Filter{})

	hub.Signal(match(1))

	select {
	case <-matches:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for match")
	}

	cancel()

	// Channel should be closed
	select {
	case _, ok := <-matches:
		if ok {
			t.Error("channel should be closed after cancel")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for channel close")
	}

	if hub.Subscribers() != 0 {
		t.Errorf("expected 0 subscribers, got %d", hub.Subscribers())
	}

	// Subsequent signals should not panic
	hub.Signal(match(2))
}

func TestHub_MultipleSubscribers(t *testing.T) {
	hub := NewHub()

	all, cancel1 := hub.Subscribe(Filter{})
	defer cancel1()
	token, cancel2 := hub.Subscribe(Filter{Programs: []solana.PublicKey{solana.TokenProgramID}})
	defer cancel2()
	memo, cancel3 := hub.Subscribe(Filter{Programs: []solana.PublicKey{solana.MemoProgramID}})
	defer cancel3()

	hub.Signal(match(1, solana.TokenProgramID))

	for name, ch := range map[string]<-chan publisher.Match{"all": all, "token": token} {
		select {
		case m := <-ch:
			if m.Slot != 1 {
				t.Errorf("%s: expected slot 1, got %d", name, m.Slot)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("timeout on %s", name)
		}
	}

	select {
	case m := <-memo:
		t.Errorf("memo subscriber should not receive, got slot %d", m.Slot)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_ConcurrentSignalSubscribe(t *testing.T) {
	hub := NewHub()
	const numGoroutines = 10
	const numSignals = 50

	var wg sync.WaitGroup

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			matches, cancel := hub.Subscribe(Filter{})
			defer cancel()

			received := 0
			timeout := time.After(2 * time.Second)
			for received < numSignals {
				select {
				case <-matches:
					received++
				case <-timeout:
					return
				}
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < numSignals; i++ {
			hub.Signal(match(uint64(i)))
		}
	}()

	wg.Wait()
}

func TestHub_BufferOverflowNonBlocking(t *testing.T) {
	hub := NewHub()

	matches, cancel := hub.Subscribe(Filter{})
	defer cancel()

	// Fill the buffer and send more
	for i := 0; i < defaultSignalBufferSize+10; i++ {
		hub.Signal(match(uint64(i)))
	}

	if hub.Dropped() != 10 {
		t.Errorf("expected 10 dropped matches, got %d", hub.Dropped())
	}

	received := 0
	timeout := time.After(100 * time.Millisecond)
	for {
		select {
		case <-matches:
			received++
		case <-timeout:
			if received != defaultSignalBufferSize {
				t.Errorf("expected %d matches, got %d", defaultSignalBufferSize, received)
			}
			return
		}
	}
}

func TestHub_DoubleCancel(t *testing.T) {
	hub := NewHub()

	_, cancel := hub.Subscribe(Filter{})
	cancel()
	cancel()
}

func TestHub_Close(t *testing.T) {
	hub := NewHub()

	matches, _ := hub.Subscribe(Filter{})
	hub.Close()

	if _, ok := <-matches; ok {
		t.Error("channel should be closed after hub close")
	}
	if hub.Subscribers() != 0 {
		t.Errorf("expected 0 subscribers, got %d", hub.Subscribers())
	}
}
