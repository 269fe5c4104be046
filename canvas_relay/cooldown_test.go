package main

import (
	"sync"
	"testing"
	"time"
)

func TestCooldownGateReserveAndReject(t *testing.T) {
	gate := NewCooldownGate(time.Minute)

	allowed, end := gate.CheckAndReserve("user-1")
	if !allowed {
		t.Fatal("first write should be allowed")
	}
	if !end.After(time.Now()) {
		t.Errorf("reserved end %v should be in the future", end)
	}

	allowed, second := gate.CheckAndReserve("user-1")
	if allowed {
		t.Fatal("second write inside the window should be rejected")
	}
	if !second.Equal(end) {
		t.Errorf("rejection returned end %v, want the original %v", second, end)
	}
}

func TestCooldownGatePerUser(t *testing.T) {
	gate := NewCooldownGate(time.Minute)

	gate.CheckAndReserve("user-1")
	if allowed, _ := gate.CheckAndReserve("user-2"); !allowed {
		t.Error("one user's cooldown must not affect another")
	}
}

func TestCooldownGateExpiry(t *testing.T) {
	gate := NewCooldownGate(20 * time.Millisecond)

	gate.CheckAndReserve("user-1")
	time.Sleep(30 * time.Millisecond)

	if allowed, _ := gate.CheckAndReserve("user-1"); !allowed {
		t.Error("write after the window should be allowed")
	}
}

func TestCooldownGateAtomicUnderConcurrency(t *testing.T) {
	gate := NewCooldownGate(time.Minute)

	const writers = 32
	var wg sync.WaitGroup
	results := make(chan bool, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed, _ := gate.CheckAndReserve("user-1")
			results <- allowed
		}()
	}
	wg.Wait()
	close(results)

	allowedCount := 0
	for allowed := range results {
		if allowed {
			allowedCount++
		}
	}
	if allowedCount != 1 {
		t.Errorf("allowed %d concurrent writes, want exactly 1", allowedCount)
	}
}

func TestCooldownGatePeek(t *testing.T) {
	gate := NewCooldownGate(time.Minute)

	if canPlace, _ := gate.Peek("user-1"); !canPlace {
		t.Error("unknown user should be able to place")
	}

	_, end := gate.CheckAndReserve("user-1")
	canPlace, peeked := gate.Peek("user-1")
	if canPlace {
		t.Error("Peek inside the window should report blocked")
	}
	if !peeked.Equal(end) {
		t.Errorf("Peek end = %v, want %v", peeked, end)
	}

	// Peek never reserves.
	canPlace, _ = gate.Peek("user-2")
	if !canPlace {
		t.Fatal("Peek should not reserve")
	}
	if allowed, _ := gate.CheckAndReserve("user-2"); !allowed {
		t.Error("Peek must not start a cooldown")
	}
}

func TestCooldownGateRestore(t *testing.T) {
	gate := NewCooldownGate(time.Minute)

	future := time.Now().UTC().Add(time.Hour)
	gate.Restore("user-1", future)
	if canPlace, end := gate.Peek("user-1"); canPlace || !end.Equal(future) {
		t.Errorf("restored cooldown not honored: canPlace=%v end=%v", canPlace, end)
	}

	gate.Restore("user-2", time.Now().UTC().Add(-time.Hour))
	if canPlace, _ := gate.Peek("user-2"); !canPlace {
		t.Error("expired cooldown should not be restored")
	}
}
