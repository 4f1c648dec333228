package models

import (
	"testing"
	"time"
)

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(time.Hour, 2, time.Hour, time.Hour)
	defer rl.Stop()

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("Expected the burst to be allowed")
	}
	if rl.Allow("a") {
		t.Error("Expected the third request to be limited")
	}
	if !rl.Allow("b") {
		t.Error("Expected keys to be limited independently")
	}
}

func TestRateLimiterPrune(t *testing.T) {
	rl := NewRateLimiter(time.Hour, 1, time.Hour, time.Minute)
	defer rl.Stop()

	rl.Allow("stale")
	rl.Allow("fresh")
	rl.Mu.Lock()
	rl.LastSeen["stale"] = time.Now().Add(-time.Hour)
	rl.Mu.Unlock()

	rl.prune(time.Now().Add(-rl.expire))

	rl.Mu.RLock()
	defer rl.Mu.RUnlock()
	if _, ok := rl.Limiters["stale"]; ok {
		t.Error("Expected the stale key to be pruned")
	}
	if _, ok := rl.Limiters["fresh"]; !ok {
		t.Error("Expected the fresh key to be kept")
	}
}
