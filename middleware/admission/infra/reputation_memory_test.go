package infra

import (
	"context"
	"sync"
	"testing"
)

func TestMemoryReputation_UnknownIPScoresZero(t *testing.T) {
	r := NewMemoryReputation()

	score, err := r.Score(context.Background(), "1.2.3.4")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if score != 0 {
		t.Fatalf("expected 0 for unknown ip, got %d", score)
	}
}

func TestMemoryReputation_IncrementCreatesAndAccumulates(t *testing.T) {
	r := NewMemoryReputation()
	ctx := context.Background()

	_ = r.Increment(ctx, "1.2.3.4", 15)
	_ = r.Increment(ctx, "1.2.3.4", 15)

	score, _ := r.Score(ctx, "1.2.3.4")
	if score != 30 {
		t.Fatalf("expected 30, got %d", score)
	}

	rec, ok := r.Record("1.2.3.4")
	if !ok {
		t.Fatalf("expected record to exist")
	}
	if rec.LastSeen.IsZero() {
		t.Fatalf("expected last seen to be set")
	}
}

func TestMemoryReputation_ConcurrentIncrementsDoNotLoseUpdates(t *testing.T) {
	r := NewMemoryReputation()
	ctx := context.Background()

	// dois "tenants" incrementando o mesmo IP ao mesmo tempo
	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				_ = r.Increment(ctx, "1.2.3.4", 15)
			}
		}()
	}
	wg.Wait()

	score, _ := r.Score(ctx, "1.2.3.4")
	if score != 10*100*15 {
		t.Fatalf("expected %d, got %d (lost update)", 10*100*15, score)
	}
}
