package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/kawamura/memgraph/internal/model"
)

func TestManager_LazyLoadsOnce(t *testing.T) {
	repo := newMemGraphRepo()
	repo.graphs["u1"] = model.Graph{"seed": model.NewEntity("note")}
	mgr := NewManager(repo, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := mgr.View(ctx, "u1", func(g model.Graph) error {
			if _, ok := g["seed"]; !ok {
				t.Error("seed entity should be resident")
			}
			return nil
		})
		if err != nil {
			t.Fatalf("View failed: %v", err)
		}
	}

	if repo.loads != 1 {
		t.Errorf("loads = %d, want 1 (lazy load on first touch only)", repo.loads)
	}
}

func TestManager_MissingPartitionIsEmptyNotError(t *testing.T) {
	mgr := NewManager(newMemGraphRepo(), nil)

	err := mgr.View(context.Background(), "brand-new", func(g model.Graph) error {
		if len(g) != 0 {
			t.Errorf("len(g) = %d, want 0", len(g))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
}

func TestManager_UpdateFlushesAfterMutation(t *testing.T) {
	repo := newMemGraphRepo()
	mgr := NewManager(repo, nil)
	ctx := context.Background()

	err := mgr.Update(ctx, "u1", func(g model.Graph) error {
		g["a"] = model.NewEntity("node")
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if repo.saves != 1 {
		t.Errorf("saves = %d, want 1", repo.saves)
	}
	if _, ok := repo.graphs["u1"]["a"]; !ok {
		t.Error("mutation should be visible in durable storage")
	}
}

func TestManager_UpdateFnErrorSkipsFlush(t *testing.T) {
	repo := newMemGraphRepo()
	mgr := NewManager(repo, nil)

	wantErr := errors.New("boom")
	err := mgr.Update(context.Background(), "u1", func(g model.Graph) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
	if repo.saves != 0 {
		t.Errorf("saves = %d, want 0 when fn fails", repo.saves)
	}
}

func TestManager_DistinctUsersGetDistinctPartitions(t *testing.T) {
	mgr := NewManager(newMemGraphRepo(), nil)
	ctx := context.Background()

	err := mgr.Update(ctx, "u1", func(g model.Graph) error {
		g["only-u1"] = model.NewEntity("note")
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	err = mgr.View(ctx, "u2", func(g model.Graph) error {
		if len(g) != 0 {
			t.Errorf("u2 partition should be empty, got %d entities", len(g))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}

	if mgr.ResidentCount() != 2 {
		t.Errorf("ResidentCount = %d, want 2", mgr.ResidentCount())
	}
}

type flushCounter struct{ count int }

func (f *flushCounter) RecordPartitionFlush() { f.count++ }

func TestManager_RecordsFlushMetric(t *testing.T) {
	metrics := &flushCounter{}
	mgr := NewManager(newMemGraphRepo(), metrics)

	err := mgr.Update(context.Background(), "u1", func(g model.Graph) error {
		g["a"] = model.NewEntity("node")
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if metrics.count != 1 {
		t.Errorf("flush metric = %d, want 1", metrics.count)
	}
}
