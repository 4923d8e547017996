package mysql

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewStoreDefaults(t *testing.T) {
	store, err := NewStore(&sql.DB{})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if store.table != defaultTable {
		t.Fatalf("expected default table, got %q", store.table)
	}
	if !strings.Contains(store.queries.save, "ON DUPLICATE KEY UPDATE") {
		t.Fatalf("expected upsert, got %q", store.queries.save)
	}
}

func TestNewStoreValidation(t *testing.T) {
	if _, err := NewStore(nil); !errors.Is(err, ErrDBRequired) {
		t.Fatalf("expected ErrDBRequired, got %v", err)
	}
	if _, err := NewStore(&sql.DB{}, WithTable("bad name")); !errors.Is(err, ErrInvalidTableName) {
		t.Fatalf("expected ErrInvalidTableName, got %v", err)
	}
}

func TestStoreRejectsEmptyKey(t *testing.T) {
	store := MustNewStore(&sql.DB{})
	ctx := context.Background()

	if _, err := store.Load(ctx, ""); !errors.Is(err, ErrKeyRequired) {
		t.Fatalf("expected ErrKeyRequired on load, got %v", err)
	}
	if err := store.Save(ctx, "", []byte("x")); !errors.Is(err, ErrKeyRequired) {
		t.Fatalf("expected ErrKeyRequired on save, got %v", err)
	}
	if err := store.Delete(ctx, ""); !errors.Is(err, ErrKeyRequired) {
		t.Fatalf("expected ErrKeyRequired on delete, got %v", err)
	}
}

func TestBuildPruneQuery(t *testing.T) {
	query := buildPruneQuery("tracker_state", 0)
	if strings.Contains(query, "NOT IN") {
		t.Fatalf("expected no keep clause, got %q", query)
	}

	query = buildPruneQuery("tracker_state", 3)
	if !strings.Contains(query, "state_key NOT IN (?,?,?)") {
		t.Fatalf("expected keep placeholders, got %q", query)
	}
}

func TestPruneValidation(t *testing.T) {
	store := MustNewStore(&sql.DB{})
	ctx := context.Background()

	if _, err := store.Prune(ctx, PruneOptions{}); !errors.Is(err, ErrPruneBeforeRequired) {
		t.Fatalf("expected ErrPruneBeforeRequired, got %v", err)
	}
	if _, err := store.Prune(ctx, PruneOptions{Before: time.Now(), Limit: -1}); !errors.Is(err, ErrPruneLimitInvalid) {
		t.Fatalf("expected ErrPruneLimitInvalid, got %v", err)
	}
}

func TestNewPruneMaintainerDefaults(t *testing.T) {
	maintainer, err := NewPruneMaintainer(&sql.DB{}, PruneMaintainerConfig{
		Table:     "tracker_state",
		Retention: 30 * 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("expected maintainer, got %v", err)
	}
	if maintainer.cfg.CheckEvery != defaultPruneEvery {
		t.Fatalf("expected default check interval")
	}
	if maintainer.cfg.Limit != defaultPruneLimit {
		t.Fatalf("expected default limit")
	}
	if maintainer.cfg.LockName != "tracker:prune:tracker_state" {
		t.Fatalf("unexpected lock name %q", maintainer.cfg.LockName)
	}
}

func TestNewPruneMaintainerValidation(t *testing.T) {
	db := &sql.DB{}
	if _, err := NewPruneMaintainer(nil, PruneMaintainerConfig{Retention: time.Hour}); err != ErrDBRequired {
		t.Fatalf("expected ErrDBRequired, got %v", err)
	}
	if _, err := NewPruneMaintainer(db, PruneMaintainerConfig{Retention: 0}); err != ErrPruneRetentionInvalid {
		t.Fatalf("expected ErrPruneRetentionInvalid, got %v", err)
	}
	if _, err := NewPruneMaintainer(db, PruneMaintainerConfig{Retention: time.Hour, Limit: -1}); err != ErrPruneLimitInvalid {
		t.Fatalf("expected ErrPruneLimitInvalid, got %v", err)
	}
}
