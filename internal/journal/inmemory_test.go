package journal

import (
	"context"
	"testing"
)

func TestInMemoryStoreRecentNewestFirst(t *testing.T) {
	s := NewInMemoryStore(10)
	ctx := context.Background()
	for _, text := range []string{"one", "two", "three"} {
		if err := s.Record(ctx, Entry{Text: text, Tier: "primary"}); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	got, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 2 || got[0].Text != "three" || got[1].Text != "two" {
		t.Fatalf("Recent() = %+v, want [three two]", got)
	}
	if got[0].ID == "" || got[0].CreatedAt.IsZero() {
		t.Fatalf("Record() should assign ID and CreatedAt: %+v", got[0])
	}
}

func TestInMemoryStoreCapacity(t *testing.T) {
	s := NewInMemoryStore(2)
	ctx := context.Background()
	for _, text := range []string{"a", "b", "c"} {
		_ = s.Record(ctx, Entry{Text: text})
	}
	got, _ := s.Recent(ctx, 0)
	if len(got) != 2 || got[1].Text != "b" {
		t.Fatalf("Recent() = %+v, want [c b]", got)
	}
}

func TestNewStoreDefaultsToInMemory(t *testing.T) {
	s, err := NewStore(context.Background(), "  ")
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	defer s.Close()
	if _, ok := s.(*InMemoryStore); !ok {
		t.Fatalf("NewStore() = %T, want *InMemoryStore", s)
	}
}
