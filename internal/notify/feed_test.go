package notify

import (
	"context"
	"testing"
)

func TestFeed_EvictsOldest(t *testing.T) {
	f := NewFeed(3)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		_ = f.Publish(context.Background(), Event{Name: name})
	}

	if f.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", f.Len())
	}

	got := f.Recent(0)
	want := []string{"e", "d", "c"}
	for i, ev := range got {
		if ev.Name != want[i] {
			t.Errorf("Recent()[%d] = %q, want %q", i, ev.Name, want[i])
		}
	}
}

func TestFeed_RecentLimit(t *testing.T) {
	f := NewFeed(10)
	f.Append(Event{Name: "first"})
	f.Append(Event{Name: "second"})

	got := f.Recent(1)
	if len(got) != 1 || got[0].Name != "second" {
		t.Errorf("Recent(1) = %+v, want only second", got)
	}
	if got := f.Recent(50); len(got) != 2 {
		t.Errorf("Recent(50) returned %d entries, want 2", len(got))
	}
}

func TestFeed_Empty(t *testing.T) {
	f := NewFeed(0)
	if f.Cap() != 1 {
		t.Errorf("Cap() = %d, want 1", f.Cap())
	}
	if got := f.Recent(5); len(got) != 0 {
		t.Errorf("expected empty feed, got %+v", got)
	}
}
