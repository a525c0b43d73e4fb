package domain

import (
	"errors"
	"testing"
)

func TestSelectionToggleAddRemove(t *testing.T) {
	s := NewSelection([]string{"CB:BTC-USD"}, 3, "CB:BTC-USD")

	added, err := s.Toggle("HLP:ETH")
	if err != nil || !added {
		t.Fatalf("expected add, got added=%v err=%v", added, err)
	}
	if s.Len() != 2 {
		t.Fatalf("expected 2 members, got %d", s.Len())
	}

	added, err = s.Toggle("HLP:ETH")
	if err != nil || added {
		t.Fatalf("expected remove, got added=%v err=%v", added, err)
	}
	if s.Has("HLP:ETH") {
		t.Error("HLP:ETH should be removed")
	}
}

func TestSelectionRejectsRemovingLast(t *testing.T) {
	s := NewSelection([]string{"CB:BTC-USD"}, 3, "CB:BTC-USD")

	if _, err := s.Toggle("CB:BTC-USD"); !errors.Is(err, ErrLastSelection) {
		t.Fatalf("expected ErrLastSelection, got %v", err)
	}
	if s.Len() != 1 {
		t.Errorf("selection must still hold 1 member, got %d", s.Len())
	}
}

func TestSelectionRejectsFourth(t *testing.T) {
	s := NewSelection([]string{"CB:BTC-USD", "HLP:ETH", "TV:NASDAQ:AAPL"}, 3, "CB:BTC-USD")

	if _, err := s.Toggle("HX:PURR"); !errors.Is(err, ErrSelectionLimit) {
		t.Fatalf("expected ErrSelectionLimit, got %v", err)
	}
	if s.Len() != 3 {
		t.Errorf("selection must still hold 3 members, got %d", s.Len())
	}

	// 满员时移除已有成员仍然允许
	if _, err := s.Toggle("HLP:ETH"); err != nil {
		t.Fatalf("remove at capacity failed: %v", err)
	}
}

func TestNewSelectionDedupAndCap(t *testing.T) {
	s := NewSelection([]string{"a", "a", "b", "c", "d"}, 3, "x")
	ids := s.IDs()
	if len(ids) != 3 || ids[0] != "a" || ids[1] != "b" || ids[2] != "c" {
		t.Fatalf("unexpected ids: %v", ids)
	}
}

func TestNewSelectionEmptyFallsBackToDefault(t *testing.T) {
	s := NewSelection(nil, 3, "CB:BTC-USD")
	if ids := s.IDs(); len(ids) != 1 || ids[0] != "CB:BTC-USD" {
		t.Fatalf("expected default fallback, got %v", ids)
	}
}

func TestSelectionValidateFiltersAndFallsBack(t *testing.T) {
	known := func(id string) bool { return id == "CB:BTC-USD" || id == "HLP:ETH" }

	s := NewSelection([]string{"HLP:ETH", "HLP:GONE"}, 3, "CB:BTC-USD")
	if changed := s.Validate(known); !changed {
		t.Fatal("expected changed=true")
	}
	if ids := s.IDs(); len(ids) != 1 || ids[0] != "HLP:ETH" {
		t.Fatalf("unexpected ids after validate: %v", ids)
	}

	// 全员失效 -> 回退默认
	s = NewSelection([]string{"HLP:GONE", "TV:DEAD"}, 3, "CB:BTC-USD")
	s.Validate(known)
	if ids := s.IDs(); len(ids) != 1 || ids[0] != "CB:BTC-USD" {
		t.Fatalf("expected default fallback, got %v", ids)
	}

	// 无变化时不报 changed
	s = NewSelection([]string{"CB:BTC-USD"}, 3, "CB:BTC-USD")
	if s.Validate(known) {
		t.Error("expected changed=false for fully valid selection")
	}
}
