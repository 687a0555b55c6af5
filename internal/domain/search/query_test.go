package search

import (
	"strings"
	"testing"
)

func TestNewQuery_ConfiguredLimits(t *testing.T) {
	lim := Limits{DefaultPageSize: 10, MaxPageSize: 15, MaxQueryLength: 100}

	q, err := NewQuery("rainy night drives", 0, 0, lim)
	if err != nil {
		t.Fatalf("NewQuery: %v", err)
	}
	if q.PageSize() != 10 {
		t.Errorf("default page size = %d, want configured 10", q.PageSize())
	}

	q, err = NewQuery("rainy night drives", 0, 40, lim)
	if err != nil {
		t.Fatalf("NewQuery: %v", err)
	}
	if q.PageSize() != 15 {
		t.Errorf("clamped page size = %d, want configured max 15", q.PageSize())
	}
}

func TestNewQuery_ZeroLimitsFallBack(t *testing.T) {
	q, err := NewQuery("rainy night drives", 0, 0, Limits{})
	if err != nil {
		t.Fatalf("NewQuery: %v", err)
	}
	if q.PageSize() != DefaultPageSize {
		t.Errorf("page size = %d, want package default %d", q.PageSize(), DefaultPageSize)
	}

	_, err = NewQuery(strings.Repeat("a", MaxQueryLength+1), 0, 0, Limits{})
	if err == nil {
		t.Fatal("expected over-long query rejected at the package default")
	}
}

func TestNewQuery_LengthCountsRunes(t *testing.T) {
	lim := Limits{MaxQueryLength: 5}

	// 5 runes, 10 bytes
	if _, err := NewQuery("ééééé", 0, 0, lim); err != nil {
		t.Fatalf("5-rune query rejected: %v", err)
	}
	if _, err := NewQuery("éééééé", 0, 0, lim); err == nil {
		t.Fatal("expected 6-rune query rejected")
	}
}
