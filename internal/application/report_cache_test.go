package application

import (
	"testing"
	"time"
)

func TestReportCacheRoundTrip(t *testing.T) {
	clock := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	cache := newReportCache(30*time.Second, 4, func() time.Time { return clock })

	if _, ok := cache.Get("window"); ok {
		t.Fatalf("expected a miss on an empty cache")
	}

	report := []UtilizationEntry{{RoomID: "room-1", TotalBookingHours: 2}}
	cache.Set("window", report)

	got, ok := cache.Get("window")
	if !ok {
		t.Fatalf("expected a hit")
	}
	if len(got) != 1 || got[0].RoomID != "room-1" {
		t.Fatalf("got %+v", got)
	}

	// Mutating the returned slice must not affect the cached copy.
	got[0].RoomID = "mutated"
	fresh, _ := cache.Get("window")
	if fresh[0].RoomID != "room-1" {
		t.Fatalf("cache returned a shared slice")
	}
}

func TestReportCacheExpiry(t *testing.T) {
	clock := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	cache := newReportCache(30*time.Second, 4, func() time.Time { return clock })

	cache.Set("window", []UtilizationEntry{})
	clock = clock.Add(31 * time.Second)

	if _, ok := cache.Get("window"); ok {
		t.Fatalf("expected the entry to expire")
	}
}

func TestReportCacheEvictsAtCapacity(t *testing.T) {
	clock := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	cache := newReportCache(30*time.Second, 2, func() time.Time { return clock })

	cache.Set("a", []UtilizationEntry{})
	clock = clock.Add(time.Second)
	cache.Set("b", []UtilizationEntry{})
	clock = clock.Add(time.Second)
	cache.Set("c", []UtilizationEntry{})

	if _, ok := cache.Get("a"); ok {
		t.Fatalf("expected the oldest entry to be evicted")
	}
	if _, ok := cache.Get("c"); !ok {
		t.Fatalf("expected the newest entry to survive")
	}
}
