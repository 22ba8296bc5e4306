package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestInsertAndRecent(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)
	shoulder, neck := 150.0, 75.5

	records := []SessionRecord{
		{SessionID: "a", InstanceID: "desk", StartedAt: base, EndedAt: base.Add(10 * time.Minute),
			GoodSeconds: 300, PoorSeconds: 200, Alerts: 3,
			ShoulderThreshold: &shoulder, NeckThreshold: &neck},
		{SessionID: "b", InstanceID: "desk", StartedAt: base.Add(time.Hour), EndedAt: base.Add(time.Hour + time.Minute)},
		{SessionID: "c", InstanceID: "desk", StartedAt: base.Add(2 * time.Hour), EndedAt: base.Add(2*time.Hour + 30*time.Second),
			GoodSeconds: 20},
	}
	for _, r := range records {
		if _, err := s.InsertSession(ctx, r); err != nil {
			t.Fatalf("InsertSession(%s) failed: %v", r.SessionID, err)
		}
	}

	got, err := s.RecentSessions(ctx, 2)
	if err != nil {
		t.Fatalf("RecentSessions failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].SessionID != "c" || got[1].SessionID != "b" {
		t.Errorf("order = %s,%s want c,b", got[0].SessionID, got[1].SessionID)
	}
	if got[1].ShoulderThreshold != nil {
		t.Error("uncalibrated session should have nil thresholds")
	}

	all, err := s.RecentSessions(ctx, 10)
	if err != nil {
		t.Fatalf("RecentSessions failed: %v", err)
	}
	first := all[len(all)-1]
	if first.ShoulderThreshold == nil || *first.ShoulderThreshold != 150 {
		t.Errorf("ShoulderThreshold = %v, want 150", first.ShoulderThreshold)
	}
	if first.NeckThreshold == nil || *first.NeckThreshold != 75.5 {
		t.Errorf("NeckThreshold = %v, want 75.5", first.NeckThreshold)
	}
	if !first.StartedAt.Equal(base) || first.Duration() != 10*time.Minute {
		t.Errorf("times not preserved: %v .. %v", first.StartedAt, first.EndedAt)
	}
	if pct, ok := first.GoodPercent(); !ok || pct != 60 {
		t.Errorf("GoodPercent = %v,%v want 60,true", pct, ok)
	}
}

func TestRecentSessionsEmpty(t *testing.T) {
	s := openTemp(t)
	got, err := s.RecentSessions(context.Background(), 5)
	if err != nil {
		t.Fatalf("RecentSessions failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
	if got, _ := s.RecentSessions(context.Background(), 0); got != nil {
		t.Errorf("limit 0 returned %v", got)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	now := time.Now()
	if _, err := s.InsertSession(context.Background(), SessionRecord{SessionID: "x", StartedAt: now, EndedAt: now}); err != nil {
		t.Fatalf("InsertSession failed: %v", err)
	}
	_ = s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()
	got, err := s.RecentSessions(context.Background(), 1)
	if err != nil || len(got) != 1 {
		t.Fatalf("got %v, %v; want one record", got, err)
	}
}

func TestGoodPercentUntracked(t *testing.T) {
	if _, ok := (SessionRecord{}).GoodPercent(); ok {
		t.Error("GoodPercent reported tracked time for an empty record")
	}
}
