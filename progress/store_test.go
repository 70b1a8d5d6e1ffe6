package progress

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"slidekb/config"
	"slidekb/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "progress.json"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	return s
}

func TestDeriveStatus(t *testing.T) {
	cases := []struct {
		reviewed, credits, synced bool
		want                      string
	}{
		{false, false, false, types.StatusPending},
		{true, false, false, types.StatusReviewed},
		{false, true, false, types.StatusCreditsAdded},
		{true, true, false, types.StatusCreditsAdded},
		{true, true, true, types.StatusCompleted},
		{false, false, true, types.StatusPending},
	}
	for _, c := range cases {
		p := &types.VideoProgress{Reviewed: c.reviewed, CreditsAdded: c.credits, MetadataSynced: c.synced}
		if got := p.DeriveStatus(); got != c.want {
			t.Errorf("reviewed=%v credits=%v synced=%v: got %q, want %q",
				c.reviewed, c.credits, c.synced, got, c.want)
		}
	}
}

func TestGetUnknownVideoIsPending(t *testing.T) {
	s := openTestStore(t)
	p := s.Get("vid1")
	if p.Status != types.StatusPending || p.VideoID != "vid1" {
		t.Fatalf("unexpected fresh record: %+v", p)
	}
}

func TestMarkReviewedPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.MarkReviewed("vid1", 12, 3); err != nil {
		t.Fatal(err)
	}

	// Reopen and check the record survived.
	s2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	p := s2.Get("vid1")
	if !p.Reviewed || p.SlidesKept != 12 || p.SlidesRemoved != 3 {
		t.Fatalf("record did not persist: %+v", p)
	}
	if p.Status != types.StatusReviewed {
		t.Fatalf("expected derived status reviewed, got %q", p.Status)
	}
}

func TestStatusProgression(t *testing.T) {
	s := openTestStore(t)

	s.MarkReviewed("vid1", 10, 0)
	if got := s.Get("vid1").Status; got != types.StatusReviewed {
		t.Fatalf("after review: %q", got)
	}

	s.MarkCreditsAdded("vid1", "Source: Demo")
	if got := s.Get("vid1").Status; got != types.StatusCreditsAdded {
		t.Fatalf("after credits: %q", got)
	}

	s.MarkMetadataSynced("vid1")
	if got := s.Get("vid1").Status; got != types.StatusCompleted {
		t.Fatalf("after sync: %q", got)
	}
}

func TestAuditLogRecordsActions(t *testing.T) {
	s := openTestStore(t)
	s.MarkReviewed("vid1", 5, 1)
	s.MarkDuplicatesFixed("vid1", 2)

	entries := s.AuditLog()
	if len(entries) != 2 {
		t.Fatalf("expected 2 audit entries, got %d", len(entries))
	}
	if entries[0].Action != "reviewed" || entries[1].Action != "duplicates_fixed" {
		t.Fatalf("unexpected actions: %+v", entries)
	}
	if entries[1].Updates["fixed_count"] != 2 {
		t.Fatalf("updates not recorded: %+v", entries[1].Updates)
	}
}

func TestAuditLogCapped(t *testing.T) {
	s := openTestStore(t)
	for i := 0; i < config.AuditLogCap+50; i++ {
		if err := s.MarkMetadataSynced(fmt.Sprintf("vid%d", i)); err != nil {
			t.Fatal(err)
		}
	}

	entries := s.AuditLog()
	if len(entries) != config.AuditLogCap {
		t.Fatalf("audit log should cap at %d, got %d", config.AuditLogCap, len(entries))
	}
	// The oldest entries are the ones dropped.
	if entries[0].VideoID != "vid50" {
		t.Fatalf("expected oldest surviving entry vid50, got %s", entries[0].VideoID)
	}
}

func TestOpenCorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("corrupt file should not fail open: %v", err)
	}
	if len(s.VideoIDs()) != 0 {
		t.Fatal("corrupt file should load as empty")
	}
}

func TestSummarize(t *testing.T) {
	s := openTestStore(t)
	s.MarkReviewed("reviewed-only", 1, 0)
	s.MarkCreditsAdded("credited", "")
	s.MarkReviewed("done", 1, 0)
	s.MarkCreditsAdded("done", "")
	s.MarkMetadataSynced("done")
	s.MarkDuplicatesFixed("pending-ish", 1)

	sum := s.Summarize()
	if sum.Total != 4 {
		t.Fatalf("expected 4 tracked, got %d", sum.Total)
	}
	if len(sum.Reviewed) != 1 || sum.Reviewed[0] != "reviewed-only" {
		t.Fatalf("reviewed bucket: %v", sum.Reviewed)
	}
	if len(sum.CreditsAdded) != 1 || sum.CreditsAdded[0] != "credited" {
		t.Fatalf("credits bucket: %v", sum.CreditsAdded)
	}
	if len(sum.Completed) != 1 || sum.Completed[0] != "done" {
		t.Fatalf("completed bucket: %v", sum.Completed)
	}
	if len(sum.Pending) != 1 || sum.Pending[0] != "pending-ish" {
		t.Fatalf("pending bucket: %v", sum.Pending)
	}
}
