// internal/registry/registry_test.go
package registry

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/xmcchv/plc-test/internal/device"
	"github.com/xmcchv/plc-test/internal/status"
)

func TestRegister_Validation(t *testing.T) {
	r := New()

	if _, err := r.Register(16, 0, 0); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange for zero length, got %v", err)
	}
	if _, err := r.Register(16, -1, 4); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange for negative start, got %v", err)
	}
	if _, err := r.Register(16, math.MaxInt-2, 4); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange for wrapping end, got %v", err)
	}

	h, err := r.Register(16, 0, 100)
	if err != nil {
		t.Fatalf("Register err=%v", err)
	}
	if h != 0 || r.Len() != 1 {
		t.Fatalf("unexpected handle=%d len=%d", h, r.Len())
	}

	// zero-filled on creation
	ok := r.View(16, 0, 100, func(b []byte) {
		if diff := cmp.Diff(make([]byte, 100), b); diff != "" {
			t.Fatalf("buffer not zeroed (-want +got):\n%s", diff)
		}
	})
	if !ok {
		t.Fatalf("expected registered block to cover its own range")
	}
}

func TestView_Bounds(t *testing.T) {
	r := New()
	if _, err := r.Register(16, 100, 100); err != nil {
		t.Fatalf("Register err=%v", err)
	}

	cases := []struct {
		name         string
		db, off, wid int
		want         bool
	}{
		{"first byte", 16, 100, 1, true},
		{"last byte", 16, 199, 1, true},
		{"last word", 16, 198, 2, true},
		{"word past end", 16, 199, 2, false},
		{"before start", 16, 99, 1, false},
		{"other db", 17, 150, 1, false},
		{"zero width", 16, 150, 0, false},
		{"offset near max int", 16, math.MaxInt - 1, 4, false},
		{"offset at max int", 16, math.MaxInt, 1, false},
	}

	for _, tc := range cases {
		got := r.View(tc.db, tc.off, tc.wid, func([]byte) {})
		if got != tc.want {
			t.Fatalf("%s: got=%v want=%v", tc.name, got, tc.want)
		}
	}
}

func TestView_FirstMatchWins(t *testing.T) {
	r := New()
	a, _ := r.Register(16, 0, 10)
	b, _ := r.Register(16, 5, 10)

	if err := r.Publish(a, []byte{0, 0, 0, 0, 0, 1, 1, 1, 1, 1}); err != nil {
		t.Fatalf("Publish a err=%v", err)
	}
	if err := r.Publish(b, []byte{2, 2, 2, 2, 2, 2, 2, 2, 2, 2}); err != nil {
		t.Fatalf("Publish b err=%v", err)
	}

	var got byte
	r.View(16, 6, 1, func(v []byte) { got = v[0] })
	if got != 1 {
		t.Fatalf("expected first block to answer, got %d", got)
	}

	// only the second block covers 12..13
	r.View(16, 12, 2, func(v []byte) { got = v[0] })
	if got != 2 {
		t.Fatalf("expected second block to answer, got %d", got)
	}

	if rng, ok := r.Overlaps(16, 8, 4); !ok || rng.Start != 0 {
		t.Fatalf("expected overlap with first block, got %v %v", rng, ok)
	}
	if _, ok := r.Overlaps(16, 15, 5); ok {
		t.Fatalf("touching ranges must not overlap")
	}
}

func TestRegisterDisjoint(t *testing.T) {
	r := New()

	if _, err := r.RegisterDisjoint(16, 0, 100); err != nil {
		t.Fatalf("RegisterDisjoint err=%v", err)
	}
	if _, err := r.RegisterDisjoint(16, 99, 2); !errors.Is(err, ErrOverlap) {
		t.Fatalf("expected ErrOverlap, got %v", err)
	}
	if _, err := r.RegisterDisjoint(16, 100, 100); err != nil {
		t.Fatalf("touching range rejected: %v", err)
	}
	if _, err := r.RegisterDisjoint(17, 0, 100); err != nil {
		t.Fatalf("other db rejected: %v", err)
	}
	if r.Len() != 3 {
		t.Fatalf("expected 3 blocks, got %d", r.Len())
	}
}

func TestUnregister_NewestOnly(t *testing.T) {
	r := New()
	a, _ := r.Register(1, 0, 4)
	b, _ := r.Register(1, 4, 4)

	if err := r.Unregister(a); !errors.Is(err, ErrNotNewest) {
		t.Fatalf("expected ErrNotNewest, got %v", err)
	}
	if err := r.Unregister(Handle(7)); !errors.Is(err, ErrUnknownHandle) {
		t.Fatalf("expected ErrUnknownHandle, got %v", err)
	}
	if err := r.Unregister(b); err != nil {
		t.Fatalf("Unregister err=%v", err)
	}
	if r.Len() != 1 || r.View(1, 4, 1, func([]byte) {}) {
		t.Fatalf("removed block still visible, len=%d", r.Len())
	}

	c, _ := r.Register(1, 8, 4)
	if c != b {
		t.Fatalf("expected handle %d reused, got %d", b, c)
	}
}

func TestPublish_ReplacesBuffer(t *testing.T) {
	r := New()
	h, _ := r.Register(1, 0, 4)

	if err := r.Publish(h, []byte{1, 2, 3}); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
	if err := r.Publish(Handle(9), []byte{1, 2, 3, 4}); !errors.Is(err, ErrUnknownHandle) {
		t.Fatalf("expected ErrUnknownHandle, got %v", err)
	}

	data := []byte{1, 2, 3, 4}
	if err := r.Publish(h, data); err != nil {
		t.Fatalf("Publish err=%v", err)
	}

	var got []byte
	r.View(1, 1, 2, func(b []byte) { got = append(got, b...) })
	if diff := cmp.Diff([]byte{2, 3}, got); diff != "" {
		t.Fatalf("view mismatch (-want +got):\n%s", diff)
	}
	if r.Epoch(h) != 1 {
		t.Fatalf("expected epoch 1, got %d", r.Epoch(h))
	}
}

func TestStatus_TracksFailures(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r := New(WithClock(func() time.Time { return now }), WithStaleAfter(time.Second))
	h, _ := r.Register(16, 0, 2)

	if err := r.Publish(h, []byte{0, 10}); err != nil {
		t.Fatalf("Publish err=%v", err)
	}

	now = now.Add(500 * time.Millisecond)
	if err := r.Fail(h, &device.ReadError{Code: 7, Text: "item not available"}); err != nil {
		t.Fatalf("Fail err=%v", err)
	}

	s, ok := r.Status(h)
	if !ok {
		t.Fatalf("expected status")
	}
	want := status.Snapshot{
		Health:        status.HealthError,
		LastErrorCode: 7,
		LastError:     "item not available",
		Epoch:         1,
		FetchedAt:     now.Add(-500 * time.Millisecond),
	}
	if diff := cmp.Diff(want, s); diff != "" {
		t.Fatalf("status mismatch (-want +got):\n%s", diff)
	}

	// last good bytes survive a failure
	var v []byte
	r.View(16, 0, 2, func(b []byte) { v = append(v, b...) })
	if diff := cmp.Diff([]byte{0, 10}, v); diff != "" {
		t.Fatalf("buffer changed on failure (-want +got):\n%s", diff)
	}

	if err := r.Publish(h, []byte{0, 11}); err != nil {
		t.Fatalf("Publish err=%v", err)
	}
	now = now.Add(2 * time.Second)
	if s, _ := r.Status(h); s.Health != status.HealthStale {
		t.Fatalf("expected stale, got %s", status.HealthName(s.Health))
	}
}
