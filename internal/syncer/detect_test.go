package syncer

import (
	"testing"
	"time"

	"photokeep/internal/catalog"
)

func TestWithinTolerance(t *testing.T) {
	base := time.Now()

	tests := []struct {
		name string
		a, b time.Time
		want bool
	}{
		{"equal", base, base, true},
		{"half second", base, base.Add(500 * time.Millisecond), true},
		{"exactly one second", base, base.Add(time.Second), true},
		{"over one second", base, base.Add(1100 * time.Millisecond), false},
		{"negative within", base.Add(300 * time.Millisecond), base, true},
		{"negative over", base.Add(2 * time.Second), base, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := withinTolerance(tt.a, tt.b); got != tt.want {
				t.Errorf("withinTolerance() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScanStateChecksumRecency(t *testing.T) {
	older := catalog.Asset{ID: 1, VirtualPath: "/assets/a.jpg", Checksum: "same", ScannedAt: time.Now().Add(-time.Hour)}
	newer := catalog.Asset{ID: 2, VirtualPath: "/assets/b.jpg", Checksum: "same", ScannedAt: time.Now()}

	st := newScanState([]catalog.Asset{older, newer})

	if got := st.byChecksum["same"]; got.ID != 2 {
		t.Errorf("Checksum index kept asset %d, want the most recently scanned (2)", got.ID)
	}
	if len(st.byPath) != 2 {
		t.Errorf("Path index size = %d, want 2", len(st.byPath))
	}
}

func TestOutcomeKindString(t *testing.T) {
	tests := []struct {
		kind OutcomeKind
		want string
	}{
		{OutcomeUnchanged, "unchanged"},
		{OutcomeNew, "new"},
		{OutcomeUpdated, "updated"},
		{OutcomeMoved, "moved"},
		{OutcomeFailed, "failed"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", int(tt.kind), got, tt.want)
		}
	}
}
