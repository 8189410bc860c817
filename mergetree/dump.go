package mergetree

import (
	"fmt"
	"strings"

	"github.com/sanity-io/litter"
)

// SegmentSnapshot is a plain view of a segment, for debugging and tests.
type SegmentSnapshot struct {
	Content  string   `json:"content"`
	Len      int      `json:"len"`
	Seq      string   `json:"seq"`
	ClientID ClientID `json:"client"`
	// Removed is the removal stamp, "<seq> by <clients>", if any.
	Removed        string `json:"removed,omitempty"`
	TrackingGroups int    `json:"trackingGroups"`
	Pending        int    `json:"pending,omitempty"`
}

// Snapshot returns a view of every segment in document order, including removed
// segments not yet collected.
func (t *MergeTree) Snapshot() []SegmentSnapshot {
	snapshot := make([]SegmentSnapshot, len(t.segments))
	for i, seg := range t.segments {
		snapshot[i] = seg.snapshot()
	}
	return snapshot
}

func (s *Segment) snapshot() SegmentSnapshot {
	snap := SegmentSnapshot{
		Content:        contentString(s.content),
		Len:            s.Len(),
		Seq:            s.seq.String(),
		ClientID:       s.clientID,
		TrackingGroups: s.TrackingCollection().Len(),
		Pending:        len(s.pending),
	}
	if s.removed {
		clients := make([]string, len(s.removedClientIDs))
		for i, c := range s.removedClientIDs {
			clients[i] = c.String()
		}
		snap.Removed = fmt.Sprintf("%v by %s", s.removedSeq, strings.Join(clients, ","))
	}
	return snap
}

var dumpOptions = litter.Options{
	StripPackageNames: true,
	HideZeroValues:    true,
}

// Dump renders the tree's snapshot and collaboration window as Go-like literals.
func (t *MergeTree) Dump() string {
	return dumpOptions.Sdump(struct {
		LocalClientID ClientID
		MinSeq        string
		CurrentSeq    string
		Pending       int
		Segments      []SegmentSnapshot
	}{
		LocalClientID: t.localClientID,
		MinSeq:        t.minSeq.String(),
		CurrentSeq:    t.currentSeq.String(),
		Pending:       len(t.pending),
		Segments:      t.Snapshot(),
	})
}
