package mergetree

import (
	"fmt"
)

// UpdateMinSeq moves the lower end of the collaboration window to minSeq, and collects
// the segments whose removal every client has seen.
//
// The minimum sequence number only moves forward, and never past the current one.
func (t *MergeTree) UpdateMinSeq(minSeq SeqNum) error {
	if t.dispatching {
		return ErrReentrantMutation
	}
	if !t.collaborating {
		return ErrNotCollaborating
	}
	if !minSeq.IsAssigned() || minSeq.Before(t.minSeq) || t.currentSeq.Before(minSeq) {
		return fmt.Errorf("min seq %v, window [%v, %v]: %w", minSeq, t.minSeq, t.currentSeq, ErrInvalidSeq)
	}
	t.minSeq = minSeq
	t.zamboni()
	return nil
}

// Returns whether a segment can be dropped: its removal is sequenced at or below the
// minimum sequence number, so no perspective can see it anymore.
func (t *MergeTree) collectible(seg *Segment) bool {
	return seg.removed && seg.removedSeq.IsAssigned() && !t.minSeq.Before(seg.removedSeq)
}

// Drops collectible segments from the tree, unlinking them from their tracking groups.
// Groups never hold segments that left the tree.
//
// Time complexity: O(segments + links of dropped segments)
func (t *MergeTree) zamboni() {
	kept := t.segments[:0]
	var collected int
	for _, seg := range t.segments {
		if !t.collectible(seg) {
			kept = append(kept, seg)
			continue
		}
		seg.TrackingCollection().UnlinkAll()
		seg.tree = nil
		collected++
	}
	clear(t.segments[len(kept):])
	t.segments = kept
	if collected > 0 {
		t.logger.Debug("zamboni collected segments",
			"minSeq", t.minSeq, "collected", collected, "remaining", len(kept))
	}
}
