package mergetree

import (
	"fmt"
	"slices"
)

// A local op that wasn't acknowledged by the ordering authority, with the segments it
// inserted or removed.
type pendingGroup struct {
	op       DeltaOperation
	segments []*Segment
}

// Adds seg to the group, and the group to seg.
func (g *pendingGroup) add(seg *Segment) {
	g.segments = append(g.segments, seg)
	seg.pending = append(seg.pending, g)
}

// Records a local op awaiting acknowledgement. Ops without segments are recorded too,
// so that acknowledgements stay aligned with the order of submission.
func (t *MergeTree) addPending(op DeltaOperation, segs []*Segment) {
	group := &pendingGroup{op: op}
	for _, seg := range segs {
		group.add(seg)
	}
	t.pending = append(t.pending, group)
}

// PendingCount returns the number of local ops awaiting acknowledgement.
func (t *MergeTree) PendingCount() int {
	return len(t.pending)
}

// AckPending acknowledges the oldest pending local op, which the ordering authority
// sequenced at seq. Inserted segments take seq as their insertion stamp, and removed
// segments as their removal stamp, unless a sequenced removal got there first.
//
// Local ops are acknowledged in the order they were applied.
//
// Time complexity: O(segments of the op * pending ops)
func (t *MergeTree) AckPending(seq SeqNum) error {
	if t.dispatching {
		return ErrReentrantMutation
	}
	if !t.collaborating {
		return ErrNotCollaborating
	}
	if !t.currentSeq.Before(seq) || !seq.IsAssigned() {
		return fmt.Errorf("ack %v, current %v: %w", seq, t.currentSeq, ErrInvalidSeq)
	}
	if len(t.pending) == 0 {
		return ErrNoPendingOps
	}
	group := t.pending[0]
	t.pending[0] = nil
	t.pending = t.pending[1:]
	for _, seg := range group.segments {
		switch group.op {
		case OpInsert:
			seg.seq = seq
		case OpRemove:
			if !seg.removedSeq.IsAssigned() {
				seg.removedSeq = seq
			}
		}
		if i := slices.Index(seg.pending, group); i >= 0 {
			seg.pending = slices.Delete(seg.pending, i, i+1)
		}
	}
	t.currentSeq = seq
	return nil
}
