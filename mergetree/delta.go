package mergetree

import (
	"fmt"
)

// DeltaOperation is the kind of structural change reported to a delta callback.
type DeltaOperation int

const (
	OpInsert DeltaOperation = iota
	OpRemove
)

func (op DeltaOperation) String() string {
	switch op {
	case OpInsert:
		return "insert"
	case OpRemove:
		return "remove"
	}
	return fmt.Sprintf("DeltaOperation(%d)", int(op))
}

// Op describes the call that triggered a change.
type Op struct {
	Type DeltaOperation
	// Pos1 is the insertion position, or the start of a removed range.
	Pos1 int
	// Pos2 is the (exclusive) end of a removed range. Unused for insertions.
	Pos2     int
	RefSeq   SeqNum
	ClientID ClientID
	Seq      SeqNum
}

// OpArgs carries metadata about the operation being applied.
type OpArgs struct {
	Op Op
}

// DeltaSegment wraps a segment created or affected by a change.
type DeltaSegment struct {
	Segment *Segment
}

// DeltaArgs describes a structural change.
type DeltaArgs struct {
	Operation DeltaOperation
	// DeltaSegments lists the affected segments in document order.
	DeltaSegments []DeltaSegment
}

// DeltaCallback observes every structural mutation of a tree, synchronously, before the
// mutating call returns.
//
// Callbacks may link and unlink tracking groups, but must not mutate the tree: those
// calls fail with ErrReentrantMutation.
type DeltaCallback func(opArgs *OpArgs, deltaArgs *DeltaArgs)

// SetDeltaCallback registers cb as the tree's single delta callback, replacing any
// previous one. A nil callback disables dispatch.
func (t *MergeTree) SetDeltaCallback(cb DeltaCallback) {
	t.deltaCallback = cb
}

// Fills in op args from a call, unless the caller provided their own.
func resolveOpArgs(opArgs *OpArgs, op Op) *OpArgs {
	if opArgs != nil {
		return opArgs
	}
	return &OpArgs{Op: op}
}

// Invokes the delta callback with segs, guarding against reentrant mutations.
func (t *MergeTree) dispatchDelta(opArgs *OpArgs, operation DeltaOperation, segs []*Segment) {
	if t.deltaCallback == nil || len(segs) == 0 {
		return
	}
	deltaSegments := make([]DeltaSegment, len(segs))
	for i, seg := range segs {
		deltaSegments[i] = DeltaSegment{Segment: seg}
	}
	t.dispatching = true
	defer func() { t.dispatching = false }()
	t.deltaCallback(opArgs, &DeltaArgs{
		Operation:     operation,
		DeltaSegments: deltaSegments,
	})
}
