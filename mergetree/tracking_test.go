package mergetree_test

import (
	"testing"

	"github.com/brunokim/merge-tree/mergetree"
	"github.com/stretchr/testify/require"
)

const localClientID mergetree.ClientID = 0

var refSeq = mergetree.Seq(0)

func newTree(t *testing.T) *mergetree.MergeTree {
	t.Helper()
	tree := mergetree.NewMergeTree()
	require.NoError(t, tree.StartCollaboration(localClientID, refSeq, refSeq))
	return tree
}

// Returns a callback linking every delta segment to group.
func linkTo(group mergetree.TrackingGroup) mergetree.DeltaCallback {
	return func(opArgs *mergetree.OpArgs, deltaArgs *mergetree.DeltaArgs) {
		for _, sg := range deltaArgs.DeltaSegments {
			sg.Segment.TrackingCollection().Link(group)
		}
	}
}

func insertLocal(t *testing.T, tree *mergetree.MergeTree, pos int, text string) *mergetree.Segment {
	t.Helper()
	seg := mergetree.NewTextSegment(text)
	err := tree.InsertSegments(pos, []*mergetree.Segment{seg}, refSeq, localClientID, mergetree.UnassignedSequenceNumber, nil)
	require.NoError(t, err)
	return seg
}

func TestInsertedSegmentHasEmptyTracking(t *testing.T) {
	tree := newTree(t)
	insertLocal(t, tree, 0, "abc")

	require.Equal(t, 3, tree.GetLength(refSeq, localClientID))
	info, err := tree.GetContainingSegment(0, refSeq, localClientID)
	require.NoError(t, err)
	require.True(t, info.Segment.TrackingCollection().Empty())
}

func TestInsertWithSingleTrackingGroup(t *testing.T) {
	tree := newTree(t)
	group := mergetree.NewTrackingGroup()
	tree.SetDeltaCallback(linkTo(group))

	insertLocal(t, tree, 0, "abc")

	require.Equal(t, 3, tree.GetLength(refSeq, localClientID))
	require.Equal(t, 1, group.Size())
	info, err := tree.GetContainingSegment(0, refSeq, localClientID)
	require.NoError(t, err)
	require.Len(t, info.Segment.TrackingCollection().TrackingGroups(), 1)
}

func TestSplitSegmentSplitsTrackingGroup(t *testing.T) {
	tree := newTree(t)
	group := mergetree.NewTrackingGroup()
	tree.SetDeltaCallback(linkTo(group))
	insertLocal(t, tree, 0, "abc")
	tree.SetDeltaCallback(nil)
	require.Equal(t, 1, group.Size())

	z := insertLocal(t, tree, 1, "z")

	require.Equal(t, 4, tree.GetLength(refSeq, localClientID))
	require.Equal(t, "azbc", tree.GetText(refSeq, localClientID))
	require.Equal(t, 2, group.Size())
	info, err := tree.GetContainingSegment(0, refSeq, localClientID)
	require.NoError(t, err)
	require.Len(t, info.Segment.TrackingCollection().TrackingGroups(), 1)
	// The inserted segment is untracked, the split-off remainder is tracked.
	require.True(t, z.TrackingCollection().Empty())
	info, err = tree.GetContainingSegment(2, refSeq, localClientID)
	require.NoError(t, err)
	require.Equal(t, 0, info.Offset)
	require.True(t, group.HasSegment(info.Segment))
	require.True(t, info.Segment.TrackingCollection().Has(group))
}

func TestSplitKeepsEveryGroup(t *testing.T) {
	tree := newTree(t)
	g1, g2 := mergetree.NewTrackingGroup(), mergetree.NewTrackingGroup()
	seg := insertLocal(t, tree, 0, "abcdef")
	g1.Link(seg)
	g2.Link(seg)

	insertLocal(t, tree, 2, "x")
	insertLocal(t, tree, 5, "y")

	require.Equal(t, "abxcdyef", tree.GetText(refSeq, localClientID))
	require.Equal(t, 3, g1.Size())
	require.Equal(t, 3, g2.Size())
	for _, member := range g1.Segments() {
		require.True(t, g2.HasSegment(member))
		require.Equal(t, 2, member.TrackingCollection().Len())
	}
}

func TestLinkIsIdempotent(t *testing.T) {
	tree := newTree(t)
	seg := insertLocal(t, tree, 0, "abc")
	group := mergetree.NewTrackingGroup()
	collection := seg.TrackingCollection()

	require.True(t, collection.Link(group))
	require.False(t, collection.Link(group))
	require.Equal(t, 1, collection.Len())
	require.Equal(t, 1, group.Size())

	other := mergetree.NewTrackingGroup()
	require.False(t, collection.Unlink(other))
	require.Equal(t, 1, collection.Len())
	require.Equal(t, 0, other.Size())

	require.True(t, collection.Unlink(group))
	require.False(t, collection.Unlink(group))
	require.True(t, collection.Empty())
	require.Equal(t, 0, group.Size())
}

func TestGroupUnlinkAll(t *testing.T) {
	tree := newTree(t)
	group := mergetree.NewTrackingGroup()
	tree.SetDeltaCallback(linkTo(group))
	insertLocal(t, tree, 0, "abc")
	insertLocal(t, tree, 1, "xyz")
	require.Equal(t, 3, group.Size())

	group.UnlinkAll()

	require.Equal(t, 0, group.Size())
	for _, seg := range tree.Segments() {
		require.True(t, seg.TrackingCollection().Empty(), "segment %v", seg)
	}
}

func TestPerspectiveLength(t *testing.T) {
	const otherClientID mergetree.ClientID = 1
	tree := newTree(t)
	insertLocal(t, tree, 0, "abc")

	// Only the author sees an unacknowledged insertion.
	require.Equal(t, 3, tree.GetLength(refSeq, localClientID))
	require.Equal(t, 0, tree.GetLength(refSeq, otherClientID))
	require.Equal(t, 0, tree.GetLength(mergetree.Seq(100), otherClientID))

	require.NoError(t, tree.AckPending(mergetree.Seq(1)))
	require.Equal(t, 0, tree.GetLength(mergetree.Seq(0), otherClientID))
	require.Equal(t, 3, tree.GetLength(mergetree.Seq(1), otherClientID))
	require.Equal(t, 3, tree.GetLength(mergetree.Seq(1), localClientID))
}

func TestClearedCallbackStopsTracking(t *testing.T) {
	tree := newTree(t)
	group := mergetree.NewTrackingGroup()
	tree.SetDeltaCallback(linkTo(group))
	insertLocal(t, tree, 0, "abc")
	tree.SetDeltaCallback(nil)

	seg := insertLocal(t, tree, 3, "xyz")
	marker := mergetree.NewMarkerSegment("pg")
	err := tree.InsertSegments(0, []*mergetree.Segment{marker}, refSeq, localClientID, mergetree.UnassignedSequenceNumber, nil)
	require.NoError(t, err)

	require.True(t, seg.TrackingCollection().Empty())
	require.True(t, marker.TrackingCollection().Empty())
	require.Equal(t, 1, group.Size())
}

func TestDeltaArgs(t *testing.T) {
	tree := newTree(t)
	insertLocal(t, tree, 0, "abc")
	var calls int
	var gotOp mergetree.Op
	var gotOperation mergetree.DeltaOperation
	var got []string
	tree.SetDeltaCallback(func(opArgs *mergetree.OpArgs, deltaArgs *mergetree.DeltaArgs) {
		calls++
		gotOp = opArgs.Op
		gotOperation = deltaArgs.Operation
		got = nil
		for _, sg := range deltaArgs.DeltaSegments {
			got = append(got, sg.Segment.Content().(mergetree.TextContent).String())
		}
	})

	segs := []*mergetree.Segment{mergetree.NewTextSegment("x"), mergetree.NewTextSegment("y")}
	err := tree.InsertSegments(1, segs, refSeq, localClientID, mergetree.UnassignedSequenceNumber, nil)
	require.NoError(t, err)

	require.Equal(t, 1, calls)
	require.Equal(t, mergetree.OpInsert, gotOperation)
	require.Equal(t, []string{"x", "y", "bc"}, got)
	require.Equal(t, mergetree.Op{
		Type:     mergetree.OpInsert,
		Pos1:     1,
		RefSeq:   refSeq,
		ClientID: localClientID,
		Seq:      mergetree.UnassignedSequenceNumber,
	}, gotOp)

	// Caller-provided op args are passed through.
	opArgs := &mergetree.OpArgs{Op: mergetree.Op{Type: mergetree.OpRemove, Pos1: 42}}
	err = tree.MarkRangeRemoved(0, 2, refSeq, localClientID, mergetree.UnassignedSequenceNumber, opArgs)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
	require.Equal(t, mergetree.OpRemove, gotOperation)
	require.Equal(t, 42, gotOp.Pos1)
	require.Equal(t, []string{"a", "x"}, got)
}

func TestReentrantMutationIsRejected(t *testing.T) {
	tree := newTree(t)
	insertLocal(t, tree, 0, "abc")
	var errs []error
	tree.SetDeltaCallback(func(opArgs *mergetree.OpArgs, deltaArgs *mergetree.DeltaArgs) {
		seg := mergetree.NewTextSegment("nested")
		errs = append(errs,
			tree.InsertSegments(0, []*mergetree.Segment{seg}, refSeq, localClientID, mergetree.UnassignedSequenceNumber, nil),
			tree.MarkRangeRemoved(0, 1, refSeq, localClientID, mergetree.UnassignedSequenceNumber, nil),
			tree.AckPending(mergetree.Seq(10)),
			tree.UpdateMinSeq(mergetree.Seq(0)))
	})

	insertLocal(t, tree, 3, "d")

	require.Len(t, errs, 4)
	for _, err := range errs {
		require.ErrorIs(t, err, mergetree.ErrReentrantMutation)
	}
	require.Equal(t, "abcd", tree.GetText(refSeq, localClientID))
	require.Equal(t, 2, tree.PendingCount())

	// Dispatch guard is released after the callback returns.
	tree.SetDeltaCallback(nil)
	insertLocal(t, tree, 0, "z")
	require.Equal(t, "zabcd", tree.GetText(refSeq, localClientID))
}
