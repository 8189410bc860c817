/*
Package mergetree provides the segment and tracking core of a collaborative sequence.

A merge tree is an ordered collection of segments, runs of content stamped with the
sequence number and client of the operation that inserted them. Clients insert and
remove content concurrently; each query is answered from a perspective, the pair of a
reference sequence number and a client, that decides which stamps are visible:

  # BEGIN ASCII ART

  segments:   [ "ab" seq#1 c0 ] [ "XY" unassigned c1 ] [ "cd" seq#3 c0, removed seq#4 c2 ]

  (seq#2, c0) sees "ab"            -- "XY" is pending on c1, "cd" not inserted yet
  (seq#3, c1) sees "abXYcd"        -- c1 sees its own pending edit
  (seq#4, c0) sees "ab"            -- the removal of "cd" is visible at seq#4

  # END ASCII ART

Tracking groups are external references to spans of content. When an insertion lands
inside a tracked segment, the segment is split and both halves stay linked to every
group of the original, so a reference never loses content to a rewrite of the
sequence.

Mutations are reported to a single delta callback, synchronously, which is where
applications link new segments to their groups.

A MergeTree is not safe for concurrent use: callers serialize calls to an instance, and
concurrent clients are modeled by perspectives, not goroutines.
*/
package mergetree

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
)

// MergeTree is an ordered collection of segments edited by collaborating clients.
type MergeTree struct {
	// segments is the document order, including removed segments not yet collected.
	segments []*Segment

	// Collaboration window.
	localClientID ClientID
	minSeq        SeqNum
	currentSeq    SeqNum
	collaborating bool

	deltaCallback DeltaCallback
	dispatching   bool

	// pending is the FIFO of unacknowledged local ops.
	pending []*pendingGroup

	logger *slog.Logger
}

// Option configures a MergeTree.
type Option func(*MergeTree)

// WithLogger sets the logger for collaboration events. By default nothing is logged.
func WithLogger(logger *slog.Logger) Option {
	return func(t *MergeTree) {
		t.logger = logger
	}
}

// NewMergeTree creates an empty tree. Call StartCollaboration before mutating it.
func NewMergeTree(opts ...Option) *MergeTree {
	t := &MergeTree{
		localClientID: NonCollabClient,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// StartCollaboration sets up the collaboration window for the local client.
// It must be called exactly once, before any mutation.
func (t *MergeTree) StartCollaboration(localClientID ClientID, minSeq, currentSeq SeqNum) error {
	if t.collaborating {
		return ErrAlreadyCollaborating
	}
	if !minSeq.IsAssigned() || !currentSeq.IsAssigned() || currentSeq.Before(minSeq) {
		return fmt.Errorf("window [%v, %v]: %w", minSeq, currentSeq, ErrInvalidSeq)
	}
	t.localClientID = localClientID
	t.minSeq = minSeq
	t.currentSeq = currentSeq
	t.collaborating = true
	t.logger.Debug("collaboration started",
		"client", localClientID, "minSeq", minSeq, "currentSeq", currentSeq)
	return nil
}

// LocalClientID returns the client set by StartCollaboration.
func (t *MergeTree) LocalClientID() ClientID { return t.localClientID }

// MinSeq returns the lower end of the collaboration window.
func (t *MergeTree) MinSeq() SeqNum { return t.minSeq }

// CurrentSeq returns the latest sequence number applied to the tree.
func (t *MergeTree) CurrentSeq() SeqNum { return t.currentSeq }

// Collaborating returns whether StartCollaboration was called.
func (t *MergeTree) Collaborating() bool { return t.collaborating }

// Segments returns a copy of the segments in document order, including removed segments
// that weren't collected yet.
func (t *MergeTree) Segments() []*Segment {
	return slices.Clone(t.segments)
}

// +---------+
// | Queries |
// +---------+

// SegmentInfo locates a position within a segment.
type SegmentInfo struct {
	Segment *Segment
	// Offset is the position relative to the start of the segment.
	Offset int
}

// GetLength returns the length of the sequence from the perspective of clientID at
// refSeq.
//
// Time complexity: O(segments)
func (t *MergeTree) GetLength(refSeq SeqNum, clientID ClientID) int {
	var n int
	for _, seg := range t.segments {
		n += seg.visibleLen(refSeq, clientID)
	}
	return n
}

// GetContainingSegment returns the segment holding position pos, from the perspective of
// clientID at refSeq.
//
// Time complexity: O(segments)
func (t *MergeTree) GetContainingSegment(pos int, refSeq SeqNum, clientID ClientID) (SegmentInfo, error) {
	if pos < 0 {
		return SegmentInfo{}, fmt.Errorf("segment at %d: %w", pos, ErrOutOfRange)
	}
	remaining := pos
	for _, seg := range t.segments {
		n := seg.visibleLen(refSeq, clientID)
		if remaining < n {
			return SegmentInfo{Segment: seg, Offset: remaining}, nil
		}
		remaining -= n
	}
	return SegmentInfo{}, fmt.Errorf("segment at %d, length %d: %w", pos, pos-remaining, ErrOutOfRange)
}

// GetPosition returns the position where seg starts, from the perspective of clientID at
// refSeq. A segment that isn't visible starts where its visible successor would.
//
// Time complexity: O(segments)
func (t *MergeTree) GetPosition(seg *Segment, refSeq SeqNum, clientID ClientID) (int, error) {
	if seg == nil || seg.tree != t {
		return 0, ErrSegmentNotFound
	}
	var pos int
	for _, other := range t.segments {
		if other == seg {
			return pos, nil
		}
		pos += other.visibleLen(refSeq, clientID)
	}
	return 0, ErrSegmentNotFound
}

// GetText returns the visible text from the perspective of clientID at refSeq.
// Non-text content, like markers, is skipped.
func (t *MergeTree) GetText(refSeq SeqNum, clientID ClientID) string {
	var sb strings.Builder
	for _, seg := range t.segments {
		if seg.visibleLen(refSeq, clientID) > 0 {
			sb.WriteString(contentText(seg.content))
		}
	}
	return sb.String()
}

// +-------------------+
// | Mutations - Utils |
// +-------------------+

// Checks that the tree accepts a mutation from clientID stamped with seq. Sequenced ops
// must come after every op already applied.
func (t *MergeTree) checkMutation(clientID ClientID, seq SeqNum) error {
	if t.dispatching {
		return ErrReentrantMutation
	}
	if !t.collaborating {
		return ErrNotCollaborating
	}
	if !seq.IsAssigned() && clientID != t.localClientID {
		return fmt.Errorf("unassigned op from remote %v: %w", clientID, ErrInvalidSeq)
	}
	if seq.IsAssigned() && !t.currentSeq.Before(seq) {
		return fmt.Errorf("op at %v, current %v: %w", seq, t.currentSeq, ErrInvalidSeq)
	}
	return nil
}

// Checks that segments are fresh, non-empty and distinct. Segments collected from a tree
// are not fresh.
func checkNewSegments(segments []*Segment) error {
	if len(segments) == 0 {
		return fmt.Errorf("no segments to insert: %w", ErrEmptySegment)
	}
	seen := make(map[*Segment]bool, len(segments))
	for i, seg := range segments {
		if seg == nil || seg.Len() == 0 {
			return fmt.Errorf("segment #%d: %w", i, ErrEmptySegment)
		}
		if seg.tree != nil || seg.removed || seen[seg] {
			return fmt.Errorf("segment #%d %v: %w", i, seg, ErrSegmentInUse)
		}
		seen[seg] = true
	}
	return nil
}

// Inserts segs at index i of the document order.
//
// Time complexity: O(segments)
func (t *MergeTree) insertAt(i int, segs ...*Segment) {
	t.segments = slices.Insert(t.segments, i, segs...)
}

// Advances the current sequence number to seq, if it's newer.
func (t *MergeTree) advanceSeq(seq SeqNum) {
	if t.currentSeq.Before(seq) {
		t.currentSeq = seq
	}
}

// Finds where content inserted at pos goes, returning the index of the first segment
// after the insertion point, and the offset within it if pos falls strictly inside it.
//
// Zero-length segments at the insertion point are skipped when they are older than the
// op stamped with seq, so the new content goes after them, and kept to the right otherwise.
//
//                  pos
//                   v
// Segments:   [ ab ][ ][ ][ cd ]    a zero-length segment newer than seq
//                      ^            is the returned index.
//
// Time complexity: O(segments)
func (t *MergeTree) findInsertIndex(pos int, refSeq SeqNum, clientID ClientID, seq SeqNum) (int, int) {
	remaining := pos
	for i, seg := range t.segments {
		n := seg.visibleLen(refSeq, clientID)
		if remaining < n {
			return i, remaining
		}
		if remaining == 0 && seg.newerThan(seq) {
			return i, 0
		}
		remaining -= n
	}
	return len(t.segments), 0
}

// Ensures a segment boundary at pos, splitting the segment around it if needed, and
// returns the index of the first segment after the boundary.
//
// Time complexity: O(segments)
func (t *MergeTree) splitAt(pos int, refSeq SeqNum, clientID ClientID) int {
	remaining := pos
	for i, seg := range t.segments {
		if remaining == 0 {
			return i
		}
		n := seg.visibleLen(refSeq, clientID)
		if remaining < n {
			t.insertAt(i+1, seg.split(remaining))
			return i + 1
		}
		remaining -= n
	}
	return len(t.segments)
}

// +--------------------+
// | Mutations - Insert |
// +--------------------+

// InsertSegments inserts segments at pos, as seen by clientID at refSeq, stamping them
// with seq. Local edits use UnassignedSequenceNumber and are acknowledged later with
// AckPending.
//
// If pos falls inside a segment, the segment is split, and the split-off remainder is
// linked to all tracking groups of the original. The delta callback is then invoked once
// with the inserted segments followed by the remainder, if any.
//
// On error the tree is left unchanged.
//
// Time complexity: O(segments + inserted segments)
func (t *MergeTree) InsertSegments(pos int, segments []*Segment, refSeq SeqNum, clientID ClientID, seq SeqNum, opArgs *OpArgs) error {
	if err := t.checkMutation(clientID, seq); err != nil {
		return err
	}
	if err := checkNewSegments(segments); err != nil {
		return err
	}
	if length := t.GetLength(refSeq, clientID); pos < 0 || pos > length {
		return fmt.Errorf("insert at %d, length %d: %w", pos, length, ErrOutOfRange)
	}
	i, offset := t.findInsertIndex(pos, refSeq, clientID, seq)
	var rest *Segment
	if offset > 0 {
		rest = t.segments[i].split(offset)
		i++
		t.insertAt(i, rest)
	}
	for _, seg := range segments {
		seg.seq = seq
		seg.clientID = clientID
		seg.tree = t
	}
	t.insertAt(i, segments...)
	if seq.IsAssigned() {
		t.advanceSeq(seq)
	} else {
		t.addPending(OpInsert, segments)
	}

	delta := slices.Clone(segments)
	if rest != nil {
		delta = append(delta, rest)
	}
	t.dispatchDelta(resolveOpArgs(opArgs, Op{
		Type:     OpInsert,
		Pos1:     pos,
		RefSeq:   refSeq,
		ClientID: clientID,
		Seq:      seq,
	}), OpInsert, delta)
	return nil
}

// +--------------------+
// | Mutations - Remove |
// +--------------------+

// MarkRangeRemoved removes the content in [start, end), as seen by clientID at refSeq,
// stamping the removal with seq.
//
// Segments are split at both ends of the range, and the removed segments stay in the
// tree until the minimum sequence number passes their removal. Segments already removed
// keep their first removal stamp, except that a sequenced removal takes precedence over a
// pending local one. The delta callback is invoked once with the newly removed segments.
//
// On error the tree is left unchanged.
//
// Time complexity: O(segments)
func (t *MergeTree) MarkRangeRemoved(start, end int, refSeq SeqNum, clientID ClientID, seq SeqNum, opArgs *OpArgs) error {
	if err := t.checkMutation(clientID, seq); err != nil {
		return err
	}
	if length := t.GetLength(refSeq, clientID); start < 0 || end > length || start >= end {
		return fmt.Errorf("remove [%d, %d), length %d: %w", start, end, length, ErrOutOfRange)
	}
	first := t.splitAt(start, refSeq, clientID)
	last := t.splitAt(end, refSeq, clientID)
	var removed []*Segment
	for _, seg := range t.segments[first:last] {
		if seg.visibleLen(refSeq, clientID) == 0 {
			continue
		}
		if seg.removed {
			// Removed concurrently by another client. The remover is recorded either way.
			if !seg.removedSeq.IsAssigned() && seq.IsAssigned() {
				seg.removedSeq = seq
				seg.removedClientIDs = slices.Insert(seg.removedClientIDs, 0, clientID)
			} else if !slices.Contains(seg.removedClientIDs, clientID) {
				seg.removedClientIDs = append(seg.removedClientIDs, clientID)
			}
			continue
		}
		seg.removed = true
		seg.removedSeq = seq
		seg.removedClientIDs = []ClientID{clientID}
		removed = append(removed, seg)
	}
	if seq.IsAssigned() {
		t.advanceSeq(seq)
	} else {
		t.addPending(OpRemove, removed)
	}

	t.dispatchDelta(resolveOpArgs(opArgs, Op{
		Type:     OpRemove,
		Pos1:     start,
		Pos2:     end,
		RefSeq:   refSeq,
		ClientID: clientID,
		Seq:      seq,
	}), OpRemove, removed)
	return nil
}
