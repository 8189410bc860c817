package mergetree

import (
	"fmt"
	"slices"
)

// Segment is a contiguous run of content in a merge tree, stamped with its authorship.
//
// A segment's length only changes by splitting, which trims the segment and moves the
// remainder into a new segment. Segments belong to at most one tree.
type Segment struct {
	content Content

	// seq is the sequence number of the insertion, and clientID its author.
	seq      SeqNum
	clientID ClientID

	// removedSeq stamps the removal of this segment, if any. removedClientIDs lists every
	// client that removed it, starting with the author of the stamp.
	removed          bool
	removedSeq       SeqNum
	removedClientIDs []ClientID

	tracking *TrackingCollection
	tree     *MergeTree
	// pending lists the unacknowledged local ops that touched this segment.
	pending []*pendingGroup
}

// NewSegment creates a detached segment holding content.
func NewSegment(content Content) *Segment {
	s := &Segment{
		content: content,
		seq:     UnassignedSequenceNumber,
	}
	s.tracking = newTrackingCollection(s)
	return s
}

// NewTextSegment creates a detached segment holding text.
func NewTextSegment(text string) *Segment {
	return NewSegment(Text(text))
}

// NewMarkerSegment creates a detached single-position marker.
func NewMarkerSegment(refType string) *Segment {
	return NewSegment(Marker(refType))
}

// Content returns the segment's payload.
func (s *Segment) Content() Content { return s.content }

// Len returns the segment's length, regardless of visibility.
func (s *Segment) Len() int {
	if s.content == nil {
		return 0
	}
	return s.content.Len()
}

// Seq returns the sequence number at which the segment was inserted.
func (s *Segment) Seq() SeqNum { return s.seq }

// ClientID returns the client that inserted the segment.
func (s *Segment) ClientID() ClientID { return s.clientID }

// RemovedSeq returns the sequence number and client of the segment's removal, and
// whether it was removed at all.
func (s *Segment) RemovedSeq() (SeqNum, ClientID, bool) {
	return s.removedSeq, s.removedClientID(), s.removed
}

// RemovedClientIDs returns every client that removed the segment, starting with the
// author of its removal stamp.
func (s *Segment) RemovedClientIDs() []ClientID {
	return slices.Clone(s.removedClientIDs)
}

// Returns the author of the removal stamp.
func (s *Segment) removedClientID() ClientID {
	if len(s.removedClientIDs) == 0 {
		return NonCollabClient
	}
	return s.removedClientIDs[0]
}

// IsRemoved returns whether any client removed the segment.
func (s *Segment) IsRemoved() bool { return s.removed }

// InTree returns whether the segment currently belongs to a tree.
func (s *Segment) InTree() bool { return s.tree != nil }

// TrackingCollection returns the registry of tracking groups linked to this segment.
func (s *Segment) TrackingCollection() *TrackingCollection {
	if s.tracking == nil {
		s.tracking = newTrackingCollection(s)
	}
	return s.tracking
}

func (s *Segment) String() string {
	var removed string
	if s.removed {
		removed = fmt.Sprintf(",removed@%v/%v", s.removedSeq, s.removedClientIDs)
	}
	return fmt.Sprintf("Segment(%q,%v,%v%s)", contentString(s.content), s.seq, s.clientID, removed)
}

// +------------+
// | Visibility |
// +------------+

// Returns whether the insertion of this segment is seen from a perspective.
func (s *Segment) insertSeen(refSeq SeqNum, clientID ClientID) bool {
	return s.seq.SeenBy(refSeq, clientID, s.clientID)
}

// Returns whether the removal of this segment is seen from a perspective. A client
// always sees its own removal, even if another client's removal was stamped instead.
func (s *Segment) removalSeen(refSeq SeqNum, clientID ClientID) bool {
	if !s.removed {
		return false
	}
	if slices.Contains(s.removedClientIDs, clientID) {
		return true
	}
	return s.removedSeq.SeenBy(refSeq, clientID, s.removedClientID())
}

// Returns the length the segment contributes to the sequence from a perspective.
func (s *Segment) visibleLen(refSeq SeqNum, clientID ClientID) int {
	if !s.insertSeen(refSeq, clientID) || s.removalSeen(refSeq, clientID) {
		return 0
	}
	return s.Len()
}

// Returns whether this segment is sequenced after an operation stamped with seq.
//
// Used to break ties among zero-length segments at an insertion boundary: content
// from later operations stays to the right of the new content.
func (s *Segment) newerThan(seq SeqNum) bool {
	return seq.IsAssigned() && seq.Before(s.seq)
}

// +-------+
// | Split |
// +-------+

// Splits the segment at offset, with 0 < offset < Len(). The receiver keeps the content
// before offset and its identity; the returned segment holds the content after it.
//
// The new segment copies the authorship and removal stamps, joins every pending op of
// the original and is linked to every tracking group of the original.
//
// Time complexity: O(groups + pending ops)
func (s *Segment) split(offset int) *Segment {
	left, right := s.content.Split(offset)
	s.content = left
	rest := &Segment{
		content:          right,
		seq:              s.seq,
		clientID:         s.clientID,
		removed:          s.removed,
		removedSeq:       s.removedSeq,
		removedClientIDs: slices.Clone(s.removedClientIDs),
		tree:             s.tree,
	}
	rest.tracking = newTrackingCollection(rest)
	for _, group := range s.pending {
		group.add(rest)
	}
	s.TrackingCollection().copyTo(rest.tracking)
	return rest
}
