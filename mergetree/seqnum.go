package mergetree

import (
	"fmt"
)

// SeqNum is a sequence number assigned by the ordering authority to an operation.
//
// A SeqNum is either assigned, holding a position in the total order of operations, or
// unassigned, marking a local edit that wasn't acknowledged yet. The zero value is
// UnassignedSequenceNumber.
type SeqNum struct {
	n        uint64
	assigned bool
}

var (
	// UnassignedSequenceNumber marks a local operation pending acknowledgement.
	UnassignedSequenceNumber = SeqNum{}
	// UniversalSequenceNumber marks content that is visible to every client, like content
	// loaded before collaboration started.
	UniversalSequenceNumber = Seq(0)
)

// Seq returns the assigned sequence number n.
func Seq(n uint64) SeqNum {
	return SeqNum{n: n, assigned: true}
}

// IsAssigned returns whether the number was assigned by the ordering authority.
func (s SeqNum) IsAssigned() bool {
	return s.assigned
}

// Value returns the numeric value, and whether it's assigned.
func (s SeqNum) Value() (uint64, bool) {
	return s.n, s.assigned
}

func (s SeqNum) String() string {
	if !s.assigned {
		return "unassigned"
	}
	return fmt.Sprintf("seq#%d", s.n)
}

// SeenBy returns whether an operation stamped with s, authored by author, is visible from
// the perspective of clientID at reference sequence refSeq.
//
// An unassigned number is only ever seen by its author. An unassigned refSeq sees no
// assigned number other than UniversalSequenceNumber.
func (s SeqNum) SeenBy(refSeq SeqNum, clientID, author ClientID) bool {
	if author == clientID {
		return true
	}
	if !s.assigned {
		return false
	}
	if !refSeq.assigned {
		return s.n == 0
	}
	return s.n <= refSeq.n
}

// Before returns whether s is ordered strictly before other.
//
// Assigned numbers compare by value, and an unassigned number comes after every assigned
// one, since it will be sequenced after everything the authority has already ordered.
// Two unassigned numbers are never before each other.
func (s SeqNum) Before(other SeqNum) bool {
	switch {
	case !s.assigned:
		return false
	case !other.assigned:
		return true
	default:
		return s.n < other.n
	}
}
