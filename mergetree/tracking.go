package mergetree

import (
	mapset "github.com/deckarep/golang-set/v2"
)

// TrackingGroup is an externally owned set of segments, representing a logical reference
// to content (an annotation anchor, a selection, the text authored by someone).
//
// Trees never inspect a group: they only link and unlink it through a segment's
// TrackingCollection, which calls AddSegment and RemoveSegment to keep membership mutual.
// Applications should do the same instead of calling these methods directly.
type TrackingGroup interface {
	// AddSegment records seg as a member, returning whether it wasn't one yet.
	AddSegment(seg *Segment) bool
	// RemoveSegment forgets seg, returning whether it was a member.
	RemoveSegment(seg *Segment) bool
	// HasSegment returns whether seg is a member.
	HasSegment(seg *Segment) bool
	// Size returns the number of member segments.
	Size() int
}

// +---------------------+
// | Tracking collection |
// +---------------------+

// TrackingCollection is the registry of tracking groups linked to a segment.
//
// Membership is mutual: a group is in the collection of a segment iff the segment is in
// the group.
type TrackingCollection struct {
	segment *Segment
	// groups is allocated on first link, since most segments are never tracked.
	groups mapset.Set[TrackingGroup]
}

func newTrackingCollection(seg *Segment) *TrackingCollection {
	return &TrackingCollection{segment: seg}
}

// Segment returns the segment owning this collection.
func (c *TrackingCollection) Segment() *Segment {
	return c.segment
}

// Link adds the segment to group, and group to the collection. Linking a group twice is
// a no-op; Link returns whether anything changed.
func (c *TrackingCollection) Link(group TrackingGroup) bool {
	if c.groups == nil {
		c.groups = mapset.NewThreadUnsafeSet[TrackingGroup]()
	}
	if !c.groups.Add(group) {
		return false
	}
	group.AddSegment(c.segment)
	return true
}

// Unlink removes the segment from group, and group from the collection. Unlinking a group
// that isn't linked is a no-op; Unlink returns whether anything changed.
func (c *TrackingCollection) Unlink(group TrackingGroup) bool {
	if c.groups == nil || !c.groups.Contains(group) {
		return false
	}
	c.groups.Remove(group)
	group.RemoveSegment(c.segment)
	return true
}

// UnlinkAll unlinks every group from the segment.
func (c *TrackingCollection) UnlinkAll() {
	for _, group := range c.TrackingGroups() {
		c.Unlink(group)
	}
}

// Has returns whether group is linked.
func (c *TrackingCollection) Has(group TrackingGroup) bool {
	return c.groups != nil && c.groups.Contains(group)
}

// Empty returns whether no group is linked.
//
// Time complexity: O(1)
func (c *TrackingCollection) Empty() bool {
	return c.Len() == 0
}

// Len returns the number of linked groups.
func (c *TrackingCollection) Len() int {
	if c.groups == nil {
		return 0
	}
	return c.groups.Cardinality()
}

// TrackingGroups returns a copy of the linked groups, in no particular order.
func (c *TrackingCollection) TrackingGroups() []TrackingGroup {
	if c.groups == nil {
		return nil
	}
	return c.groups.ToSlice()
}

// Links every group of this collection to dst.
func (c *TrackingCollection) copyTo(dst *TrackingCollection) {
	if c.groups == nil {
		return
	}
	c.groups.Each(func(group TrackingGroup) bool {
		dst.Link(group)
		return false
	})
}

// +-------+
// | Group |
// +-------+

// Group is the default TrackingGroup, a plain set of segments.
type Group struct {
	segments mapset.Set[*Segment]
}

// NewTrackingGroup creates an empty group.
func NewTrackingGroup() *Group {
	return &Group{segments: mapset.NewThreadUnsafeSet[*Segment]()}
}

// AddSegment adds seg to the group. Use Link to keep membership mutual.
func (g *Group) AddSegment(seg *Segment) bool {
	return g.segments.Add(seg)
}

// RemoveSegment removes seg from the group. Use Unlink to keep membership mutual.
func (g *Group) RemoveSegment(seg *Segment) bool {
	if !g.segments.Contains(seg) {
		return false
	}
	g.segments.Remove(seg)
	return true
}

// HasSegment returns whether seg is a member.
func (g *Group) HasSegment(seg *Segment) bool {
	return g.segments.Contains(seg)
}

// Size returns the number of member segments.
func (g *Group) Size() int {
	return g.segments.Cardinality()
}

// Segments returns a copy of the member segments, in no particular order.
func (g *Group) Segments() []*Segment {
	return g.segments.ToSlice()
}

// Link links the group to seg.
func (g *Group) Link(seg *Segment) bool {
	return seg.TrackingCollection().Link(g)
}

// Unlink unlinks the group from seg.
func (g *Group) Unlink(seg *Segment) bool {
	return seg.TrackingCollection().Unlink(g)
}

// UnlinkAll unlinks the group from all of its segments, leaving it empty.
func (g *Group) UnlinkAll() {
	for _, seg := range g.Segments() {
		g.Unlink(seg)
	}
}
