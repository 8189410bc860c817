package mergetree

import (
	"errors"
)

// Errors returned by MergeTree operations.
//
// Operations wrap them with positional context, so check them with errors.Is.
var (
	ErrOutOfRange           = errors.New("position out of range")
	ErrNotCollaborating     = errors.New("collaboration not started")
	ErrAlreadyCollaborating = errors.New("collaboration already started")
	ErrReentrantMutation    = errors.New("mutation from within a delta callback")
	ErrInvalidSeq           = errors.New("invalid sequence number")
	ErrNoPendingOps         = errors.New("no pending local operation to acknowledge")
	ErrSegmentInUse         = errors.New("segment already belongs to a tree")
	ErrEmptySegment         = errors.New("can't insert empty segment")
	ErrSegmentNotFound      = errors.New("segment not found in tree")
)
