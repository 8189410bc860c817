package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/brunokim/merge-tree/diff"
	"github.com/brunokim/merge-tree/mergetree"
	"github.com/google/uuid"
)

type request struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
	Text string `json:"text,omitempty"`
}

// frontend is a collaborating client, seeing the tree at refSeq.
type frontend struct {
	name   string
	longID uuid.UUID
	client mergetree.ClientID
	refSeq mergetree.SeqNum
	// authored tracks every segment inserted by this frontend.
	authored *mergetree.Group
}

// -----

type state struct {
	sync.Mutex

	logger *slog.Logger
	debug  *debugWriter

	tree      *mergetree.MergeTree
	clients   mergetree.ClientTable
	local     *frontend
	frontends map[string]*frontend
	byClient  map[mergetree.ClientID]*frontend
	// Frontend names in order of arrival.
	names []string

	numRequests int
}

func newState(localName string, logger *slog.Logger, debug *debugWriter) (*state, error) {
	s := &state{
		logger:    logger,
		debug:     debug,
		tree:      mergetree.NewMergeTree(mergetree.WithLogger(logger)),
		frontends: make(map[string]*frontend),
		byClient:  make(map[mergetree.ClientID]*frontend),
	}
	s.local = s.frontend(localName)
	if err := s.tree.StartCollaboration(s.local.client, mergetree.Seq(0), mergetree.Seq(0)); err != nil {
		return nil, err
	}
	s.local.refSeq = s.tree.CurrentSeq()
	s.tree.SetDeltaCallback(s.trackInsertions)
	return s, nil
}

// Stable long ID of a frontend name.
func frontendUUID(name string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("mergetree-demo:"+name))
}

// Returns the frontend with a name, registering it at the current seq if it's new.
func (s *state) frontend(name string) *frontend {
	if f, ok := s.frontends[name]; ok {
		return f
	}
	id := frontendUUID(name)
	f := &frontend{
		name:     name,
		longID:   id,
		client:   s.clients.Add(id),
		refSeq:   s.tree.CurrentSeq(),
		authored: mergetree.NewTrackingGroup(),
	}
	s.frontends[name] = f
	s.byClient[f.client] = f
	s.names = append(s.names, name)
	s.logger.Info("frontend joined", "frontend", name, "id", id, "client", f.client, "refSeq", f.refSeq)
	return f
}

func (s *state) trackInsertions(opArgs *mergetree.OpArgs, deltaArgs *mergetree.DeltaArgs) {
	if deltaArgs.Operation != mergetree.OpInsert {
		return
	}
	f, ok := s.byClient[opArgs.Op.ClientID]
	if !ok {
		return
	}
	for _, sg := range deltaArgs.DeltaSegments {
		// The remainder of a split segment is already linked to its author's group.
		if sg.Segment.ClientID() == f.client {
			sg.Segment.TrackingCollection().Link(f.authored)
		}
	}
}

// Returns the perspective of a frontend. The local frontend receives every sequenced op
// as soon as it's ordered.
func (s *state) perspective(f *frontend) mergetree.SeqNum {
	if f == s.local {
		return s.tree.CurrentSeq()
	}
	return f.refSeq
}

func (s *state) nextSeq() mergetree.SeqNum {
	n, _ := s.tree.CurrentSeq().Value()
	return mergetree.Seq(n + 1)
}

// -----

func (s *state) replay(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	var lineno int
	for scanner.Scan() {
		lineno++
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		req := &request{}
		if err := json.Unmarshal(line, req); err != nil {
			return fmt.Errorf("line %d: parsing request: %w", lineno, err)
		}
		if err := s.handle(req); err != nil {
			return fmt.Errorf("line %d: %w", lineno, err)
		}
	}
	return scanner.Err()
}

func (s *state) handle(req *request) error {
	s.Lock()
	defer s.Unlock()
	s.debug.Write(map[string]interface{}{
		"Type":    req.Type,
		"Request": req,
	})
	defer s.debug.Sync()
	defer func() { s.numRequests++ }()

	switch req.Type {
	case "edit":
		return s.handleEdit(req)
	case "sync":
		return s.handleSync(req)
	case "ack":
		return s.handleAck()
	}
	return fmt.Errorf("unknown request type %q", req.Type)
}

func (s *state) handleEdit(req *request) error {
	if req.ID == "" {
		return fmt.Errorf("edit without frontend id")
	}
	f := s.frontend(req.ID)
	refSeq := s.perspective(f)
	before := s.tree.GetText(refSeq, f.client)
	edits, err := diff.Edits(before, req.Text)
	if err != nil {
		return err
	}
	for i, e := range edits {
		seq := mergetree.UnassignedSequenceNumber
		if f != s.local {
			seq = s.nextSeq()
		}
		switch e.Op {
		case diff.Insert:
			seg := mergetree.NewTextSegment(e.Text)
			err = s.tree.InsertSegments(e.Pos, []*mergetree.Segment{seg}, refSeq, f.client, seq, nil)
		case diff.Delete:
			err = s.tree.MarkRangeRemoved(e.Pos, e.Pos+e.Len(), refSeq, f.client, seq, nil)
		}
		if err != nil {
			return fmt.Errorf("%s: %v: %w", f.name, e, err)
		}
		s.logger.Debug("applied edit", "frontend", f.name, "edit", e.String(), "seq", seq)
		s.debug.Write(map[string]interface{}{
			"Type":     "editStep",
			"ReqIdx":   s.numRequests,
			"StepIdx":  i,
			"Edit":     e.String(),
			"Seq":      seq.String(),
			"Segments": s.tree.Snapshot(),
		})
	}
	after := s.tree.GetText(refSeq, f.client)
	if after != req.Text {
		return fmt.Errorf("%s: text diverged: got %q, want %q", f.name, after, req.Text)
	}
	s.logger.Info("edit", "frontend", f.name, "edits", len(edits), "text", after)
	return nil
}

func (s *state) handleSync(req *request) error {
	if req.ID == "" {
		return fmt.Errorf("sync without frontend id")
	}
	f := s.frontend(req.ID)
	f.refSeq = s.tree.CurrentSeq()
	s.logger.Info("sync", "frontend", f.name, "refSeq", f.refSeq, "text", s.text(f.name))
	return s.updateMinSeq()
}

// Sequences every pending op of the local frontend.
func (s *state) handleAck() error {
	var acked int
	for s.tree.PendingCount() > 0 {
		if err := s.tree.AckPending(s.nextSeq()); err != nil {
			return err
		}
		acked++
	}
	s.logger.Info("ack", "frontend", s.local.name, "acked", acked, "currentSeq", s.tree.CurrentSeq())
	return s.updateMinSeq()
}

// Moves the collaboration window to the oldest perspective among frontends.
func (s *state) updateMinSeq() error {
	minSeq := s.tree.CurrentSeq()
	for _, f := range s.frontends {
		if refSeq := s.perspective(f); refSeq.Before(minSeq) {
			minSeq = refSeq
		}
	}
	if !s.tree.MinSeq().Before(minSeq) {
		return nil
	}
	s.debug.Write(map[string]interface{}{
		"Type":   "minSeq",
		"ReqIdx": s.numRequests,
		"MinSeq": minSeq.String(),
	})
	return s.tree.UpdateMinSeq(minSeq)
}

// -----

// Returns the text seen by a frontend.
func (s *state) text(name string) string {
	f, ok := s.frontends[name]
	if !ok {
		return ""
	}
	return s.tree.GetText(s.perspective(f), f.client)
}

func (s *state) summary() []string {
	s.Lock()
	defer s.Unlock()
	lines := make([]string, len(s.names))
	for i, name := range s.names {
		f := s.frontends[name]
		lines[i] = fmt.Sprintf("%s @ %v: %q (%d authored segments)", name, s.perspective(f), s.text(name), f.authored.Size())
	}
	return lines
}

func (s *state) dump() string {
	s.Lock()
	defer s.Unlock()
	return s.tree.Dump()
}
