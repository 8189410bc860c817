package main

import (
	"encoding/json"
	"io"
	"log/slog"
)

type debugMsgType int

const (
	writeDebug debugMsgType = iota
	syncDebug
)

type debugMessage struct {
	msgType debugMsgType
	payload interface{}
}

type syncer interface {
	Sync() error
}

// debugWriter writes JSONL debug records from a background goroutine, so that replay
// steps don't block on disk.
type debugWriter struct {
	msgs chan<- debugMessage
	done <-chan struct{}
}

func runDebug(w io.WriteCloser, logger *slog.Logger) *debugWriter {
	msgs := make(chan debugMessage, 10)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer w.Close()
		enc := json.NewEncoder(w)
		for msg := range msgs {
			switch msg.msgType {
			case writeDebug:
				if err := enc.Encode(msg.payload); err != nil {
					logger.Warn("writing to debug file", "err", err)
				}
			case syncDebug:
				if f, ok := w.(syncer); ok {
					f.Sync()
				}
			}
		}
	}()
	return &debugWriter{msgs: msgs, done: done}
}

// Write enqueues a record. A nil writer discards it.
func (d *debugWriter) Write(x interface{}) {
	if d != nil {
		d.msgs <- debugMessage{msgType: writeDebug, payload: x}
	}
}

// Sync asks for the records written so far to be flushed to disk.
func (d *debugWriter) Sync() {
	if d != nil {
		d.msgs <- debugMessage{msgType: syncDebug}
	}
}

// Close flushes pending records and closes the underlying writer.
func (d *debugWriter) Close() {
	if d == nil {
		return
	}
	close(d.msgs)
	<-d.done
}
