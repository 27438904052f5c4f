package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestRecordWithoutNATS(t *testing.T) {
	trail := New(nil, Config{}, zaptest.NewLogger(t))

	trail.Record(Event{
		EventType: EventAIRequest,
		UserID:    "user-1",
		Operation: "rephrase",
		Outcome:   "ok",
	})
	trail.Close()
}

func TestRecordFillsDefaults(t *testing.T) {
	trail := &Trail{
		subject: "caredraft.audit",
		logger:  zaptest.NewLogger(t),
		events:  make(chan Event, 1), // no worker; inspect the queued copy
		done:    make(chan struct{}),
	}

	before := time.Now().UTC()
	trail.Record(Event{EventType: EventDataWrite, Operation: "proposals.create", Outcome: "ok"})

	queued := <-trail.events
	assert.NotEmpty(t, queued.ID)
	assert.False(t, queued.Timestamp.Before(before.Add(-time.Second)))
	assert.Equal(t, EventDataWrite, queued.EventType)
}

func TestFullBufferDoesNotBlock(t *testing.T) {
	trail := &Trail{
		subject: "caredraft.audit",
		logger:  zaptest.NewLogger(t),
		events:  make(chan Event, 1), // no worker draining
		done:    make(chan struct{}),
	}

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			trail.Record(Event{EventType: EventRateLimit, Operation: "brainstorm", Outcome: "denied"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record blocked on a full buffer")
	}
}
