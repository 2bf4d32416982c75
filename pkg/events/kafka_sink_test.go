package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/carelink/internal/notify"
)

type fakeWriter struct {
	mu      sync.Mutex
	msgs    []kafka.Message
	block   chan struct{}
	closed  bool
	failErr error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.block != nil {
		<-w.block
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failErr != nil {
		return w.failErr
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *fakeWriter) written() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]kafka.Message(nil), w.msgs...)
}

func TestKafkaSink_DrainsOnShutdown(t *testing.T) {
	w := &fakeWriter{}
	sink := newKafkaSink(w, 16, time.Second, nil, zap.NewNop())

	for _, name := range []string{notify.EventAppointmentAssigned, notify.EventDoctorJoined} {
		ev := notify.NewEvent(notify.ChannelCommunityWorker, name, map[string]any{"k": "v"})
		if err := sink.Publish(context.Background(), ev); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := sink.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	msgs := w.written()
	if len(msgs) != 2 {
		t.Fatalf("wrote %d messages, want 2", len(msgs))
	}
	if string(msgs[0].Key) != string(notify.ChannelCommunityWorker) {
		t.Errorf("key = %q", msgs[0].Key)
	}
	var ev notify.Event
	if err := json.Unmarshal(msgs[1].Value, &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Name != notify.EventDoctorJoined {
		t.Errorf("second event = %q, want %q", ev.Name, notify.EventDoctorJoined)
	}
	if !w.closed {
		t.Error("writer not closed")
	}
}

func TestKafkaSink_DropsWhenFull(t *testing.T) {
	w := &fakeWriter{block: make(chan struct{})}
	sink := newKafkaSink(w, 1, time.Second, nil, zap.NewNop())

	var full bool
	for i := 0; i < 5; i++ {
		err := sink.Publish(context.Background(), notify.NewEvent(notify.ChannelDoctor, notify.EventPatientJoined, nil))
		if errors.Is(err, ErrQueueFull) {
			full = true
			break
		}
	}
	if !full {
		t.Error("expected ErrQueueFull once the queue is saturated")
	}

	close(w.block)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = sink.Shutdown(ctx)
}

func TestKafkaSink_PublishAfterShutdown(t *testing.T) {
	sink := newKafkaSink(&fakeWriter{}, 4, time.Second, nil, zap.NewNop())
	_ = sink.Shutdown(context.Background())

	err := sink.Publish(context.Background(), notify.NewEvent(notify.ChannelDoctor, notify.EventPatientJoined, nil))
	if !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestKafkaSink_WriteErrorsDoNotStopWorker(t *testing.T) {
	w := &fakeWriter{failErr: errors.New("broker down")}
	sink := newKafkaSink(w, 4, time.Second, nil, zap.NewNop())

	for i := 0; i < 3; i++ {
		if err := sink.Publish(context.Background(), notify.NewEvent(notify.ChannelDoctor, notify.EventPatientJoined, nil)); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := sink.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}
