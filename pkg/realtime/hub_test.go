package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/carelink/internal/notify"
)

func newTestHub(buffer int) *Hub {
	return NewHub(buffer, []string{"*"}, zap.NewNop())
}

func TestHub_PublishOnlyReachesChannel(t *testing.T) {
	hub := newTestHub(8)
	doctor := hub.NewClient(notify.ChannelDoctor)
	worker := hub.NewClient(notify.ChannelCommunityWorker)
	hub.Register(doctor)
	hub.Register(worker)

	ev := notify.NewEvent(notify.ChannelDoctor, notify.EventPatientJoined, map[string]any{"patient_name": "ravi"})
	if err := hub.Publish(context.Background(), ev); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case data := <-doctor.Send:
		var got notify.Event
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got.Name != notify.EventPatientJoined {
			t.Errorf("event = %q, want %q", got.Name, notify.EventPatientJoined)
		}
	default:
		t.Fatal("doctor client received nothing")
	}

	select {
	case <-worker.Send:
		t.Fatal("worker client should not receive doctor events")
	default:
	}
}

func TestHub_FullBufferDrops(t *testing.T) {
	hub := newTestHub(1)
	c := hub.NewClient(notify.ChannelCommunityWorker)
	hub.Register(c)

	for i := 0; i < 3; i++ {
		ev := notify.NewEvent(notify.ChannelCommunityWorker, notify.EventAppointmentAssigned, nil)
		if err := hub.Publish(context.Background(), ev); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}

	if len(c.Send) != 1 {
		t.Errorf("buffer length = %d, want 1", len(c.Send))
	}
}

func TestHub_FIFOWithinChannel(t *testing.T) {
	hub := newTestHub(8)
	c := hub.NewClient(notify.ChannelCommunityWorker)
	hub.Register(c)

	names := []string{notify.EventAppointmentAssigned, notify.EventDoctorJoined, notify.EventPrescriptionUploaded}
	for _, n := range names {
		_ = hub.Publish(context.Background(), notify.NewEvent(notify.ChannelCommunityWorker, n, nil))
	}

	for _, want := range names {
		var got notify.Event
		if err := json.Unmarshal(<-c.Send, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got.Name != want {
			t.Errorf("got %q, want %q", got.Name, want)
		}
	}
}

func TestHub_UnregisterTwice(t *testing.T) {
	hub := newTestHub(1)
	c := hub.NewClient(notify.ChannelDoctor)
	hub.Register(c)
	hub.Unregister(c)
	hub.Unregister(c)

	if hub.ClientCount(notify.ChannelDoctor) != 0 {
		t.Errorf("expected no clients after unregister")
	}
}

func TestHub_ServeDeliversWelcomeAndEvents(t *testing.T) {
	hub := newTestHub(8)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		welcome := notify.NewEvent(notify.ChannelDoctor, notify.EventMessage, map[string]any{"data": "Connected to doctor dashboard"})
		if err := hub.Serve(w, r, notify.ChannelDoctor, &welcome); err != nil {
			t.Errorf("Serve: %v", err)
		}
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()

	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var welcome notify.Event
	if err := ws.ReadJSON(&welcome); err != nil {
		t.Fatalf("read welcome: %v", err)
	}
	if welcome.Name != notify.EventMessage {
		t.Errorf("welcome event = %q, want %q", welcome.Name, notify.EventMessage)
	}

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount(notify.ChannelDoctor) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	ev := notify.NewEvent(notify.ChannelDoctor, notify.EventPatientJoined, map[string]any{"consultation_id": "c1"})
	if err := hub.Publish(context.Background(), ev); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	var got notify.Event
	if err := ws.ReadJSON(&got); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if got.Name != notify.EventPatientJoined || got.Payload["consultation_id"] != "c1" {
		t.Errorf("unexpected event %+v", got)
	}
}
