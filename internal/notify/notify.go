// Package notify fans coordination events out to the real-time channels and
// sends out-of-band SMS. Delivery is best effort: failures are logged and
// counted, never returned to the operation that triggered them. Queued SMS
// are delivered by a background worker so a slow provider never holds up a
// request.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/carelink/pkg/metrics"
)

// Channel is a role-scoped broadcast channel.
type Channel string

const (
	ChannelDoctor          Channel = "doctor"
	ChannelCommunityWorker Channel = "community_worker"
)

func (c Channel) IsValid() bool {
	return c == ChannelDoctor || c == ChannelCommunityWorker
}

// Event names as seen by dashboard clients.
const (
	EventAppointmentAssigned  = "appointment_assigned"
	EventPatientJoined        = "patient_joined"
	EventDoctorJoined         = "doctor_joined"
	EventPrescriptionUploaded = "prescription_uploaded"
	EventMessage              = "message"
)

// ErrTransientNotification marks a delivery failure that the caller may log
// and move past.
var ErrTransientNotification = errors.New("transient notification failure")

type Event struct {
	ID        string         `json:"id"`
	Channel   Channel        `json:"channel"`
	Name      string         `json:"event"`
	Payload   map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}

func NewEvent(channel Channel, name string, payload map[string]any) Event {
	return Event{
		ID:        uuid.NewString(),
		Channel:   channel,
		Name:      name,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// Publisher delivers an event to one transport. Implementations must not block
// on slow consumers.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// SMSSender delivers a text message and returns the provider's message id.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) (string, error)
}

// Gateway is the single notification entry point used by the services.
type Gateway struct {
	publishers []Publisher
	sms        SMSSender
	metrics    *metrics.Collector
	log        *zap.Logger

	mu      sync.RWMutex
	closed  bool
	pending chan queuedSMS
	done    chan struct{}
}

type queuedSMS struct {
	ctx    context.Context
	to     string
	body   string
	fields []zap.Field
}

const (
	smsQueueSize   = 256
	smsSendTimeout = 10 * time.Second
)

func NewGateway(sms SMSSender, m *metrics.Collector, log *zap.Logger, publishers ...Publisher) *Gateway {
	return newGateway(sms, m, log, smsQueueSize, publishers...)
}

func newGateway(sms SMSSender, m *metrics.Collector, log *zap.Logger, queueSize int, publishers ...Publisher) *Gateway {
	g := &Gateway{
		publishers: publishers,
		sms:        sms,
		metrics:    m,
		log:        log.Named("notify"),
		pending:    make(chan queuedSMS, queueSize),
		done:       make(chan struct{}),
	}
	go g.smsWorker()
	return g
}

// Publish hands the event to every transport in order. A failing transport
// does not stop the others.
func (g *Gateway) Publish(ctx context.Context, channel Channel, name string, payload map[string]any) {
	ev := NewEvent(channel, name, payload)
	for _, p := range g.publishers {
		if err := p.Publish(ctx, ev); err != nil {
			g.metrics.NotificationFailed("push")
			g.log.Warn("event publish failed",
				zap.String("channel", string(channel)),
				zap.String("event", name),
				zap.Error(err),
			)
		}
	}
	g.metrics.NotificationPublished(string(channel))
}

// SendSMS returns an error wrapping ErrTransientNotification on any failure.
func (g *Gateway) SendSMS(ctx context.Context, to, body string) (string, error) {
	if g.sms == nil {
		return "", fmt.Errorf("%w: sms delivery not configured", ErrTransientNotification)
	}
	if to == "" {
		return "", fmt.Errorf("%w: no destination number", ErrTransientNotification)
	}

	sid, err := g.sms.SendSMS(ctx, to, body)
	if err != nil {
		g.metrics.NotificationFailed("sms")
		return "", fmt.Errorf("%w: %w", ErrTransientNotification, err)
	}

	g.log.Info("sms sent", zap.String("message_sid", sid))
	return sid, nil
}

// QueueSMS schedules a text for background delivery and returns immediately.
// The message is dropped when the queue is full or the gateway is shut down.
// Delivery failures are logged with fields attached.
func (g *Gateway) QueueSMS(ctx context.Context, to, body string, fields ...zap.Field) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.closed {
		return
	}

	select {
	case g.pending <- queuedSMS{ctx: context.WithoutCancel(ctx), to: to, body: body, fields: fields}:
	default:
		g.metrics.NotificationFailed("sms_dropped")
		g.log.Warn("sms queue full, dropping message", fields...)
	}
}

// Shutdown stops accepting queued SMS and waits for the backlog to drain.
func (g *Gateway) Shutdown(ctx context.Context) {
	g.mu.Lock()
	if !g.closed {
		g.closed = true
		close(g.pending)
	}
	g.mu.Unlock()

	select {
	case <-g.done:
	case <-ctx.Done():
		g.log.Warn("sms queue shutdown timed out; some messages may be lost")
	}
}

func (g *Gateway) smsWorker() {
	defer close(g.done)
	for msg := range g.pending {
		ctx, cancel := context.WithTimeout(msg.ctx, smsSendTimeout)
		if _, err := g.SendSMS(ctx, msg.to, msg.body); err != nil {
			g.log.Warn("sms delivery failed", append(msg.fields, zap.Error(err))...)
		}
		cancel()
	}
}
