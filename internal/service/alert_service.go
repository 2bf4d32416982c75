package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/carelink/internal/notify"
)

// FeedStore is the bounded notification feed.
type FeedStore interface {
	Append(ev notify.Event)
	Recent(limit int) []notify.Event
}

// AlertService backs the dashboard feed endpoints and the manual SMS alert.
type AlertService struct {
	feed     FeedStore
	notifier Notifier
	log      *zap.Logger
}

func NewAlertService(feed FeedStore, notifier Notifier, log *zap.Logger) *AlertService {
	return &AlertService{feed: feed, notifier: notifier, log: log.Named("alerts")}
}

// PostNotification records an arbitrary payload in the feed.
func (s *AlertService) PostNotification(_ context.Context, payload map[string]any) notify.Event {
	ev := notify.NewEvent("", notify.EventMessage, payload)
	s.feed.Append(ev)
	return ev
}

func (s *AlertService) RecentNotifications(_ context.Context, limit int) []notify.Event {
	return s.feed.Recent(limit)
}

// SendSMSAlert texts a doctor that a patient is waiting. Unlike the SMS sent
// as a side effect of other operations, a failure here is the result.
func (s *AlertService) SendSMSAlert(ctx context.Context, doctorPhone, patientName string) (string, error) {
	v := &validator{}
	v.require(strings.TrimSpace(doctorPhone) != "", "doctor_phone_number is required")
	v.require(strings.TrimSpace(patientName) != "", "patient_name is required")
	if err := v.err(); err != nil {
		return "", err
	}

	body := fmt.Sprintf("Patient %s is trying to connect with you for a video consultation.", patientName)
	sid, err := s.notifier.SendSMS(ctx, doctorPhone, body)
	if err != nil {
		s.log.Warn("sms alert failed", zap.Error(err))
		return "", err
	}
	return sid, nil
}
