// Package sms sends text messages through Twilio behind a circuit breaker so a
// provider outage fails fast instead of stalling request handlers.
package sms

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/carelink/internal/config"
)

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = errors.New("sms provider circuit open")

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

type TwilioSender struct {
	api     messageCreator
	from    string
	breaker *gobreaker.CircuitBreaker[string]
	log     *zap.Logger
}

func NewTwilioSender(cfg config.SMSConfig, log *zap.Logger) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return newTwilioSender(client.Api, cfg, log)
}

func newTwilioSender(api messageCreator, cfg config.SMSConfig, log *zap.Logger) *TwilioSender {
	log = log.Named("sms")
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}

	breaker := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "twilio",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &TwilioSender{api: api, from: cfg.FromNumber, breaker: breaker, log: log}
}

// SendSMS returns the Twilio message SID.
func (s *TwilioSender) SendSMS(ctx context.Context, to, body string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	sid, err := s.breaker.Execute(func() (string, error) {
		params := &twilioApi.CreateMessageParams{}
		params.SetTo(to)
		params.SetFrom(s.from)
		params.SetBody(body)

		resp, err := s.api.CreateMessage(params)
		if err != nil {
			return "", err
		}
		if resp == nil || resp.Sid == nil {
			return "", errors.New("twilio returned no message sid")
		}
		return *resp.Sid, nil
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "", ErrCircuitOpen
	case err != nil:
		return "", fmt.Errorf("twilio create message: %w", err)
	}
	return sid, nil
}

// LogSender writes messages to the log instead of sending them. Used when SMS
// is disabled so local environments keep the same code path.
type LogSender struct {
	log *zap.Logger
	now func() time.Time
}

func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log.Named("sms"), now: time.Now}
}

func (s *LogSender) SendSMS(_ context.Context, to, body string) (string, error) {
	sid := "LOG" + uuid.NewString()
	s.log.Info("sms (not sent, delivery disabled)",
		zap.String("to", to),
		zap.String("body", body),
		zap.String("message_sid", sid),
		zap.Time("at", s.now()),
	)
	return sid, nil
}
