package main

import (
	"context"
	"encoding/json"
	"errors"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"golang.org/x/sync/errgroup"

	"github.com/smartinventory/inventory-backend/pkg/enums"
	"github.com/smartinventory/inventory-backend/pkg/logger"
	"github.com/smartinventory/inventory-backend/pkg/outbox"
)

type envelopeHandler interface {
	Process(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error
}

type subscriber interface {
	Receive(ctx context.Context, f func(context.Context, *gcppubsub.Message)) error
}

// Service fans envelopes from the configured subscriptions into the consumer.
type Service struct {
	handler envelopeHandler
	logg    *logger.Logger
	subs    []subscriber
}

// NewService builds the analytics worker over one or more subscriptions.
func NewService(handler envelopeHandler, logg *logger.Logger, subs ...subscriber) (*Service, error) {
	if handler == nil {
		return nil, errors.New("envelope handler required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	if len(subs) == 0 {
		return nil, errors.New("at least one subscription required")
	}
	for _, sub := range subs {
		if sub == nil {
			return nil, errors.New("nil subscription provided")
		}
	}
	return &Service{handler: handler, logg: logg, subs: subs}, nil
}

// Run blocks until the context is canceled or a subscription fails.
func (s *Service) Run(ctx context.Context) error {
	group, groupCtx := errgroup.WithContext(ctx)
	for _, sub := range s.subs {
		sub := sub
		group.Go(func() error {
			return sub.Receive(groupCtx, s.handleMessage)
		})
	}
	return group.Wait()
}

func (s *Service) handleMessage(ctx context.Context, msg *gcppubsub.Message) {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"event_type": eventType,
		"message_id": msg.ID,
	})

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		// Malformed payloads never become valid, drop them.
		s.logg.Error(logCtx, "failed to decode envelope, dropping message", err)
		msg.Ack()
		return
	}

	if err := s.handler.Process(ctx, eventType, envelope); err != nil {
		s.logg.Error(logCtx, "failed to process event", err)
		msg.Nack()
		return
	}
	msg.Ack()
}
