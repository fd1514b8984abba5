// Package notify publishes bridge lifecycle events to RabbitMQ
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/Facilitator-Network/agent-cli-backend/pkg/bridge"
	"github.com/Facilitator-Network/agent-cli-backend/pkg/config"
)

// Event is the message body published when a bridge reaches a terminal status
type Event struct {
	ID               string        `json:"id"`
	Status           bridge.Status `json:"status"`
	SourceChain      string        `json:"sourceChain"`
	Amount           string        `json:"amount"`
	FinalRecipient   string        `json:"finalRecipient"`
	Purpose          string        `json:"purpose"`
	DepositForBurnTx string        `json:"depositForBurnTx,omitzero"`
	MessageHash      string        `json:"messageHash,omitzero"`
	ReceiveMessageTx string        `json:"receiveMessageTx,omitzero"`
	Error            string        `json:"error,omitzero"`
	RetryCount       int           `json:"retryCount,omitzero"`
	CompletedAt      *time.Time    `json:"completedAt,omitzero"`
}

// NewEvent builds the event for rec
func NewEvent(rec *bridge.Record) Event {
	return Event{
		ID:               rec.ID,
		Status:           rec.Status,
		SourceChain:      rec.SourceChain,
		Amount:           rec.Amount,
		FinalRecipient:   rec.FinalRecipient,
		Purpose:          rec.Purpose,
		DepositForBurnTx: rec.DepositForBurnTx,
		MessageHash:      rec.MessageHash,
		ReceiveMessageTx: rec.ReceiveMessageTx,
		Error:            rec.Error,
		RetryCount:       rec.RetryCount,
		CompletedAt:      rec.CompletedAt,
	}
}

// Channel is the subset of *amqp.Channel the publisher uses
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends terminal bridge events to a topic exchange
type Publisher struct {
	mu         sync.Mutex
	conn       *amqp.Connection
	ch         Channel
	exchange   string
	routingKey string
	logger     *zap.Logger
}

// NewPublisher dials RabbitMQ and declares the durable topic exchange
func NewPublisher(cfg config.EventsConfig, logger *zap.Logger) (*Publisher, error) {
	if cfg.URL == "" {
		return nil, errors.New("events url is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", cfg.Exchange, err)
	}

	logger.Info("Connected to event broker", zap.String("exchange", cfg.Exchange))
	p := NewPublisherWithChannel(ch, cfg.Exchange, cfg.RoutingKey, logger)
	p.conn = conn
	return p, nil
}

// NewPublisherWithChannel wraps an already open channel
func NewPublisherWithChannel(ch Channel, exchange, routingKey string, logger *zap.Logger) *Publisher {
	return &Publisher{
		ch:         ch,
		exchange:   exchange,
		routingKey: routingKey,
		logger:     logger,
	}
}

// Name implements bridge.TerminalHook
func (p *Publisher) Name() string { return "events" }

// OnTerminal implements bridge.TerminalHook. The routing key is suffixed
// with the status so consumers can bind to completed or failed only.
func (p *Publisher) OnTerminal(ctx context.Context, rec *bridge.Record) error {
	body, err := json.Marshal(NewEvent(rec))
	if err != nil {
		return fmt.Errorf("failed to encode bridge event: %w", err)
	}

	key := p.routingKey + "." + string(rec.Status)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return errors.New("event publisher is closed")
	}
	err = p.ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    rec.ID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish bridge event: %w", err)
	}

	p.logger.Debug("Bridge event published",
		zap.String("bridge_id", rec.ID),
		zap.String("routing_key", key))
	return nil
}

// Close closes the channel and connection
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		err := p.conn.Close()
		p.conn = nil
		return err
	}
	return nil
}
