// Package messaging publishes danger alerts to RabbitMQ for caregiver systems.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/notification"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/pkg/model"
	"go.uber.org/zap"
)

// DefaultQueue is used when no queue name is configured
const DefaultQueue = "health_alerts"

// errNotConnected is returned while the channel is being re-established
var errNotConnected = errors.New("rabbitmq channel not connected")

// AlertEvent is the message body published for a danger notification
type AlertEvent struct {
	UserID         string    `json:"user_id"`
	NotificationID string    `json:"notification_id"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	Priority       string    `json:"priority"`
	Severity       string    `json:"severity"`
	CreatedAt      time.Time `json:"created_at"`
	PublishedAt    time.Time `json:"published_at"`
}

// publishFunc sends one encoded message
type publishFunc func(ctx context.Context, body []byte) error

// RabbitMQPublisher delivers alert events to a durable queue behind a
// circuit breaker, retrying and reconnecting on failure
type RabbitMQPublisher struct {
	url        string
	queueName  string
	cb         *gobreaker.CircuitBreaker
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger
	now        func() time.Time

	connMutex   sync.RWMutex
	conn        *amqp091.Connection
	channel     *amqp091.Channel
	reconnectCh chan struct{}
	stop        chan struct{}

	publish publishFunc
}

// NewRabbitMQPublisher connects to RabbitMQ and declares the alert queue
func NewRabbitMQPublisher(url, queueName string, logger *zap.Logger) (*RabbitMQPublisher, error) {
	p := newPublisher(queueName, logger)
	p.url = url
	p.publish = p.publishToChannel

	if err := p.connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	go p.handleReconnection()

	return p, nil
}

func newPublisher(queueName string, logger *zap.Logger) *RabbitMQPublisher {
	if queueName == "" {
		queueName = DefaultQueue
	}

	p := &RabbitMQPublisher{
		queueName:   queueName,
		maxRetries:  3,
		retryDelay:  time.Second,
		logger:      logger,
		now:         time.Now,
		reconnectCh: make(chan struct{}, 1),
		stop:        make(chan struct{}),
	}

	p.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "rabbitmq",
		MaxRequests: 5,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return p
}

func (p *RabbitMQPublisher) connect() error {
	var (
		conn *amqp091.Connection
		err  error
	)
	for i := 0; i < p.maxRetries; i++ {
		conn, err = amqp091.Dial(p.url)
		if err == nil {
			break
		}
		p.logger.Warn("failed to connect to RabbitMQ",
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", p.maxRetries),
			zap.Error(err),
		)
		if i < p.maxRetries-1 {
			time.Sleep(p.retryDelay)
		}
	}
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}

	_, err = ch.QueueDeclare(
		p.queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return err
	}

	p.connMutex.Lock()
	p.conn = conn
	p.channel = ch
	p.connMutex.Unlock()

	p.logger.Info("connected to RabbitMQ", zap.String("queue", p.queueName))
	return nil
}

func (p *RabbitMQPublisher) handleReconnection() {
	for {
		select {
		case <-p.reconnectCh:
			p.logger.Info("reconnecting to RabbitMQ")
			p.connMutex.Lock()
			if p.channel != nil {
				p.channel.Close()
			}
			if p.conn != nil {
				p.conn.Close()
			}
			p.channel, p.conn = nil, nil
			p.connMutex.Unlock()

			if err := p.connect(); err != nil {
				p.logger.Error("RabbitMQ reconnection failed", zap.Error(err))
			}
		case <-p.stop:
			return
		}
	}
}

func (p *RabbitMQPublisher) requestReconnect() {
	select {
	case p.reconnectCh <- struct{}{}:
	default:
	}
}

// Publish sends a danger notification for userID. It satisfies
// notification.Publisher.
func (p *RabbitMQPublisher) Publish(ctx context.Context, userID string, n model.Notification) error {
	_, err := p.cb.Execute(func() (interface{}, error) {
		return nil, p.publishWithRetry(ctx, userID, n)
	})
	return err
}

func (p *RabbitMQPublisher) publishWithRetry(ctx context.Context, userID string, n model.Notification) error {
	start := p.now()

	body, err := json.Marshal(AlertEvent{
		UserID:         userID,
		NotificationID: n.ID,
		Title:          n.Title,
		Message:        n.Message,
		Priority:       string(n.Priority),
		Severity:       "critical",
		CreatedAt:      n.CreatedAt,
		PublishedAt:    start,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal alert event: %w", err)
	}

	var lastErr error
	for i := 0; i < p.maxRetries; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = p.publish(ctx, body)
		if lastErr == nil {
			p.logger.Info("alert published",
				zap.String("user_id", userID),
				zap.String("notification_id", n.ID),
				zap.Duration("latency", time.Since(start)),
			)
			return nil
		}

		p.logger.Warn("failed to publish alert",
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", p.maxRetries),
			zap.Error(lastErr),
		)
		if i < p.maxRetries-1 {
			p.requestReconnect()
			time.Sleep(p.retryDelay)
		}
	}

	return fmt.Errorf("failed to publish alert after %d retries: %w", p.maxRetries, lastErr)
}

func (p *RabbitMQPublisher) publishToChannel(ctx context.Context, body []byte) error {
	p.connMutex.RLock()
	ch, conn := p.channel, p.conn
	p.connMutex.RUnlock()

	if ch == nil || conn == nil || conn.IsClosed() {
		return errNotConnected
	}

	return ch.PublishWithContext(ctx,
		"",          // exchange
		p.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp091.Persistent,
			Timestamp:    p.now(),
		},
	)
}

// Close stops reconnection and closes the connection
func (p *RabbitMQPublisher) Close() error {
	close(p.stop)
	p.connMutex.Lock()
	defer p.connMutex.Unlock()

	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

var _ notification.Publisher = (*RabbitMQPublisher)(nil)
