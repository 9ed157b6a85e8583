package queue

import (
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// RabbitMQQueue implements the MessageQueue interface using RabbitMQ fanout
// exchanges named after the subject.
type RabbitMQQueue struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	url     string
	group   string
	// Restored on the new channel after a reconnect.
	subs   []subscription
	mu     sync.RWMutex
	closed chan struct{}
	log    *zap.Logger
}

type subscription struct {
	subject string
	shared  bool
	handler func(data []byte) error
}

// NewRabbitMQQueue dials url. With a group, Subscribe consumes each subject
// from a shared durable queue "<group>.<subject>" so replicas compete for
// messages. SubscribeAll, and Subscribe without a group, get an exclusive
// queue per subscriber.
func NewRabbitMQQueue(url, group string, log *zap.Logger) (MessageQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}

	q := &RabbitMQQueue{
		conn:    conn,
		channel: ch,
		url:     url,
		group:   group,
		closed:  make(chan struct{}),
		log:     log,
	}

	go q.monitorConnection()

	log.Info("Successfully connected to RabbitMQ", zap.String("url", url))
	return q, nil
}

func (q *RabbitMQQueue) Publish(subject string, data []byte) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.channel == nil {
		return fmt.Errorf("rabbitmq: channel not available")
	}

	if err := q.channel.ExchangeDeclare(subject, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq: declare exchange: %w", err)
	}

	err := q.channel.Publish(
		subject, "", false, false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         data,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("rabbitmq: publish: %w", err)
	}

	return nil
}

func (q *RabbitMQQueue) Subscribe(subject string, handler func(data []byte) error) error {
	return q.subscribe(subscription{subject: subject, shared: q.group != "", handler: handler})
}

func (q *RabbitMQQueue) SubscribeAll(subject string, handler func(data []byte) error) error {
	return q.subscribe(subscription{subject: subject, handler: handler})
}

func (q *RabbitMQQueue) subscribe(sub subscription) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.channel == nil {
		return fmt.Errorf("rabbitmq: channel not available")
	}
	if err := q.consume(q.channel, sub); err != nil {
		return err
	}
	q.subs = append(q.subs, sub)
	return nil
}

func (q *RabbitMQQueue) consume(ch *amqp.Channel, sub subscription) error {
	subject, handler := sub.subject, sub.handler
	if err := ch.ExchangeDeclare(subject, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq: declare exchange: %w", err)
	}

	name, durable, autoDelete, exclusive := "", false, true, true
	if sub.shared {
		name, durable, autoDelete, exclusive = q.group+"."+subject, true, false, false
	}
	queue, err := ch.QueueDeclare(name, durable, autoDelete, exclusive, false, nil)
	if err != nil {
		return fmt.Errorf("rabbitmq: declare queue: %w", err)
	}
	if err := ch.QueueBind(queue.Name, "", subject, false, nil); err != nil {
		return fmt.Errorf("rabbitmq: bind queue: %w", err)
	}

	msgs, err := ch.Consume(queue.Name, "", false, exclusive, false, false, nil)
	if err != nil {
		return fmt.Errorf("rabbitmq: consume: %w", err)
	}

	go func() {
		for msg := range msgs {
			if err := handler(msg.Body); err != nil {
				q.log.Error("Error processing RabbitMQ message",
					zap.String("exchange", subject),
					zap.Error(err),
				)
				// Poison messages are dropped rather than redelivered in a loop.
				_ = msg.Nack(false, false)
				continue
			}
			_ = msg.Ack(false)
		}
	}()

	q.log.Info("Subscribed to RabbitMQ exchange", zap.String("exchange", subject), zap.String("queue", queue.Name))
	return nil
}

func (q *RabbitMQQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	select {
	case <-q.closed:
		return nil
	default:
		close(q.closed)
	}

	if q.channel != nil {
		q.channel.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}

func (q *RabbitMQQueue) monitorConnection() {
	for {
		q.mu.RLock()
		notify := q.conn.NotifyClose(make(chan *amqp.Error, 1))
		q.mu.RUnlock()

		reason, ok := <-notify
		if !ok || reason == nil {
			return
		}
		q.log.Warn("RabbitMQ connection lost, reconnecting...", zap.String("reason", reason.Reason))

		for {
			select {
			case <-q.closed:
				return
			case <-time.After(5 * time.Second):
			}

			conn, err := amqp.Dial(q.url)
			if err != nil {
				q.log.Error("Failed to reconnect to RabbitMQ", zap.Error(err))
				continue
			}
			ch, err := conn.Channel()
			if err != nil {
				conn.Close()
				continue
			}

			q.mu.Lock()
			q.conn = conn
			q.channel = ch
			for _, sub := range q.subs {
				if err := q.consume(ch, sub); err != nil {
					q.log.Error("Failed to restore RabbitMQ subscription",
						zap.String("exchange", sub.subject),
						zap.Error(err),
					)
				}
			}
			restored := len(q.subs)
			q.mu.Unlock()

			q.log.Info("Successfully reconnected to RabbitMQ", zap.Int("subscriptions", restored))
			break
		}
	}
}
