package queue

import (
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

type NATSQueue struct {
	conn  *nats.Conn
	group string
	mu    sync.Mutex
	subs  []*nats.Subscription
	log   *zap.Logger
}

// NewNATSQueue connects to url. When group is set, subscriptions join that
// queue group so each message is handled by a single replica.
func NewNATSQueue(url, group string, log *zap.Logger) (MessageQueue, error) {
	nc, err := nats.Connect(url,
		nats.Name("botcore"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("NATS reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log.Info("Successfully connected to NATS", zap.String("url", url))
	return &NATSQueue{
		conn:  nc,
		group: group,
		log:   log,
	}, nil
}

func (q *NATSQueue) Publish(subject string, data []byte) error {
	return q.conn.Publish(subject, data)
}

func (q *NATSQueue) Subscribe(subject string, handler func(data []byte) error) error {
	return q.subscribe(subject, q.group, handler)
}

func (q *NATSQueue) SubscribeAll(subject string, handler func(data []byte) error) error {
	return q.subscribe(subject, "", handler)
}

func (q *NATSQueue) subscribe(subject, group string, handler func(data []byte) error) error {
	cb := func(msg *nats.Msg) {
		if err := handler(msg.Data); err != nil {
			q.log.Error("Error processing message", zap.String("subject", subject), zap.Error(err))
		}
	}

	var (
		sub *nats.Subscription
		err error
	)
	if group != "" {
		sub, err = q.conn.QueueSubscribe(subject, group, cb)
	} else {
		sub, err = q.conn.Subscribe(subject, cb)
	}
	if err != nil {
		return fmt.Errorf("nats: subscribe %s: %w", subject, err)
	}

	q.mu.Lock()
	q.subs = append(q.subs, sub)
	q.mu.Unlock()
	return nil
}

// Close drains subscriptions so in-flight handlers finish before the
// connection goes away.
func (q *NATSQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, sub := range q.subs {
		if err := sub.Drain(); err != nil {
			q.log.Warn("NATS drain failed", zap.String("subject", sub.Subject), zap.Error(err))
		}
	}
	q.subs = nil
	return q.conn.Drain()
}
