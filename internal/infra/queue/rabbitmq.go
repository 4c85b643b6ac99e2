package queue

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	NotificationExchange = "ex.notifications"
	NotificationQueue    = "q.notifications"
	NotificationDLQ      = "q.notifications.dlq"
	NotificationKey      = "k.notification"

	LeadExchange   = "ex.leads"
	CRMSyncQueue   = "q.leads.crm"
	CRMSyncDLQ     = "q.leads.crm.dlq"
	LeadCreatedKey = "lead.created"
	LeadUpdatedKey = "lead.updated"

	DLXName = "ex.dlx" // Dead Letter Exchange

	waitQueuePrefix = "q.notifications.wait."
)

type RabbitMQ struct {
	Conn *amqp.Connection
	Ch   *amqp.Channel

	mu sync.Mutex
}

func NewRabbitMQ(url string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := setupTopology(ch); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare topology: %w", err)
	}

	return &RabbitMQ{Conn: conn, Ch: ch}, nil
}

func (r *RabbitMQ) Close() error {
	if r.Ch != nil {
		r.Ch.Close()
	}
	return r.Conn.Close()
}

func (r *RabbitMQ) IsClosed() bool {
	return r.Conn == nil || r.Conn.IsClosed()
}

// Consumer opens a dedicated channel with the given prefetch.
func (r *RabbitMQ) Consumer(prefetch int) (*amqp.Channel, error) {
	ch, err := r.Conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open consumer channel: %w", err)
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}
	return ch, nil
}

func setupTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(DLXName, "direct", true, false, false, false, nil); err != nil {
		return err
	}

	// Notifications: ready queue fed by the wait queues, dead-lettered on Nack.
	if err := declareWithDLQ(ch, NotificationExchange, "direct", NotificationQueue, NotificationDLQ, NotificationKey); err != nil {
		return err
	}

	// Lead events: topic exchange, the CRM mirror only listens to creations.
	if err := declareWithDLQ(ch, LeadExchange, "topic", CRMSyncQueue, CRMSyncDLQ, LeadCreatedKey); err != nil {
		return err
	}

	return nil
}

func declareWithDLQ(ch *amqp.Channel, exchange, kind, queue, dlq, key string) error {
	if _, err := ch.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.QueueBind(dlq, key, DLXName, false, nil); err != nil {
		return err
	}

	args := amqp.Table{
		"x-dead-letter-exchange":    DLXName,
		"x-dead-letter-routing-key": key,
	}

	if err := ch.ExchangeDeclare(exchange, kind, true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, args); err != nil {
		return err
	}
	return ch.QueueBind(queue, key, exchange, false, nil)
}

// waitQueueName returns the holding queue for one delay. Messages sit there
// until their TTL runs out and are then dead-lettered to the ready queue.
func waitQueueName(delay time.Duration) string {
	return waitQueuePrefix + strconv.FormatInt(delay.Milliseconds(), 10)
}

// waitQueueArgs keeps one queue per distinct delay so a long delay never
// holds back a shorter one queued behind it. The queue expires once idle
// well past its TTL.
func waitQueueArgs(delay time.Duration) amqp.Table {
	ttl := delay.Milliseconds()
	return amqp.Table{
		"x-message-ttl":             ttl,
		"x-dead-letter-exchange":    NotificationExchange,
		"x-dead-letter-routing-key": NotificationKey,
		"x-expires":                 ttl*2 + (24 * time.Hour).Milliseconds(),
	}
}

// declareWaitQueue is called before every delayed publish; redeclaring
// renews the queue's expiry lease.
func (r *RabbitMQ) declareWaitQueue(delay time.Duration) (string, error) {
	name := waitQueueName(delay)
	if _, err := r.Ch.QueueDeclare(name, true, false, false, false, waitQueueArgs(delay)); err != nil {
		return "", fmt.Errorf("declare wait queue %s: %w", name, err)
	}
	return name, nil
}
