package queue

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/streadway/amqp"
)

// Publisher is the subset of *amqp.Channel used to publish.
type Publisher interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPClient publishes queue messages to a durable RabbitMQ queue through
// the default exchange.
type AMQPClient struct {
	mu    sync.Mutex
	conn  *amqp.Connection
	ch    Publisher
	queue string
}

// DeclareQueue declares the durable analysis queue on ch.
func DeclareQueue(ch *amqp.Channel, name string) error {
	_, err := ch.QueueDeclare(
		name,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", name, err)
	}
	return nil
}

// NewAMQPClient dials the broker and declares the queue.
func NewAMQPClient(url, queueName string) (*AMQPClient, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("amqp url is required")
	}
	if strings.TrimSpace(queueName) == "" {
		return nil, fmt.Errorf("amqp queue name is required")
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if err := DeclareQueue(ch, queueName); err != nil {
		conn.Close()
		return nil, err
	}
	return &AMQPClient{conn: conn, ch: ch, queue: queueName}, nil
}

// NewAMQPClientWithPublisher builds a client over an existing publisher.
func NewAMQPClientWithPublisher(pub Publisher, queueName string) *AMQPClient {
	return &AMQPClient{ch: pub, queue: queueName}
}

// Send publishes msg as a persistent JSON message.
func (c *AMQPClient) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg.Version == 0 {
		msg.Version = MessageVersion
	}
	if msg.EnqueuedAt == "" {
		msg.EnqueuedAt = time.Now().UTC().Format(time.RFC3339)
	}
	payload, err := EncodeMessage(msg)
	if err != nil {
		return fmt.Errorf("encode amqp message: %w", err)
	}

	// amqp channels are not safe for concurrent publishing.
	c.mu.Lock()
	defer c.mu.Unlock()
	err = c.ch.Publish("", c.queue, false, false, amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     msg.AnalysisID,
		CorrelationId: msg.RequestID,
		Timestamp:     time.Now().UTC(),
		Body:          payload,
	})
	if err != nil {
		return fmt.Errorf("amqp publish: %w", err)
	}
	return nil
}

// Close releases the broker connection.
func (c *AMQPClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

var _ Client = (*AMQPClient)(nil)
