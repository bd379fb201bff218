// Package amqp publishes job completion events and consumes run requests
// over RabbitMQ.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"timeledger/internal/core"
	"timeledger/internal/log"
)

// CompletedRoutingKey is the routing key of JobCompletedMessage.
const CompletedRoutingKey = "job.completed"

const publishTimeout = 5 * time.Second

type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
	logger       *log.Logger
}

// NewClient connects and declares the direct exchange plus the run request
// queue bound under its own name.
func NewClient(url, exchangeName, queueName string, logger *log.Logger) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	c := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
		logger:       logger.WithComponent(log.ComponentNotify),
	}
	if err := c.setup(); err != nil {
		c.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}
	return c, nil
}

func (c *Client) setup() error {
	if err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if c.queueName == "" {
		return nil
	}
	if _, err := c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := c.channel.QueueBind(c.queueName, c.queueName, c.exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// PublishJobCompleted announces a finished run.
func (c *Client) PublishJobCompleted(ctx context.Context, run core.JobRun) error {
	body, err := NewJobCompletedMessage(run).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, CompletedRoutingKey, body); err != nil {
		return err
	}
	c.logger.Debug("published job completion", log.FieldJob, run.Job, log.FieldRunID, run.ID, "status", run.Status)
	return nil
}

// PublishRunRequest queues a run of job for the worker.
func (c *Client) PublishRunRequest(ctx context.Context, job, requestedBy string) error {
	if c.queueName == "" {
		return errors.New("no run request queue configured")
	}
	body, err := NewRunRequestMessage(job, requestedBy).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return c.publish(ctx, c.queueName, body)
}

func (c *Client) publish(ctx context.Context, routingKey string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	err := c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		routingKey,     // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

// acknowledger is the part of amqp091.Delivery the consumer uses.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// ConsumeRunRequests hands every run request to handler until ctx is done.
// Messages are acked on success and dropped otherwise; schedules cover
// anything missed.
func (c *Client) ConsumeRunRequests(ctx context.Context, handler func(context.Context, *RunRequestMessage) error) error {
	if c.queueName == "" {
		<-ctx.Done()
		return nil
	}
	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	c.logger.Info("consuming run requests", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("message channel closed")
			}
			c.handle(ctx, d.Body, d, handler)
		}
	}
}

func (c *Client) handle(ctx context.Context, body []byte, ack acknowledger, handler func(context.Context, *RunRequestMessage) error) {
	msg, err := RunRequestMessageFromJSON(body)
	if err != nil {
		c.logger.Warn("invalid run request", log.FieldError, err.Error())
		_ = ack.Nack(false, false)
		return
	}
	if err := handler(ctx, msg); err != nil {
		c.logger.Warn("run request rejected", log.FieldJob, msg.Job, log.FieldError, err.Error())
		_ = ack.Nack(false, false)
		return
	}
	_ = ack.Ack(false)
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
