package queue

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

// Message is a decoded sync job bound to the delivery it arrived on
type Message struct {
	Job      *Job
	delivery amqp.Delivery
}

var _ MessageInterface = (*Message)(nil)

// Ack settles the delivery as applied
func (m *Message) Ack() error { return m.delivery.Ack(false) }

// Nack rejects the delivery. Without requeue the broker dead-letters it.
func (m *Message) Nack(requeue bool) error { return m.delivery.Nack(false, requeue) }

// GetJob returns the decoded job
func (m *Message) GetJob() *Job { return m.Job }
