package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"sharing-service/internal/models"
	"sharing-service/internal/repository"

	"github.com/rabbitmq/amqp091-go"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Consumer defines the interface for event consumption
type Consumer interface {
	Start() error
	Close() error
}

// EventConsumer listens for resource lifecycle events from the resource
// services. When a resource is deleted upstream, every grant on it is
// deactivated so stale shares stop conveying access.
type EventConsumer struct {
	conn      *amqp091.Connection
	channel   *amqp091.Channel
	queueName string
	shareRepo *repository.ShareRepository
	shutdown  chan struct{}
	wg        sync.WaitGroup
	enabled   bool
}

// Exchange configuration
type ExchangeConfig struct {
	Name       string
	Type       string
	Durable    bool
	AutoDelete bool
	Internal   bool
	NoWait     bool
	Args       amqp091.Table
}

// Binding configuration
type BindingConfig struct {
	Exchange   string
	RoutingKey string
}

// NewEventConsumer creates a new event consumer
func NewEventConsumer(rabbitURI string, shareRepo *repository.ShareRepository) (*EventConsumer, error) {
	if rabbitURI == "" {
		log.Println("Warning: RabbitMQ URI is empty, event consumption is disabled")
		return &EventConsumer{
			shareRepo: shareRepo,
			shutdown:  make(chan struct{}),
			enabled:   false,
		}, nil
	}

	// Connect to RabbitMQ
	conn, err := amqp091.Dial(rabbitURI)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	// Create a channel
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	// Set QoS/prefetch
	err = channel.Qos(
		10,    // prefetch count
		0,     // prefetch size
		false, // global
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	return &EventConsumer{
		conn:      conn,
		channel:   channel,
		queueName: "sharing-service-events",
		shareRepo: shareRepo,
		shutdown:  make(chan struct{}),
		enabled:   true,
	}, nil
}

// Start starts consuming events
func (c *EventConsumer) Start() error {
	if !c.enabled {
		log.Println("Event consumption is disabled, not starting consumer")
		return nil
	}

	exchanges := []ExchangeConfig{
		{
			Name:       "resource-events",
			Type:       "topic",
			Durable:    true,
			AutoDelete: false,
			Internal:   false,
			NoWait:     false,
		},
	}

	for _, exchange := range exchanges {
		err := c.channel.ExchangeDeclare(
			exchange.Name,
			exchange.Type,
			exchange.Durable,
			exchange.AutoDelete,
			exchange.Internal,
			exchange.NoWait,
			exchange.Args,
		)
		if err != nil {
			return fmt.Errorf("failed to declare exchange %s: %w", exchange.Name, err)
		}
	}

	queue, err := c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	bindings := []BindingConfig{
		{Exchange: "resource-events", RoutingKey: "resource.deleted"},
		{Exchange: "resource-events", RoutingKey: "resource.deleted.*"},
	}

	for _, binding := range bindings {
		err = c.channel.QueueBind(
			queue.Name,
			binding.RoutingKey,
			binding.Exchange,
			false, // no-wait
			nil,   // arguments
		)
		if err != nil {
			return fmt.Errorf("failed to bind queue to %s with key %s: %w", binding.Exchange, binding.RoutingKey, err)
		}
	}

	messages, err := c.channel.Consume(
		queue.Name, // queue
		"",         // consumer tag
		false,      // auto-ack
		false,      // exclusive
		false,      // no-local
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-c.shutdown:
				return
			case msg, ok := <-messages:
				if !ok {
					log.Println("RabbitMQ message channel closed")
					return
				}
				c.handleMessage(msg)
			}
		}
	}()

	log.Printf("Started consuming resource events on queue %s", queue.Name)
	return nil
}

func (c *EventConsumer) handleMessage(msg amqp091.Delivery) {
	var event ResourceDeletedEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		log.Printf("Failed to unmarshal resource event: %v", err)
		msg.Nack(false, false)
		return
	}

	resourceType, err := models.ParseResourceType(event.ResourceType)
	if err != nil {
		// Not a type this service shares; acknowledge and move on.
		log.Printf("Ignoring resource event for unshareable type %q", event.ResourceType)
		msg.Ack(false)
		return
	}

	resourceID, err := bson.ObjectIDFromHex(event.ResourceID)
	if err != nil {
		log.Printf("Resource event carries invalid resource ID %q: %v", event.ResourceID, err)
		msg.Nack(false, false)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	deactivated, err := c.shareRepo.DeactivateByResource(ctx, resourceType, resourceID)
	if err != nil {
		log.Printf("Failed to deactivate grants for deleted %s %s: %v", resourceType, event.ResourceID, err)
		msg.Nack(false, true) // requeue for retry
		return
	}

	if deactivated > 0 {
		log.Printf("Deactivated %d share grants for deleted %s %s", deactivated, resourceType, event.ResourceID)
	}
	msg.Ack(false)
}

// Close stops the consumer and releases resources
func (c *EventConsumer) Close() error {
	if !c.enabled {
		return nil
	}

	close(c.shutdown)
	c.wg.Wait()

	var err error
	if c.channel != nil {
		err = c.channel.Close()
	}
	if c.conn != nil {
		err = c.conn.Close()
	}
	return err
}
