package events

import (
	"context"
	"log"

	"sharing-service/internal/models"
)

type EventPublisher struct {
	rabbitMQ *RabbitMQClient
	enabled  bool
}

func NewEventPublisher(rabbitURI string) (*EventPublisher, error) {
	if rabbitURI == "" {
		log.Println("Warning: RabbitMQ URI is empty, event publishing is disabled")
		return &EventPublisher{
			rabbitMQ: nil,
			enabled:  false,
		}, nil
	}

	// Create RabbitMQ client
	client, err := NewRabbitMQClient(rabbitURI)
	if err != nil {
		return nil, err
	}

	// Initialize exchanges and queues
	err = client.setupExchangesAndQueues()
	if err != nil {
		client.Close()
		return nil, err
	}

	return &EventPublisher{
		rabbitMQ: client,
		enabled:  true,
	}, nil
}

// PublishShareEvent publishes one share lifecycle event. The eventType is
// used as the routing key on the sharing-events exchange.
func (p *EventPublisher) PublishShareEvent(ctx context.Context, eventType string, grant *models.ShareGrant) error {
	if !p.enabled {
		log.Printf("Event publishing is disabled, skipping %s", eventType)
		return nil
	}

	event := NewShareEvent(EventType(eventType), grant)

	eventData, err := event.ToJSON()
	if err != nil {
		return err
	}

	err = p.rabbitMQ.PublishEvent("sharing-events", eventType, eventData)
	if err != nil {
		return err
	}

	log.Printf("Published %s event for share ID: %s", eventType, event.ShareID)
	return nil
}

func (p *EventPublisher) Close() error {
	if p.rabbitMQ != nil {
		return p.rabbitMQ.Close()
	}
	return nil
}
