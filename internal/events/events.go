// Package events publishes domain events to an MQTT broker.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

// Event names.
const (
	ScheduleValidated = "schedule.validated"
	SchedulesImported = "schedules.imported"
	SchedulesUpdated  = "schedules.updated"
	ServicesImported  = "services.imported"
)

const publishTimeout = 5 * time.Second

// Publisher sends a domain event.
type Publisher interface {
	Publish(ctx context.Context, event string, data any) error
	Close()
}

// Envelope is the JSON body of every published event.
type Envelope struct {
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// Config holds the broker settings.
type Config struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

// MQTTPublisher publishes events with QoS 1 on <prefix>/<event>.
type MQTTPublisher struct {
	client mqtt.Client
	prefix string
	now    func() time.Time
}

// NewMQTTPublisher connects to the broker.
func NewMQTTPublisher(cfg Config) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetConnectTimeout(5 * time.Second)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.WithError(err).Warn("mqtt connection lost")
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	return newPublisher(client, cfg.TopicPrefix), nil
}

func newPublisher(client mqtt.Client, prefix string) *MQTTPublisher {
	return &MQTTPublisher{client: client, prefix: strings.TrimSuffix(prefix, "/"), now: time.Now}
}

// Topic returns the topic an event is published on.
func (p *MQTTPublisher) Topic(event string) string {
	if p.prefix == "" {
		return event
	}
	return p.prefix + "/" + event
}

// Publish sends data wrapped in an Envelope and waits for the broker ack.
func (p *MQTTPublisher) Publish(ctx context.Context, event string, data any) error {
	payload, err := json.Marshal(Envelope{Event: event, Timestamp: p.now().UTC(), Data: data})
	if err != nil {
		return fmt.Errorf("encode %s: %w", event, err)
	}
	token := p.client.Publish(p.Topic(event), 1, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(publishTimeout):
		return fmt.Errorf("publish %s: timed out", event)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", p.Topic(event), err)
	}
	return nil
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}

// Noop discards every event. It is used when MQTT is disabled.
type Noop struct{}

func (Noop) Publish(context.Context, string, any) error { return nil }
func (Noop) Close()                                     {}

// Async hands each event to next on its own goroutine so callers never wait
// for the broker. The request context is detached: its values are kept but a
// finished request does not cancel the publish.
type Async struct {
	next   Publisher
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewAsync wraps next.
func NewAsync(next Publisher) *Async {
	return &Async{next: next}
}

// Publish always returns nil; failures are logged by Notify. Events sent
// after Close are dropped.
func (a *Async) Publish(ctx context.Context, event string, data any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		log.WithField("event", event).Debug("publisher closed, event dropped")
		return nil
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		Notify(context.WithoutCancel(ctx), a.next, event, data)
	}()
	return nil
}

// Close waits for in-flight events, then closes next.
func (a *Async) Close() {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
	a.wg.Wait()
	a.next.Close()
}

// Notify publishes and logs failures instead of returning them.
func Notify(ctx context.Context, p Publisher, event string, data any) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, event, data); err != nil {
		log.WithError(err).WithField("event", event).Warn("failed to publish event")
	}
}
