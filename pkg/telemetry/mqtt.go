// Package telemetry publishes device state to an MQTT broker.
package telemetry

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"alpacapi/pkg/alpaca"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

const (
	publishTimeout = 5 * time.Second
	quiesceMillis  = 250
)

var ErrPublishTimeout = errors.New("timed out publishing to MQTT broker")

// Publisher sends telemetry messages. Topics are relative to the
// publisher's topic root.
type Publisher interface {
	Publish(topic string, payload []byte) error
	Close()
}

// createMQTTClient connects to the broker described by cfg.
func createMQTTClient(cfg alpaca.MQTTConfig, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.SetClientID(clientID)
	opts.AddBroker(cfg.BrokerURL())
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(10 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %v", token.Error())
	}
	return client, nil
}

// MQTTPublisher publishes with QoS 0 below a topic root.
type MQTTPublisher struct {
	client mqtt.Client
	root   string
	logger log.FieldLogger
}

func NewMQTTPublisher(cfg alpaca.MQTTConfig, clientID string, logger log.FieldLogger) (*MQTTPublisher, error) {
	client, err := createMQTTClient(cfg, clientID)
	if err != nil {
		return nil, err
	}
	logger.Infof("Connected to MQTT broker %s", cfg.BrokerURL())
	return NewMQTTPublisherWithClient(client, cfg.TopicRoot, logger), nil
}

// NewMQTTPublisherWithClient wraps an already connected client.
func NewMQTTPublisherWithClient(client mqtt.Client, root string, logger log.FieldLogger) *MQTTPublisher {
	return &MQTTPublisher{
		client: client,
		root:   strings.Trim(root, "/"),
		logger: logger,
	}
}

func (p *MQTTPublisher) topic(topic string) string {
	if p.root == "" {
		return topic
	}
	return p.root + "/" + topic
}

func (p *MQTTPublisher) Publish(topic string, payload []byte) error {
	token := p.client.Publish(p.topic(topic), 0, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return ErrPublishTimeout
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.topic(topic), err)
	}
	return nil
}

func (p *MQTTPublisher) Close() {
	p.client.Disconnect(quiesceMillis)
	p.logger.Info("Disconnected from MQTT broker")
}
