// Package telemetry mirrors loop samples to an MQTT broker.
package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/san-kum/remotelab/internal/rig"
)

const (
	DefaultTopic    = "remotelab/samples"
	DefaultClientID = "remotelab-groundstation"

	connectTimeout = 5 * time.Second
	disconnectWait = 250
)

type Config struct {
	Broker   string `yaml:"broker" toml:"broker"`
	ClientID string `yaml:"client_id" toml:"client_id"`
	Topic    string `yaml:"topic" toml:"topic"`
	Retain   bool   `yaml:"retain" toml:"retain"`
}

// Enabled reports whether a broker is configured.
func (c Config) Enabled() bool { return c.Broker != "" }

// client is the part of mqtt.Client the publisher uses.
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// Publisher sends every sample as a JSON document with QoS 0. Publishing never
// blocks the loop; failures are logged and counted.
type Publisher struct {
	client client
	topic  string
	retain bool
	log    *zap.Logger

	sent   atomic.Uint64
	failed atomic.Uint64
}

// Connect dials the broker.
func Connect(cfg Config, log *zap.Logger) (*Publisher, error) {
	if !cfg.Enabled() {
		return nil, errors.New("telemetry: no broker configured")
	}
	if cfg.ClientID == "" {
		cfg.ClientID = DefaultClientID
	}
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetConnectTimeout(connectTimeout).
		SetAutoReconnect(true)

	c := mqtt.NewClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, token.Error())
	}
	if log == nil {
		log = zap.NewNop()
	}
	log.Info("telemetry connected", zap.String("broker", cfg.Broker), zap.String("topic", topicOrDefault(cfg.Topic)))
	return newPublisher(c, cfg, log), nil
}

func newPublisher(c client, cfg Config, log *zap.Logger) *Publisher {
	return &Publisher{
		client: c,
		topic:  topicOrDefault(cfg.Topic),
		retain: cfg.Retain,
		log:    log,
	}
}

func topicOrDefault(topic string) string {
	if topic == "" {
		return DefaultTopic
	}
	return topic
}

// Encode builds the JSON payload of one sample.
func Encode(s rig.Sample) ([]byte, error) {
	return json.Marshal(s)
}

// OnSample publishes s. It satisfies the loop observer interface.
func (p *Publisher) OnSample(s rig.Sample) {
	payload, err := Encode(s)
	if err != nil {
		p.failed.Add(1)
		p.log.Debug("encode sample", zap.Error(err))
		return
	}
	token := p.client.Publish(p.topic, 0, p.retain, payload)
	go func() {
		<-token.Done()
		if err := token.Error(); err != nil {
			p.failed.Add(1)
			p.log.Debug("publish sample", zap.Error(err))
			return
		}
		p.sent.Add(1)
	}()
}

func (p *Publisher) Sent() uint64   { return p.sent.Load() }
func (p *Publisher) Failed() uint64 { return p.failed.Load() }

func (p *Publisher) Close() {
	p.client.Disconnect(disconnectWait)
	p.log.Info("telemetry closed", zap.Uint64("sent", p.Sent()), zap.Uint64("failed", p.Failed()))
}
