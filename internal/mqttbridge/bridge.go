// Package mqttbridge republishes live readings to an MQTT broker, one topic
// per sensor.
package mqttbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"airmetrics/internal/hub"
	"airmetrics/pkg/types"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// DefaultTopicPrefix is used when Options.TopicPrefix is empty.
const DefaultTopicPrefix = "airmetrics/readings"

var (
	publishedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "airmetrics",
		Subsystem: "mqtt",
		Name:      "published_total",
		Help:      "Readings published to the MQTT broker",
	})
	publishErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "airmetrics",
		Subsystem: "mqtt",
		Name:      "publish_errors_total",
		Help:      "Failed MQTT publishes",
	})
)

func init() {
	prometheus.MustRegister(publishedTotal, publishErrors)
}

// Options configures the broker connection.
type Options struct {
	// Broker such as "tcp://localhost:1883".
	Broker string
	// ClientID defaults to "airmetrics-<uuid>".
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	QoS         byte
	Retain      bool
	// Timeout bounds connect and each publish; default 5s.
	Timeout time.Duration
}

type publishFunc func(topic string, payload []byte) error

// Bridge forwards hub events to MQTT.
type Bridge struct {
	publish publishFunc
	prefix  string
	log     zerolog.Logger
	client  mqtt.Client
}

// Connect dials the broker. The client reconnects on its own after a lost
// connection; publishes during an outage fail and are counted.
func Connect(ctx context.Context, opts Options, log zerolog.Logger) (*Bridge, error) {
	if opts.Broker == "" {
		return nil, errors.New("mqtt: empty broker")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	clientID := opts.ClientID
	if clientID == "" {
		clientID = "airmetrics-" + uuid.NewString()
	}
	co := mqtt.NewClientOptions()
	co.AddBroker(opts.Broker)
	co.SetClientID(clientID)
	co.SetUsername(opts.Username)
	co.SetPassword(opts.Password)
	co.SetAutoReconnect(true)
	co.SetConnectRetry(true)
	co.SetConnectRetryInterval(2 * time.Second)
	co.SetMaxReconnectInterval(30 * time.Second)
	co.OnConnect = func(mqtt.Client) {
		log.Info().Str("broker", opts.Broker).Str("client_id", clientID).Msg("mqtt connected")
	}
	co.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Str("broker", opts.Broker).Msg("mqtt connection lost, reconnecting")
	}

	client := mqtt.NewClient(co)
	token := client.Connect()
	select {
	case <-token.Done():
	case <-time.After(timeout):
		client.Disconnect(0)
		return nil, fmt.Errorf("mqtt connect %s: timeout", opts.Broker)
	case <-ctx.Done():
		client.Disconnect(0)
		return nil, ctx.Err()
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", opts.Broker, err)
	}

	b := newBridge(func(topic string, payload []byte) error {
		t := client.Publish(topic, opts.QoS, opts.Retain, payload)
		if !t.WaitTimeout(timeout) {
			return errors.New("publish timeout")
		}
		return t.Error()
	}, opts.TopicPrefix, log)
	b.client = client
	return b, nil
}

func newBridge(pub publishFunc, prefix string, log zerolog.Logger) *Bridge {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return &Bridge{publish: pub, prefix: prefix, log: log}
}

// Topic returns the topic readings of sensor are published on.
func (b *Bridge) Topic(sensor string) string { return b.prefix + "/" + sensor }

// PublishReading sends r as JSON on its sensor topic.
func (b *Bridge) PublishReading(r types.Reading) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode reading: %w", err)
	}
	if err := b.publish(b.Topic(r.Sensor), payload); err != nil {
		publishErrors.Inc()
		return err
	}
	publishedTotal.Inc()
	return nil
}

// Run forwards "reading" events from sub until ctx is done.
func (b *Bridge) Run(ctx context.Context, sub *hub.Subscriber) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-sub.Events():
			r, ok := ev.Data.(types.Reading)
			if !ok {
				continue
			}
			if err := b.PublishReading(r); err != nil {
				b.log.Warn().Err(err).Str("sensor", r.Sensor).Msg("mqtt publish failed")
			}
		}
	}
}

// Close disconnects from the broker.
func (b *Bridge) Close() {
	if b.client != nil {
		b.client.Disconnect(250)
	}
}
