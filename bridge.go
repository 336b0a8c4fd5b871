package fifolink

import (
	"context"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/denisbrodbeck/machineid"
	"github.com/eclipse/paho.golang/paho"
	"github.com/pkg/errors"

	"github.com/hubertat/fifolink/mqtt"
)

const defaultFlushInterval = 100 * time.Millisecond
const defaultMaxChunk = 512
const disconnectTimeout = 3 * time.Second
const defaultHandleTimeout = 2 * time.Second

// MqttBridge forwards the fifo over MQTT: bytes received from the usb host
// are published on <Topic>/rx, payloads arriving on <Topic>/tx are written
// to the host.
type MqttBridge struct {
	Broker        string
	ClientId      string
	Topic         string
	FlushInterval Duration
	MaxChunk      int
	// WriteTimeout bounds writing one received payload to the fifo.
	WriteTimeout Duration

	stream *Stream
	logger *log.Logger
}

func (mb *MqttBridge) bind(s *Stream) {
	mb.stream = s
	mb.logger = log.NewWithOptions(os.Stderr, log.Options{
		Prefix: "MqttBridge 📡: ",
		Level:  log.GetLevel(),
	})
}

func (mb *MqttBridge) RxTopic() string {
	return mb.Topic + "/rx"
}

func (mb *MqttBridge) MqttSubscribeTopic() string {
	return mb.Topic + "/tx"
}

func (mb *MqttBridge) MqttHandle(pub *paho.Publish) {
	if mb.stream == nil {
		return
	}
	timeout := mb.WriteTimeout.Std()
	if timeout <= 0 {
		timeout = defaultHandleTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	n, err := mb.stream.WriteContext(ctx, pub.Payload)
	if err != nil {
		mb.logger.Error("failed writing mqtt payload to fifo", "written", n, "size", len(pub.Payload), "err", err)
		return
	}
	mb.logger.Debug("mqtt payload written to fifo", "size", n)
}

// Pump publishes received bytes every FlushInterval until ctx ends.
func (mb *MqttBridge) Pump(ctx context.Context, publisher mqtt.Publisher) error {
	interval := mb.FlushInterval.Std()
	if interval <= 0 {
		interval = defaultFlushInterval
	}
	chunk := mb.MaxChunk
	if chunk <= 0 {
		chunk = defaultMaxChunk
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			data, err := mb.stream.Drain(chunk)
			if len(data) > 0 {
				if pubErr := publisher.Publish(mb.RxTopic(), data); pubErr != nil {
					mb.logger.Error("failed to publish fifo data", "size", len(data), "err", pubErr)
				}
			}
			if err != nil {
				return errors.Wrap(err, "failed draining fifo")
			}
		}
	}
}

func (mb *MqttBridge) clientId() (string, error) {
	if len(mb.ClientId) > 0 {
		return mb.ClientId, nil
	}
	id, err := machineid.ProtectedID(mb.Topic)
	if err != nil {
		return "", errors.Wrap(err, "failed to derive mqtt client id")
	}
	return mb.Topic + "-" + id[:12], nil
}

func (mb *MqttBridge) Run(ctx context.Context, s *Stream) error {
	if len(mb.Broker) == 0 {
		return errors.New("mqtt broker not set")
	}
	mb.bind(s)

	clientId, err := mb.clientId()
	if err != nil {
		return err
	}

	mc, err := mqtt.NewMqttClient(mb.Broker, clientId)
	if err != nil {
		return errors.Wrap(err, "failed to create mqtt client")
	}
	if err = mc.Connect([]mqtt.MqttHandler{mb}); err != nil {
		return errors.Wrap(err, "failed to connect to mqtt broker")
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
		defer cancel()
		mc.Disconnect(dctx)
	}()

	mb.logger.Info("bridging fifo", "broker", mb.Broker, "rx", mb.RxTopic(), "tx", mb.MqttSubscribeTopic())
	return mb.Pump(ctx, mc)
}
