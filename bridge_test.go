package fifolink

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/eclipse/paho.golang/paho"
)

type publishedMessage struct {
	topic   string
	payload string
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []publishedMessage
}

func (fp *fakePublisher) Publish(topic string, payload []byte) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	fp.messages = append(fp.messages, publishedMessage{topic, string(payload)})
	return nil
}

func (fp *fakePublisher) received() (topics []string, payload string) {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	for _, msg := range fp.messages {
		topics = append(topics, msg.topic)
		payload += msg.payload
	}
	return
}

func TestMqttBridgeTopics(t *testing.T) {
	mb := &MqttBridge{Topic: "lab/fifo"}
	assertString(t, mb.RxTopic(), "lab/fifo/rx")
	assertString(t, mb.MqttSubscribeTopic(), "lab/fifo/tx")

	mb.ClientId = "bench"
	id, err := mb.clientId()
	assertNoError(t, err)
	assertString(t, id, "bench")
}

func TestMqttBridgeHandle(t *testing.T) {
	fl, bridge := newLink(t, false)
	mb := &MqttBridge{Topic: "lab/fifo"}
	mb.bind(fl.Stream())

	mb.MqttHandle(&paho.Publish{Topic: mb.MqttSubscribeTopic(), Payload: []byte("reset\n")})
	assertString(t, string(bridge.Drain()), "reset\n")
}

func TestMqttBridgePump(t *testing.T) {
	fl, bridge := newLink(t, false)
	mb := &MqttBridge{Topic: "lab/fifo", FlushInterval: Duration(time.Millisecond), MaxChunk: 4}
	mb.bind(fl.Stream())

	bridge.Feed([]byte("sensor=12")...)

	publisher := &fakePublisher{}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assertNoError(t, mb.Pump(ctx, publisher))

	topics, payload := publisher.received()
	assertString(t, payload, "sensor=12")
	if len(topics) < 3 {
		t.Errorf("got %d messages, want chunks of at most 4 bytes", len(topics))
	}
	for _, topic := range topics {
		assertString(t, topic, "lab/fifo/rx")
	}
}

func TestMqttBridgeHandleBounded(t *testing.T) {
	fl, bridge := newLink(t, false)
	bridge.BufferSize = 1
	mb := &MqttBridge{Topic: "lab/fifo", WriteTimeout: Duration(10 * time.Millisecond)}
	mb.bind(fl.Stream())

	done := make(chan struct{})
	go func() {
		mb.MqttHandle(&paho.Publish{Topic: mb.MqttSubscribeTopic(), Payload: []byte("abc")})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("MqttHandle blocked on a full transmit buffer")
	}
	assertString(t, string(bridge.Drain()), "a")
}
