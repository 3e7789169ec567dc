package sio

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/goleak"
)

type fakeToken struct {
	mqtt.Token
}

func (fakeToken) Wait() bool   { return true }
func (fakeToken) Error() error { return nil }

type fakeMessage struct {
	mqtt.Message
	topic   string
	payload []byte
}

func (m *fakeMessage) Topic() string   { return m.topic }
func (m *fakeMessage) Payload() []byte { return m.payload }

type publication struct {
	topic   string
	payload []byte
}

type fakeClient struct {
	mqtt.Client

	sync.Mutex
	handlers map[string]mqtt.MessageHandler

	subscribed chan string
	published  chan publication
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		handlers:   make(map[string]mqtt.MessageHandler),
		subscribed: make(chan string, 8),
		published:  make(chan publication, 8),
	}
}

func (c *fakeClient) Connect() mqtt.Token { return fakeToken{} }

func (c *fakeClient) Disconnect(quiesce uint) {}

func (c *fakeClient) Subscribe(topic string, qos byte, h mqtt.MessageHandler) mqtt.Token {
	c.Lock()
	c.handlers[topic] = h
	c.Unlock()
	c.subscribed <- topic
	return fakeToken{}
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.published <- publication{topic, payload.([]byte)}
	return fakeToken{}
}

func (c *fakeClient) deliver(topic string, payload string) {
	c.Lock()
	h := c.handlers[topic]
	c.Unlock()
	h(c, &fakeMessage{topic: topic, payload: []byte(payload)})
}

func TestMQTT(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	e, _ := testEngine(t)
	conv := NewConversation(e.Interpreter, nil)

	client := newFakeClient()
	c := NewMQTT("", "", "aiml/in:1", "aiml/out/%s", "alice")
	c.Client = client

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		errs <- Run(ctx, conv, c)
	}()

	select {
	case topic := <-client.subscribed:
		if topic != "aiml/in" {
			t.Fatal(topic)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no subscription")
	}

	for _, tc := range []struct {
		payload, user, want string
	}{
		{`{"user":"u9","input":"hello"}`, "u9", "Hi there. What is your name?"},
		{`hello`, "aiml/in", "Hi there. What is your name?"},
	} {
		go client.deliver("aiml/in", tc.payload)

		select {
		case p := <-client.published:
			if p.topic != "aiml/out/alice" {
				t.Fatal(p.topic)
			}
			var r Result
			if err := json.Unmarshal(p.payload, &r); err != nil {
				t.Fatal(err)
			}
			if r.Response != tc.want || r.UserID != tc.user {
				t.Fatal(string(p.payload))
			}
		case <-time.After(5 * time.Second):
			t.Fatal("nothing published")
		}
	}

	cancel()
	if err := <-errs; err != nil {
		t.Fatal(err)
	}
}

func TestParseTopic(t *testing.T) {
	for in, want := range map[string]struct {
		topic string
		qos   byte
	}{
		"a/b":   {"a/b", 0},
		"a/b:1": {"a/b", 1},
		"a/b:2": {"a/b", 2},
		"a/b:7": {"a/b:7", 0},
		"a:b/c": {"a:b/c", 0},
	} {
		topic, qos := parseTopic(in)
		if topic != want.topic || qos != want.qos {
			t.Fatalf("%q: %q %d", in, topic, qos)
		}
	}
}
