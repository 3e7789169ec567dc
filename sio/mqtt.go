/* Copyright 2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package sio

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MQTT is a Couplings for an MQTT broker.  Requests arrive as JSON
// on the subscription topics, and results are published to
// ResultTopic with "%s" replaced by the bot id.
type MQTT struct {
	Client mqtt.Client

	// SubTopics is a comma-separated list of topics, each
	// optionally TOPIC:QOS.
	SubTopics string

	// ResultTopic is where results are published.
	ResultTopic string

	// BotID is used for requests that don't name a bot.
	BotID string

	Quiesce   uint
	InTimeout time.Duration

	Logger *zap.Logger

	in   chan *Request
	out  chan *Result
	done chan bool
	stop chan bool
}

// NewMQTT makes an MQTT coupling with a paho client for the broker.
func NewMQTT(broker, clientId, subTopics, resultTopic, botId string) *MQTT {
	c := &MQTT{
		SubTopics:   subTopics,
		ResultTopic: resultTopic,
		BotID:       botId,
		Quiesce:     100,
		InTimeout:   5 * time.Second,
		Logger:      zap.NewNop(),
		in:          make(chan *Request),
		out:         make(chan *Result),
		done:        make(chan bool),
		stop:        make(chan bool),
	}
	if broker == "" {
		return c
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientId)
	opts.SetKeepAlive(time.Minute)
	opts.SetPingTimeout(10 * time.Second)
	opts.AutoReconnect = true
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		c.Logger.Warn("MQTT connection lost", zap.Error(err))
	}
	c.Client = mqtt.NewClient(opts)
	return c
}

// consume turns a payload into a Request.  A payload that isn't a
// JSON Request is the input text.
func (c *MQTT) consume(ctx context.Context, topic string, payload []byte) {
	var req Request
	if err := json.Unmarshal(payload, &req); err != nil || req.Text == "" {
		req = Request{Text: string(payload)}
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.BotID == "" {
		req.BotID = c.BotID
	}
	if req.UserID == "" {
		req.UserID = topic
	}

	to := time.NewTimer(c.InTimeout)
	defer to.Stop()

	select {
	case <-ctx.Done():
	case c.in <- &req:
	case <-to.C:
		c.Logger.Warn("MQTT input stalled", zap.String("topic", topic))
	}
}

// Start connects and subscribes.
func (c *MQTT) Start(ctx context.Context) error {
	if c.Client == nil {
		return fmt.Errorf("no MQTT client")
	}
	if t := c.Client.Connect(); t.Wait() && t.Error() != nil {
		return t.Error()
	}
	c.Logger.Info("connected to broker")

	handler := func(client mqtt.Client, msg mqtt.Message) {
		c.consume(ctx, msg.Topic(), msg.Payload())
	}

	for _, topic := range strings.Split(c.SubTopics, ",") {
		topic, qos := parseTopic(strings.TrimSpace(topic))
		if topic == "" {
			continue
		}
		if t := c.Client.Subscribe(topic, qos, handler); t.Wait() && t.Error() != nil {
			return t.Error()
		}
		c.Logger.Info("subscribed", zap.String("topic", topic), zap.Int("qos", int(qos)))
	}
	return nil
}

// IO starts publishing results.
func (c *MQTT) IO(ctx context.Context) (chan *Request, chan *Result, chan bool, error) {
	go c.outLoop(ctx)
	return c.in, c.out, c.done, nil
}

func (c *MQTT) outLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stop:
			return
		case r := <-c.out:
			if r == nil {
				return
			}
			js, err := json.Marshal(r)
			if err != nil {
				c.Logger.Error("marshal", zap.Error(err))
				continue
			}
			topic := c.ResultTopic
			if strings.Contains(topic, "%s") {
				topic = fmt.Sprintf(topic, r.BotID)
			}
			t := c.Client.Publish(topic, 1, false, js)
			if t.Wait() && t.Error() != nil {
				c.Logger.Error("publish", zap.String("topic", topic), zap.Error(t.Error()))
			}
		}
	}
}

// Stop disconnects.
func (c *MQTT) Stop(context.Context) error {
	close(c.stop)
	if c.Client != nil {
		c.Client.Disconnect(c.Quiesce)
	}
	return nil
}

// parseTopic extracts QoS from a topic name of the form TOPIC:QOS.
func parseTopic(s string) (string, byte) {
	i := strings.LastIndexByte(s, ':')
	if i < 0 {
		return s, 0
	}
	var qos byte
	if _, err := fmt.Sscanf(s[i+1:], "%d", &qos); err != nil || 2 < qos {
		return s, 0
	}
	return s[:i], qos
}
