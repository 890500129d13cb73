/* Copyright 2026 Comcast Cable Communications Management, LLC
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

package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// PublishTimeout bounds each publish.
var PublishTimeout = 10 * time.Second

// mqttSink publishes emitted events to a topic.
type mqttSink struct {
	client mqtt.Client
	topic  string
	qos    byte
	log    *slog.Logger
}

func newMQTTSink(broker, topic string, logger *slog.Logger) (*mqttSink, error) {
	mqtt.ERROR = log.New(os.Stderr, "mqtt.error ", 0)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID("shoots-" + uuid.NewString())
	opts.SetKeepAlive(10 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.AutoReconnect = true
	opts.CleanSession = true
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", "err", err)
	}

	c := mqtt.NewClient(opts)
	if t := c.Connect(); t.Wait() && t.Error() != nil {
		return nil, t.Error()
	}
	logger.Debug("MQTT connected", "broker", broker, "topic", topic)

	return &mqttSink{
		client: c,
		topic:  topic,
		log:    logger,
	}, nil
}

// Emit is a core.Emitter.
func (s *mqttSink) Emit(ctx context.Context, name string, payload interface{}) error {
	bs, err := eventMessage(name, payload)
	if err != nil {
		return err
	}
	t := s.client.Publish(s.topic, s.qos, false, bs)
	if !t.WaitTimeout(PublishTimeout) {
		return errors.New("MQTT publish timed out")
	}
	if err = t.Error(); err != nil {
		return err
	}
	s.log.Debug("published", "topic", s.topic, "event", name)
	return nil
}

func (s *mqttSink) Close() {
	s.client.Disconnect(100)
}
