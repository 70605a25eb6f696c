/*
 * === This file is part of ALICE O² ===
 *
 * Copyright 2024 CERN and copyright holders of ALICE O².
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 * In applying this license CERN does not waive the privileges and
 * immunities granted to it by virtue of its status as an
 * Intergovernmental Organization or submit itself to any jurisdiction.
 */

package event

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AliceO2Group/ProcessControl/common/event/topic"
	"github.com/AliceO2Group/ProcessControl/common/logger"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

var log = logger.New(logrus.StandardLogger(), "event")

const writerBatchSize = 100

type Writer interface {
	WriteEvent(e Event)
	Close()
}

// DummyWriter drops every event, used when no Kafka endpoint is configured.
type DummyWriter struct{}

func (*DummyWriter) WriteEvent(Event) {}
func (*DummyWriter) Close()           {}

// NewWriter returns a KafkaWriter when kafkaEndpoints is configured and a
// DummyWriter otherwise.
func NewWriter() Writer {
	endpoints := viper.GetStringSlice("kafkaEndpoints")
	if len(endpoints) == 0 {
		return &DummyWriter{}
	}
	return NewKafkaWriter(endpoints)
}

// KafkaWriter queues events in a FifoBuffer and writes them in batches from
// a background goroutine, so that WriteEvent never blocks the caller.
type KafkaWriter struct {
	*kafka.Writer
	messageBuffer *FifoBuffer[kafka.Message]
	done          chan struct{}
	closeOnce     sync.Once

	// overridable in tests
	writeFunction func(messages []kafka.Message)
}

func NewKafkaWriter(endpoints []string) *KafkaWriter {
	w := &KafkaWriter{
		Writer: &kafka.Writer{
			Addr:                   kafka.TCP(endpoints...),
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
			BatchTimeout:           100 * time.Millisecond,
		},
		messageBuffer: NewFifoBuffer[kafka.Message](),
		done:          make(chan struct{}),
	}
	w.writeFunction = w.writeMessages
	go w.writingLoop()
	return w
}

func (w *KafkaWriter) WriteEvent(e Event) {
	if w == nil || e == nil {
		return
	}
	msg, err := ToKafkaMessage(e)
	if err != nil {
		log.WithError(err).
			WithField("event", e.GetName()).
			WithField("level", logger.IL_Support).
			Error("cannot encode event")
		return
	}
	w.messageBuffer.Push(msg)
}

func (w *KafkaWriter) writingLoop() {
	defer close(w.done)
	for {
		messages := w.messageBuffer.PopMultiple(writerBatchSize)
		if len(messages) == 0 {
			return
		}
		w.writeFunction(messages)
	}
}

func (w *KafkaWriter) writeMessages(messages []kafka.Message) {
	err := w.WriteMessages(context.Background(), messages...)
	if err != nil {
		log.WithError(err).
			WithField("count", len(messages)).
			WithField("level", logger.IL_Support).
			Warn("failed to write events to Kafka")
	}
}

// Close flushes the queued events and closes the underlying Kafka writer.
func (w *KafkaWriter) Close() {
	if w == nil {
		return
	}
	w.closeOnce.Do(func() {
		w.messageBuffer.Close()
		<-w.done
		if w.Writer != nil {
			_ = w.Writer.Close()
		}
	})
}

// ToStruct encodes an event as a protobuf Struct carrying the event name and
// all of its fields.
func ToStruct(e Event) (*structpb.Struct, error) {
	fields := e.Fields()
	fields["name"] = e.GetName()
	return structpb.NewStruct(fields)
}

func ToKafkaMessage(e Event) (kafka.Message, error) {
	payload, err := ToStruct(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to convert event %s: %w", e.GetName(), err)
	}
	data, err := proto.Marshal(payload)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal event %s: %w", e.GetName(), err)
	}
	return kafka.Message{
		Topic: string(e.GetTopic()),
		Key:   []byte(e.GetKey()),
		Value: data,
		Time:  e.GetTimestamp(),
	}, nil
}

// FromKafkaMessage decodes a message written by KafkaWriter.
func FromKafkaMessage(m kafka.Message) (*structpb.Struct, error) {
	var payload structpb.Struct
	if err := proto.Unmarshal(m.Value, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal kafka message: %w", err)
	}
	return &payload, nil
}

// Topics lists every topic written to by this package, for readers that
// want to follow all of them.
func Topics() []topic.Topic {
	return []topic.Topic{
		topic.Service_StateChange,
		topic.Recipe_Transition,
		topic.Recipe_State,
		topic.Recipe_Run,
	}
}
