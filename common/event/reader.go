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

	"github.com/AliceO2Group/ProcessControl/common/event/topic"
	"github.com/segmentio/kafka-go"
	"google.golang.org/protobuf/types/known/structpb"
)

// Reader provides a blocking, cancellable API to fetch events.
type Reader interface {
	// Next returns the next event or fails if the context is cancelled.
	Next(ctx context.Context) (*structpb.Struct, error)
	Close() error
}

// KafkaReader reads events written by KafkaWriter from one topic.
type KafkaReader struct {
	*kafka.Reader
	topic string
}

func NewReaderWithTopic(brokers []string, t topic.Topic, groupID string) *KafkaReader {
	return &KafkaReader{
		Reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    string(t),
			GroupID:  groupID,
			MinBytes: 1,
			MaxBytes: 10e6,
		}),
		topic: string(t),
	}
}

func (r *KafkaReader) Next(ctx context.Context) (*structpb.Struct, error) {
	if r == nil {
		return nil, fmt.Errorf("nil reader")
	}
	msg, err := r.ReadMessage(ctx)
	if err != nil {
		return nil, err
	}
	return FromKafkaMessage(msg)
}

func (r *KafkaReader) Close() error {
	if r == nil {
		return nil
	}
	return r.Reader.Close()
}
