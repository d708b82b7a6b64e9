// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package storage publishes sensor readings to Redis.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/Thermoquad/sen6x/pkg/sen6x"
)

// Reading is the JSON document published for each measurement
type Reading struct {
	Timestamp time.Time          `json:"timestamp"`
	Variant   string             `json:"variant"`
	Serial    string             `json:"serial"`
	Values    map[string]float64 `json:"values"`
	Anomalies []string           `json:"anomalies,omitempty"`
}

// NewReading builds the published form of v
func NewReading(serial string, v sen6x.Values, anomalies []sen6x.ValidationError, at time.Time) *Reading {
	r := &Reading{
		Timestamp: at.UTC(),
		Variant:   v.Variant.String(),
		Serial:    serial,
		Values:    v.Map(),
	}
	for _, a := range anomalies {
		r.Anomalies = append(r.Anomalies, a.Message)
	}
	return r
}

// MessageQueue publishes readings on a channel and keeps a capped history list
type MessageQueue struct {
	client  *redis.Client
	channel string
	history int64
	log     logrus.FieldLogger
}

// NewMessageQueue connects to Redis and checks the connection
func NewMessageQueue(ctx context.Context, opts *redis.Options, channel string, history int64, log logrus.FieldLogger) (*MessageQueue, error) {
	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}

	log.WithField("addr", opts.Addr).Info("Redis connected")

	return &MessageQueue{
		client:  client,
		channel: channel,
		history: history,
		log:     log,
	}, nil
}

// HistoryKey returns the list key holding the recent readings of a sensor
func HistoryKey(serial string) string {
	return fmt.Sprintf("sen6x:%s:data", serial)
}

// Publish sends r to subscribers and prepends it to the history list
func (mq *MessageQueue) Publish(ctx context.Context, r *Reading) error {
	jsonData, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode reading: %w", err)
	}

	if err := mq.client.Publish(ctx, mq.channel, jsonData).Err(); err != nil {
		return fmt.Errorf("failed to publish reading: %w", err)
	}

	if mq.history <= 0 {
		return nil
	}

	listKey := HistoryKey(r.Serial)
	pipe := mq.client.TxPipeline()
	pipe.LPush(ctx, listKey, jsonData)
	pipe.LTrim(ctx, listKey, 0, mq.history-1)
	if _, err := pipe.Exec(ctx); err != nil {
		mq.log.Warnf("Failed to save reading to %s: %v", listKey, err)
	}

	return nil
}

// Close closes the Redis connection
func (mq *MessageQueue) Close() error {
	return mq.client.Close()
}
