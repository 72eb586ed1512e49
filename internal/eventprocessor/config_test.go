// Trolley - Real-Time Shopping Event Analytics
// Copyright 2026 Trolley contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trolleyhq/trolley

package eventprocessor

import "testing"

func TestDefaultStreamConfig(t *testing.T) {
	cfg := DefaultStreamConfig()
	if cfg.Name != "SHOP_EVENTS" {
		t.Errorf("Name = %q, want SHOP_EVENTS", cfg.Name)
	}
	if len(cfg.Subjects) != 1 || cfg.Subjects[0] != "shop.>" {
		t.Errorf("Subjects = %v, want [shop.>]", cfg.Subjects)
	}
}

func TestDefaultSubscriberConfig(t *testing.T) {
	cfg := DefaultSubscriberConfig("nats://127.0.0.1:4222")
	if cfg.SubscribersCount != 1 {
		t.Errorf("SubscribersCount = %d, want 1 for serialized processing", cfg.SubscribersCount)
	}
	if cfg.DurableName != "shop-processor" {
		t.Errorf("DurableName = %q, want shop-processor", cfg.DurableName)
	}
	if cfg.QueueGroup != "aggregators" {
		t.Errorf("QueueGroup = %q, want aggregators", cfg.QueueGroup)
	}
	if cfg.StreamName != DefaultStreamName {
		t.Errorf("StreamName = %q, want %q", cfg.StreamName, DefaultStreamName)
	}
}

func TestNewSubscriberRejectsParallelConsumers(t *testing.T) {
	cfg := DefaultSubscriberConfig("nats://127.0.0.1:4222")
	cfg.SubscribersCount = 4
	if _, err := NewSubscriber(cfg, nil); err == nil {
		t.Error("expected error for SubscribersCount > 1")
	}
}
