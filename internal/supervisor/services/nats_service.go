// Trolley - Real-Time Shopping Event Analytics
// Copyright 2026 Trolley contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trolleyhq/trolley

package services

import (
	"context"
	"time"
)

// PipelineRunner is the event pipeline lifecycle the service drives.
type PipelineRunner interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context)
}

// PipelineService runs the event pipeline (embedded NATS, router,
// consumer) under supervision.
type PipelineService struct {
	pipeline        PipelineRunner
	shutdownTimeout time.Duration
	name            string
}

// NewPipelineService wraps the pipeline.
func NewPipelineService(pipeline PipelineRunner) *PipelineService {
	return &PipelineService{
		pipeline:        pipeline,
		shutdownTimeout: 10 * time.Second,
		name:            "event-pipeline",
	}
}

// Serve starts the pipeline, waits for cancellation, and shuts it down
// on a fresh timeout context.
func (s *PipelineService) Serve(ctx context.Context) error {
	if err := s.pipeline.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	s.pipeline.Shutdown(shutdownCtx)
	return ctx.Err()
}

// String names the service in supervision logs.
func (s *PipelineService) String() string {
	return s.name
}
