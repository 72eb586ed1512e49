// Trolley - Real-Time Shopping Event Analytics
// Copyright 2026 Trolley contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trolleyhq/trolley

package eventprocessor

import "errors"

var (
	// ErrPublisherClosed is returned when publishing after Close.
	ErrPublisherClosed = errors.New("publisher is closed")

	// ErrInvalidConfig is returned for configurations that cannot work.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyPayload is returned when a publish is attempted with no body.
	ErrEmptyPayload = errors.New("payload is empty")
)
