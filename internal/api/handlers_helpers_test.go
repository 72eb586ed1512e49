// Trolley - Real-Time Shopping Event Analytics
// Copyright 2026 Trolley contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trolleyhq/trolley

package api

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/trolleyhq/trolley/internal/models"
)

func TestSanitizeLogValue(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"clean", "hello", "hello"},
		{"newline", "a\nb", "a\\x0ab"},
		{"carriage return", "a\rb", "a\\x0db"},
		{"delete", "a\x7fb", "a\\x7fb"},
		{"unicode untouched", "héllo", "héllo"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeLogValue(tt.input); got != tt.want {
				t.Errorf("sanitizeLogValue(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestGenerateETagStable(t *testing.T) {
	a := generateETag([]byte("payload"))
	b := generateETag([]byte("payload"))
	c := generateETag([]byte("different"))
	if a != b {
		t.Error("same payload must hash to the same ETag")
	}
	if a == c {
		t.Error("different payloads should hash differently")
	}
}

func TestRespondJSONSetsHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	respondJSON(rec, 200, &models.APIResponse{
		Status:   "ok",
		Metadata: models.Metadata{Timestamp: time.Now()},
	})

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if rec.Header().Get("ETag") == "" {
		t.Error("missing ETag header")
	}
}
