package status

import (
	"errors"
	"testing"
	"time"
)

func TestParseWindowValid(t *testing.T) {
	w, err := ParseWindow("2025-01-02 00:00:00", "2025-01-03 23:59:59", time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.StartEpoch() != 1735776000 {
		t.Fatalf("unexpected start epoch %d", w.StartEpoch())
	}
	if w.EndEpoch() != 1735948799 {
		t.Fatalf("unexpected end epoch %d", w.EndEpoch())
	}
}

func TestParseWindowRejectsBadFormat(t *testing.T) {
	cases := [][2]string{
		{"2025-01-02", "2025-01-03 00:00:00"},
		{"2025-01-02 00:00:00", "03/01/2025 00:00:00"},
		{"", "2025-01-03 00:00:00"},
		{"2025-01-02 00:00:00", ""},
	}
	for _, tc := range cases {
		if _, err := ParseWindow(tc[0], tc[1], time.UTC); !errors.Is(err, ErrInvalidDateFormat) {
			t.Fatalf("ParseWindow(%q, %q): expected ErrInvalidDateFormat, got %v", tc[0], tc[1], err)
		}
	}
}

func TestParseWindowRejectsInvertedRange(t *testing.T) {
	_, err := ParseWindow("2025-01-03 00:00:00", "2025-01-02 00:00:00", time.UTC)
	if !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestParseWindowAcceptsEqualBoundaries(t *testing.T) {
	if _, err := ParseWindow("2025-01-02 12:00:00", "2025-01-02 12:00:00", time.UTC); err != nil {
		t.Fatalf("unexpected error for equal boundaries: %v", err)
	}
}
