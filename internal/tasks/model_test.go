package tasks

import (
	"errors"
	"testing"
)

func TestParseCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code   string
		number int64
		valid  bool
	}{
		{"tt-1", 1, true},
		{"tt-42", 42, true},
		{"TT-7", 7, true},
		{" tt-9 ", 9, true},
		{"tt-007", 7, true},
		{"tt-999999999999", MaxCodeNumber, true},
		{"tt-0", 0, false},
		{"tt-1000000000000", 0, false},
		{"tt-9223372036854775807", 0, false},
		{"tt-", 0, false},
		{"tt--1", 0, false},
		{"tt-1a", 0, false},
		{"xx-1", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		number, err := ParseCode(tt.code)
		if tt.valid {
			if err != nil {
				t.Fatalf("ParseCode(%q) error: %v", tt.code, err)
			}
			if number != tt.number {
				t.Fatalf("ParseCode(%q) = %d, want %d", tt.code, number, tt.number)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidCode) {
			t.Fatalf("ParseCode(%q) expected ErrInvalidCode, got %v", tt.code, err)
		}
	}
}

func TestNormalizeCode(t *testing.T) {
	t.Parallel()

	got, err := NormalizeCode("TT-010")
	if err != nil {
		t.Fatalf("NormalizeCode: %v", err)
	}
	if got != "tt-10" {
		t.Fatalf("expected tt-10, got %q", got)
	}
}

func TestStatusIsValid(t *testing.T) {
	t.Parallel()

	if !StatusOpen.IsValid() || !StatusLinked.IsValid() {
		t.Fatalf("expected open and linked to be valid")
	}
	if Status("done").IsValid() || Status("Open").IsValid() {
		t.Fatalf("expected unknown statuses to be invalid")
	}
}

func TestNextAfterRefusesToOverflow(t *testing.T) {
	t.Parallel()

	next, err := nextAfter(MaxCodeNumber - 1)
	if err != nil || next != MaxCodeNumber {
		t.Fatalf("nextAfter(max-1) = %d, %v; want %d", next, err, MaxCodeNumber)
	}
	for _, highWater := range []int64{MaxCodeNumber, 1<<63 - 1} {
		if _, err := nextAfter(highWater); !errors.Is(err, ErrCodesExhausted) {
			t.Fatalf("nextAfter(%d) expected ErrCodesExhausted, got %v", highWater, err)
		}
	}
}
