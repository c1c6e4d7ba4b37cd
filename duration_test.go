package excache

import (
	"errors"
	"testing"
	"time"
)

func TestNewDuration(t *testing.T) {
	d, err := NewDuration(5, time.Second)
	if err != nil {
		t.Fatalf("NewDuration: %v", err)
	}
	if got := d.Span(); got != 5*time.Second {
		t.Fatalf("Span = %v, want 5s", got)
	}
	if d.IsZero() || d.IsEternal() {
		t.Fatalf("5s duration misclassified: zero=%v eternal=%v", d.IsZero(), d.IsEternal())
	}
}

func TestNewDurationRejectsBadInputs(t *testing.T) {
	cases := []struct {
		name   string
		amount int64
		unit   time.Duration
	}{
		{"negative amount", -1, time.Second},
		{"zero unit", 1, 0},
		{"negative unit", 1, -time.Second},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewDuration(tc.amount, tc.unit); !errors.Is(err, ErrInvalidDuration) {
				t.Fatalf("err = %v, want ErrInvalidDuration", err)
			}
		})
	}
}

func TestNewDurationZeroAmount(t *testing.T) {
	d, err := NewDuration(0, time.Second)
	if err != nil {
		t.Fatalf("NewDuration(0, 1s): %v", err)
	}
	if !d.IsZero() {
		t.Fatalf("0*unit should be ZeroDuration")
	}
}

func TestSpanClampsNegative(t *testing.T) {
	if d := Span(-time.Second); !d.IsZero() {
		t.Fatalf("negative span should collapse to ZeroDuration, got %v", d)
	}
}

func TestSentinels(t *testing.T) {
	if !ZeroDuration.IsZero() || ZeroDuration.IsEternal() {
		t.Fatalf("ZeroDuration misclassified")
	}
	if !Eternal.IsEternal() || Eternal.IsZero() {
		t.Fatalf("Eternal misclassified")
	}
	if got := Eternal.Span(); got != 0 {
		t.Fatalf("Eternal.Span = %v, want 0", got)
	}
	var zero Duration
	if !zero.IsZero() {
		t.Fatalf("zero value of Duration should be ZeroDuration")
	}
}

func TestDeadline(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	d := Span(time.Minute)
	if got := d.Deadline(now); !got.Equal(now.Add(time.Minute)) {
		t.Fatalf("Deadline = %v, want %v", got, now.Add(time.Minute))
	}
	if got := Eternal.Deadline(now); !got.IsZero() {
		t.Fatalf("Eternal.Deadline should be zero time, got %v", got)
	}
}

func TestDurationString(t *testing.T) {
	if got := Eternal.String(); got != "eternal" {
		t.Fatalf("Eternal.String = %q", got)
	}
	if got := Span(90 * time.Second).String(); got != "1m30s" {
		t.Fatalf("Span(90s).String = %q", got)
	}
}
