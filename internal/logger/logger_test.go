package logger

import "testing"

func TestTruncateForLog(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		limit  int
		expect string
	}{
		{
			name:   "returns empty when limit non-positive",
			input:  "hello world",
			limit:  0,
			expect: "",
		},
		{
			name:   "shorter than limit",
			input:  "hello",
			limit:  10,
			expect: "hello",
		},
		{
			name:   "truncates and adds ellipsis",
			input:  "hello world",
			limit:  5,
			expect: "hello...",
		},
		{
			name:   "counts runes not bytes",
			input:  "Пожалуйста",
			limit:  3,
			expect: "Пож...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := TruncateForLog(tt.input, tt.limit); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

func TestNew(t *testing.T) {
	for _, json := range []bool{true, false} {
		l, err := New(json, true)
		if err != nil {
			t.Fatalf("new logger (json=%v): %v", json, err)
		}
		l.Debug("ok")
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("expected no-op logger")
	}
}

func TestEncoderSettings(t *testing.T) {
	cfg := encoderConfig()
	if cfg.MessageKey != "step" || cfg.TimeKey != "time" {
		t.Fatalf("unexpected encoder keys: %+v", cfg)
	}

	if encoding(true) != "json" || encoding(false) != "console" {
		t.Fatalf("unexpected encodings")
	}
	if level(true).String() != "debug" || level(false).String() != "info" {
		t.Fatalf("unexpected levels")
	}
}
