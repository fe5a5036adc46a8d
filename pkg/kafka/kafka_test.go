package kafka

import (
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

func TestBackoffWithJitter(t *testing.T) {
	min, max := 100*time.Millisecond, time.Second
	tests := []struct {
		attempt int
		lo, hi  time.Duration
	}{
		{1, 50 * time.Millisecond, 100 * time.Millisecond},
		{2, 100 * time.Millisecond, 200 * time.Millisecond},
		{4, 400 * time.Millisecond, 800 * time.Millisecond},
		{10, 500 * time.Millisecond, time.Second},
		{64, 500 * time.Millisecond, time.Second},
	}
	for _, tt := range tests {
		for i := 0; i < 20; i++ {
			d := backoffWithJitter(min, max, tt.attempt)
			if d <= tt.lo-time.Nanosecond || d > tt.hi {
				t.Fatalf("attempt %d: %v outside (%v, %v]", tt.attempt, d, tt.lo, tt.hi)
			}
		}
	}
}

func TestParseCompression(t *testing.T) {
	tests := map[string]kafka.Compression{
		"gzip":   kafka.Gzip,
		"snappy": kafka.Snappy,
		"lz4":    kafka.Lz4,
		"zstd":   kafka.Zstd,
		"none":   0,
	}
	for in, want := range tests {
		if got := parseCompression(in); got != want {
			t.Errorf("parseCompression(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestEncode(t *testing.T) {
	tests := []struct {
		in   interface{}
		want string
	}{
		{[]byte("raw"), "raw"},
		{"text", "text"},
		{map[string]int{"a": 1}, `{"a":1}`},
	}
	for _, tt := range tests {
		b, err := encode(tt.in)
		if err != nil {
			t.Fatal(err)
		}
		if string(b) != tt.want {
			t.Errorf("encode(%v) = %s, want %s", tt.in, b, tt.want)
		}
	}
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	if _, err := NewProducer(); err == nil {
		t.Fatal("expected error without brokers")
	}
	p, err := NewProducer(WithBrokers([]string{"localhost:9092"}), WithCompression("zstd"))
	if err != nil {
		t.Fatal(err)
	}
	_ = p.Close()
}
