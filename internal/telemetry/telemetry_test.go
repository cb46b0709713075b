package telemetry

import (
	"context"
	"testing"
)

func TestInitWithoutEndpointIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{ServiceName: "lumiere"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if shutdown == nil {
		t.Fatal("expected shutdown func")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("noop shutdown returned %v", err)
	}
}

func TestStripScheme(t *testing.T) {
	cases := map[string]string{
		"http://otel:4318":  "otel:4318",
		"https://otel:4318": "otel:4318",
		"otel:4318":         "otel:4318",
	}
	for in, want := range cases {
		if got := stripScheme(in); got != want {
			t.Errorf("stripScheme(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSampleRatioBounds(t *testing.T) {
	if sampleRatio(0) != 1 || sampleRatio(-1) != 1 || sampleRatio(2) != 1 {
		t.Fatal("out-of-range ratios should default to 1")
	}
	if sampleRatio(0.25) != 0.25 {
		t.Fatal("in-range ratio should be kept")
	}
}
