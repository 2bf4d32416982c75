package tracer

import (
	"context"
	"strings"
	"testing"

	"github.com/dmehra2102/prod-golang-projects/carelink/internal/config"
)

func TestInit_Disabled(t *testing.T) {
	ctx := context.Background()

	tp, err := Init(ctx, config.TracingConfig{Enabled: false}, "test")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { _ = tp.Shutdown(ctx) })

	_, span := tp.Tracer("test").Start(ctx, "noop")
	defer span.End()
	if span.SpanContext().IsSampled() {
		t.Error("disabled tracing should not sample spans")
	}
}

func TestSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1, "AlwaysOnSampler"},
		{2, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{0.25, "TraceIDRatioBased{0.25}"},
	}
	for _, tt := range tests {
		desc := sampler(tt.rate).Description()
		if !strings.HasPrefix(desc, "ParentBased{root:") || !strings.Contains(desc, tt.want) {
			t.Errorf("sampler(%v) = %s, want root %s", tt.rate, desc, tt.want)
		}
	}
}
