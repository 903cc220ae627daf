package httpapi

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestShouldCreateHTTPAPISpan(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{name: "handler span", in: "httpapi.Handler.Predict", want: true},
		{name: "middleware span", in: "httpapi.RequestLogging", want: false},
		{name: "bare prefix", in: "httpapi.Handler", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldCreateHTTPAPISpan(tt.in); got != tt.want {
				t.Fatalf("shouldCreateHTTPAPISpan(%q)=%v want=%v", tt.in, got, tt.want)
			}
		})
	}
}

func TestStartSpan_NoParentIsNoop(t *testing.T) {
	ctx := context.Background()
	got, span := startSpan(ctx, "httpapi.Handler.Predict", attribute.String("mlb.role", "batter"))
	defer span.End()

	if got != ctx {
		t.Fatalf("expected the original context without a parent span")
	}
	if span.SpanContext().IsValid() {
		t.Fatalf("expected a no-op span")
	}
}
