package telemetry

import (
	"context"
	"testing"
)

func TestNewDisabled(t *testing.T) {
	t.Parallel()

	p, err := New(context.Background(), Config{}, "dev")
	if err != nil {
		t.Fatal(err)
	}
	if p.Tracer("test") == nil {
		t.Fatal("Tracer() = nil")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() = %v", err)
	}
}

func TestNilProvider(t *testing.T) {
	t.Parallel()

	var p *Provider
	if p.Tracer("test") == nil {
		t.Fatal("Tracer() = nil")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() = %v", err)
	}
}

func TestExporterOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		endpoint string
		want     int
		wantErr  bool
	}{
		{endpoint: "https://otel.example.com", want: 1},
		{endpoint: "http://localhost:4318", want: 2},
		{endpoint: "http://localhost:4318/collector/", want: 3},
		{endpoint: "localhost", wantErr: true},
		{endpoint: "://bad", wantErr: true},
	}
	for _, tt := range tests {
		opts, err := exporterOptions(Config{Endpoint: tt.endpoint})
		if (err != nil) != tt.wantErr {
			t.Errorf("exporterOptions(%q) error = %v, wantErr %v", tt.endpoint, err, tt.wantErr)
			continue
		}
		if len(opts) != tt.want {
			t.Errorf("exporterOptions(%q) = %d options, want %d", tt.endpoint, len(opts), tt.want)
		}
	}
}

func TestSampler(t *testing.T) {
	t.Parallel()

	half, zero, one := 0.5, 0.0, 1.0
	tests := []struct {
		rate *float64
		want string
	}{
		{rate: nil, want: "AlwaysOnSampler"},
		{rate: &one, want: "AlwaysOnSampler"},
		{rate: &zero, want: "AlwaysOffSampler"},
		{rate: &half, want: "TraceIDRatioBased{0.5}"},
	}
	for _, tt := range tests {
		if got := sampler(tt.rate).Description(); got != tt.want {
			t.Errorf("sampler() = %q, want %q", got, tt.want)
		}
	}
}
