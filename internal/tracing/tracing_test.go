package tracing

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	badCA := filepath.Join(t.TempDir(), "ca.crt")
	require.NoError(t, os.WriteFile(badCA, []byte("not a pem"), 0o600))

	tests := []struct {
		name      string
		cfg       Config
		wantErr   string
		wantState bool
	}{
		{name: "disabled", cfg: Config{}, wantState: false},
		{name: "missing endpoint", cfg: Config{Enabled: true}, wantErr: "endpoint not configured"},
		{name: "insecure skip verify", cfg: Config{Enabled: true, Endpoint: "localhost:4317", TLSInsecure: true}, wantState: true},
		{name: "plaintext", cfg: Config{Enabled: true, Endpoint: "localhost:4317"}, wantState: true},
		{name: "missing CA file", cfg: Config{Enabled: true, Endpoint: "localhost:4317", TLSCAPath: "/nonexistent/ca.crt"}, wantErr: "failed to read CA certificate"},
		{name: "invalid CA file", cfg: Config{Enabled: true, Endpoint: "localhost:4317", TLSCAPath: badCA}, wantErr: "failed to append CA certificate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.cfg, "test")
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantState, p.IsEnabled())
			assert.NotNil(t, p.Tracer("faultlens/test"))
			require.NoError(t, p.Start(context.Background()))
			require.NoError(t, p.Stop(context.Background()))
		})
	}
}
