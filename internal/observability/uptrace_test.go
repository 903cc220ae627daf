package observability

import (
	"context"
	"testing"

	"github.com/riskibarqy/mlb-betting/internal/config"
	"github.com/riskibarqy/mlb-betting/internal/platform/logging"
)

func TestInitUptrace_NoopWithoutExporter(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
	}{
		{name: "disabled", cfg: config.Config{UptraceEnabled: false, UptraceDSN: "https://token@api.uptrace.dev/1"}},
		{name: "blank dsn", cfg: config.Config{UptraceEnabled: true, UptraceDSN: "  ", UptraceLogsEnabled: true}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.cfg.ServiceName = "mlb-betting-api"
			tc.cfg.ServiceVersion = "dev"
			tc.cfg.AppEnv = config.EnvDev

			shutdown, err := InitUptrace(tc.cfg, logging.NewNop())
			if err != nil {
				t.Fatalf("init uptrace: %v", err)
			}
			if err := shutdown(context.Background()); err != nil {
				t.Fatalf("shutdown uptrace: %v", err)
			}
		})
	}
}
