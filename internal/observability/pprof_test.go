package observability

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/riskibarqy/mlb-betting/internal/config"
	"github.com/riskibarqy/mlb-betting/internal/platform/logging"
)

func TestPprofMux_ServesNamedProfiles(t *testing.T) {
	mux := newPprofMux()
	for _, path := range []string{"/debug/pprof/", "/debug/pprof/heap", "/debug/pprof/goroutine", "/debug/pprof/cmdline"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestStartPprofServer_Disabled(t *testing.T) {
	stop, err := StartPprofServer(config.Config{PprofEnabled: false, PprofAddr: ":6060"}, logging.NewNop())
	if err != nil {
		t.Fatalf("start pprof: %v", err)
	}
	if err := stop(context.Background()); err != nil {
		t.Fatalf("stop pprof: %v", err)
	}
}

func TestStartPprofServer_FailsOnBusyPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	_, err = StartPprofServer(config.Config{PprofEnabled: true, PprofAddr: ln.Addr().String()}, logging.NewNop())
	if err == nil {
		t.Fatalf("expected bind error on busy port")
	}
}

func TestStartPprofServer_StartsAndStops(t *testing.T) {
	stop, err := StartPprofServer(config.Config{PprofEnabled: true, PprofAddr: "127.0.0.1:0"}, logging.NewNop())
	if err != nil {
		t.Fatalf("start pprof: %v", err)
	}
	if err := stop(context.Background()); err != nil {
		t.Fatalf("stop pprof: %v", err)
	}
}
