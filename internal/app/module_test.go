package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/feedchat/feedchat/internal/bus"
	"github.com/feedchat/feedchat/internal/config"
	"github.com/feedchat/feedchat/internal/outbox"
	"github.com/feedchat/feedchat/internal/profile"
	intsync "github.com/feedchat/feedchat/internal/sync"
	"go.uber.org/fx"
)

func feedServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/1ch":
			w.Header().Set("Content-Type", "application/json")
			if r.URL.Query().Get("lastKnownId") == "1" {
				_, _ = w.Write([]byte(`[{"id":1,"from":"bob","to":"1@ch","data":{"Text":{"text":"hi"}},"time":"1"}]`))
				return
			}
			_, _ = w.Write([]byte(`[]`))
		case r.Method == http.MethodPost && r.URL.Path == "/1ch":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testParams(t *testing.T, url string) Params {
	t.Helper()
	t.Setenv(profile.HomeEnv, t.TempDir())
	cfg := config.Default()
	cfg.FeedURL = url
	cfg.Username = "alice"
	return Params{Profile: "test", Program: "test", Config: cfg, Quiet: true}
}

func TestModuleLifecycle(t *testing.T) {
	srv := feedServer(t)
	p := testParams(t, srv.URL)

	var (
		engine     *intsync.Engine
		dispatcher *outbox.Dispatcher
		b          *bus.Bus
	)
	app := fx.New(Module(p), fx.Populate(&engine, &dispatcher, &b), fx.NopLogger)
	if err := app.Err(); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.Start(ctx); err != nil {
		t.Fatal(err)
	}

	if err := dispatcher.SendText(ctx, "hello", "alice", "1@ch"); err != nil {
		t.Fatalf("SendText() error = %v", err)
	}
	if engine.Len() != 1 {
		t.Errorf("log length after send = %d, want 1 (poll after send)", engine.Len())
	}

	if err := app.Stop(ctx); err != nil {
		t.Fatal(err)
	}

	// The store survives a restart and is loaded on start.
	app2 := fx.New(Module(p), fx.Populate(&engine), fx.NopLogger)
	if err := app2.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = app2.Stop(ctx) }()
	if engine.Len() != 1 {
		t.Errorf("log length after restart = %d, want 1", engine.Len())
	}
}

func TestModuleProfileLocked(t *testing.T) {
	srv := feedServer(t)
	p := testParams(t, srv.URL)
	ctx := context.Background()

	first := fx.New(Module(p), fx.NopLogger)
	if err := first.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = first.Stop(ctx) }()

	second := fx.New(Module(p), fx.NopLogger)
	err := second.Err()
	if err == nil {
		_ = second.Stop(ctx)
		t.Fatal("second app on the same profile should fail")
	}
	if !strings.Contains(err.Error(), "profile in use") {
		t.Errorf("err = %v, want lock held error", err)
	}
}
