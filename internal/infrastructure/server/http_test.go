package server

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"go-realtime-template/internal/infrastructure/logger"
)

func TestHTTPServer_StartStop(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "pong")
	})
	srv := NewHTTPServer("127.0.0.1:0", handler, logger.NewNopLogger())

	errc := make(chan error, 1)
	go func() { errc <- srv.Start(context.Background()) }()

	deadline := time.Now().Add(2 * time.Second)
	for srv.Addr() == nil {
		if time.Now().After(deadline) {
			t.Fatal("server did not start listening")
		}
		time.Sleep(10 * time.Millisecond)
	}

	resp, err := http.Get("http://" + srv.Addr().String())
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "pong" {
		t.Errorf("Expected pong, got %q", body)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Start returned %v after graceful stop", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Stop")
	}
}

func TestHTTPServer_StopBeforeStart(t *testing.T) {
	srv := NewHTTPServer(":0", http.NotFoundHandler(), logger.NewNopLogger())
	if err := srv.Stop(context.Background()); err != nil {
		t.Errorf("Stop before Start should be a no-op, got %v", err)
	}
}

func TestHTTPServer_ListenError(t *testing.T) {
	srv := NewHTTPServer("256.0.0.1:bad", http.NotFoundHandler(), logger.NewNopLogger())
	if err := srv.Start(context.Background()); err == nil {
		t.Error("Expected listen error")
	}
}
