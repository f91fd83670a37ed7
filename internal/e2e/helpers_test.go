//go:build unix

package e2e

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mlcshim/internal/bridge"
	"mlcshim/internal/httpapi"
)

// fakeCLI writes an executable /bin/sh script standing in for mlc_cli_chat.
func fakeCLI(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "mlc_cli_chat")
	if err := os.WriteFile(p, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write fake cli: %v", err)
	}
	return p
}

// newServer starts the real router over a real bridge.
func newServer(t *testing.T, cli string, mutate ...func(*bridge.Config)) (*httptest.Server, *bridge.Bridge) {
	t.Helper()
	cfg := bridge.Config{
		CLIPath:   cli,
		ModelPath: "/models/test",
		ModelLib:  "/models/test/lib.so",
		Device:    "opencl",
		ModelName: "MLC_LLM_Model",
		Timeout:   10 * time.Second,
		ChunkSize: 64,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	br := bridge.New(cfg)
	srv := httptest.NewServer(httpapi.NewMux(br))
	t.Cleanup(srv.Close)
	return srv, br
}
