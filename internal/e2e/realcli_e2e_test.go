package e2e

import (
	"context"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"mlcshim/internal/bridge"
	"mlcshim/internal/client"
	"mlcshim/internal/common/fsutil"
	"mlcshim/internal/httpapi"
	"mlcshim/pkg/types"
)

// TestRealCLI_Haiku streams a haiku from a real mlc_cli_chat build.
// Skips unless MLC_CLI_BIN, MLC_MODEL_PATH and MODEL_LIB are set and the binary is executable.
func TestRealCLI_Haiku(t *testing.T) {
	cli, model, lib := os.Getenv("MLC_CLI_BIN"), os.Getenv("MLC_MODEL_PATH"), os.Getenv("MODEL_LIB")
	if cli == "" || model == "" || lib == "" {
		t.Skip("set MLC_CLI_BIN, MLC_MODEL_PATH and MODEL_LIB to run against a real CLI")
	}
	if err := fsutil.CheckExecutable(cli); err != nil {
		t.Skipf("cli not usable: %v", err)
	}
	device := os.Getenv("MLC_DEVICE")
	if device == "" {
		device = "opencl"
	}
	br := bridge.New(bridge.Config{
		CLIPath:   cli,
		ModelPath: model,
		ModelLib:  lib,
		Device:    device,
		ModelName: "MLC_LLM_Model",
		Timeout:   10 * time.Minute,
	})
	srv := httptest.NewServer(httpapi.NewMux(br))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	var sb strings.Builder
	err := client.New(srv.URL, nil).StreamChat(ctx,
		[]types.ChatMessage{{Role: "user", Content: "Write a haiku about the ocean."}},
		func(tok string) error { sb.WriteString(tok); return nil })
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	if strings.TrimSpace(sb.String()) == "" {
		t.Fatalf("empty answer")
	}
	t.Logf("haiku:\n%s", sb.String())
}
