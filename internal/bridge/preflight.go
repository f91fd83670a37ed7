package bridge

import (
	"strings"

	"mlcshim/internal/common/fsutil"
	"mlcshim/pkg/types"
)

// Preflight runs readiness checks without mutating state. It is safe to call at any time.
func (b *Bridge) Preflight() []types.PreflightCheck {
	checks := make([]types.PreflightCheck, 0, 3)

	cli := types.PreflightCheck{Name: "cli_executable", OK: true}
	if err := fsutil.CheckExecutable(b.cfg.CLIPath); err != nil {
		cli.OK = false
		cli.Detail = err.Error()
	}
	checks = append(checks, cli)

	mp := types.PreflightCheck{Name: "model_path_set", OK: strings.TrimSpace(b.cfg.ModelPath) != ""}
	if !mp.OK {
		mp.Detail = "model path is empty"
	}
	checks = append(checks, mp)

	ml := types.PreflightCheck{Name: "model_lib_set", OK: strings.TrimSpace(b.cfg.ModelLib) != ""}
	if !ml.OK {
		ml.Detail = "model lib is empty"
	}
	checks = append(checks, ml)
	return checks
}

// Ready reports whether the CLI can be spawned. Empty model settings are
// reported by Preflight but do not block readiness.
func (b *Bridge) Ready() bool {
	return fsutil.CheckExecutable(b.cfg.CLIPath) == nil
}
