package meta

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/fauli/photocat/internal/util"
)

// Tool is the external metadata tool collaborator (SPEC_FULL §4.3's
// "external metadata tool"): probed once for its version, then invoked in
// batches against source paths.
type Tool interface {
	// Version returns the tool's probed version string.
	Version() string
	// RunBatch invokes the tool against every path in one subprocess and
	// returns one result map per path that produced output, matched later
	// by the caller via SourceFile.
	RunBatch(ctx context.Context, paths []string) ([]map[string]interface{}, error)
}

// execTool is the default Tool, shelling out to an exiftool-compatible
// binary the way the teacher's ffprobe.go shells out to ffprobe, but
// generalized from one-file-per-call to N-files-per-call (§4.3
// "Invocation").
type execTool struct {
	binary  string
	version string
}

// NewExecTool probes binary for its version string. Absence is fatal per
// §4.3's Preflight clause.
func NewExecTool(binary string) (*execTool, error) {
	if binary == "" {
		binary = "exiftool"
	}
	if _, err := exec.LookPath(binary); err != nil {
		return nil, fmt.Errorf("%w: %s not found on PATH", util.ErrToolMissing, binary)
	}

	out, err := exec.Command(binary, "-ver").Output()
	if err != nil {
		return nil, fmt.Errorf("%w: probing %s -ver: %v", util.ErrToolMissing, binary, err)
	}

	return &execTool{binary: binary, version: strings.TrimSpace(string(out))}, nil
}

func (t *execTool) Version() string {
	return t.version
}

// RunBatch shells out to the tool with flags producing JSON output, all
// group-0 tag prefixes, numeric values, and GPS as signed decimal degrees
// with six fractional digits (§4.3 "Invocation").
func (t *execTool) RunBatch(ctx context.Context, paths []string) ([]map[string]interface{}, error) {
	if len(paths) == 0 {
		return nil, nil
	}

	args := append([]string{"-json", "-struct", "-G0", "-n", "-c", "%.6f"}, paths...)
	cmd := exec.CommandContext(ctx, t.binary, args...)

	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("%s failed: %s", t.binary, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("%s execution failed: %w", t.binary, err)
	}

	var results []map[string]interface{}
	if err := json.Unmarshal(output, &results); err != nil {
		return nil, fmt.Errorf("parse %s output: %w", t.binary, err)
	}
	return results, nil
}
