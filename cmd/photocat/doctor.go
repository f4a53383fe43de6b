package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"

	"github.com/fauli/photocat/internal/catalog"
	"github.com/fauli/photocat/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run preflight diagnostic checks",
	Long: `Run diagnostic checks to ensure photocat can operate correctly.

This command checks:
- The external metadata tool (exiftool-compatible)
- SQLite version and catalog integrity
- Source directory accessibility and whether it is network-mounted
- Disk space availability

Use this command to troubleshoot issues before a scan/extract-metadata/plan run.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().String("source", "", "source directory to check (optional)")
	doctorCmd.Flags().String("tool", "", "external metadata tool binary (default exiftool)")
}

type checkResult struct {
	name    string
	message string
	error   bool
	warning bool
}

func runDoctor(cmd *cobra.Command, args []string) error {
	util.InfoLog("=== photocat doctor ===")
	util.InfoLog("")

	var results []checkResult

	toolBinary, _ := cmd.Flags().GetString("tool")
	results = append(results, checkTool(toolBinary))
	results = append(results, checkSQLite())

	dbPath := viper.GetString("db")
	results = append(results, checkDatabase(dbPath))

	source, _ := cmd.Flags().GetString("source")
	if source == "" {
		source = viper.GetString("source")
	}
	if source != "" {
		results = append(results, checkSourceDirectory(source))
		results = append(results, checkNetworkMount(source))
		results = append(results, checkDiskSpace(source))
	}

	util.InfoLog("")
	util.InfoLog("=== Results ===")
	util.InfoLog("")

	hasErrors := false
	hasWarnings := false
	for _, r := range results {
		symbol := "OK"
		if r.error {
			symbol, hasErrors = "FAIL", true
		} else if r.warning {
			symbol, hasWarnings = "WARN", true
		}

		line := fmt.Sprintf("[%s] %s", symbol, r.name)
		if r.message != "" {
			line += fmt.Sprintf(": %s", r.message)
		}

		switch {
		case r.error:
			util.ErrorLog("%s", line)
		case r.warning:
			util.WarnLog("%s", line)
		default:
			util.SuccessLog("%s", line)
		}
	}

	util.InfoLog("")
	if hasErrors {
		util.ErrorLog("Some critical checks failed.")
		return fmt.Errorf("diagnostics failed")
	}
	if hasWarnings {
		util.WarnLog("Some checks produced warnings.")
		return nil
	}
	util.SuccessLog("All checks passed.")
	return nil
}

func checkTool(binary string) checkResult {
	tool, err := catalogMetaTool(binary)
	if err != nil {
		return checkResult{name: "metadata tool", error: true, message: err.Error()}
	}
	return checkResult{name: "metadata tool", message: fmt.Sprintf("version %s", tool)}
}

// catalogMetaTool probes the metadata tool directly rather than importing
// internal/meta, to keep doctor's checks independent of a live Store.
func catalogMetaTool(binary string) (string, error) {
	if binary == "" {
		binary = "exiftool"
	}
	if _, err := exec.LookPath(binary); err != nil {
		return "", fmt.Errorf("%s not found on PATH", binary)
	}
	out, err := exec.Command(binary, "-ver").Output()
	if err != nil {
		return "", fmt.Errorf("probing %s -ver: %w", binary, err)
	}
	return string(out), nil
}

func checkSQLite() checkResult {
	tmpPath := filepath.Join(os.TempDir(), fmt.Sprintf("photocat-doctor-%d.db", os.Getpid()))
	store, err := catalog.Open(tmpPath)
	if err != nil {
		return checkResult{name: "SQLite", error: true, message: err.Error()}
	}
	defer store.Close()
	defer os.Remove(tmpPath)

	var version string
	if err := store.DB().QueryRow("SELECT sqlite_version()").Scan(&version); err != nil {
		return checkResult{name: "SQLite", error: true, message: "unable to determine version"}
	}
	return checkResult{name: "SQLite", message: fmt.Sprintf("version %s (built-in)", version)}
}

func checkDatabase(dbPath string) checkResult {
	if dbPath == "" {
		return checkResult{name: "Catalog", warning: true, message: "no database path specified (use --db)"}
	}

	info, err := os.Stat(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return checkResult{name: "Catalog", message: fmt.Sprintf("%s (will be created on first scan)", dbPath)}
		}
		return checkResult{name: "Catalog", error: true, message: fmt.Sprintf("cannot access %s: %v", dbPath, err)}
	}
	if !info.Mode().IsRegular() {
		return checkResult{name: "Catalog", error: true, message: fmt.Sprintf("%s is not a regular file", dbPath)}
	}

	store, err := catalog.Open(dbPath)
	if err != nil {
		return checkResult{name: "Catalog", error: true, message: fmt.Sprintf("cannot open %s: %v", dbPath, err)}
	}
	defer store.Close()

	if err := store.CheckIntegrity(); err != nil {
		return checkResult{name: "Catalog", error: true, message: err.Error()}
	}

	return checkResult{name: "Catalog", message: fmt.Sprintf("%s (%s, integrity ok)", dbPath, util.HumanBytes(info.Size()))}
}

func checkSourceDirectory(path string) checkResult {
	info, err := os.Stat(path)
	if err != nil {
		return checkResult{name: "Source directory", error: true, message: fmt.Sprintf("cannot access %s: %v", path, err)}
	}
	if !info.IsDir() {
		return checkResult{name: "Source directory", error: true, message: fmt.Sprintf("%s is not a directory", path)}
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return checkResult{name: "Source directory", error: true, message: fmt.Sprintf("cannot read %s: %v", path, err)}
	}
	return checkResult{name: "Source directory", message: fmt.Sprintf("%s (%d entries)", path, len(entries))}
}

func checkNetworkMount(path string) checkResult {
	info, err := util.DetectNetworkFilesystem(path)
	if err != nil {
		return checkResult{name: "Filesystem", warning: true, message: fmt.Sprintf("cannot determine: %v", err)}
	}
	if info.IsNetwork {
		return checkResult{name: "Filesystem", warning: true, message: fmt.Sprintf("%s is network-mounted (%s) — expect slower scans", path, info.Protocol)}
	}
	return checkResult{name: "Filesystem", message: fmt.Sprintf("%s is local", path)}
}

func checkDiskSpace(path string) checkResult {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return checkResult{name: "Disk space", warning: true, message: fmt.Sprintf("cannot determine: %v", err)}
	}

	availBytes := stat.Bavail * uint64(stat.Bsize)
	totalBytes := stat.Blocks * uint64(stat.Bsize)
	usedPercent := 0.0
	if totalBytes > 0 {
		usedPercent = float64(totalBytes-stat.Bfree*uint64(stat.Bsize)) / float64(totalBytes) * 100
	}

	warning := usedPercent > 90
	return checkResult{
		name:    "Disk space",
		warning: warning,
		message: fmt.Sprintf("%s available on %s", util.HumanBytes(int64(availBytes)), filepath.Dir(path)),
	}
}
