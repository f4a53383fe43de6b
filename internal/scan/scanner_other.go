//go:build !linux && !darwin
// +build !linux,!darwin

package scan

import (
	"os"

	"github.com/fauli/photocat/internal/catalog"
)

// applyPlatformTimes is a no-op stub on platforms with no raw stat_t
// access; ctime/birthtime/atime stay null.
func applyPlatformTimes(f *catalog.File, info os.FileInfo) {}
