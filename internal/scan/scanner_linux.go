//go:build linux
// +build linux

package scan

import (
	"os"
	"syscall"
	"time"

	"github.com/fauli/photocat/internal/catalog"
)

// applyPlatformTimes fills ctime/atime from the raw Linux stat_t; Linux has
// no birthtime in syscall.Stat_t, so birthtime_* stays null.
func applyPlatformTimes(f *catalog.File, info os.FileInfo) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return
	}

	ctime := time.Unix(stat.Ctim.Sec, stat.Ctim.Nsec)
	ctimeEpoch := float64(ctime.UnixNano()) / 1e9
	ctimeUnix := ctime.Unix()
	f.CtimeEpoch = &ctimeEpoch
	f.CtimeUnix = &ctimeUnix

	atime := time.Unix(stat.Atim.Sec, stat.Atim.Nsec)
	atimeEpoch := float64(atime.UnixNano()) / 1e9
	atimeUnix := atime.Unix()
	f.AtimeEpoch = &atimeEpoch
	f.AtimeUnix = &atimeUnix
}
