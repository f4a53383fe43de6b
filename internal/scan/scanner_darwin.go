//go:build darwin
// +build darwin

package scan

import (
	"os"
	"syscall"
	"time"

	"github.com/fauli/photocat/internal/catalog"
)

// applyPlatformTimes fills ctime/birthtime/atime from the raw Darwin
// stat_t, which carries a true creation time unlike Linux.
func applyPlatformTimes(f *catalog.File, info os.FileInfo) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return
	}

	ctime := time.Unix(stat.Ctimespec.Sec, stat.Ctimespec.Nsec)
	ctimeEpoch := float64(ctime.UnixNano()) / 1e9
	ctimeUnix := ctime.Unix()
	f.CtimeEpoch = &ctimeEpoch
	f.CtimeUnix = &ctimeUnix

	birth := time.Unix(stat.Birthtimespec.Sec, stat.Birthtimespec.Nsec)
	birthEpoch := float64(birth.UnixNano()) / 1e9
	birthUnix := birth.Unix()
	f.BirthtimeEpoch = &birthEpoch
	f.BirthtimeUnix = &birthUnix

	atime := time.Unix(stat.Atimespec.Sec, stat.Atimespec.Nsec)
	atimeEpoch := float64(atime.UnixNano()) / 1e9
	atimeUnix := atime.Unix()
	f.AtimeEpoch = &atimeEpoch
	f.AtimeUnix = &atimeUnix
}
