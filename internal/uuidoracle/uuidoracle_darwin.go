//go:build darwin
// +build darwin

package uuidoracle

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// platformVolumeUUID derives a stable identifier from the filesystem's
// reported fsid via statfs(2).
func platformVolumeUUID(absPath string) (string, bool) {
	var stat unix.Statfs_t
	if err := unix.Statfs(absPath, &stat); err != nil {
		return "", false
	}

	fsid := stat.Fsid.Val
	if fsid[0] == 0 && fsid[1] == 0 {
		return "", false
	}

	return fmt.Sprintf("darwin-fsid-%x-%x-%x", stat.Type, fsid[0], fsid[1]), true
}
