//go:build linux
// +build linux

package uuidoracle

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// platformVolumeUUID derives a stable identifier from the filesystem's
// reported type and ID via statfs(2); this is not a true volume UUID (Linux
// exposes that via /dev/disk/by-uuid, which requires root-owned device
// access this process does not assume) but is stable across scans of the
// same mounted filesystem.
func platformVolumeUUID(absPath string) (string, bool) {
	var stat unix.Statfs_t
	if err := unix.Statfs(absPath, &stat); err != nil {
		return "", false
	}

	fsid := stat.Fsid.Val
	if fsid[0] == 0 && fsid[1] == 0 {
		return "", false
	}

	return fmt.Sprintf("linux-fsid-%x-%x-%x", stat.Type, fsid[0], fsid[1]), true
}
