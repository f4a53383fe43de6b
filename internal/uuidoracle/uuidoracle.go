// Package uuidoracle provides the default DriveUUIDOracle collaborator
// (SPEC_FULL.md §6): a stable, opaque identifier for the volume a scan root
// lives on.
package uuidoracle

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
)

// namespace anchors the v5 fallback hash so the same root always yields the
// same synthetic drive UUID across runs, hosts, and filesystems that expose
// no real volume identifier.
var namespace = uuid.MustParse("6f8f2b2e-6c1d-4b7a-9b3a-1f1e2d3c4b5a")

// Oracle is the default DriveUUIDOracle: it tries the platform's real
// volume identifier first and falls back to a namespace-deterministic v5
// hash of the absolute mount point so the pipeline stays runnable without
// hardware access.
type Oracle struct{}

// New creates the default drive-UUID oracle.
func New() *Oracle {
	return &Oracle{}
}

// UUIDFor returns a non-empty opaque string identifying the volume backing
// mountPoint.
func (o *Oracle) UUIDFor(mountPoint string) (string, error) {
	abs, err := filepath.Abs(mountPoint)
	if err != nil {
		return "", fmt.Errorf("resolve mount point: %w", err)
	}

	if id, ok := platformVolumeUUID(abs); ok {
		return id, nil
	}

	return uuid.NewSHA1(namespace, []byte(abs)).String(), nil
}
