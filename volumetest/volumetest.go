// Package volumetest builds minimal, valid, in-memory ext2 images for
// exercising the engine's command handlers without needing a disk image
// fixture, the way the teacher's testing package wraps a fixed disk image
// in a bytesextra.ReadWriteSeeker for its drivers' tests.
package volumetest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dargueta/ext2shell/engine"
	"github.com/dargueta/ext2shell/internal/ext2fixture"
)

// Build constructs a fresh image with only the root directory present
// (holding "." and ".." pointing at inode 2) and opens it through
// engine.OpenWithDevice. The returned Volume is ready for command handlers
// to operate on.
func Build(t *testing.T) *engine.Volume {
	t.Helper()

	fx := ext2fixture.Build(t)
	vol, err := engine.OpenWithDevice(fx.Dev, "test.img")
	require.NoError(t, err)
	return vol
}
