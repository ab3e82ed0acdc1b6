package bitmapio

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/dargueta/ext2shell/internal/ext2fixture"
)

func TestAllocateInodeSkipsUsedSlots(t *testing.T) {
	fx := ext2fixture.Build(t)
	log := logrus.New()

	n, err := AllocateInode(fx.Dev, fx.Sb, fx.Bgdt, log)
	require.NoError(t, err)
	// Inodes 1 and 2 are pre-used by the fixture (reserved + root).
	require.Equal(t, uint32(3), n)
	require.Equal(t, uint32(ext2fixture.InodesPerGroup-3), fx.Sb.FreeInodesCount)
}

func TestAllocateDeallocateBlockRoundTrip(t *testing.T) {
	fx := ext2fixture.Build(t)
	log := logrus.New()

	before := fx.Sb.FreeBlocksCount
	b, err := AllocateBlock(fx.Dev, fx.Sb, fx.Bgdt, log)
	require.NoError(t, err)
	require.Equal(t, before-1, fx.Sb.FreeBlocksCount)

	require.NoError(t, DeallocateBlock(fx.Dev, fx.Sb, fx.Bgdt, log, b))
	require.Equal(t, before, fx.Sb.FreeBlocksCount)
}

func TestDeallocateInodeRefusesRootAndZero(t *testing.T) {
	fx := ext2fixture.Build(t)
	log := logrus.New()

	require.Error(t, DeallocateInode(fx.Dev, fx.Sb, fx.Bgdt, log, 0))
	require.Error(t, DeallocateInode(fx.Dev, fx.Sb, fx.Bgdt, log, 2))
}

func TestDeallocateBlockRefusesZero(t *testing.T) {
	fx := ext2fixture.Build(t)
	log := logrus.New()

	require.Error(t, DeallocateBlock(fx.Dev, fx.Sb, fx.Bgdt, log, 0))
}

func TestDoubleDeallocateLogsButDoesNotError(t *testing.T) {
	fx := ext2fixture.Build(t)
	log := logrus.New()

	b, err := AllocateBlock(fx.Dev, fx.Sb, fx.Bgdt, log)
	require.NoError(t, err)
	require.NoError(t, DeallocateBlock(fx.Dev, fx.Sb, fx.Bgdt, log, b))
	require.NoError(t, DeallocateBlock(fx.Dev, fx.Sb, fx.Bgdt, log, b))
}
