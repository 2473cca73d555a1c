package blockfs

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kvblock/blockfs/internal/blockdev"
)

const scanTestBlockSize = 32

// writeChain lays out a chain of len(blocks) blocks starting at startIdx on
// dev, filling each block's trailer and computing the checksum exactly the
// way scanChain expects to find it: non-last blocks fold their entire
// buffer (trailer included), the last block folds everything except its
// own checksum field.
func writeChain(t *testing.T, dev *blockdev.Memory, startIdx int, blocks [][]byte) {
	t.Helper()

	checksum := newChecksum()
	for i, block := range blocks {
		if i < len(blocks)-1 {
			writeNotLastTrailer(block, uint32(startIdx+i+1))
			checksum.fold(block)
		} else {
			writeLastTrailer(block, int32(0), 0)
			checksum.fold(block[:len(block)-fieldNextOrSum])
			writeLastTrailer(block, int32(0), checksum.sum())
		}
		require.NoError(t, dev.WriteBlock(startIdx+i, block))
	}
}

func newScanDevice(t *testing.T, blockCount int) *blockdev.Memory {
	t.Helper()
	return blockdev.NewMemory(scanTestBlockSize, blockCount)
}

func Test_ScanChain_Accepts_Single_Valid_Block(t *testing.T) {
	t.Parallel()

	dev := newScanDevice(t, 4)
	block := make([]byte, scanTestBlockSize)
	writeStartHeader(block, 1, -1, "a")
	writeChain(t, dev, 0, [][]byte{block})

	buf := make([]byte, scanTestBlockSize)
	terminus, valid, err := scanChain(dev, 0, nil, newBitset(4), buf)
	require.NoError(t, err)
	require.True(t, valid)
	require.Equal(t, 0, terminus)
}

func Test_ScanChain_Accepts_Multi_Block_Valid_Chain(t *testing.T) {
	t.Parallel()

	dev := newScanDevice(t, 4)
	b0 := make([]byte, scanTestBlockSize)
	writeStartHeader(b0, 1, -1, "a")
	b1 := make([]byte, scanTestBlockSize)
	writeChain(t, dev, 0, [][]byte{b0, b1})

	buf := make([]byte, scanTestBlockSize)
	terminus, valid, err := scanChain(dev, 0, nil, newBitset(4), buf)
	require.NoError(t, err)
	require.True(t, valid)
	require.Equal(t, 1, terminus)
}

func Test_ScanChain_Rejects_Bad_Checksum(t *testing.T) {
	t.Parallel()

	dev := newScanDevice(t, 4)
	block := make([]byte, scanTestBlockSize)
	writeStartHeader(block, 1, -1, "a")
	writeLastTrailer(block, 0, 0xFFFFFFFF) // wrong checksum
	require.NoError(t, dev.WriteBlock(0, block))

	buf := make([]byte, scanTestBlockSize)
	_, valid, err := scanChain(dev, 0, nil, newBitset(4), buf)
	require.NoError(t, err)
	require.False(t, valid)
}

func Test_ScanChain_Rejects_Self_Referencing_Cycle(t *testing.T) {
	t.Parallel()

	dev := newScanDevice(t, 4)
	block := make([]byte, scanTestBlockSize)
	writeStartHeader(block, 1, -1, "a")
	writeNotLastTrailer(block, 0) // points back to itself
	require.NoError(t, dev.WriteBlock(0, block))

	buf := make([]byte, scanTestBlockSize)
	_, valid, err := scanChain(dev, 0, nil, newBitset(4), buf)
	require.NoError(t, err)
	require.False(t, valid)
}

func Test_ScanChain_Rejects_Next_Pointer_Out_Of_Range(t *testing.T) {
	t.Parallel()

	dev := newScanDevice(t, 4)
	block := make([]byte, scanTestBlockSize)
	writeStartHeader(block, 1, -1, "a")
	writeNotLastTrailer(block, 99)
	require.NoError(t, dev.WriteBlock(0, block))

	buf := make([]byte, scanTestBlockSize)
	_, valid, err := scanChain(dev, 0, nil, newBitset(4), buf)
	require.NoError(t, err)
	require.False(t, valid)
}

func Test_ScanChain_With_NonNil_Occupied_Rejects_Overlap_With_Other_Chain(t *testing.T) {
	t.Parallel()

	dev := newScanDevice(t, 4)
	b0 := make([]byte, scanTestBlockSize)
	writeStartHeader(b0, 1, -1, "a")
	b1 := make([]byte, scanTestBlockSize)
	writeChain(t, dev, 0, [][]byte{b0, b1})

	occupied := newBitset(4)
	occupied.set(1) // block 1 already claimed by some other accepted chain

	buf := make([]byte, scanTestBlockSize)
	_, valid, err := scanChain(dev, 0, occupied, newBitset(4), buf)
	require.NoError(t, err)
	require.False(t, valid, "a chain running into an already-occupied block must be rejected")
}

func Test_ScanChain_With_Nil_Occupied_Does_Not_Reject_Its_Own_Blocks(t *testing.T) {
	t.Parallel()

	// Regression test: re-validating a chain already reflected in the
	// live occupied bitmap (own-chain revalidation on Close, or a rescan
	// during Delete) must not treat the chain's own later blocks as an
	// overlap with itself.
	dev := newScanDevice(t, 4)
	b0 := make([]byte, scanTestBlockSize)
	writeStartHeader(b0, 1, -1, "a")
	b1 := make([]byte, scanTestBlockSize)
	writeChain(t, dev, 0, [][]byte{b0, b1})

	buf := make([]byte, scanTestBlockSize)
	_, valid, err := scanChain(dev, 0, nil, newBitset(4), buf)
	require.NoError(t, err)
	require.True(t, valid)
}
