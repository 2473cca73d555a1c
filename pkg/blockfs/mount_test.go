package blockfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvblock/blockfs/internal/blockdev"
)

const mountTestBlockSize = 32

func newMountDevice(t *testing.T, blockCount int) *blockdev.Memory {
	t.Helper()
	return blockdev.NewMemory(mountTestBlockSize, blockCount)
}

func writeSingleBlockFile(t *testing.T, dev *blockdev.Memory, start int, birthday uint32, preferIfOlder int32, name string) {
	t.Helper()

	block := make([]byte, mountTestBlockSize)
	writeStartHeader(block, birthday, preferIfOlder, name)
	checksum := newChecksum()
	writeLastTrailer(block, 0, 0)
	checksum.fold(block[:len(block)-fieldNextOrSum])
	writeLastTrailer(block, 0, checksum.sum())
	require.NoError(t, dev.WriteBlock(start, block))
}

func Test_Mount_Accepts_Single_Candidate_With_No_PreferIfOlder(t *testing.T) {
	t.Parallel()

	dev := newMountDevice(t, 4)
	writeSingleBlockFile(t, dev, 0, 1, -1, "a")

	fsys, err := Mount(Config{BlockSize: mountTestBlockSize, BlockCount: 4, Device: dev})
	require.NoError(t, err)

	n, err := fsys.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

// Test_Mount_Younger_Chain_Supersedes_Older_Regardless_Of_Block_Order covers
// the scenario where two candidate chains share a name, the younger names
// the older via prefer_if_older, and both are independently valid: exactly
// the younger must survive, whichever of the two the scan visits first.
func Test_Mount_Younger_Chain_Supersedes_Older_Regardless_Of_Block_Order(t *testing.T) {
	t.Parallel()

	t.Run("older at lower index", func(t *testing.T) {
		t.Parallel()

		dev := newMountDevice(t, 4)
		writeSingleBlockFile(t, dev, 0, 1, -1, "a")
		writeSingleBlockFile(t, dev, 2, 2, 0, "a")

		fsys, err := Mount(Config{BlockSize: mountTestBlockSize, BlockCount: 4, Device: dev})
		require.NoError(t, err)

		n, err := fsys.Count()
		require.NoError(t, err)
		assert.Equal(t, 1, n, "exactly one of the two candidates must survive")

		assert.True(t, fsys.fileStart.test(2), "the younger chain must be the survivor")
		assert.False(t, fsys.fileStart.test(0), "the older chain must be cleared")
		assert.False(t, fsys.occupied.test(0), "the older chain's block must be freed")
		assert.True(t, fsys.occupied.test(2))
	})

	t.Run("older at higher index", func(t *testing.T) {
		t.Parallel()

		dev := newMountDevice(t, 4)
		writeSingleBlockFile(t, dev, 0, 2, 2, "a")
		writeSingleBlockFile(t, dev, 2, 1, -1, "a")

		fsys, err := Mount(Config{BlockSize: mountTestBlockSize, BlockCount: 4, Device: dev})
		require.NoError(t, err)

		n, err := fsys.Count()
		require.NoError(t, err)
		assert.Equal(t, 1, n, "exactly one of the two candidates must survive")

		assert.True(t, fsys.fileStart.test(0), "the younger chain must be the survivor")
		assert.False(t, fsys.fileStart.test(2), "the older chain must be cleared")
	})
}

func Test_Mount_Rejects_Candidate_Whose_PreferIfOlder_Chain_Is_Younger(t *testing.T) {
	t.Parallel()

	// prefer_if_older names a chain that turns out to have a strictly
	// larger birthday than the candidate itself: this is the anomalous
	// direction the arbitration rule guards against, so the candidate
	// loses and the named chain survives on its own right.
	dev := newMountDevice(t, 4)
	writeSingleBlockFile(t, dev, 0, 5, -1, "a")
	writeSingleBlockFile(t, dev, 2, 1, 0, "a")

	fsys, err := Mount(Config{BlockSize: mountTestBlockSize, BlockCount: 4, Device: dev})
	require.NoError(t, err)

	n, err := fsys.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, fsys.fileStart.test(0))
	assert.False(t, fsys.fileStart.test(2))
}

func Test_Mount_Accepts_Candidate_When_PreferIfOlder_Target_Is_Invalid(t *testing.T) {
	t.Parallel()

	// prefer_if_older points at a block that no longer parses as a valid
	// chain (already erased, or never written): the advisory comparison
	// can't run, so the candidate is accepted outright.
	dev := newMountDevice(t, 4)
	writeSingleBlockFile(t, dev, 2, 3, 0, "a")

	fsys, err := Mount(Config{BlockSize: mountTestBlockSize, BlockCount: 4, Device: dev})
	require.NoError(t, err)

	n, err := fsys.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, fsys.fileStart.test(2))
}

func Test_Mount_Rejects_Candidate_With_Bad_Checksum(t *testing.T) {
	t.Parallel()

	dev := newMountDevice(t, 4)
	block := make([]byte, mountTestBlockSize)
	writeStartHeader(block, 1, -1, "a")
	writeLastTrailer(block, 0, 0xDEADBEEF)
	require.NoError(t, dev.WriteBlock(0, block))

	fsys, err := Mount(Config{BlockSize: mountTestBlockSize, BlockCount: 4, Device: dev})
	require.NoError(t, err)

	n, err := fsys.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func Test_Mount_Tracks_Youngest_Birthday_Across_Candidates(t *testing.T) {
	t.Parallel()

	dev := newMountDevice(t, 4)
	writeSingleBlockFile(t, dev, 0, 7, -1, "a")
	writeSingleBlockFile(t, dev, 1, 3, -1, "b")

	fsys, err := Mount(Config{BlockSize: mountTestBlockSize, BlockCount: 4, Device: dev})
	require.NoError(t, err)
	assert.Equal(t, uint32(7), fsys.youngest)
}

func Test_Mount_Two_Disjoint_Files_Both_Survive(t *testing.T) {
	t.Parallel()

	dev := newMountDevice(t, 4)
	writeSingleBlockFile(t, dev, 0, 1, -1, "a")
	writeSingleBlockFile(t, dev, 1, 2, -1, "b")

	fsys, err := Mount(Config{BlockSize: mountTestBlockSize, BlockCount: 4, Device: dev})
	require.NoError(t, err)

	n, err := fsys.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
