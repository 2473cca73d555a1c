package blockfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Write_Rejects_When_No_Session_Open(t *testing.T) {
	t.Parallel()

	fsys, _ := mustMount(t, 64, 4)
	_, err := fsys.Write([]byte("x"))
	assert.ErrorIs(t, err, ErrWrongMode)
}

func Test_Write_Rejects_During_Read_Session(t *testing.T) {
	t.Parallel()

	fsys, _ := mustMount(t, 64, 4)
	writeFile(t, fsys, "a", []byte("x"))
	require.NoError(t, fsys.Open("a", Read))

	_, err := fsys.Write([]byte("y"))
	assert.ErrorIs(t, err, ErrWrongMode)
}

func Test_Write_Spans_Multiple_Blocks_When_Content_Exceeds_One(t *testing.T) {
	t.Parallel()

	fsys, _ := mustMount(t, 32, 4)
	payload := make([]byte, 50)
	for i := range payload {
		payload[i] = byte('A' + i%26)
	}

	writeFile(t, fsys, "a", payload)
	assert.Equal(t, payload, readAll(t, fsys, "a"))
}

func Test_Write_Fails_With_NoSpace_When_Chain_Runs_Out_Of_Blocks(t *testing.T) {
	t.Parallel()

	fsys, _ := mustMount(t, 32, 2)
	require.NoError(t, fsys.Open("a", Write))

	// Fill well past what 2 blocks of this size can hold.
	_, err := fsys.Write(make([]byte, 200))
	assert.ErrorIs(t, err, ErrNoSpace)
	assert.True(t, fsys.needsRemount)

	// The never-closed chain must not have become a visible file; Count
	// forces the pending remount before reporting.
	n, err := fsys.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func Test_Write_Returns_Full_Length_On_Success(t *testing.T) {
	t.Parallel()

	fsys, _ := mustMount(t, 64, 4)
	require.NoError(t, fsys.Open("a", Write))

	n, err := fsys.Write([]byte("hello world"))
	require.NoError(t, err)
	assert.Equal(t, 11, n)
	require.NoError(t, fsys.Close())
}

func Test_Write_Exact_Single_Block_Fit_Does_Not_Allocate_Second_Block(t *testing.T) {
	t.Parallel()

	fsys, _ := mustMount(t, 32, 4)
	require.NoError(t, fsys.Open("a", Write))

	fit := fsys.blockSize - fsys.sess.openFileBlockCursor - trailerSize
	_, err := fsys.Write(make([]byte, fit))
	require.NoError(t, err)
	require.NoError(t, fsys.Close())

	assert.Equal(t, 1, fsys.occupied.popcount(fsys.blockCount))
}

func Test_Write_One_Byte_Over_Single_Block_Forces_Second_Block(t *testing.T) {
	t.Parallel()

	fsys, _ := mustMount(t, 32, 4)
	require.NoError(t, fsys.Open("a", Write))

	fit := fsys.blockSize - fsys.sess.openFileBlockCursor - trailerSize
	_, err := fsys.Write(make([]byte, fit+1))
	require.NoError(t, err)
	require.NoError(t, fsys.Close())

	assert.Equal(t, 2, fsys.occupied.popcount(fsys.blockCount))
}
