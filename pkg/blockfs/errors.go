package blockfs

import "errors"

// Sentinel errors returned by blockfs operations.
//
// Callers should classify errors with [errors.Is]; the package may wrap
// these with additional context via fmt.Errorf("...: %w", ErrX).
var (
	// ErrBadBlockConfig indicates Config.BlockSize or Config.BlockCount is
	// out of range at [Mount].
	ErrBadBlockConfig = errors.New("blockfs: bad block config")

	// ErrWrongMode indicates the operation is not allowed in the current
	// session state, or that a remount is pending and the caller must
	// retry after it completes.
	ErrWrongMode = errors.New("blockfs: wrong mode")

	// ErrFileNotFound indicates the name is not present among accepted
	// chains.
	ErrFileNotFound = errors.New("blockfs: file not found")

	// ErrNoSpace indicates no block has its occupied bit clear.
	//
	// Recovery: delete files to free blocks, or mount a larger device.
	ErrNoSpace = errors.New("blockfs: no space")

	// ErrFileNameBadLen indicates a name of length zero, or exceeding the
	// mode-specific bound (see [FS.Open] and [FS.Delete]).
	ErrFileNameBadLen = errors.New("blockfs: file name bad length")

	// ErrInternalAssertion indicates an invariant believed to hold was
	// violated. This always sets the remount-needed flag; it indicates a
	// bug in blockfs or undetected prior media corruption.
	ErrInternalAssertion = errors.New("blockfs: internal assertion failed")

	// ErrReadback indicates an erase-verification read returned bytes
	// other than 0xFF.
	ErrReadback = errors.New("blockfs: readback verification failed")

	// ErrBirthdayLimitReached indicates the monotonic birthday counter was
	// already at its maximum value at open-for-write time.
	ErrBirthdayLimitReached = errors.New("blockfs: birthday limit reached")
)
