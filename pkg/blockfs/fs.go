package blockfs

import "fmt"

// sessionMode identifies the at-most-one open session [FS] may hold.
type sessionMode int

const (
	modeNone sessionMode = iota
	modeRead
	modeWrite
)

// session holds the state of the single open read or write session, valid
// only when mode != modeNone.
type session struct {
	mode sessionMode

	// openFileBlock is the block currently buffered in FS.blockBuf.
	openFileBlock int

	// openFileFirstBlock is the start block of this session's chain.
	// Meaningful for writers only.
	openFileFirstBlock int

	// openFileBlockCursor is the byte offset into blockBuf where the next
	// payload byte is read from or written to.
	openFileBlockCursor int

	// openFileMatchIndex is, for writers, the start block of a
	// same-named existing file this write intends to supersede, or -1.
	openFileMatchIndex int32

	// writerChecksum accumulates the checksum of everything flushed and
	// buffered so far by a writer.
	writerChecksum checksumState
}

// FS is a mounted blockfs handle. The zero value is not usable; obtain one
// with [Mount].
//
// FS is strictly single-threaded and non-reentrant: callers must not
// invoke methods concurrently, and the callback passed to [FS.List] must
// not call back into fs.
type FS struct {
	device     BlockDevice
	blockSize  int
	blockCount int

	fileStart bitset // FILE_START_BLOCKS
	occupied  bitset // OCCUPIED_BLOCKS
	scratch1  bitset // SCRATCH_1
	scratch2  bitset // SCRATCH_2
	blockBuf  []byte

	youngest  uint32
	fileCount int

	// needsRemount is sticky: set on any condition that could have left
	// in-memory state inconsistent with the device. Every public entry
	// point other than Read/Write/Close checks and recovers it first.
	needsRemount bool

	sess session
}

// Mount reads the entire device described by cfg, validates every
// candidate chain, and returns a ready-to-use [FS].
//
// A freshly zeroed device is a valid empty filesystem: every candidate
// chain fails its checksum check, so [FS.Count] reports zero files.
func Mount(cfg Config) (*FS, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	fsys := &FS{
		device:     cfg.Device,
		blockSize:  cfg.BlockSize,
		blockCount: cfg.BlockCount,
		fileStart:  newBitset(cfg.BlockCount),
		occupied:   newBitset(cfg.BlockCount),
		scratch1:   newBitset(cfg.BlockCount),
		scratch2:   newBitset(cfg.BlockCount),
		blockBuf:   make([]byte, cfg.BlockSize),
		sess:       session{mode: modeNone, openFileMatchIndex: -1},
	}

	if err := fsys.remount(); err != nil {
		return nil, err
	}
	return fsys, nil
}

// remount fully rebuilds in-memory state from the device, discarding
// whatever was there before. This is the only path that clears
// needsRemount.
func (fsys *FS) remount() error {
	fsys.fileStart.zero()
	fsys.occupied.zero()
	fsys.youngest = 0
	fsys.fileCount = 0
	fsys.sess = session{mode: modeNone, openFileMatchIndex: -1}

	if err := mountScan(fsys); err != nil {
		fsys.needsRemount = true
		return err
	}

	fsys.needsRemount = false
	return nil
}

// preamble implements the mount-health guard shared by every public
// directory-level entry point (Count, List, Delete, Open): remount if
// needed, then reject if a session is already open, escalating to another
// remount-needed flag if the stranded session was a writer.
func (fsys *FS) preamble() error {
	if fsys.needsRemount {
		if err := fsys.remount(); err != nil {
			return err
		}
	}

	if fsys.sess.mode != modeNone {
		wasWriter := fsys.sess.mode == modeWrite
		fsys.sess = session{mode: modeNone, openFileMatchIndex: -1}
		if wasWriter {
			fsys.needsRemount = true
		}
		return ErrWrongMode
	}

	return nil
}

// sessionPreamble is the narrower guard used by Read/Write/Close: they
// fail immediately if a remount is pending, because the buffered block
// contents can no longer be trusted.
func (fsys *FS) sessionPreamble() error {
	if fsys.needsRemount {
		return ErrWrongMode
	}
	return nil
}

func validateNameLength(name string, maxLen int) error {
	n := len(name)
	if n < 1 || n > maxLen {
		return fmt.Errorf("name length %d out of range [1, %d]: %w", n, maxLen, ErrFileNameBadLen)
	}
	return nil
}
