package blockfs

import (
	"fmt"
	"math"
)

// Mode selects whether [FS.Open] starts a read or write session.
type Mode int

const (
	// Read opens an existing file for reading.
	Read Mode = iota
	// Write creates a new file (or a new version of an existing one),
	// which becomes visible only after a successful [FS.Close].
	Write
)

// Open starts a read or write session for name, the only kind of session
// FS allows at a time.
//
// In [Read] mode, ErrFileNotFound is returned if no file has that name.
//
// In [Write] mode, a new chain is started immediately (consuming one free
// block) but the file is not visible to [FS.List]/[FS.Count]/other
// [FS.Open] calls, and does not replace any existing same-named file,
// until [FS.Close] succeeds. If a file with the same name already exists,
// Close atomically replaces it.
func (fsys *FS) Open(name string, mode Mode) error {
	if err := fsys.preamble(); err != nil {
		return err
	}

	switch mode {
	case Read:
		return fsys.openRead(name)
	case Write:
		return fsys.openWrite(name)
	default:
		return fmt.Errorf("unknown mode %d: %w", mode, ErrWrongMode)
	}
}

func (fsys *FS) openRead(name string) error {
	if err := validateNameLength(name, fsys.writeNameMaxLen()); err != nil {
		return err
	}

	startBlock, found, err := fsys.findStartBlock(name, fsys.blockBuf)
	if err != nil {
		fsys.needsRemount = true
		return err
	}
	if !found {
		return ErrFileNotFound
	}

	if err := fsys.device.ReadBlock(startBlock, fsys.blockBuf); err != nil {
		fsys.needsRemount = true
		return err
	}
	_, _, _, dataStart, ok := readStartHeader(fsys.blockBuf)
	if !ok {
		fsys.needsRemount = true
		return fmt.Errorf("start block %d has unparseable header: %w", startBlock, ErrInternalAssertion)
	}

	fsys.sess = session{
		mode:                modeRead,
		openFileBlock:       startBlock,
		openFileFirstBlock:  startBlock,
		openFileBlockCursor: dataStart,
		openFileMatchIndex:  -1,
	}
	return nil
}

// writeNameMaxLen leaves room for at least one data byte after the header.
func (fsys *FS) writeNameMaxLen() int {
	return fsys.blockSize - headerOverhead
}

func (fsys *FS) lowestFreeBlock() (int, bool) {
	for i := 0; i < fsys.blockCount; i++ {
		if !fsys.occupied.test(i) {
			return i, true
		}
	}
	return 0, false
}

func (fsys *FS) openWrite(name string) error {
	if err := validateNameLength(name, fsys.writeNameMaxLen()); err != nil {
		return err
	}

	matchIndex := int32(-1)
	if startBlock, found, err := fsys.findStartBlock(name, fsys.blockBuf); err != nil {
		fsys.needsRemount = true
		return err
	} else if found {
		matchIndex = int32(startBlock)
	}

	chosen, ok := fsys.lowestFreeBlock()
	if !ok {
		return ErrNoSpace
	}

	fsys.occupied.set(chosen)
	fsys.fileStart.set(chosen)

	if fsys.youngest == math.MaxUint32 {
		fsys.needsRemount = true
		return ErrBirthdayLimitReached
	}
	fsys.youngest++

	dataStart := writeStartHeader(fsys.blockBuf, fsys.youngest, matchIndex, name)

	checksum := newChecksum()
	checksum.fold(fsys.blockBuf[:dataStart])

	fsys.sess = session{
		mode:                 modeWrite,
		openFileBlock:        chosen,
		openFileFirstBlock:   chosen,
		openFileBlockCursor:  dataStart,
		openFileMatchIndex:   matchIndex,
		writerChecksum:       checksum,
	}
	return nil
}
