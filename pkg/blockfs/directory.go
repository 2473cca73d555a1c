package blockfs

import "fmt"

// deleteNameMaxLen is delete's own name-length bound: block_size - 17, one
// byte looser than open's block_size - 18 because delete never needs room
// for a data byte. open uses writeNameMaxLen for both modes.
func (fsys *FS) deleteNameMaxLen() int {
	return fsys.blockSize - 17
}

// findStartBlock scans FILE_START_BLOCKS in index order for a block whose
// header name matches name, reading each candidate's start block via buf.
func (fsys *FS) findStartBlock(name string, buf []byte) (block int, found bool, err error) {
	for i := 0; i < fsys.blockCount; i++ {
		if !fsys.fileStart.test(i) {
			continue
		}
		if err := fsys.device.ReadBlock(i, buf); err != nil {
			return 0, false, err
		}
		_, _, candidateName, _, ok := readStartHeader(buf)
		if ok && candidateName == name {
			return i, true, nil
		}
	}
	return 0, false, nil
}

// Count returns the number of files currently on the device.
func (fsys *FS) Count() (int, error) {
	if err := fsys.preamble(); err != nil {
		return 0, err
	}
	return fsys.fileCount, nil
}

// List invokes fn once per file, in ascending block-index order, with the
// file's name. fn receives a string it owns; it must not call back into
// fsys.
//
// Enumeration order is not preserved across mounts (it follows start-block
// index, which free-block selection may reassign after a replace).
func (fsys *FS) List(fn func(name string)) error {
	if err := fsys.preamble(); err != nil {
		return err
	}

	for i := 0; i < fsys.blockCount; i++ {
		if !fsys.fileStart.test(i) {
			continue
		}
		if err := fsys.device.ReadBlock(i, fsys.blockBuf); err != nil {
			fsys.needsRemount = true
			return err
		}
		_, _, name, _, ok := readStartHeader(fsys.blockBuf)
		if !ok {
			fsys.needsRemount = true
			return fmt.Errorf("start block %d has unparseable header: %w", i, ErrInternalAssertion)
		}
		fn(name)
	}
	return nil
}

// Delete removes the named file, returning [ErrFileNotFound] if it does not
// exist.
func (fsys *FS) Delete(name string) error {
	if err := fsys.preamble(); err != nil {
		return err
	}

	if err := validateNameLength(name, fsys.deleteNameMaxLen()); err != nil {
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
	birthday, _, _, _, ok := readStartHeader(fsys.blockBuf)
	if !ok {
		fsys.needsRemount = true
		return fmt.Errorf("start block %d has unparseable header: %w", startBlock, ErrInternalAssertion)
	}

	fsys.fileStart.clear(startBlock)
	if birthday == fsys.youngest {
		fsys.youngest--
	}

	scratch := fsys.scratch1
	_, valid, err := scanChain(fsys.device, startBlock, nil, scratch, fsys.blockBuf)
	if err != nil {
		fsys.needsRemount = true
		return err
	}
	if !valid {
		fsys.needsRemount = true
		return fmt.Errorf("chain rooted at accepted start block %d failed to rescan: %w", startBlock, ErrInternalAssertion)
	}
	fsys.occupied.andNotWith(scratch)

	if err := fsys.eraseStartBlock(startBlock); err != nil {
		return err
	}

	fsys.fileCount--
	return nil
}

// eraseStartBlock fills block with 0xFF, writes it, reads it back, and
// verifies every byte is 0xFF. This is the commit point of both delete and
// the atomic-replace tail of Close: once it succeeds, the old chain no
// longer parses as a file start on any future mount.
func (fsys *FS) eraseStartBlock(block int) error {
	for i := range fsys.blockBuf {
		fsys.blockBuf[i] = 0xFF
	}

	if err := fsys.device.WriteBlock(block, fsys.blockBuf); err != nil {
		fsys.needsRemount = true
		return err
	}

	if err := fsys.device.ReadBlock(block, fsys.blockBuf); err != nil {
		fsys.needsRemount = true
		return err
	}
	for _, b := range fsys.blockBuf {
		if b != 0xFF {
			fsys.needsRemount = true
			return fmt.Errorf("erase of block %d did not read back as 0xFF: %w", block, ErrReadback)
		}
	}
	return nil
}
