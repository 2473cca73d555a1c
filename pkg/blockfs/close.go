package blockfs

import "fmt"

// Close ends the open session.
//
// For a read session this simply clears the session. For a write session,
// it finalizes the last block's trailer, flushes it, revalidates the
// finished chain end-to-end, and — if this write names an existing file as
// prefer_if_older — atomically replaces that file by erasing its start
// block. The erasure is the commit point: before it, a crash leaves the
// old version authoritative on the next mount; after it, only the new
// version exists.
func (fsys *FS) Close() error {
	if err := fsys.sessionPreamble(); err != nil {
		return err
	}

	switch fsys.sess.mode {
	case modeNone:
		return ErrWrongMode
	case modeRead:
		fsys.sess = session{mode: modeNone, openFileMatchIndex: -1}
		return nil
	case modeWrite:
		return fsys.closeWrite()
	default:
		return ErrWrongMode
	}
}

func (fsys *FS) closeWrite() error {
	firstBlock := fsys.sess.openFileFirstBlock
	matchIndex := fsys.sess.openFileMatchIndex
	cursor := fsys.sess.openFileBlockCursor
	unoccupied := fsys.blockSize - cursor - trailerSize

	fail := func(err error) error {
		fsys.needsRemount = true
		fsys.sess = session{mode: modeNone, openFileMatchIndex: -1}
		return err
	}

	for i := cursor; i < fsys.blockSize-trailerSize; i++ {
		fsys.blockBuf[i] = 0xFF
	}
	writeLastTrailer(fsys.blockBuf, int32(unoccupied), 0)

	fsys.sess.writerChecksum.fold(fsys.blockBuf[cursor : fsys.blockSize-fieldNextOrSum])
	checksum := fsys.sess.writerChecksum.sum()
	writeLastTrailer(fsys.blockBuf, int32(unoccupied), checksum)

	if err := fsys.device.WriteBlock(fsys.sess.openFileBlock, fsys.blockBuf); err != nil {
		return fail(err)
	}

	_, valid, err := scanChain(fsys.device, firstBlock, nil, fsys.scratch1, fsys.blockBuf)
	if err != nil {
		return fail(err)
	}
	if !valid {
		return fail(fmt.Errorf("just-written chain at %d failed revalidation: %w", firstBlock, ErrInternalAssertion))
	}

	if matchIndex != -1 {
		fsys.fileStart.clear(int(matchIndex))

		_, oldValid, err := scanChain(fsys.device, int(matchIndex), nil, fsys.scratch1, fsys.blockBuf)
		if err != nil {
			return fail(err)
		}
		if !oldValid {
			return fail(fmt.Errorf("replaced chain at %d failed rescan: %w", matchIndex, ErrInternalAssertion))
		}
		fsys.occupied.andNotWith(fsys.scratch1)

		if err := fsys.eraseStartBlock(int(matchIndex)); err != nil {
			fsys.sess = session{mode: modeNone, openFileMatchIndex: -1}
			return err
		}
	} else {
		fsys.fileCount++
	}

	fsys.sess = session{mode: modeNone, openFileMatchIndex: -1}
	return nil
}
