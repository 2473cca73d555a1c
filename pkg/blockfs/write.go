package blockfs

import "fmt"

// Write appends src to the open write session's file content, allocating
// further blocks as needed. On success it always returns len(src); content
// is not visible to readers until [FS.Close] succeeds. A failed Write ends
// the session and flags a remount; the blocks it had claimed are freed by
// that remount.
//
// Write is only valid while a [Write]-mode session is open (see [FS.Open]).
func (fsys *FS) Write(src []byte) (int, error) {
	if err := fsys.sessionPreamble(); err != nil {
		return 0, err
	}
	if fsys.sess.mode != modeWrite {
		return 0, ErrWrongMode
	}

	total := 0
	left := len(src)

	for left > 0 {
		remaining := fsys.blockSize - fsys.sess.openFileBlockCursor - trailerSize
		if remaining == 0 {
			next, ok := fsys.lowestFreeBlock()
			if !ok {
				fsys.needsRemount = true
				fsys.sess = session{mode: modeNone, openFileMatchIndex: -1}
				return total, ErrNoSpace
			}
			fsys.occupied.set(next)

			writeNotLastTrailer(fsys.blockBuf, uint32(next))
			fsys.sess.writerChecksum.fold(fsys.blockBuf[fsys.blockSize-trailerSize:])

			if err := fsys.device.WriteBlock(fsys.sess.openFileBlock, fsys.blockBuf); err != nil {
				fsys.needsRemount = true
				fsys.sess = session{mode: modeNone, openFileMatchIndex: -1}
				return total, err
			}

			fsys.sess.openFileBlock = next
			fsys.sess.openFileBlockCursor = 0
			continue
		}

		n := remaining
		if n > left {
			n = left
		}
		copy(fsys.blockBuf[fsys.sess.openFileBlockCursor:fsys.sess.openFileBlockCursor+n], src[total:total+n])
		fsys.sess.writerChecksum.fold(src[total : total+n])
		fsys.sess.openFileBlockCursor += n
		total += n
		left -= n
	}

	if total != len(src) {
		fsys.needsRemount = true
		return total, fmt.Errorf("internal: wrote %d of %d bytes: %w", total, len(src), ErrInternalAssertion)
	}
	return total, nil
}
