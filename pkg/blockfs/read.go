package blockfs

// Read copies up to len(dst) bytes of the open read session's file content
// into dst, returning the number of bytes copied. A short count (including
// zero) means end of file; Read never returns an error to signal EOF.
//
// Read is only valid while a [Read]-mode session is open (see [FS.Open]).
func (fsys *FS) Read(dst []byte) (int, error) {
	if err := fsys.sessionPreamble(); err != nil {
		return 0, err
	}
	if fsys.sess.mode != modeRead {
		return 0, ErrWrongMode
	}

	total := 0
	size := len(dst)

	for size > 0 {
		unoccupied := 0
		last := isLastBlock(fsys.blockBuf)
		if last {
			u := readUnoccupied(fsys.blockBuf)
			if u > 0 {
				unoccupied = int(u)
			}
		}

		remaining := fsys.blockSize - fsys.sess.openFileBlockCursor - unoccupied - trailerSize
		if remaining == 0 {
			if last {
				break
			}
			next := int(readNextBlock(fsys.blockBuf))
			if err := fsys.device.ReadBlock(next, fsys.blockBuf); err != nil {
				fsys.sess = session{mode: modeNone, openFileMatchIndex: -1}
				return total, err
			}
			fsys.sess.openFileBlock = next
			fsys.sess.openFileBlockCursor = 0
			continue
		}

		n := remaining
		if n > size {
			n = size
		}
		copy(dst[total:total+n], fsys.blockBuf[fsys.sess.openFileBlockCursor:fsys.sess.openFileBlockCursor+n])
		fsys.sess.openFileBlockCursor += n
		total += n
		size -= n
	}

	return total, nil
}
