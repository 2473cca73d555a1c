package blockfs

// mountScan is the mounter described in the design: it treats every block
// index as a candidate file start, validates each candidate chain with
// [scanChain], and arbitrates between a chain and the prior version it
// names via prefer_if_older before publishing the winner into
// fsys.fileStart / fsys.occupied.
//
// A candidate that loses arbitration to a chain naming it via
// prefer_if_older must never surface as its own independent file, no
// matter which of the two the scan visits first: superseded tracks every
// block index that has been named as a loser so a later visit to that
// index skips it outright, and if the loser was already (wrongly)
// accepted earlier in this same pass because its turn came first, that
// acceptance is undone on the spot.
//
// A block read failure propagates to the caller; the caller (remount) is
// responsible for flagging needsRemount and discarding partial state.
func mountScan(fsys *FS) error {
	scanBuf := make([]byte, fsys.blockSize)
	headerBuf := make([]byte, fsys.blockSize)
	superseded := newBitset(fsys.blockCount)

	for i := 0; i < fsys.blockCount; i++ {
		if superseded.test(i) {
			continue
		}

		_, valid, err := scanChain(fsys.device, i, fsys.occupied, fsys.scratch1, scanBuf)
		if err != nil {
			return err
		}
		if !valid {
			continue
		}

		if err := fsys.device.ReadBlock(i, headerBuf); err != nil {
			return err
		}
		birthdayThis, preferIfOlder, _, _, ok := readStartHeader(headerBuf)
		if !ok {
			// Checksum happened to validate over bytes with no NUL
			// terminator before the trailer: not a real file start.
			continue
		}

		accept := true
		if preferIfOlder >= 0 {
			// Revalidating the named chain for its own internal
			// consistency, not for overlap against some third chain:
			// pass a nil occupied so a chain already accepted earlier
			// in this same pass doesn't collide with itself.
			_, otherValid, err := scanChain(fsys.device, int(preferIfOlder), nil, fsys.scratch2, scanBuf)
			if err != nil {
				return err
			}
			if otherValid {
				if err := fsys.device.ReadBlock(int(preferIfOlder), headerBuf); err != nil {
					return err
				}
				birthdayOther, _, _, _, ok := readStartHeader(headerBuf)
				if ok && birthdayOther > birthdayThis {
					accept = false
				}
			}

			if accept && otherValid {
				v := int(preferIfOlder)
				superseded.set(v)
				if fsys.fileStart.test(v) {
					fsys.fileStart.clear(v)
					fsys.occupied.andNotWith(fsys.scratch2)
					fsys.fileCount--
				}
			}
		}

		if !accept {
			continue
		}

		fsys.fileStart.set(i)
		fsys.occupied.orWith(fsys.scratch1)
		fsys.fileCount++
		if birthdayThis > fsys.youngest {
			fsys.youngest = birthdayThis
		}
	}

	return nil
}
