package blockfs

// scanChain walks the "next block" pointers starting at start, verifying
// the chain's checksum and marking every block it visits in scratch.
//
// It returns the terminal (last) block index and valid=true on success, or
// valid=false if the chain is corrupt, cycles back on itself, or (when
// occupied is non-nil) runs into a block already claimed by some other,
// already-accepted chain. A non-nil error means a device read failed; the
// scan result is meaningless in that case and the caller must treat it as
// a device fault, not an "invalid chain" verdict.
//
// occupied is non-nil only for the mounter's scan of a candidate's own
// chain: passing the live OCCUPIED_BLOCKS bitmap there is what discovers a
// not-yet-decided candidate physically overlapping an already-accepted
// one. Every other caller, including the mounter's secondary scan of a
// prefer_if_older target (revalidating that chain's own consistency, not
// checking it for overlap) and Delete/Close's rescans of a chain already
// reflected in OCCUPIED_BLOCKS, passes nil: a non-nil occupied there would
// see the chain's own later blocks as "already occupied" and reject it
// against itself. Those call sites rely on invariant P1 (chains never
// overlap) instead.
//
// scanChain never sets bits in occupied; it only reads it. buf is a
// block_size-sized scratch buffer owned by the caller; it is clobbered by
// this call.
func scanChain(dev BlockDevice, start int, occupied, scratch bitset, buf []byte) (terminus int, valid bool, err error) {
	scratch.zero()
	checksum := newChecksum()
	cur := start

	for {
		if err := dev.ReadBlock(cur, buf); err != nil {
			return 0, false, err
		}
		scratch.set(cur)

		if isLastBlock(buf) {
			checksum.fold(buf[:len(buf)-fieldNextOrSum])
			if checksum.sum() == readChecksum(buf) {
				return cur, true, nil
			}
			return 0, false, nil
		}

		next := int(readNextBlock(buf))
		if next >= dev.BlockCount() || scratch.test(next) {
			return 0, false, nil
		}
		if occupied != nil && occupied.test(next) {
			return 0, false, nil
		}

		checksum.fold(buf)
		cur = next
	}
}
