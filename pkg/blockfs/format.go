package blockfs

import "encoding/binary"

// On-media block layout.
//
// Every block reserves its last 8 bytes for a trailer:
//
//	[block_size-8 : block_size-4)  int32  unoccupied_data_bytes
//	[block_size-4 : block_size)    uint32 next block index, or checksum
//
// If unoccupied_data_bytes is negative, the block is not the chain's last
// block and the second field holds the index of the next block. If it is
// zero or positive, the block is the chain's last block, it holds the
// count of trailing unused data bytes, and the second field holds the
// expected checksum of the whole chain.
//
// A block that is also a chain's first block additionally carries a header
// at offset 0:
//
//	[0:4)  uint32 birthday
//	[4:8)  int32  prefer_if_older (-1, or a start-block index)
//	[8:)   NUL-terminated name, followed by file data
const (
	fieldUnoccupied = 4 // size of unoccupied_data_bytes
	fieldNextOrSum  = 4 // size of next-block-index / checksum

	fieldBirthday       = 4
	fieldPreferIfOlder  = 4
	firstBlockDataStart = fieldBirthday + fieldPreferIfOlder // offset where the name begins
)

// fnvOffsetBasis and fnvPrime implement the FNV-1a-style checksum specified
// for chain validation: h starts at the offset basis, and each byte folds
// in as h ^= byte; h *= prime.
const (
	fnvOffsetBasis uint32 = 2166136261
	fnvPrime       uint32 = 16777619
)

// checksumState accumulates the running FNV-1a-style checksum of a chain.
type checksumState struct {
	h uint32
}

func newChecksum() checksumState {
	return checksumState{h: fnvOffsetBasis}
}

func (c *checksumState) fold(data []byte) {
	h := c.h
	for _, b := range data {
		h ^= uint32(b)
		h *= fnvPrime
	}
	c.h = h
}

func (c checksumState) sum() uint32 {
	return c.h
}

// trailerOffsets returns the byte offsets of the two trailer fields within
// a block of the given size.
func trailerOffsets(blockSize int) (unoccupiedOff, nextOrSumOff int) {
	return blockSize - trailerSize, blockSize - fieldNextOrSum
}

// readUnoccupied reads the signed unoccupied_data_bytes trailer field.
// Negative means "not the last block."
func readUnoccupied(block []byte) int32 {
	off, _ := trailerOffsets(len(block))
	return int32(binary.LittleEndian.Uint32(block[off:]))
}

// isLastBlock reports whether the trailer marks block as a chain's last
// block.
func isLastBlock(block []byte) bool {
	return readUnoccupied(block) >= 0
}

// readNextBlock reads the next-block-index trailer field. Only meaningful
// when !isLastBlock(block).
func readNextBlock(block []byte) uint32 {
	_, off := trailerOffsets(len(block))
	return binary.LittleEndian.Uint32(block[off:])
}

// readChecksum reads the stored-checksum trailer field. Only meaningful
// when isLastBlock(block).
func readChecksum(block []byte) uint32 {
	_, off := trailerOffsets(len(block))
	return binary.LittleEndian.Uint32(block[off:])
}

// writeNotLastTrailer marks block as an interior block pointing at next.
func writeNotLastTrailer(block []byte, next uint32) {
	unoccupiedOff, nextOrSumOff := trailerOffsets(len(block))
	binary.LittleEndian.PutUint32(block[unoccupiedOff:], uint32(int32(-1)))
	binary.LittleEndian.PutUint32(block[nextOrSumOff:], next)
}

// writeLastTrailer marks block as the chain's last block with the given
// unoccupied byte count and checksum.
func writeLastTrailer(block []byte, unoccupied int32, checksum uint32) {
	unoccupiedOff, nextOrSumOff := trailerOffsets(len(block))
	binary.LittleEndian.PutUint32(block[unoccupiedOff:], uint32(unoccupied))
	binary.LittleEndian.PutUint32(block[nextOrSumOff:], checksum)
}

// writeStartHeader writes the birthday/prefer_if_older/name header of a
// start block and returns the offset where file data may begin.
func writeStartHeader(block []byte, birthday uint32, preferIfOlder int32, name string) int {
	binary.LittleEndian.PutUint32(block[0:], birthday)
	binary.LittleEndian.PutUint32(block[4:], uint32(preferIfOlder))
	n := copy(block[firstBlockDataStart:], name)
	block[firstBlockDataStart+n] = 0
	return firstBlockDataStart + n + 1
}

// readStartHeader parses the birthday/prefer_if_older/name header of a
// start block. It returns ok=false if no NUL terminator is found before the
// trailer, which indicates a corrupt or non-start block.
func readStartHeader(block []byte) (birthday uint32, preferIfOlder int32, name string, dataStart int, ok bool) {
	birthday = binary.LittleEndian.Uint32(block[0:])
	preferIfOlder = int32(binary.LittleEndian.Uint32(block[4:]))

	limit := len(block) - trailerSize
	nameStart := firstBlockDataStart
	for i := nameStart; i < limit; i++ {
		if block[i] == 0 {
			return birthday, preferIfOlder, string(block[nameStart:i]), i + 1, true
		}
	}
	return 0, 0, "", 0, false
}
