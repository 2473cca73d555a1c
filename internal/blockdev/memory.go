package blockdev

import "fmt"

// Memory is a RAM-backed block device, the simplest BlockDevice
// implementation: a single contiguous byte slice sliced into equal-sized
// blocks.
//
// Memory is not safe for concurrent use; blockfs never needs it to be.
type Memory struct {
	blockSize  int
	blockCount int
	data       []byte
}

// NewMemory allocates a zeroed Memory device with the given geometry. A
// freshly allocated device is all-zero, which blockfs treats as a valid
// empty filesystem.
func NewMemory(blockSize, blockCount int) *Memory {
	return &Memory{
		blockSize:  blockSize,
		blockCount: blockCount,
		data:       make([]byte, blockSize*blockCount),
	}
}

func (m *Memory) BlockSize() int  { return m.blockSize }
func (m *Memory) BlockCount() int { return m.blockCount }

func (m *Memory) ReadBlock(index int, dst []byte) error {
	if err := m.checkIndex(index); err != nil {
		return err
	}
	off := index * m.blockSize
	copy(dst, m.data[off:off+m.blockSize])
	return nil
}

func (m *Memory) WriteBlock(index int, src []byte) error {
	if err := m.checkIndex(index); err != nil {
		return err
	}
	off := index * m.blockSize
	copy(m.data[off:off+m.blockSize], src)
	return nil
}

func (m *Memory) checkIndex(index int) error {
	if index < 0 || index >= m.blockCount {
		return fmt.Errorf("blockdev: block index %d out of range [0, %d)", index, m.blockCount)
	}
	return nil
}

// Snapshot returns a copy of the entire backing array, useful for feeding a
// [Crash] wrapper a starting point or for asserting on raw media bytes in
// tests.
func (m *Memory) Snapshot() []byte {
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out
}
