package blockfs

import "fmt"

// BlockDevice is the capability record through which blockfs performs all
// persistence. Implementations live in package blockdev (in-memory,
// OS-file-backed, and fault-injecting variants for tests); callers may
// supply their own for real NOR/EEPROM-backed media.
//
// Implementations are not required to be safe for concurrent use; blockfs
// never calls a BlockDevice method concurrently with another.
type BlockDevice interface {
	// BlockSize returns the fixed size in bytes of every block.
	BlockSize() int

	// BlockCount returns the number of addressable blocks.
	BlockCount() int

	// ReadBlock reads block index into dst, which has length BlockSize().
	// A non-nil error is a device fault and is propagated to the blockfs
	// caller, possibly after setting the remount-needed flag.
	ReadBlock(index int, dst []byte) error

	// WriteBlock writes src, which has length BlockSize(), to block index.
	// The write must be durable by the time WriteBlock returns nil: a
	// successful return means the block device honors program order and
	// the data survives a subsequent crash.
	WriteBlock(index int, src []byte) error
}

// headerOverhead is the number of bytes a start block needs besides the
// file name itself, keeping room for one data byte: birthday(4) +
// prefer_if_older(4) + NUL(1) + one data byte(1) + trailer(8) = 18.
const headerOverhead = 4 + 4 + 1 + 1 + 4 + 4

// trailerSize is the number of trailing bytes every block reserves for its
// trailer (unoccupied_data_bytes/next-or-checksum).
const trailerSize = 8

// Config configures [Mount].
type Config struct {
	// BlockSize is the fixed size in bytes of every block on Device. Must
	// be at least 18 (headerOverhead). Open accepts names of at most
	// BlockSize-18 bytes, so a one-byte name needs a BlockSize of 19 or
	// more.
	BlockSize int

	// BlockCount is the number of blocks Device exposes. Must be at least 1.
	BlockCount int

	// Device is the underlying block store. Required.
	Device BlockDevice
}

func (c Config) validate() error {
	if c.BlockSize < headerOverhead {
		return fmt.Errorf("block size %d < minimum %d: %w", c.BlockSize, headerOverhead, ErrBadBlockConfig)
	}
	if c.BlockCount < 1 {
		return fmt.Errorf("block count %d < 1: %w", c.BlockCount, ErrBadBlockConfig)
	}
	if c.Device == nil {
		return fmt.Errorf("device is nil: %w", ErrBadBlockConfig)
	}
	if c.Device.BlockSize() != c.BlockSize {
		return fmt.Errorf("device block size %d != config block size %d: %w", c.Device.BlockSize(), c.BlockSize, ErrBadBlockConfig)
	}
	if c.Device.BlockCount() != c.BlockCount {
		return fmt.Errorf("device block count %d != config block count %d: %w", c.Device.BlockCount(), c.BlockCount, ErrBadBlockConfig)
	}
	return nil
}
