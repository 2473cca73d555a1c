package blockdev

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// File is a block device backed by a real OS file, read and written block
// by block with pread/pwrite so there is no implicit buffering between
// WriteBlock returning and the data reaching the file description.
//
// Durability still depends on the host's own write-back policy; File does
// not call fsync after every write. Callers that need blockfs's "a
// successful WriteBlock is durable" contract on real hardware should wrap
// File accordingly (see [NewFileSynced]).
type File struct {
	f          *os.File
	blockSize  int
	blockCount int
	synced     bool
}

// CreateFile creates (or truncates) path to hold blockCount blocks of
// blockSize bytes and returns a device backed by it. An flock is taken on
// the file for the lifetime of the returned File to turn "two processes
// mounted the same image" into an immediate OS-level error instead of
// silent corruption — blockfs itself only ever allows one in-process
// session, but it has no way to see another process.
func CreateFile(path string, blockSize, blockCount int) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("blockdev: create %s: %w", path, err)
	}
	if err := f.Truncate(int64(blockSize) * int64(blockCount)); err != nil {
		f.Close()
		return nil, fmt.Errorf("blockdev: truncate %s: %w", path, err)
	}
	if err := lockFile(f); err != nil {
		f.Close()
		return nil, err
	}
	return &File{f: f, blockSize: blockSize, blockCount: blockCount}, nil
}

// OpenFile opens an existing image file previously created with
// [CreateFile] (or one matching its layout).
func OpenFile(path string, blockSize, blockCount int) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("blockdev: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("blockdev: stat %s: %w", path, err)
	}
	want := int64(blockSize) * int64(blockCount)
	if info.Size() != want {
		f.Close()
		return nil, fmt.Errorf("blockdev: %s has size %d, want %d (block_size=%d block_count=%d)", path, info.Size(), want, blockSize, blockCount)
	}
	if err := lockFile(f); err != nil {
		f.Close()
		return nil, err
	}
	return &File{f: f, blockSize: blockSize, blockCount: blockCount}, nil
}

// NewFileSynced switches f, in place, to follow every WriteBlock with
// fsync, matching blockfs's assumption that a successful write is durable,
// and returns f itself.
func NewFileSynced(f *File) *File {
	f.synced = true
	return f
}

func lockFile(f *os.File) error {
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		return fmt.Errorf("blockdev: lock %s: %w", f.Name(), err)
	}
	return nil
}

func (d *File) BlockSize() int  { return d.blockSize }
func (d *File) BlockCount() int { return d.blockCount }

func (d *File) ReadBlock(index int, dst []byte) error {
	if err := d.checkIndex(index); err != nil {
		return err
	}
	off := int64(index) * int64(d.blockSize)
	n, err := unix.Pread(int(d.f.Fd()), dst, off)
	if err != nil {
		return fmt.Errorf("blockdev: pread block %d: %w", index, err)
	}
	if n != len(dst) {
		return fmt.Errorf("blockdev: short pread on block %d: got %d of %d bytes", index, n, len(dst))
	}
	return nil
}

func (d *File) WriteBlock(index int, src []byte) error {
	if err := d.checkIndex(index); err != nil {
		return err
	}
	off := int64(index) * int64(d.blockSize)
	n, err := unix.Pwrite(int(d.f.Fd()), src, off)
	if err != nil {
		return fmt.Errorf("blockdev: pwrite block %d: %w", index, err)
	}
	if n != len(src) {
		return fmt.Errorf("blockdev: short pwrite on block %d: wrote %d of %d bytes", index, n, len(src))
	}
	if d.synced {
		if err := d.f.Sync(); err != nil {
			return fmt.Errorf("blockdev: fsync after block %d: %w", index, err)
		}
	}
	return nil
}

func (d *File) checkIndex(index int) error {
	if index < 0 || index >= d.blockCount {
		return fmt.Errorf("blockdev: block index %d out of range [0, %d)", index, d.blockCount)
	}
	return nil
}

// Close releases the file descriptor and its flock.
func (d *File) Close() error {
	return d.f.Close()
}
