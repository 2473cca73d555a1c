package blockdev

import (
	"errors"
	"fmt"
	"sync"
)

// ErrCrashDev marks errors originating from Crash internals.
//
// Use [errors.Is] with this sentinel to detect Crash-generated errors.
var ErrCrashDev = errors.New("blockdev/crash")

// Crash is a test-only BlockDevice wrapper that simulates a power loss
// partway through a sequence of block writes.
//
// Crash keeps two copies of the media: a durable snapshot, and the live
// image that WriteBlock actually mutates. [Crash.SetCutoff] arms a hard
// write-count limit; once it's reached, every further WriteBlock fails
// before touching the live image, modeling the fact that power can be cut
// before a given block program even starts. [Crash.SimulateCrash]
// unconditionally discards every write issued since the last [Crash.Sync],
// win or lose — there is no partial-writeback modeling of a write that was
// actually in flight when power was cut; that is [Chaos]'s job, not
// Crash's.
//
// Crash is not meant for production use.
type Crash struct {
	dev BlockDevice

	mu      sync.Mutex
	durable [][]byte
	live    [][]byte

	cutoff      int
	writeCount  int
	cutoffTrips bool
}

// NewCrash wraps dev. The device's current contents become the initial
// durable snapshot.
func NewCrash(dev BlockDevice) (*Crash, error) {
	n := dev.BlockCount()
	bs := dev.BlockSize()

	durable := make([][]byte, n)
	live := make([][]byte, n)
	buf := make([]byte, bs)
	for i := 0; i < n; i++ {
		if err := dev.ReadBlock(i, buf); err != nil {
			return nil, fmt.Errorf("blockdev: snapshot block %d: %w", i, err)
		}
		durable[i] = append([]byte(nil), buf...)
		live[i] = append([]byte(nil), buf...)
	}

	return &Crash{dev: dev, durable: durable, live: live}, nil
}

// SetCutoff arms the device to fail every WriteBlock call starting with the
// (n+1)th, simulating power loss after exactly n writes have gone through.
// A cutoff of 0 fails every write immediately; a negative cutoff disarms it.
func (c *Crash) SetCutoff(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cutoff = n
	c.cutoffTrips = n >= 0
	c.writeCount = 0
}

// Sync marks the current live image as durable. Call this where the real
// system would call fsync.
func (c *Crash) Sync() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.live {
		c.durable[i] = append(c.durable[i][:0], c.live[i]...)
	}
}

// SimulateCrash rewinds the device to the last durable snapshot, discarding
// every write issued since the last [Crash.Sync] unconditionally. This
// models a power loss: writes that never got flushed to the underlying
// medium vanish, regardless of whether they landed before or after a
// cutoff.
func (c *Crash) SimulateCrash() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.durable {
		c.live[i] = append(c.live[i][:0], c.durable[i]...)
	}
	c.writeCount = 0
	c.cutoffTrips = false
}

func (c *Crash) BlockSize() int  { return c.dev.BlockSize() }
func (c *Crash) BlockCount() int { return c.dev.BlockCount() }

// WriteCount returns how many WriteBlock calls have gone through since the
// last [Crash.SetCutoff] or [Crash.SimulateCrash]. Tests use this to arm a
// cutoff relative to "however many writes have happened so far" rather
// than a hardcoded count.
func (c *Crash) WriteCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeCount
}

func (c *Crash) ReadBlock(index int, dst []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.live) {
		return fmt.Errorf("blockdev: block index %d out of range [0, %d)", index, len(c.live))
	}
	copy(dst, c.live[index])
	return nil
}

func (c *Crash) WriteBlock(index int, src []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if index < 0 || index >= len(c.live) {
		return fmt.Errorf("blockdev: block index %d out of range [0, %d)", index, len(c.live))
	}

	if c.cutoffTrips && c.writeCount >= c.cutoff {
		return fmt.Errorf("write block %d after cutoff at %d writes: %w", index, c.cutoff, ErrCrashDev)
	}
	c.writeCount++

	copy(c.live[index], src)
	return nil
}
