package blockdev

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
)

// ErrChaos marks errors synthesized by [Chaos] rather than passed through
// from the wrapped device. Use [errors.Is] to tell a simulated fault apart
// from a real one surfaced during the same test.
var ErrChaos = errors.New("blockdev: injected fault")

// ChaosMode selects whether [Chaos] is actively injecting faults.
type ChaosMode uint32

const (
	// ChaosModeActive injects faults according to ChaosConfig. Default.
	ChaosModeActive ChaosMode = iota
	// ChaosModeNoOp passes every call through to the wrapped device.
	ChaosModeNoOp
)

// ChaosConfig controls fault injection probabilities, each a float64 from
// 0.0 (never) to 1.0 (always). The zero value disables all injection.
type ChaosConfig struct {
	// ReadFailRate controls how often ReadBlock fails entirely, as if the
	// device returned a media error.
	ReadFailRate float64

	// WriteFailRate controls how often WriteBlock fails entirely, before
	// any byte reaches the wrapped device.
	WriteFailRate float64

	// PartialWriteRate controls how often a write reaches the wrapped
	// device only partway: a random prefix of src is written (via
	// WriteBlock on the truncated slice, left-padded with the block's
	// prior contents is NOT simulated — the remainder is simply left as
	// whatever garbage the underlying device already had), and an error
	// is still returned. This approximates a power cut mid-block-program
	// on NOR/EEPROM media, where an interrupted program leaves the cell
	// in an indeterminate state rather than atomically one version or
	// the other.
	PartialWriteRate float64
}

// Chaos wraps a [BlockDevice] and injects faults per [ChaosConfig]. It
// implements BlockDevice itself, so it can be mounted directly.
type Chaos struct {
	dev    BlockDevice
	rng    *rand.Rand
	config ChaosConfig
	mode   atomic.Uint32

	readFaults  atomic.Int64
	writeFaults atomic.Int64
}

// NewChaos wraps dev with fault injection. seed controls the pseudo-random
// fault sequence so test failures are reproducible.
func NewChaos(dev BlockDevice, seed int64, config ChaosConfig) *Chaos {
	return &Chaos{
		dev:    dev,
		rng:    rand.New(rand.NewPCG(uint64(seed), uint64(seed))),
		config: config,
	}
}

// SetMode switches between active injection and pure passthrough.
func (c *Chaos) SetMode(m ChaosMode) { c.mode.Store(uint32(m)) }

// TotalFaults returns the number of faults injected so far.
func (c *Chaos) TotalFaults() int64 {
	return c.readFaults.Load() + c.writeFaults.Load()
}

func (c *Chaos) BlockSize() int  { return c.dev.BlockSize() }
func (c *Chaos) BlockCount() int { return c.dev.BlockCount() }

func (c *Chaos) active() bool {
	return ChaosMode(c.mode.Load()) == ChaosModeActive
}

func (c *Chaos) should(rate float64) bool {
	if !c.active() || rate <= 0 {
		return false
	}
	return c.rng.Float64() < rate
}

func (c *Chaos) ReadBlock(index int, dst []byte) error {
	if c.should(c.config.ReadFailRate) {
		c.readFaults.Add(1)
		return fmt.Errorf("read block %d: %w", index, ErrChaos)
	}
	return c.dev.ReadBlock(index, dst)
}

func (c *Chaos) WriteBlock(index int, src []byte) error {
	if c.should(c.config.WriteFailRate) {
		c.writeFaults.Add(1)
		return fmt.Errorf("write block %d: %w", index, ErrChaos)
	}
	if c.should(c.config.PartialWriteRate) {
		c.writeFaults.Add(1)
		n := c.rng.IntN(len(src))
		if err := c.dev.WriteBlock(index, src[:n]); err != nil {
			return err
		}
		return fmt.Errorf("partial write to block %d (%d of %d bytes): %w", index, n, len(src), ErrChaos)
	}
	return c.dev.WriteBlock(index, src)
}
