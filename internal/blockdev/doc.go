// Package blockdev provides block-device implementations for blockfs.
//
// [Memory] is a RAM-backed device for embedding and tests that don't need
// real persistence. [File] persists blocks to an OS file via pread/pwrite.
// [Chaos] and [Crash] wrap any device to inject faults: Chaos for random
// read/write failures and partial writes, Crash for simulating a power
// loss partway through a sequence of writes.
//
// None of these types import blockfs; they satisfy its BlockDevice
// interface structurally, the way the teacher's pkg/fs implementations
// satisfy FS without either package depending on the other's types.
package blockdev
