// Package blockfs implements a tiny, power-fail-tolerant file store on top
// of a fixed-size array of equal-sized blocks.
//
// blockfs targets storage that can fail mid-write (raw NOR/EEPROM page
// arrays, or a RAM-backed simulation of one) and environments with no
// native filesystem. It offers a minimal file API: open a file for reading
// or writing, read or write a stream of bytes against the open session,
// close the session, delete a file by name, and list or count the files
// currently on the device.
//
// # Basic usage
//
//	fsys, err := blockfs.Mount(blockfs.Config{
//	    BlockSize:  2048,
//	    BlockCount: 64,
//	    Device:     dev,
//	})
//	if err != nil {
//	    // handle error
//	}
//
//	err = fsys.Open("notes.txt", blockfs.Write)
//	_, err = fsys.Write([]byte("hello"))
//	err = fsys.Close()
//
//	err = fsys.Open("notes.txt", blockfs.Read)
//	buf := make([]byte, 5)
//	n, err := fsys.Read(buf)
//	err = fsys.Close()
//
// # Concurrency
//
// blockfs is strictly single-threaded and non-reentrant. At most one
// session (reader or writer) may be open at a time; calling any method
// concurrently with another, or from a callback the package itself
// invokes (such as the [FS.List] callback), is a programming error.
//
// # Error handling
//
// Errors fall into four classes, documented per sentinel in errors.go:
// input validation, resource exhaustion, device/media faults, and internal
// inconsistency. Any fault on a mutating path may leave in-memory state
// out of sync with the device; blockfs tracks this with a sticky
// remount-needed flag and transparently remounts from the device before
// the next directory-level operation. Recovery is always "throw away the
// in-memory model and rescan the device."
package blockfs
