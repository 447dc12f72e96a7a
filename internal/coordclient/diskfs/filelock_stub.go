//go:build !unix

package diskfs

import "os"

// lockFile is a stub on non-Unix platforms; cross-process CAS races are not
// guarded there, only the in-process mutex is.
func lockFile(f *os.File) error { return nil }

// unlockFile is a stub counterpart to lockFile on non-Unix platforms.
func unlockFile(f *os.File) error { return nil }
