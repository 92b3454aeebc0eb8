package fsops

import "os"

// Deleter abstracts the filesystem primitives the reaper needs.
// Enables swapping the real filesystem for an in-memory or failing one in tests.
type Deleter interface {
	Stat(path string) (os.FileInfo, error)
	Remove(path string) error
}
