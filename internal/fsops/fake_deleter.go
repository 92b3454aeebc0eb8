package fsops

import (
	"os"
	"sync"
)

// FakeDeleter wraps another Deleter and records every call in order.
// RemoveErr, when set for a path, is returned instead of touching the filesystem.
type FakeDeleter struct {
	Inner     Deleter
	RemoveErr map[string]error

	mu    sync.Mutex
	calls []string
}

func (f *FakeDeleter) Stat(path string) (os.FileInfo, error) {
	f.record("stat:" + path)
	return f.Inner.Stat(path)
}

func (f *FakeDeleter) Remove(path string) error {
	f.record("rm:" + path)
	if err, ok := f.RemoveErr[path]; ok {
		return err
	}
	return f.Inner.Remove(path)
}

// Calls returns a copy of the recorded calls
func (f *FakeDeleter) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *FakeDeleter) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}
