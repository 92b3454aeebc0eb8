package fsops

import (
	"os"

	"github.com/spf13/afero"
)

// AferoDeleter implements Deleter on top of an afero filesystem
type AferoDeleter struct {
	Fs afero.Fs
}

// NewOSDeleter returns a Deleter backed by the host filesystem
func NewOSDeleter() *AferoDeleter {
	return &AferoDeleter{Fs: afero.NewOsFs()}
}

func (d *AferoDeleter) Stat(path string) (os.FileInfo, error) {
	return d.Fs.Stat(path)
}

func (d *AferoDeleter) Remove(path string) error {
	return d.Fs.Remove(path)
}
