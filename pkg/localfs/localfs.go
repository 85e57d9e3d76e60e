// Package localfs provides the billy filesystems the sync engine runs on.
package localfs

import (
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

// TimesChanger is implemented by filesystems that can set file timestamps.
type TimesChanger interface {
	Chtimes(name string, atime time.Time, mtime time.Time) error
}

// OS is a billy.Filesystem that acts like the native filesystem:
// absolute paths are resolved against the real root.
type OS struct {
	osfs.ChrootOS
}

// NewOS creates a filesystem backed by the operating system.
func NewOS() *OS {
	return &OS{}
}

// Chroot returns a new filesystem rooted at the provided path.
func (o *OS) Chroot(path string) (billy.Filesystem, error) {
	return osfs.New(path), nil
}

// Root returns the root path for this filesystem.
func (o *OS) Root() string {
	return "/"
}

// Chtimes sets the access and modification times of name.
func (o *OS) Chtimes(name string, atime time.Time, mtime time.Time) error {
	if err := os.Chtimes(name, atime, mtime); err != nil {
		return fmt.Errorf("billy: chtimes %q: %w", name, err)
	}
	return nil
}

// AccessTime returns the last access time recorded in info, falling back to
// the modification time where the platform does not expose it.
func AccessTime(info fs.FileInfo) time.Time {
	if atime, ok := accessTime(info); ok {
		return atime
	}
	return info.ModTime()
}
