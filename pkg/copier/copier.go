// Package copier copies single files and proves each copy with a CRC32
// comparison of the source and the bytes that landed at the destination.
package copier

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/yuya-takeyama/strict-fs-sync/internal/checksum"
	"github.com/yuya-takeyama/strict-fs-sync/internal/clock"
	"github.com/yuya-takeyama/strict-fs-sync/pkg/fserr"
	"github.com/yuya-takeyama/strict-fs-sync/pkg/localfs"
	"github.com/yuya-takeyama/strict-fs-sync/pkg/logger"
)

const bufferSize = 64 * 1024

// Options controls a single copy
type Options struct {
	Overwrite bool // Replace a non-empty destination
	Fast      bool // Skip timestamp propagation
	Move      bool // Delete the source after a verified copy
}

// Result describes one attempted copy. It is never modified after CopyOne returns.
type Result struct {
	Source              string        `json:"source" yaml:"source"`
	Destination         string        `json:"destination" yaml:"destination"`
	Size                uint64        `json:"size" yaml:"size"`
	Elapsed             time.Duration `json:"elapsed" yaml:"elapsed"`
	SourceChecksum      string        `json:"source_checksum" yaml:"source_checksum"`
	DestinationChecksum string        `json:"destination_checksum" yaml:"destination_checksum"`
	Matched             bool          `json:"matched" yaml:"matched"`
	ErrorMessage        string        `json:"error_message,omitempty" yaml:"error_message,omitempty"`
	ErrorKind           fserr.Kind    `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
}

type Copier struct {
	fs     billy.Filesystem
	logger logger.Logger
	clock  clock.Clock
}

func NewCopier(fs billy.Filesystem, logger logger.Logger, clk clock.Clock) *Copier {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Copier{
		fs:     fs,
		logger: logger,
		clock:  clk,
	}
}

// CopyOne copies src to dst and verifies the result. Failures never escape
// as errors: they are recorded in the returned Result.
func (c *Copier) CopyOne(src, dst string, opts Options) Result {
	start := c.clock.Now()
	result := Result{Source: src, Destination: dst}

	info, err := c.copyVerified(&result, src, dst, opts)
	if err != nil {
		result.ErrorMessage = err.Error()
		result.ErrorKind = fserr.Classify(err)
	}
	result.Matched = result.ErrorMessage == "" &&
		checksum.Equal(result.SourceChecksum, result.DestinationChecksum)

	if result.Matched && !opts.Fast {
		c.copyTimes(info, dst)
	}
	if result.Matched && opts.Move {
		if err := c.fs.Remove(src); err != nil {
			c.logger.Warn("remove source", src, err)
		}
	}

	result.Elapsed = c.clock.Now().Sub(start)
	return result
}

func (c *Copier) copyVerified(result *Result, src, dst string, opts Options) (info os.FileInfo, err error) {
	info, err = c.fs.Stat(src)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fserr.Newf(fserr.NotFound, "stat source", src, "source not found")
	}
	if err != nil {
		return nil, fserr.New("stat source", src, err)
	}
	if info.IsDir() {
		return nil, fserr.Newf(fserr.InvalidArgument, "stat source", src, "source is a directory")
	}
	if c.sameFile(info, src, dst) {
		return nil, fserr.Newf(fserr.ResourceUnavailable, "open destination", dst, "destination is the source file")
	}

	in, err := c.fs.Open(src)
	if err != nil {
		return nil, fserr.New("open source", src, err)
	}
	defer in.Close()

	result.SourceChecksum, err = checksum.Calculate(in)
	if err != nil {
		return nil, fserr.New("checksum source", src, err)
	}

	out, err := c.fs.OpenFile(dst, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fserr.New("open destination", dst, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fserr.New("close destination", dst, cerr)
		}
	}()

	if err := out.Lock(); err != nil {
		return nil, &fserr.Error{Kind: fserr.ResourceUnavailable, Op: "lock destination", Path: dst, Err: err}
	}
	defer out.Unlock()

	destLen, err := out.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fserr.New("seek destination", dst, err)
	}

	write := info.Size() > 0 && destLen == 0
	if destLen > 0 && opts.Overwrite {
		if err := out.Truncate(0); err != nil {
			return nil, fserr.New("truncate destination", dst, err)
		}
		if syncer, ok := out.(interface{ Sync() error }); ok {
			if err := syncer.Sync(); err != nil {
				return nil, fserr.New("flush destination", dst, err)
			}
		}
		write = true
	}

	if write {
		if err := transfer(in, out); err != nil {
			return nil, fserr.New("copy", dst, err)
		}
	} else if destLen > 0 {
		c.logger.Debug("destination exists, not overwriting: " + dst)
	}

	if _, err := out.Seek(0, io.SeekStart); err != nil {
		return nil, fserr.New("seek destination", dst, err)
	}
	result.DestinationChecksum, err = checksum.Calculate(out)
	if err != nil {
		return nil, fserr.New("checksum destination", dst, err)
	}

	size, err := out.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fserr.New("seek destination", dst, err)
	}
	result.Size = uint64(size)

	return info, nil
}

// sameFile reports whether dst names the source file itself
func (c *Copier) sameFile(srcInfo os.FileInfo, src, dst string) bool {
	if filepath.Clean(src) == filepath.Clean(dst) {
		return true
	}
	dstInfo, err := c.fs.Stat(dst)
	if err != nil {
		return false
	}
	return os.SameFile(srcInfo, dstInfo)
}

// transfer rewinds both files and copies src into dst in fixed-size chunks
func transfer(src, dst billy.File) error {
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := dst.Seek(0, io.SeekStart); err != nil {
		return err
	}

	buffer := make([]byte, bufferSize)
	for {
		n, err := src.Read(buffer)
		if n > 0 {
			if _, werr := dst.Write(buffer[:n]); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (c *Copier) copyTimes(info os.FileInfo, dst string) {
	changer, ok := c.fs.(localfs.TimesChanger)
	if !ok {
		c.logger.Debug("filesystem cannot set times, skipping " + dst)
		return
	}
	if err := changer.Chtimes(dst, localfs.AccessTime(info), info.ModTime()); err != nil {
		c.logger.Warn("set times", dst, err)
	}
}
