// Package system holds the operating-system collaborators of the build
// engine: artifact timestamps and shell execution of recipes.
package system

import (
	stderrors "errors"
	"io/fs"
	"os"
)

const (
	// Missing is returned for names with no file behind them.
	Missing uint64 = 0
	// Unreadable is returned when the file exists but stat failed.
	Unreadable uint64 = 1
)

// LastModification returns name's modification time in nanoseconds since the
// Unix epoch, Missing when the file does not exist and Unreadable when its
// metadata cannot be read.
func LastModification(name string) uint64 {
	info, err := os.Stat(name)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return Missing
		}
		return Unreadable
	}
	ns := info.ModTime().UnixNano()
	if ns <= int64(Unreadable) {
		// Keep the sentinels reserved for files dated at or before the epoch.
		return Unreadable + 1
	}
	return uint64(ns)
}

// Stamper is the ports.Stamper backed by the real filesystem.
type Stamper struct{}

func (Stamper) LastModification(name string) uint64 {
	return LastModification(name)
}
