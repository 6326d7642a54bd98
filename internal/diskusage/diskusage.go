// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package diskusage backs the Sequential File Factory's periodic
// directory-usage report and stale-file sweep.
package diskusage

import (
	"os"
	"path/filepath"
	"time"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
)

// MegabytesUsed sums the size of every regular file directly inside
// dirpath.
func MegabytesUsed(dirpath string) float64 {
	dir, err := os.Open(dirpath)
	if err != nil {
		cclog.Errorf("diskusage: open %s: %v", dirpath, err)
		return 0
	}
	defer dir.Close()

	files, err := dir.Readdir(-1)
	if err != nil {
		cclog.Errorf("diskusage: readdir %s: %v", dirpath, err)
		return 0
	}

	var size int64
	for _, file := range files {
		if !file.Mode().IsRegular() {
			continue
		}
		size += file.Size()
	}
	return float64(size) * 1e-6
}

// Stale reports the names of zero-length files inside dirpath whose
// extension matches ext and whose modification time is older than
// olderThan. A zero-length journal file older than the grace period
// is the signature of a crashed writer that never got to append a
// first record.
func Stale(dirpath, ext string, olderThan time.Duration) ([]string, error) {
	entries, err := os.ReadDir(dirpath)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().Add(-olderThan)
	suffix := "." + ext
	var stale []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != suffix {
			continue
		}
		info, err := e.Info()
		if err != nil {
			cclog.Warnf("diskusage: stat %s: %v", e.Name(), err)
			continue
		}
		if info.Size() == 0 && info.ModTime().Before(cutoff) {
			stale = append(stale, e.Name())
		}
	}
	return stale, nil
}
