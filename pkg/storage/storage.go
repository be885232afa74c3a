// Package storage plans byte ranges for both transfer directions and manages
// the local part and temp files a download goes through.
package storage

import (
	"fmt"
	"io"
	"os"
)

const (
	PartSize      = 5242880   // Multipart upload part size, fixed by the service
	HashBlockSize = 64 * 1024 // Read size when hashing for dedupe

	RangeUnit       = 5 * 1024 * 1024 // One range worker per 5MB
	MaxRangeWorkers = 8
	ParallelCutoff  = 2 * 1024 * 1024 // Files above 2MB may be split

	LargeUploadThreshold = 64 * 1024 * 1024 // Completion is delayed above 64MB

	TempSuffix = ".123pan"
)

// Range is a contiguous byte span [Start, End] with End inclusive, the way
// HTTP Range headers count.
type Range struct {
	Index int
	Start int64
	End   int64
}

// Len returns the number of bytes in the range.
func (r Range) Len() int64 {
	return r.End - r.Start + 1
}

// Header renders the Range request header value.
func (r Range) Header() string {
	return fmt.Sprintf("bytes=%d-%d", r.Start, r.End)
}

// PlanParts splits size bytes into upload parts of partSize. Parts are
// numbered from 1 and only the last one may be short. An empty file has no
// parts.
func PlanParts(size, partSize int64) []Range {
	if partSize <= 0 {
		partSize = PartSize
	}
	if size <= 0 {
		return nil
	}

	n := (size + partSize - 1) / partSize
	parts := make([]Range, 0, n)
	for i := int64(0); i < n; i++ {
		start := i * partSize
		end := start + partSize - 1
		if end >= size {
			end = size - 1
		}
		parts = append(parts, Range{Index: int(i) + 1, Start: start, End: end})
	}
	return parts
}

// WorkerCount returns min(maxWorkers, max(1, size/unit)).
func WorkerCount(size int64, maxWorkers int, unit int64) int {
	if maxWorkers <= 0 {
		maxWorkers = MaxRangeWorkers
	}
	if unit <= 0 {
		unit = RangeUnit
	}
	n := size / unit
	if n < 1 {
		n = 1
	}
	if n > int64(maxWorkers) {
		n = int64(maxWorkers)
	}
	return int(n)
}

// SplitRanges divides size bytes into WorkerCount roughly equal contiguous
// ranges. The last range absorbs the remainder. Ranges are indexed from 0.
func SplitRanges(size int64, maxWorkers int, unit int64) []Range {
	if size <= 0 {
		return nil
	}

	workers := WorkerCount(size, maxWorkers, unit)
	step := size / int64(workers)
	ranges := make([]Range, 0, workers)
	for i := 0; i < workers; i++ {
		start := int64(i) * step
		end := start + step - 1
		if i == workers-1 {
			end = size - 1
		}
		ranges = append(ranges, Range{Index: i, Start: start, End: end})
	}
	return ranges
}

// TempPath is where a download is written before it is complete.
func TempPath(final string) string {
	return final + TempSuffix
}

// PartPath is the scratch file of range worker i.
func PartPath(temp string, i int) string {
	return fmt.Sprintf("%s.part%d", temp, i)
}

// ConcatParts writes parts to dst in order and removes them once dst is
// complete.
func ConcatParts(dst string, parts []string) (err error) {
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close %s: %w", dst, cerr)
		}
	}()

	for _, p := range parts {
		if err := appendFile(out, p); err != nil {
			return err
		}
	}

	RemoveAll(parts...)
	return nil
}

func appendFile(out io.Writer, path string) error {
	in, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open part %s: %w", path, err)
	}
	defer in.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to append part %s: %w", path, err)
	}
	return nil
}

// RemoveAll deletes paths, ignoring files that do not exist.
func RemoveAll(paths ...string) {
	for _, p := range paths {
		_ = os.Remove(p)
	}
}

// Exists reports whether path names an existing file or directory.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
