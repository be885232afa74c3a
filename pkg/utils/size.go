package utils

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Common size constants
const (
	Byte     int64 = 1
	KiloByte int64 = 1 << 10
	MegaByte int64 = 1 << 20
	GigaByte int64 = 1 << 30
	TeraByte int64 = 1 << 40
	PetaByte int64 = 1 << 50
)

var sizePattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*([A-Za-z]+)$`)

// unitMultipliers maps an upper-cased unit to its byte multiplier. Two-letter
// SI units are decimal, single letters and IEC units are binary.
var unitMultipliers = map[string]int64{
	"B": 1, "BYTE": 1, "BYTES": 1,
	"KB": 1e3, "MB": 1e6, "GB": 1e9, "TB": 1e12, "PB": 1e15,
	"K": KiloByte, "KIB": KiloByte,
	"M": MegaByte, "MIB": MegaByte,
	"G": GigaByte, "GIB": GigaByte,
	"T": TeraByte, "TIB": TeraByte,
	"P": PetaByte, "PIB": PetaByte,
}

// ParseDataSize parses sizes like "5MiB", "2M", "1.5GB" or a plain byte count.
func ParseDataSize(sizeStr string) (int64, error) {
	sizeStr = strings.TrimSpace(sizeStr)
	if sizeStr == "" {
		return 0, fmt.Errorf("empty size string")
	}

	if val, err := strconv.ParseInt(sizeStr, 10, 64); err == nil {
		if val < 0 {
			return 0, fmt.Errorf("negative size: %s", sizeStr)
		}
		return val, nil
	}

	matches := sizePattern.FindStringSubmatch(sizeStr)
	if matches == nil {
		return 0, fmt.Errorf("invalid size format: %s (expected format like '5MiB', '512KB', '1.5GB')", sizeStr)
	}

	value, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric value: %s", matches[1])
	}

	multiplier, ok := unitMultipliers[strings.ToUpper(matches[2])]
	if !ok {
		return 0, fmt.Errorf("unknown unit: %s", matches[2])
	}

	bytes := value * float64(multiplier)
	if bytes > math.MaxInt64 {
		return 0, fmt.Errorf("size overflow: %s", sizeStr)
	}
	return int64(bytes), nil
}

// ParseDataSizeWithDefault parses a size string and returns def if empty or invalid
func ParseDataSizeWithDefault(sizeStr string, def int64) int64 {
	size, err := ParseDataSize(sizeStr)
	if err != nil {
		return def
	}
	return size
}

var displayUnits = []struct {
	size int64
	name string
}{
	{PetaByte, "PB"},
	{TeraByte, "TB"},
	{GigaByte, "GB"},
	{MegaByte, "MB"},
	{KiloByte, "KB"},
}

// FormatDataSize renders a byte count with at most two decimals, e.g. "1.5 MB".
func FormatDataSize(bytes int64) string {
	if bytes < 0 {
		return "invalid"
	}
	for _, u := range displayUnits {
		if bytes >= u.size {
			value := math.Round(float64(bytes)/float64(u.size)*100) / 100
			return strconv.FormatFloat(value, 'f', -1, 64) + " " + u.name
		}
	}
	return fmt.Sprintf("%d B", bytes)
}
