// Package kibi formats and parses human readable byte sizes.
package kibi

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidByteSizeString = errors.New("Invalid byte size string")

var units = []string{"bytes", "KB", "MB", "GB", "TB", "PB"}

// Bytes renders b as a human readable size, eg "37 MB"
func Bytes(b int64) string {
	scaled := b
	unit := 0
	for scaled >= 1024 && unit < len(units)-1 {
		scaled /= 1024
		unit++
	}
	return fmt.Sprintf("%v %v", scaled, units[unit])
}

// Parse reads a size such as "200MB", "200 mb", or "200m".
// A bare number is a byte count.
func Parse(v string) (int64, error) {
	v = strings.TrimSpace(strings.ToLower(v))
	digits := v
	for i, r := range v {
		if r < '0' || r > '9' {
			digits = v[:i]
			break
		}
	}
	if digits == "" {
		return 0, ErrInvalidByteSizeString
	}
	value, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, err
	}
	suffix := strings.TrimSpace(v[len(digits):])
	if suffix == "" || suffix == "bytes" {
		return value, nil
	}
	multiplier := int64(1024)
	for _, u := range units[1:] {
		lu := strings.ToLower(u)
		if suffix == lu || suffix == lu[:1] {
			return value * multiplier, nil
		}
		multiplier *= 1024
	}
	return 0, ErrInvalidByteSizeString
}
