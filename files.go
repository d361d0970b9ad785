/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
	"strconv"
)

var sizeUnits = [...]string{"B", "kB", "MB", "GB", "TB", "PB"}

// humanReadableSize formats a byte count in SI units for log lines.
func humanReadableSize(bytes int64) string {
	if bytes < 1000 {
		return strconv.FormatInt(bytes, 10) + " B"
	}

	size, unit := float64(bytes), 0
	for size >= 1000 && unit < len(sizeUnits)-1 {
		size /= 1000
		unit++
	}

	return fmt.Sprintf("%.1f %s", size, sizeUnits[unit])
}
