package expression

import (
	"strconv"
	"strings"
)

// FormatValue renders a decimal value in the given base as a sized
// SystemVerilog literal, e.g. FormatValue("5", 2) is "3'b101". Negative
// values render as 64-bit two's complement. Base 10 returns the decimal text
// and other bases return the value unchanged. Unparsable values format as 0.
func FormatValue(value string, base int) string {
	value = strings.TrimSpace(value)
	var u uint64
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		u = uint64(n)
	} else if big, err := strconv.ParseUint(value, 10, 64); err == nil {
		u = big
	}

	var prefix string
	switch base {
	case 2:
		prefix = "'b"
	case 8:
		prefix = "'o"
	case 16:
		prefix = "'h"
	case 10:
		if strings.HasPrefix(value, "-") {
			return strconv.FormatInt(int64(u), 10)
		}
		return strconv.FormatUint(u, 10)
	default:
		return value
	}

	width := len(strconv.FormatUint(u, 2))
	return strconv.Itoa(width) + prefix + strconv.FormatUint(u, base)
}
