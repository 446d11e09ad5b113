package host

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// formatNumber rounds n to precision decimals and drops trailing zeros, so
// 2.50 renders as "2.5" and 3.00 as "3".
func formatNumber(n float64, precision int) string {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	s := strconv.FormatFloat(n, 'f', precision, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	if s == "-0" {
		return "0"
	}
	return s
}

// strftimeLayouts maps each supported directive to its Go layout.
var strftimeLayouts = map[byte]string{
	'd': "02",
	'm': "01",
	'Y': "2006",
	'y': "06",
	'b': "Jan",
	'B': "January",
	'a': "Mon",
	'A': "Monday",
	'H': "15",
	'M': "04",
	'S': "05",
}

// strftime renders t with a strftime style format. Unknown directives are
// copied verbatim; checkDateFormat rejects them up front.
func strftime(t time.Time, format string) string {
	var b strings.Builder
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' || i+1 == len(format) {
			b.WriteByte(c)
			continue
		}
		i++
		d := format[i]
		switch d {
		case '%':
			b.WriteByte('%')
		case 'e':
			fmt.Fprintf(&b, "%2d", t.Day())
		default:
			if layout, ok := strftimeLayouts[d]; ok {
				b.WriteString(t.Format(layout))
			} else {
				b.WriteByte('%')
				b.WriteByte(d)
			}
		}
	}
	return b.String()
}

func checkDateFormat(format string) error {
	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			continue
		}
		if i+1 == len(format) {
			return fmt.Errorf("date format %q ends with '%%'", format)
		}
		i++
		d := format[i]
		if _, ok := strftimeLayouts[d]; !ok && d != '%' && d != 'e' {
			return fmt.Errorf("date format %q: unsupported directive %%%c", format, d)
		}
	}
	return nil
}
