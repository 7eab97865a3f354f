package utils

import (
	"fmt"
	"math"
	"strings"
)

// FormatKSh formats an amount as Kenyan Shillings, with thousand separators.
func FormatKSh(amount float64, showDecimals bool) string {
	if math.IsNaN(amount) {
		return "KSh 0"
	}

	var formatted string
	if showDecimals {
		formatted = fmt.Sprintf("%.2f", amount)
	} else {
		formatted = fmt.Sprintf("%.0f", amount)
	}

	parts := strings.SplitN(formatted, ".", 2)
	parts[0] = addThousandSeparators(parts[0])

	return "KSh " + strings.Join(parts, ".")
}

// FormatCurrencyDisplay formats currency for cards and stats (no decimals).
func FormatCurrencyDisplay(amount float64) string {
	return FormatKSh(amount, false)
}

// FormatCurrencyDetailed formats currency for detailed transactions.
func FormatCurrencyDetailed(amount float64) string {
	return FormatKSh(amount, true)
}

func addThousandSeparators(digits string) string {
	neg := strings.HasPrefix(digits, "-")
	if neg {
		digits = digits[1:]
	}

	n := len(digits)
	if n <= 3 {
		if neg {
			return "-" + digits
		}
		return digits
	}

	var b strings.Builder
	first := n % 3
	if first > 0 {
		b.WriteString(digits[:first])
	}
	for i := first; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
