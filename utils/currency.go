package utils

import "fmt"

// FormatAmount renders an integer minor-currency-unit amount for tickets,
// e.g. 1250 -> "¥12.50".
func FormatAmount(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s¥%d.%02d", sign, amount/100, amount%100)
}
