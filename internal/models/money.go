package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MinorUnits converts a rupee amount to paise.
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// FormatINR renders an amount with the rupee sign and Indian digit grouping,
// e.g. 120000 -> "₹1,20,000". Paise are shown only when present.
func FormatINR(amount float64) string {
	minor := MinorUnits(amount)
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	rupees := minor / 100
	paise := minor % 100

	out := sign + "₹" + groupIndian(rupees)
	if paise != 0 {
		out += fmt.Sprintf(".%02d", paise)
	}
	return out
}

func groupIndian(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	head, tail := s[:len(s)-3], s[len(s)-3:]

	var parts []string
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	if head != "" {
		parts = append([]string{head}, parts...)
	}
	return strings.Join(parts, ",") + "," + tail
}
