package calculator

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ParseFloat читает число из начала строки так же, как браузерный parseFloat:
// ведущие пробелы пропускаются, берётся самый длинный числовой префикс,
// "Infinity" допускается, при отсутствии префикса возвращается NaN.
func ParseFloat(raw string) float64 {
	s := trimLeadingSpace(raw)
	sign, s := splitSign(s)

	if strings.HasPrefix(s, "Infinity") {
		return math.Inf(sign)
	}

	end := scanDecimal(s)
	if end == 0 {
		return math.NaN()
	}

	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil && !isRangeErr(err) {
		return math.NaN()
	}
	return float64(sign) * v
}

// ParseInt читает целое в десятичной системе как parseInt(s, 10):
// знак, затем цифры до первого нецифрового символа. Без цифр возвращается NaN.
func ParseInt(raw string) float64 {
	s := trimLeadingSpace(raw)
	sign, s := splitSign(s)

	end := 0
	for end < len(s) && isDigit(s[end]) {
		end++
	}
	if end == 0 {
		return math.NaN()
	}

	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil && !isRangeErr(err) {
		return math.NaN()
	}
	return float64(sign) * v
}

// scanDecimal возвращает длину префикса вида digits[.digits][(e|E)[+-]digits].
func scanDecimal(s string) int {
	i := 0
	intDigits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		intDigits++
	}

	fracDigits := 0
	if i < len(s) && s[i] == '.' {
		j := i + 1
		for j < len(s) && isDigit(s[j]) {
			j++
			fracDigits++
		}
		if intDigits > 0 || fracDigits > 0 {
			i = j
		}
	}
	if intDigits == 0 && fracDigits == 0 {
		return 0
	}

	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		expStart := j
		for j < len(s) && isDigit(s[j]) {
			j++
		}
		if j > expStart {
			i = j
		}
	}
	return i
}

func splitSign(s string) (int, string) {
	if strings.HasPrefix(s, "-") {
		return -1, s[1:]
	}
	if strings.HasPrefix(s, "+") {
		return 1, s[1:]
	}
	return 1, s
}

func trimLeadingSpace(s string) string {
	return strings.TrimLeftFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '\uFEFF'
	})
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isRangeErr(err error) bool {
	numErr, ok := err.(*strconv.NumError)
	return ok && numErr.Err == strconv.ErrRange
}
