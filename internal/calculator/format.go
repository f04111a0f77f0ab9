package calculator

import (
	"math"
	"math/big"
	"strconv"
	"strings"
)

// exponentThreshold: начиная с этого модуля toFixed переходит на экспоненциальную запись.
const exponentThreshold = 1e21

// ToFixed форматирует число с заданным количеством знаков после точки по правилам
// Number.prototype.toFixed: округление по точному двоичному значению, половина
// округляется от нуля, NaN и бесконечности выводятся словами.
func ToFixed(v float64, digits int) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	}
	if math.Abs(v) >= exponentThreshold {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}

	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}

	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil))
	scaled := new(big.Float).SetPrec(256).SetFloat64(v)
	scaled.Mul(scaled, scale)

	n, _ := scaled.Int(nil)
	frac := new(big.Float).SetPrec(256).Sub(scaled, new(big.Float).SetPrec(256).SetInt(n))
	if frac.Cmp(big.NewFloat(0.5)) >= 0 {
		n.Add(n, big.NewInt(1))
	}

	s := n.String()
	if digits == 0 {
		return sign + s
	}
	if len(s) <= digits {
		s = strings.Repeat("0", digits-len(s)+1) + s
	}
	return sign + s[:len(s)-digits] + "." + s[len(s)-digits:]
}

// FormatCost возвращает сумму в виде "<символ><сумма с двумя знаками>", например "$15.00".
func FormatCost(symbol string, v float64) string {
	return symbol + ToFixed(v, 2)
}
