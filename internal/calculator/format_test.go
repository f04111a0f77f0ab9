package calculator

import (
	"math"
	"testing"
)

func TestToFixed(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "0.00"},
		{15, "15.00"},
		{1.25, "1.25"},
		{11.25, "11.25"},
		{-10, "-10.00"},
		{1.005, "1.00"}, // 1.005 хранится как 1.00499999...
		{1.125, "1.13"}, // точная половина округляется вверх
		{2.675, "2.67"},
		{0.1 + 0.2, "0.30"},
		{-0.001, "-0.00"},
		{math.Copysign(0, -1), "0.00"},
		{123456.789, "123456.79"},
		{1e21, "1e+21"},
		{math.NaN(), "NaN"},
		{math.Inf(1), "Infinity"},
		{math.Inf(-1), "-Infinity"},
	}
	for _, tc := range cases {
		if got := ToFixed(tc.in, 2); got != tc.want {
			t.Fatalf("ToFixed(%v): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestToFixed_Digits(t *testing.T) {
	if got := ToFixed(2.5, 0); got != "3" {
		t.Fatalf("expected 3, got %q", got)
	}
	if got := ToFixed(0.05, 3); got != "0.050" {
		t.Fatalf("expected 0.050, got %q", got)
	}
}

func TestFormatCost(t *testing.T) {
	if got := FormatCost("$", 15); got != "$15.00" {
		t.Fatalf("expected $15.00, got %q", got)
	}
	if got := FormatCost("$", math.NaN()); got != "$NaN" {
		t.Fatalf("expected $NaN, got %q", got)
	}
	if got := FormatCost("€", 1.5); got != "€1.50" {
		t.Fatalf("expected €1.50, got %q", got)
	}
}
