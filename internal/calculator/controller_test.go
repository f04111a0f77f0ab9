package calculator

import (
	"math"
	"testing"

	"refill-pricing/internal/apperror"
)

type recordingDisplay struct {
	texts []string
}

func (d *recordingDisplay) SetText(text string) { d.texts = append(d.texts, text) }

func TestCalculateCost_SubscribedSingleRefill(t *testing.T) {
	c := NewController(DefaultOptions())
	out := &recordingDisplay{}

	res, err := c.CalculateCost(Input{Price: "20", Refills: "1", Subscribed: true}, out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.texts) != 1 || out.texts[0] != "$15.00" {
		t.Fatalf("expected single write of $15.00, got %v", out.texts)
	}
	if res.FinalCost != 15 {
		t.Fatalf("expected final 15, got %v", res.FinalCost)
	}
}

func TestCalculateCost_BlankRefillsUsesDefault(t *testing.T) {
	c := NewController(DefaultOptions())
	out := &recordingDisplay{}

	if _, err := c.CalculateCost(Input{Price: "20", Subscribed: true}, out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.texts[0] != "$15.00" {
		t.Fatalf("expected $15.00, got %s", out.texts[0])
	}
}

func TestCalculateCost_SubscriptionAndCoupon(t *testing.T) {
	c := NewController(DefaultOptions())
	var got string
	res, err := c.CalculateCost(Input{Price: "5", Refills: "3", Subscribed: true, Coupon: true}, DisplayFunc(func(s string) { got = s }))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.InitialCost != 15 || res.AfterSubscription != 11.25 || res.FinalCost != 1.25 {
		t.Fatalf("unexpected breakdown: %+v", res.Breakdown)
	}
	if got != "$1.25" {
		t.Fatalf("expected $1.25, got %s", got)
	}
}

func TestCalculateCost_ZeroRefills(t *testing.T) {
	c := NewController(DefaultOptions())

	res, _ := c.Calculate(Input{Price: "30", Refills: "0", Subscribed: true})
	if res.Text != "$0.00" {
		t.Fatalf("expected $0.00 without coupon, got %s", res.Text)
	}

	res, _ = c.Calculate(Input{Price: "30", Refills: "0", Subscribed: true, Coupon: true})
	if res.Text != "$-10.00" {
		t.Fatalf("expected unclamped $-10.00, got %s", res.Text)
	}
}

func TestCalculateCost_ClampNegative(t *testing.T) {
	opts := DefaultOptions()
	opts.ClampNegative = true
	c := NewController(opts)

	res, err := c.Calculate(Input{Price: "30", Refills: "0", Coupon: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "$0.00" || !res.Clamped {
		t.Fatalf("expected clamped $0.00, got %s (clamped=%v)", res.Text, res.Clamped)
	}

	res, _ = c.Calculate(Input{Price: "30", Refills: "1", Coupon: true})
	if res.Clamped || res.Text != "$20.00" {
		t.Fatalf("expected unclamped $20.00, got %s", res.Text)
	}
}

func TestCalculateCost_MalformedInputPropagatesNaN(t *testing.T) {
	c := NewController(DefaultOptions())
	out := &recordingDisplay{}

	res, err := c.CalculateCost(Input{Price: "abc", Refills: "3"}, out)
	if err != nil {
		t.Fatalf("lenient mode must not fail, got %v", err)
	}
	if !math.IsNaN(res.FinalCost) {
		t.Fatalf("expected NaN final cost, got %v", res.FinalCost)
	}
	if out.texts[0] != "$NaN" {
		t.Fatalf("expected $NaN, got %s", out.texts[0])
	}

	res, _ = c.Calculate(Input{Price: "20", Refills: "many"})
	if res.Text != "$NaN" {
		t.Fatalf("expected $NaN for unparsable refills, got %s", res.Text)
	}
}

func TestCalculateCost_StrictRejectsInput(t *testing.T) {
	opts := DefaultOptions()
	opts.Strict = true
	c := NewController(opts)

	cases := []struct {
		in    Input
		field string
	}{
		{Input{Price: "abc", Refills: "1"}, FieldPrice},
		{Input{Price: "", Refills: "1"}, FieldPrice},
		{Input{Price: "-5", Refills: "1"}, FieldPrice},
		{Input{Price: "0x10", Refills: "1"}, FieldPrice},
		{Input{Price: "1e400", Refills: "1"}, FieldPrice},
		{Input{Price: "5", Refills: "2.5"}, FieldRefills},
		{Input{Price: "5", Refills: "-1"}, FieldRefills},
	}
	for _, tc := range cases {
		out := &recordingDisplay{}
		_, err := c.CalculateCost(tc.in, out)
		if !apperror.Is(err, apperror.KindValidation) {
			t.Fatalf("%+v: expected validation error, got %v", tc.in, err)
		}
		if f := apperror.FieldOf(err); f != tc.field {
			t.Fatalf("%+v: expected field %s, got %s", tc.in, tc.field, f)
		}
		if len(out.texts) != 0 {
			t.Fatalf("%+v: display must stay untouched on error", tc.in)
		}
	}
}

func TestCalculateCost_StrictAcceptsValidInput(t *testing.T) {
	opts := DefaultOptions()
	opts.Strict = true
	c := NewController(opts)

	res, err := c.Calculate(Input{Price: " 5.50 ", Refills: " 2 ", Subscribed: false, Coupon: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "$1.00" {
		t.Fatalf("expected $1.00, got %s", res.Text)
	}

	if _, err := c.Calculate(Input{Price: "20"}); err != nil {
		t.Fatalf("blank refills should fall back to default in strict mode, got %v", err)
	}
}

func TestCalculateCost_NilDisplay(t *testing.T) {
	c := NewController(DefaultOptions())
	if _, err := c.CalculateCost(Input{Price: "1", Refills: "1"}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestController_InitialText(t *testing.T) {
	c := NewController(Options{})
	if c.InitialText() != InitialDisplay {
		t.Fatalf("expected %s, got %s", InitialDisplay, c.InitialText())
	}
	if c.Options().CurrencySymbol != "$" {
		t.Fatalf("expected default currency symbol")
	}
}
