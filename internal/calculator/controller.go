package calculator

import (
	"math"
	"strconv"
	"strings"

	"refill-pricing/internal/apperror"
	"refill-pricing/internal/pricing"
)

// Имена полей формы. Совпадают с id элементов страницы.
const (
	FieldPrice      = "price"
	FieldRefills    = "refills"
	FieldSubscribed = "subscribed"
	FieldCoupon     = "coupon"
)

// InitialDisplay содержит текст вывода до первого расчёта
const InitialDisplay = "$0.00"

// Input содержит сырые значения четырёх полей формы
type Input struct {
	Price      string `json:"price"`
	Refills    string `json:"refills"`
	Subscribed bool   `json:"subscribed"`
	Coupon     bool   `json:"coupon"`
}

// Display принимает отформатированную стоимость.
type Display interface {
	SetText(text string)
}

// DisplayFunc позволяет использовать функцию как Display.
type DisplayFunc func(text string)

// SetText вызывает f(text).
func (f DisplayFunc) SetText(text string) { f(text) }

// Result содержит итог одного расчёта
type Result struct {
	Input          Input
	PricePerRefill float64
	Refills        float64
	pricing.Breakdown
	Clamped bool
	Text    string
}

// Options задаёт политику контроллера.
type Options struct {
	// Strict включает проверку ввода вместо распространения NaN.
	Strict bool
	// ClampNegative не даёт купону опустить итог ниже нуля.
	ClampNegative bool
	// DefaultRefills используется, когда поле refills пустое.
	DefaultRefills float64
	// CurrencySymbol ставится перед суммой.
	CurrencySymbol string
}

// DefaultOptions повторяет поведение исходной страницы: без проверок и без ограничения снизу.
func DefaultOptions() Options {
	return Options{DefaultRefills: 1, CurrencySymbol: "$"}
}

// Controller считает стоимость по сырому вводу формы. Состояния между вызовами не хранит.
type Controller struct {
	opts Options
}

// NewController создаёт контроллер.
func NewController(opts Options) *Controller {
	if opts.CurrencySymbol == "" {
		opts.CurrencySymbol = "$"
	}
	return &Controller{opts: opts}
}

// Options возвращает действующую политику.
func (c *Controller) Options() Options {
	return c.opts
}

// InitialText возвращает текст, который вывод показывает до первого расчёта
func (c *Controller) InitialText() string {
	return FormatCost(c.opts.CurrencySymbol, 0)
}

// CalculateCost разбирает ввод, прогоняет конвейер цены и записывает результат в out.
// При ошибке проверки (только в строгом режиме) out не трогается.
func (c *Controller) CalculateCost(in Input, out Display) (Result, error) {
	res, err := c.Calculate(in)
	if err != nil {
		return Result{}, err
	}
	if out != nil {
		out.SetText(res.Text)
	}
	return res, nil
}

// Calculate делает то же, что CalculateCost, но без записи в вывод.
func (c *Controller) Calculate(in Input) (Result, error) {
	if c.opts.Strict {
		if err := validate(in); err != nil {
			return Result{}, err
		}
	}

	price := ParseFloat(in.Price)
	refills := c.parseRefills(in.Refills)

	breakdown := pricing.Calculate(price, refills, in.Subscribed, in.Coupon)

	res := Result{
		Input:          in,
		PricePerRefill: price,
		Refills:        refills,
		Breakdown:      breakdown,
	}
	if c.opts.ClampNegative && res.FinalCost < 0 {
		res.FinalCost = 0
		res.Clamped = true
	}
	res.Text = FormatCost(c.opts.CurrencySymbol, res.FinalCost)
	return res, nil
}

func (c *Controller) parseRefills(raw string) float64 {
	if strings.TrimSpace(raw) == "" {
		return c.opts.DefaultRefills
	}
	return ParseInt(raw)
}

func validate(in Input) error {
	rawPrice := strings.TrimSpace(in.Price)
	if !isDecimal(rawPrice) {
		return apperror.InvalidField(FieldPrice, "price per refill must be a number", nil)
	}
	if price := ParseFloat(rawPrice); math.IsInf(price, 0) {
		return apperror.InvalidField(FieldPrice, "price per refill is out of range", nil)
	} else if price < 0 {
		return apperror.InvalidField(FieldPrice, "price per refill must not be negative", nil)
	}

	rawRefills := strings.TrimSpace(in.Refills)
	if rawRefills == "" {
		return nil
	}
	refills, err := strconv.Atoi(rawRefills)
	if err != nil {
		return apperror.InvalidField(FieldRefills, "number of refills must be a whole number", err)
	}
	if refills < 0 {
		return apperror.InvalidField(FieldRefills, "number of refills must not be negative", nil)
	}
	return nil
}

// isDecimal сообщает, что строка целиком является десятичным числом.
func isDecimal(s string) bool {
	_, rest := splitSign(s)
	return rest != "" && scanDecimal(rest) == len(rest)
}
