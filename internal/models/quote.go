package models

import (
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"
)

// Amount представляет денежную величину. NaN и бесконечности сериализуются в JSON как null.
type Amount float64

// MarshalJSON реализует json.Marshaler.
func (a Amount) MarshalJSON() ([]byte, error) {
	v := float64(a)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

// UnmarshalJSON реализует json.Unmarshaler; null читается как NaN.
func (a *Amount) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*a = Amount(math.NaN())
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*a = Amount(v)
	return nil
}

// Quote представляет сохранённый результат расчёта стоимости рецепта.
type Quote struct {
	ID                uuid.UUID `json:"id" db:"id"`
	PriceInput        string    `json:"price_input" db:"price_input"`
	RefillsInput      string    `json:"refills_input" db:"refills_input"`
	Subscribed        bool      `json:"subscribed" db:"subscribed"`
	Coupon            bool      `json:"coupon" db:"coupon"`
	PricePerRefill    Amount    `json:"price_per_refill" db:"price_per_refill"`
	Refills           Amount    `json:"refills" db:"refills"`
	InitialCost       Amount    `json:"initial_cost" db:"initial_cost"`
	AfterSubscription Amount    `json:"after_subscription" db:"after_subscription"`
	FinalCost         Amount    `json:"final_cost" db:"final_cost"`
	Clamped           bool      `json:"clamped" db:"clamped"`
	Display           string    `json:"display" db:"display"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}

// CreateQuoteRequest описывает запрос на расчёт стоимости.
// Числовые поля передаются строками, как их вводит пользователь.
type CreateQuoteRequest struct {
	Price      string `json:"price"`
	Refills    string `json:"refills"`
	Subscribed bool   `json:"subscribed"`
	Coupon     bool   `json:"coupon"`
}
