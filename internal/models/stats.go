package models

import "time"

// StatsGroupBy описывает доступные варианты группировки периодов.
type StatsGroupBy string

const (
	StatsGroupNone  StatsGroupBy = "none"
	StatsGroupDay   StatsGroupBy = "day"
	StatsGroupWeek  StatsGroupBy = "week"
	StatsGroupMonth StatsGroupBy = "month"
)

// Valid сообщает, что группировка поддерживается.
func (g StatsGroupBy) Valid() bool {
	switch g {
	case StatsGroupNone, StatsGroupDay, StatsGroupWeek, StatsGroupMonth:
		return true
	}
	return false
}

// StatsFilter задает временной интервал и группировку.
type StatsFilter struct {
	From    time.Time
	To      time.Time
	GroupBy StatsGroupBy
}

// QuoteStats представляет сводку расчётов за период
// Средняя стоимость считается только по конечным значениям.
type QuoteStats struct {
	From             time.Time     `json:"from"`
	To               time.Time     `json:"to"`
	QuotesCount      int           `json:"quotes_count"`
	SubscribedCount  int           `json:"subscribed_count"`
	CouponCount      int           `json:"coupon_count"`
	ClampedCount     int           `json:"clamped_count"`
	NonFiniteCount   int           `json:"non_finite_count"`
	AverageFinalCost Amount        `json:"average_final_cost"`
	Periods          []StatsPeriod `json:"periods,omitempty"`
	GeneratedAt      time.Time     `json:"generated_at"`
	GroupBy          string        `json:"group_by,omitempty"`
}

// StatsPeriod хранит сводку по одному интервалу.
type StatsPeriod struct {
	Period           string `json:"period"`
	QuotesCount      int    `json:"quotes_count"`
	AverageFinalCost Amount `json:"average_final_cost"`
}
