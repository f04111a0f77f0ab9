package pricing

const (
	// SubscriptionRate задаёт долю стоимости, которую платит подписчик (скидка 25%).
	SubscriptionRate = 0.75
	// CouponAmount задаёт фиксированную сумму купона в валюте
	CouponAmount = 10.0
)

// Breakdown хранит результат каждого шага расчёта.
type Breakdown struct {
	InitialCost       float64
	AfterSubscription float64
	FinalCost         float64
}

// GetTotalCost возвращает стоимость всех повторных выдач.
// Ввод не проверяется: NaN и отрицательные значения проходят в произведение как есть.
func GetTotalCost(pricePerRefill, refills float64) float64 {
	return pricePerRefill * refills
}

// ApplyDiscount применяет скидку подписки.
func ApplyDiscount(total float64, isSubscribed bool) float64 {
	if isSubscribed {
		return total * SubscriptionRate
	}
	return total
}

// ApplyCoupon вычитает купон после скидки подписки. Итог может стать отрицательным.
func ApplyCoupon(discounted float64, hasCoupon bool) float64 {
	if hasCoupon {
		return discounted - CouponAmount
	}
	return discounted
}

// Calculate прогоняет цену через весь конвейер: сумма, подписка, купон.
func Calculate(pricePerRefill, refills float64, isSubscribed, hasCoupon bool) Breakdown {
	initial := GetTotalCost(pricePerRefill, refills)
	afterSubscription := ApplyDiscount(initial, isSubscribed)
	return Breakdown{
		InitialCost:       initial,
		AfterSubscription: afterSubscription,
		FinalCost:         ApplyCoupon(afterSubscription, hasCoupon),
	}
}
