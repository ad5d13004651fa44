package domain

// UnitPriceCents resolves the per-unit price of a product for a customer
// price tier. Unknown tiers fall back to the retail sale price. The cost
// tier uses the cost price as-is; a product without a recorded cost sells
// at zero for cost-tier customers.
func UnitPriceCents(product Product, tier string) int64 {
	switch tier {
	case TierWholesale:
		return product.WholesalePriceCents
	case TierCost:
		return product.CostPriceCents
	default:
		return product.SalePriceCents
	}
}

// ValidPriceTier reports whether tier is one of the known price tiers.
func ValidPriceTier(tier string) bool {
	switch tier {
	case TierRetail, TierWholesale, TierCost:
		return true
	}
	return false
}

// ValidPaymentMethod reports whether method is an accepted payment method.
func ValidPaymentMethod(method string) bool {
	switch method {
	case PaymentCash, PaymentCard, PaymentTransfer:
		return true
	}
	return false
}
