package simulate

// segmentProfile holds the per-segment commercial shape: how many product
// families a customer buys, the seat and price ranges, discount ceiling,
// annual-billing propensity, and pipeline deal-size range. Quantity and
// price are both driven by the same latent size draw so that large
// customers are large on every axis, which is what produces realistic
// revenue concentration.
type segmentProfile struct {
	familiesMin, familiesMax int
	qtyLo, qtyHi             float64
	priceLo, priceHi         float64
	sizeExponent             float64
	discountMax              float64
	annualBillingProb        float64
	oppAmountLo, oppAmountHi float64
}

var segmentProfiles = map[string]segmentProfile{
	"enterprise": {
		familiesMin: 2, familiesMax: 3,
		qtyLo: 5, qtyHi: 1200,
		priceLo: 40, priceHi: 420,
		sizeExponent:      12,
		discountMax:       0.25,
		annualBillingProb: 0.85,
		oppAmountLo:       50_000, oppAmountHi: 600_000,
	},
	"large": {
		familiesMin: 1, familiesMax: 3,
		qtyLo: 5, qtyHi: 400,
		priceLo: 30, priceHi: 200,
		sizeExponent:      12,
		discountMax:       0.20,
		annualBillingProb: 0.70,
		oppAmountLo:       20_000, oppAmountHi: 250_000,
	},
	"medium": {
		familiesMin: 1, familiesMax: 2,
		qtyLo: 2, qtyHi: 120,
		priceLo: 25, priceHi: 120,
		sizeExponent:      6,
		discountMax:       0.12,
		annualBillingProb: 0.40,
		oppAmountLo:       5_000, oppAmountHi: 60_000,
	},
	"smb": {
		familiesMin: 1, familiesMax: 1,
		qtyLo: 1, qtyHi: 40,
		priceLo: 15, priceHi: 70,
		sizeExponent:      6,
		discountMax:       0.08,
		annualBillingProb: 0.15,
		oppAmountLo:       1_000, oppAmountHi: 15_000,
	},
}
