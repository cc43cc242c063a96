package universe

// PricePoint is one daily observation for a symbol. Volume is optional;
// the feature processor substitutes a constant ratio when it is absent.
type PricePoint struct {
	Date   string  `json:"date"`
	Close  float64 `json:"close"`
	Volume *int64  `json:"volume,omitempty"`
}

// PriceSource supplies chronological price history per ticker. The history
// database implements it; tests substitute synthetic series.
type PriceSource interface {
	GetDailyPrices(symbol string, limit int) ([]PricePoint, error)
}
