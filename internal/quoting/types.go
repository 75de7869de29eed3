package quoting

import "time"

// LineItem is one order line: a per-unit weight in grams and a quantity.
type LineItem struct {
	Grams    int64
	Quantity int64
}

// RateRequest describes a single checkout rate lookup. Currency is an optional
// ISO 4217 code; when empty the engine falls back to its configured default.
type RateRequest struct {
	Items    []LineItem
	Currency string
}

// Carrier is a configured carrier with a flat price per parcel in minor
// currency units. Name is the carrier's identity; the engine treats it as
// opaque and does not re-validate uniqueness.
type Carrier struct {
	Name           string
	PricePerParcel int64
}

// Quote is a priced shipping offer computed fresh for one request.
type Quote struct {
	ServiceName     string
	ServiceCode     string
	TotalPrice      int64
	Currency        string
	MinDeliveryDate time.Time
	MaxDeliveryDate time.Time
	Description     string
}

// Parcel groups line-item fragments under the parcel weight cap. Parcels only
// exist while the bin-packing policy derives a parcel count.
type Parcel struct {
	Items []LineItem
	Grams int64
}

// Quoter describes the behaviour required from a rate-quotation engine.
type Quoter interface {
	ComputeRates(req RateRequest, carriers []Carrier) ([]Quote, error)
}
