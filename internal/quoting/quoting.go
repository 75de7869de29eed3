package quoting

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Policy selects how the parcel count is derived from the order weight.
// The policy is fixed per engine instance; a single request never mixes
// policies across carriers.
type Policy string

const (
	// PolicyCeiling divides the aggregate order weight by the parcel cap.
	PolicyCeiling Policy = "ceiling"
	// PolicyBinpack packs whole order lines into parcels, heaviest first.
	PolicyBinpack Policy = "binpack"
)

const (
	defaultMaxParcelGrams  = 31_500
	defaultCurrency        = "EUR"
	defaultMinDeliveryDays = 1
	defaultMaxDeliveryDays = 5

	// maxOrderGrams bounds the aggregate order weight at 1,000,000 kg so the
	// grams arithmetic stays far away from int64 overflow.
	maxOrderGrams = int64(1_000_000_000)
)

type engine struct {
	policy          Policy
	maxParcelGrams  int64
	currency        string
	minDeliveryDays int
	maxDeliveryDays int
	clock           func() time.Time
}

// Option configures engine behaviour.
type Option func(*engine)

// WithPolicy selects the parcel-count policy.
func WithPolicy(policy Policy) Option {
	return func(e *engine) {
		if policy == PolicyCeiling || policy == PolicyBinpack {
			e.policy = policy
		}
	}
}

// WithMaxParcelWeight overrides the parcel weight cap in grams.
func WithMaxParcelWeight(grams int64) Option {
	return func(e *engine) {
		if grams > 0 {
			e.maxParcelGrams = grams
		}
	}
}

// WithDefaultCurrency overrides the currency used when a request carries none.
func WithDefaultCurrency(code string) Option {
	return func(e *engine) {
		if code != "" {
			e.currency = code
		}
	}
}

// WithDeliveryWindow overrides the quoted delivery window in days from now.
func WithDeliveryWindow(minDays, maxDays int) Option {
	return func(e *engine) {
		if minDays >= 0 && maxDays >= minDays {
			e.minDeliveryDays = minDays
			e.maxDeliveryDays = maxDays
		}
	}
}

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) Option {
	return func(e *engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// New creates a Quoter with the uniform-ceiling policy, a 31.5 kg parcel cap,
// EUR as the fallback currency, and a 1-5 day delivery window.
func New(opts ...Option) Quoter {
	e := &engine{
		policy:          PolicyCeiling,
		maxParcelGrams:  defaultMaxParcelGrams,
		currency:        defaultCurrency,
		minDeliveryDays: defaultMinDeliveryDays,
		maxDeliveryDays: defaultMaxDeliveryDays,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ComputeRates validates the request, derives a parcel count, prices every
// carrier in the list's order, and returns the quotes sorted ascending by
// total price. Ties keep the carrier-list order. An empty carrier list yields
// an empty quote list, not an error.
func (e *engine) ComputeRates(req RateRequest, carriers []Carrier) ([]Quote, error) {
	parcels, err := e.countParcels(req.Items)
	if err != nil {
		return nil, err
	}

	currency := req.Currency
	if currency == "" {
		currency = e.currency
	}

	now := e.clock().UTC()
	minDate := now.AddDate(0, 0, e.minDeliveryDays)
	maxDate := now.AddDate(0, 0, e.maxDeliveryDays)
	description := fmt.Sprintf("Delivery within %d-%d business days", e.minDeliveryDays, e.maxDeliveryDays)

	quotes := make([]Quote, 0, len(carriers))
	for _, carrier := range carriers {
		quotes = append(quotes, Quote{
			ServiceName:     serviceName(carrier.Name, parcels),
			ServiceCode:     strings.ToLower(carrier.Name),
			TotalPrice:      carrier.PricePerParcel * parcels,
			Currency:        currency,
			MinDeliveryDate: minDate,
			MaxDeliveryDate: maxDate,
			Description:     description,
		})
	}

	sort.SliceStable(quotes, func(i, j int) bool {
		return quotes[i].TotalPrice < quotes[j].TotalPrice
	})

	return quotes, nil
}

func (e *engine) countParcels(items []LineItem) (int64, error) {
	total, err := totalWeight(items)
	if err != nil {
		return 0, err
	}

	if e.policy == PolicyBinpack {
		count := int64(len(PackParcels(items, e.maxParcelGrams)))
		if count == 0 {
			count = 1
		}
		return count, nil
	}

	return ceilingParcels(total, e.maxParcelGrams), nil
}

// ceilingParcels derives the parcel count as ceil(total/cap). A weightless
// order still ships as one parcel.
func ceilingParcels(totalGrams, capGrams int64) int64 {
	if totalGrams == 0 {
		return 1
	}
	return (totalGrams + capGrams - 1) / capGrams
}

// totalWeight aggregates grams*quantity across lines, rejecting malformed
// values before any pricing happens.
func totalWeight(items []LineItem) (int64, error) {
	var total int64
	for _, item := range items {
		if item.Grams < 0 {
			return 0, ErrInvalidWeight
		}
		if item.Quantity <= 0 {
			return 0, ErrInvalidQuantity
		}
		if item.Grams > 0 && item.Quantity > maxOrderGrams/item.Grams {
			return 0, ErrOrderTooHeavy
		}
		total += item.Grams * item.Quantity
		if total > maxOrderGrams {
			return 0, ErrOrderTooHeavy
		}
	}
	return total, nil
}

func serviceName(name string, parcels int64) string {
	if parcels == 1 {
		return fmt.Sprintf("%s (1 parcel)", name)
	}
	return fmt.Sprintf("%s (%d parcels)", name, parcels)
}
