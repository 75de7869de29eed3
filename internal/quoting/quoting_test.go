package quoting

import (
	"errors"
	"testing"
	"time"
)

var testClock = func() time.Time {
	return time.Date(2024, 11, 1, 12, 0, 0, 0, time.UTC)
}

func TestComputeRates(t *testing.T) {
	t.Parallel()

	carriers := []Carrier{
		{Name: "DPD", PricePerParcel: 1000},
		{Name: "Post", PricePerParcel: 1200},
	}

	tests := []struct {
		name        string
		items       []LineItem
		carriers    []Carrier
		wantCodes   []string
		wantPrices  []int64
		wantParcels int64
	}{
		{
			name: "ThirtyKilogramsFitsOneParcel",
			items: []LineItem{
				{Grams: 5000, Quantity: 2},
				{Grams: 20000, Quantity: 1},
			},
			carriers:    carriers,
			wantCodes:   []string{"dpd", "post"},
			wantPrices:  []int64{1000, 1200},
			wantParcels: 1,
		},
		{
			name: "FortyKilogramsNeedsTwoParcels",
			items: []LineItem{
				{Grams: 40000, Quantity: 1},
			},
			carriers:    carriers,
			wantCodes:   []string{"dpd", "post"},
			wantPrices:  []int64{2000, 2400},
			wantParcels: 2,
		},
		{
			name:        "ZeroWeightStillShipsOneParcel",
			items:       []LineItem{{Grams: 0, Quantity: 3}},
			carriers:    carriers,
			wantCodes:   []string{"dpd", "post"},
			wantPrices:  []int64{1000, 1200},
			wantParcels: 1,
		},
		{
			name:        "EmptyOrderShipsOneParcel",
			items:       nil,
			carriers:    carriers,
			wantCodes:   []string{"dpd", "post"},
			wantPrices:  []int64{1000, 1200},
			wantParcels: 1,
		},
		{
			name: "SortReordersByPrice",
			items: []LineItem{
				{Grams: 1000, Quantity: 1},
			},
			carriers: []Carrier{
				{Name: "Post", PricePerParcel: 1200},
				{Name: "DPD", PricePerParcel: 1000},
			},
			wantCodes:   []string{"dpd", "post"},
			wantPrices:  []int64{1000, 1200},
			wantParcels: 1,
		},
		{
			name: "TiesKeepCarrierListOrder",
			items: []LineItem{
				{Grams: 1000, Quantity: 1},
			},
			carriers: []Carrier{
				{Name: "Post", PricePerParcel: 1000},
				{Name: "DPD", PricePerParcel: 1000},
				{Name: "GLS", PricePerParcel: 900},
			},
			wantCodes:   []string{"gls", "post", "dpd"},
			wantPrices:  []int64{900, 1000, 1000},
			wantParcels: 1,
		},
		{
			name:       "EmptyCarrierListYieldsEmptyQuotes",
			items:      []LineItem{{Grams: 1000, Quantity: 1}},
			carriers:   nil,
			wantCodes:  []string{},
			wantPrices: []int64{},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			quoter := New(WithClock(testClock))

			got, err := quoter.ComputeRates(RateRequest{Items: tc.items}, tc.carriers)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if len(got) != len(tc.carriers) {
				t.Fatalf("expected %d quotes, got %d", len(tc.carriers), len(got))
			}
			for i, quote := range got {
				if quote.ServiceCode != tc.wantCodes[i] {
					t.Fatalf("quote %d: expected code %s, got %s", i, tc.wantCodes[i], quote.ServiceCode)
				}
				if quote.TotalPrice != tc.wantPrices[i] {
					t.Fatalf("quote %d: expected price %d, got %d", i, tc.wantPrices[i], quote.TotalPrice)
				}
			}
		})
	}
}

func TestComputeRatesQuoteFields(t *testing.T) {
	t.Parallel()

	quoter := New(WithClock(testClock))
	quotes, err := quoter.ComputeRates(
		RateRequest{Items: []LineItem{{Grams: 40000, Quantity: 1}}},
		[]Carrier{{Name: "DPD", PricePerParcel: 1000}},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(quotes) != 1 {
		t.Fatalf("expected one quote, got %d", len(quotes))
	}

	quote := quotes[0]
	if quote.ServiceName != "DPD (2 parcels)" {
		t.Fatalf("unexpected service name %q", quote.ServiceName)
	}
	if quote.ServiceCode != "dpd" {
		t.Fatalf("unexpected service code %q", quote.ServiceCode)
	}
	if quote.Currency != "EUR" {
		t.Fatalf("expected default currency EUR, got %s", quote.Currency)
	}
	if wantMin := testClock().AddDate(0, 0, 1); !quote.MinDeliveryDate.Equal(wantMin) {
		t.Fatalf("expected min delivery %s, got %s", wantMin, quote.MinDeliveryDate)
	}
	if wantMax := testClock().AddDate(0, 0, 5); !quote.MaxDeliveryDate.Equal(wantMax) {
		t.Fatalf("expected max delivery %s, got %s", wantMax, quote.MaxDeliveryDate)
	}
	if quote.Description == "" {
		t.Fatalf("expected description to be populated")
	}
}

func TestComputeRatesSingleParcelName(t *testing.T) {
	t.Parallel()

	quoter := New(WithClock(testClock))
	quotes, err := quoter.ComputeRates(
		RateRequest{Items: []LineItem{{Grams: 500, Quantity: 1}}},
		[]Carrier{{Name: "Post", PricePerParcel: 700}},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quotes[0].ServiceName != "Post (1 parcel)" {
		t.Fatalf("unexpected service name %q", quotes[0].ServiceName)
	}
}

func TestComputeRatesRequestCurrencyWins(t *testing.T) {
	t.Parallel()

	quoter := New(WithClock(testClock), WithDefaultCurrency("USD"))
	quotes, err := quoter.ComputeRates(
		RateRequest{Items: []LineItem{{Grams: 100, Quantity: 1}}, Currency: "SEK"},
		[]Carrier{{Name: "DPD", PricePerParcel: 1000}},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quotes[0].Currency != "SEK" {
		t.Fatalf("expected request currency SEK, got %s", quotes[0].Currency)
	}
}

func TestComputeRatesValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		items   []LineItem
		wantErr error
	}{
		{
			name:    "NegativeWeight",
			items:   []LineItem{{Grams: -1, Quantity: 1}},
			wantErr: ErrInvalidWeight,
		},
		{
			name:    "ZeroQuantity",
			items:   []LineItem{{Grams: 100, Quantity: 0}},
			wantErr: ErrInvalidQuantity,
		},
		{
			name:    "NegativeQuantity",
			items:   []LineItem{{Grams: 100, Quantity: -2}},
			wantErr: ErrInvalidQuantity,
		},
		{
			name:    "SingleLineTooHeavy",
			items:   []LineItem{{Grams: maxOrderGrams, Quantity: 2}},
			wantErr: ErrOrderTooHeavy,
		},
		{
			name: "AggregateTooHeavy",
			items: []LineItem{
				{Grams: maxOrderGrams / 2, Quantity: 1},
				{Grams: maxOrderGrams/2 + 1, Quantity: 1},
			},
			wantErr: ErrOrderTooHeavy,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			quoter := New(WithClock(testClock))
			if _, err := quoter.ComputeRates(RateRequest{Items: tc.items}, []Carrier{{Name: "DPD", PricePerParcel: 1000}}); !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestComputeRatesDeterministic(t *testing.T) {
	t.Parallel()

	quoter := New(WithClock(testClock))
	req := RateRequest{Items: []LineItem{{Grams: 5000, Quantity: 2}, {Grams: 20000, Quantity: 1}}}
	carriers := []Carrier{{Name: "DPD", PricePerParcel: 1000}, {Name: "Post", PricePerParcel: 1200}}

	first, err := quoter.ComputeRates(req, carriers)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := quoter.ComputeRates(req, carriers)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("expected identical quote counts, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("quote %d differs between identical invocations: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestCeilingParcelsMonotonicInWeight(t *testing.T) {
	t.Parallel()

	prev := int64(0)
	for grams := int64(0); grams <= 200_000; grams += 2_500 {
		got := ceilingParcels(grams, defaultMaxParcelGrams)
		if got < prev {
			t.Fatalf("parcel count decreased from %d to %d at %d grams", prev, got, grams)
		}
		prev = got
	}
}

func TestBinpackPolicyCountsWholeLines(t *testing.T) {
	t.Parallel()

	// Three 20 kg lines fit in one 60 kg aggregate (ceiling: 2 parcels at a
	// 31.5 kg cap) but no two whole lines share a parcel under bin-packing.
	quoter := New(WithClock(testClock), WithPolicy(PolicyBinpack))
	quotes, err := quoter.ComputeRates(
		RateRequest{Items: []LineItem{
			{Grams: 20000, Quantity: 1},
			{Grams: 20000, Quantity: 1},
			{Grams: 20000, Quantity: 1},
		}},
		[]Carrier{{Name: "DPD", PricePerParcel: 1000}},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quotes[0].TotalPrice != 3000 {
		t.Fatalf("expected 3 parcels priced at 3000, got %d", quotes[0].TotalPrice)
	}
}

func TestBinpackPolicyEmptyOrderShipsOneParcel(t *testing.T) {
	t.Parallel()

	quoter := New(WithClock(testClock), WithPolicy(PolicyBinpack))
	quotes, err := quoter.ComputeRates(RateRequest{}, []Carrier{{Name: "DPD", PricePerParcel: 1000}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quotes[0].TotalPrice != 1000 {
		t.Fatalf("expected single-parcel price 1000, got %d", quotes[0].TotalPrice)
	}
}

func BenchmarkComputeRatesCeiling(b *testing.B) {
	quoter := New(WithClock(testClock))
	req := RateRequest{Items: []LineItem{
		{Grams: 5000, Quantity: 2},
		{Grams: 20000, Quantity: 1},
		{Grams: 750, Quantity: 12},
	}}
	carriers := []Carrier{
		{Name: "DPD", PricePerParcel: 1000},
		{Name: "Post", PricePerParcel: 1200},
		{Name: "GLS", PricePerParcel: 950},
	}
	for i := 0; i < b.N; i++ {
		if _, err := quoter.ComputeRates(req, carriers); err != nil {
			b.Fatalf("unexpected error: %v", err)
		}
	}
}

func BenchmarkComputeRatesBinpack(b *testing.B) {
	quoter := New(WithClock(testClock), WithPolicy(PolicyBinpack))
	items := make([]LineItem, 0, 100)
	for i := 0; i < 100; i++ {
		items = append(items, LineItem{Grams: int64(500 + i*37), Quantity: int64(1 + i%4)})
	}
	carriers := []Carrier{
		{Name: "DPD", PricePerParcel: 1000},
		{Name: "Post", PricePerParcel: 1200},
	}
	for i := 0; i < b.N; i++ {
		if _, err := quoter.ComputeRates(RateRequest{Items: items}, carriers); err != nil {
			b.Fatalf("unexpected error: %v", err)
		}
	}
}
