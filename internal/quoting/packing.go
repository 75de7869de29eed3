package quoting

import "sort"

// PackParcels greedily packs order lines into parcels bounded by capGrams.
// Lines are placed heaviest first, each whole line going into the open parcel
// when it fits; otherwise the open parcel is closed and a new one started. A
// line whose total weight exceeds the cap on its own is split into dedicated
// single-fragment parcels, the last of which carries the remainder.
func PackParcels(items []LineItem, capGrams int64) []Parcel {
	if capGrams <= 0 {
		capGrams = defaultMaxParcelGrams
	}

	lines := make([]LineItem, len(items))
	copy(lines, items)
	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].Grams*lines[i].Quantity > lines[j].Grams*lines[j].Quantity
	})

	var parcels []Parcel
	open := -1
	for _, line := range lines {
		weight := line.Grams * line.Quantity
		if weight > capGrams {
			parcels = append(parcels, splitLine(weight, capGrams)...)
			continue
		}
		if open >= 0 && parcels[open].Grams+weight <= capGrams {
			parcels[open].Items = append(parcels[open].Items, line)
			parcels[open].Grams += weight
			continue
		}
		parcels = append(parcels, Parcel{Items: []LineItem{line}, Grams: weight})
		open = len(parcels) - 1
	}

	return parcels
}

// splitLine breaks an oversized line into ceil(weight/cap) closed parcels.
func splitLine(weight, capGrams int64) []Parcel {
	parcels := make([]Parcel, 0, (weight+capGrams-1)/capGrams)
	for weight > 0 {
		fragment := weight
		if fragment > capGrams {
			fragment = capGrams
		}
		parcels = append(parcels, Parcel{
			Items: []LineItem{{Grams: fragment, Quantity: 1}},
			Grams: fragment,
		})
		weight -= fragment
	}
	return parcels
}
