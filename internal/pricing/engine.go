// Package pricing implements the shopping-list optimization core: given the
// offers currently known for each item, it figures out which stores can cover
// a whole list, what the list would cost at each of them, and where each
// single item is cheapest.
package pricing

import "sort"

// Money represents a monetary value stored in minor units.
type Money = int64

// ListEntry is one line of a shopping list.
type ListEntry struct {
	ItemID string
	Qty    int
}

// Offer is one known price of an item at a store.
type Offer struct {
	ItemID     string
	StoreID    string
	PriceCents Money
}

// StoreInfo carries the store attributes the engine needs for output and
// tie-breaking. DistanceKm is nil when the store has no known location or the
// caller supplied no origin.
type StoreInfo struct {
	StoreID    string
	Name       string
	DistanceKm *float64
}

// ItemPick records the chosen offer for one list entry.
type ItemPick struct {
	ItemID     string
	Qty        int
	PriceCents Money
}

// StoreTotal is the cost of buying the entire list at one store.
type StoreTotal struct {
	StoreID    string
	Name       string
	DistanceKm *float64
	TotalCents Money
	Items      []ItemPick
}

// CheapestOffer is the lowest known price for one item across all stores.
type CheapestOffer struct {
	ItemID     string
	StoreID    string
	PriceCents Money
}

// ComputeStoreTotals returns, for every store carrying an offer for every
// entry on the list, the total cost of the list at that store. An entry no
// store carries disqualifies all of them and yields an empty result. Results
// are ordered cheapest first; equal totals fall back to distance (unknown
// distance last), then store id.
func ComputeStoreTotals(entries []ListEntry, offers []Offer, stores map[string]StoreInfo) []StoreTotal {
	entries = dedupeEntries(entries)
	if len(entries) == 0 {
		return nil
	}

	// Cheapest offer per (store, item). Ties keep the first offer seen so
	// callers control determinism through input order.
	type key struct{ store, item string }
	best := make(map[key]Money)
	stocked := make(map[string]map[string]bool)
	for _, o := range offers {
		k := key{o.StoreID, o.ItemID}
		if cur, ok := best[k]; !ok || o.PriceCents < cur {
			best[k] = o.PriceCents
		}
		if stocked[o.ItemID] == nil {
			stocked[o.ItemID] = make(map[string]bool)
		}
		stocked[o.ItemID][o.StoreID] = true
	}

	// Intersect the store sets of every entry. An item no store carries
	// empties the intersection, so no store qualifies.
	var candidates map[string]bool
	for _, e := range entries {
		storesFor := stocked[e.ItemID]
		if len(storesFor) == 0 {
			return nil
		}
		if candidates == nil {
			candidates = make(map[string]bool, len(storesFor))
			for s := range storesFor {
				candidates[s] = true
			}
			continue
		}
		for s := range candidates {
			if !storesFor[s] {
				delete(candidates, s)
			}
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	totals := make([]StoreTotal, 0, len(candidates))
	for storeID := range candidates {
		st := StoreTotal{StoreID: storeID, Items: make([]ItemPick, 0, len(entries))}
		if info, ok := stores[storeID]; ok {
			st.Name = info.Name
			st.DistanceKm = info.DistanceKm
		}
		if st.Name == "" {
			st.Name = storeID
		}
		for _, e := range entries {
			price := best[key{storeID, e.ItemID}]
			st.TotalCents += price * Money(e.Qty)
			st.Items = append(st.Items, ItemPick{ItemID: e.ItemID, Qty: e.Qty, PriceCents: price})
		}
		totals = append(totals, st)
	}

	sort.Slice(totals, func(i, j int) bool {
		a, b := totals[i], totals[j]
		if a.TotalCents != b.TotalCents {
			return a.TotalCents < b.TotalCents
		}
		switch {
		case a.DistanceKm != nil && b.DistanceKm != nil:
			if *a.DistanceKm != *b.DistanceKm {
				return *a.DistanceKm < *b.DistanceKm
			}
		case a.DistanceKm != nil:
			return true
		case b.DistanceKm != nil:
			return false
		}
		return a.StoreID < b.StoreID
	})
	return totals
}

// CheapestPerItem returns the lowest-priced offer for each list entry that has
// offers, mixing stores freely. Entries with no offers are omitted.
func CheapestPerItem(entries []ListEntry, offers []Offer) []CheapestOffer {
	entries = dedupeEntries(entries)
	best := make(map[string]CheapestOffer, len(entries))
	for _, o := range offers {
		cur, ok := best[o.ItemID]
		if !ok || o.PriceCents < cur.PriceCents {
			best[o.ItemID] = CheapestOffer{ItemID: o.ItemID, StoreID: o.StoreID, PriceCents: o.PriceCents}
		}
	}
	out := make([]CheapestOffer, 0, len(entries))
	for _, e := range entries {
		if pick, ok := best[e.ItemID]; ok {
			out = append(out, pick)
		}
	}
	return out
}

// dedupeEntries merges repeated item ids by summing quantities and drops
// non-positive quantities, preserving first-seen order.
func dedupeEntries(entries []ListEntry) []ListEntry {
	idx := make(map[string]int, len(entries))
	out := make([]ListEntry, 0, len(entries))
	for _, e := range entries {
		if e.Qty <= 0 {
			continue
		}
		if i, ok := idx[e.ItemID]; ok {
			out[i].Qty += e.Qty
			continue
		}
		idx[e.ItemID] = len(out)
		out = append(out, e)
	}
	return out
}
