package pricing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func fptr(f float64) *float64 { return &f }

func TestComputeStoreTotalsOnlyFullCoverageStores(t *testing.T) {
	entries := []ListEntry{{ItemID: "milk", Qty: 1}, {ItemID: "eggs", Qty: 1}}
	offers := []Offer{
		{ItemID: "milk", StoreID: "a", PriceCents: 100},
		{ItemID: "eggs", StoreID: "a", PriceCents: 300},
		{ItemID: "milk", StoreID: "b", PriceCents: 90},
		// store b has no eggs, so it cannot serve the whole list
	}
	totals := ComputeStoreTotals(entries, offers, nil)
	require.Len(t, totals, 1)
	require.Equal(t, "a", totals[0].StoreID)
	require.Equal(t, Money(400), totals[0].TotalCents)
}

func TestComputeStoreTotalsQuantityWeighted(t *testing.T) {
	entries := []ListEntry{{ItemID: "milk", Qty: 3}, {ItemID: "eggs", Qty: 2}}
	offers := []Offer{
		{ItemID: "milk", StoreID: "a", PriceCents: 150},
		{ItemID: "eggs", StoreID: "a", PriceCents: 420},
	}
	totals := ComputeStoreTotals(entries, offers, nil)
	require.Len(t, totals, 1)
	require.Equal(t, Money(3*150+2*420), totals[0].TotalCents)
	require.Equal(t, []ItemPick{
		{ItemID: "milk", Qty: 3, PriceCents: 150},
		{ItemID: "eggs", Qty: 2, PriceCents: 420},
	}, totals[0].Items)
}

func TestComputeStoreTotalsUsesCheapestOfferPerStore(t *testing.T) {
	entries := []ListEntry{{ItemID: "milk", Qty: 1}}
	offers := []Offer{
		{ItemID: "milk", StoreID: "a", PriceCents: 120},
		{ItemID: "milk", StoreID: "a", PriceCents: 95},
		{ItemID: "milk", StoreID: "a", PriceCents: 110},
	}
	totals := ComputeStoreTotals(entries, offers, nil)
	require.Len(t, totals, 1)
	require.Equal(t, Money(95), totals[0].TotalCents)
}

func TestComputeStoreTotalsSortedByTotalThenDistance(t *testing.T) {
	entries := []ListEntry{{ItemID: "milk", Qty: 1}}
	offers := []Offer{
		{ItemID: "milk", StoreID: "pricey", PriceCents: 200},
		{ItemID: "milk", StoreID: "far", PriceCents: 100},
		{ItemID: "milk", StoreID: "near", PriceCents: 100},
		{ItemID: "milk", StoreID: "nowhere", PriceCents: 100},
	}
	stores := map[string]StoreInfo{
		"near":    {StoreID: "near", Name: "Near", DistanceKm: fptr(1.2)},
		"far":     {StoreID: "far", Name: "Far", DistanceKm: fptr(8.4)},
		"nowhere": {StoreID: "nowhere", Name: "Nowhere"},
		"pricey":  {StoreID: "pricey", Name: "Pricey", DistanceKm: fptr(0.1)},
	}
	totals := ComputeStoreTotals(entries, offers, stores)
	require.Len(t, totals, 4)
	// Equal totals order by distance, unknown distance last; the higher
	// total sorts after all of them regardless of how close it is.
	require.Equal(t, "near", totals[0].StoreID)
	require.Equal(t, "far", totals[1].StoreID)
	require.Equal(t, "nowhere", totals[2].StoreID)
	require.Equal(t, "pricey", totals[3].StoreID)
}

func TestComputeStoreTotalsUnpricedItemDisqualifiesAllStores(t *testing.T) {
	entries := []ListEntry{
		{ItemID: "milk", Qty: 1},
		{ItemID: "unicorn", Qty: 5},
	}
	offers := []Offer{{ItemID: "milk", StoreID: "a", PriceCents: 100}}
	require.Empty(t, ComputeStoreTotals(entries, offers, nil))
}

func TestComputeStoreTotalsEmptyInputs(t *testing.T) {
	require.Empty(t, ComputeStoreTotals(nil, nil, nil))
	require.Empty(t, ComputeStoreTotals([]ListEntry{{ItemID: "milk", Qty: 1}}, nil, nil))
	require.Empty(t, ComputeStoreTotals(nil, []Offer{{ItemID: "milk", StoreID: "a", PriceCents: 1}}, nil))
}

func TestComputeStoreTotalsMergesDuplicateEntries(t *testing.T) {
	entries := []ListEntry{
		{ItemID: "milk", Qty: 1},
		{ItemID: "milk", Qty: 2},
		{ItemID: "eggs", Qty: 0},
	}
	offers := []Offer{{ItemID: "milk", StoreID: "a", PriceCents: 100}}
	totals := ComputeStoreTotals(entries, offers, nil)
	require.Len(t, totals, 1)
	require.Equal(t, Money(300), totals[0].TotalCents)
	require.Equal(t, 3, totals[0].Items[0].Qty)
}

func TestCheapestPerItemPicksGlobalMinimum(t *testing.T) {
	entries := []ListEntry{{ItemID: "milk", Qty: 1}, {ItemID: "eggs", Qty: 1}}
	offers := []Offer{
		{ItemID: "milk", StoreID: "a", PriceCents: 120},
		{ItemID: "milk", StoreID: "b", PriceCents: 90},
		{ItemID: "eggs", StoreID: "a", PriceCents: 300},
	}
	picks := CheapestPerItem(entries, offers)
	require.Equal(t, []CheapestOffer{
		{ItemID: "milk", StoreID: "b", PriceCents: 90},
		{ItemID: "eggs", StoreID: "a", PriceCents: 300},
	}, picks)
}

func TestCheapestPerItemTieKeepsFirstOffer(t *testing.T) {
	entries := []ListEntry{{ItemID: "milk", Qty: 1}}
	offers := []Offer{
		{ItemID: "milk", StoreID: "first", PriceCents: 100},
		{ItemID: "milk", StoreID: "second", PriceCents: 100},
	}
	picks := CheapestPerItem(entries, offers)
	require.Len(t, picks, 1)
	require.Equal(t, "first", picks[0].StoreID)
}

func TestCheapestPerItemNeverBeatenBySingleStore(t *testing.T) {
	entries := []ListEntry{
		{ItemID: "milk", Qty: 2},
		{ItemID: "eggs", Qty: 1},
		{ItemID: "rice", Qty: 4},
	}
	offers := []Offer{
		{ItemID: "milk", StoreID: "a", PriceCents: 100},
		{ItemID: "milk", StoreID: "b", PriceCents: 140},
		{ItemID: "eggs", StoreID: "a", PriceCents: 350},
		{ItemID: "eggs", StoreID: "b", PriceCents: 290},
		{ItemID: "rice", StoreID: "a", PriceCents: 500},
		{ItemID: "rice", StoreID: "b", PriceCents: 480},
	}
	var mixed Money
	for _, pick := range CheapestPerItem(entries, offers) {
		for _, e := range entries {
			if e.ItemID == pick.ItemID {
				mixed += pick.PriceCents * Money(e.Qty)
			}
		}
	}
	for _, st := range ComputeStoreTotals(entries, offers, nil) {
		require.LessOrEqual(t, mixed, st.TotalCents)
	}
}

func TestComputeStoreTotalsDeterministic(t *testing.T) {
	entries := []ListEntry{{ItemID: "milk", Qty: 2}, {ItemID: "eggs", Qty: 1}}
	offers := []Offer{
		{ItemID: "milk", StoreID: "a", PriceCents: 100},
		{ItemID: "eggs", StoreID: "a", PriceCents: 300},
		{ItemID: "milk", StoreID: "b", PriceCents: 110},
		{ItemID: "eggs", StoreID: "b", PriceCents: 280},
	}
	stores := map[string]StoreInfo{
		"a": {StoreID: "a", Name: "A", DistanceKm: fptr(2.0)},
		"b": {StoreID: "b", Name: "B", DistanceKm: fptr(1.0)},
	}
	first := ComputeStoreTotals(entries, offers, stores)
	second := ComputeStoreTotals(entries, offers, stores)
	require.Equal(t, first, second)
}

func TestComputeStoreTotalsUnknownStoreNameFallsBackToID(t *testing.T) {
	entries := []ListEntry{{ItemID: "milk", Qty: 1}}
	offers := []Offer{{ItemID: "milk", StoreID: "mystery", PriceCents: 100}}

	totals := ComputeStoreTotals(entries, offers, map[string]StoreInfo{})
	require.Len(t, totals, 1)
	require.Equal(t, "mystery", totals[0].Name)
}
