package dashboard

import (
	"sort"

	"github.com/ledgerline/ledgerline/internal/domain"
)

// assetTypeLabels maps storage asset types to display labels. Purely
// presentational; unknown types fall through to the raw string.
var assetTypeLabels = map[string]string{
	"common_stock":    "Common Stock",
	"preferred_stock": "Preferred Stock",
	"etf":             "ETF",
	"cash":            "Cash",
	"":                "Other",
}

// DisplayLabel returns the human label for an asset type.
func DisplayLabel(assetType string) string {
	if label, ok := assetTypeLabels[assetType]; ok {
		return label
	}
	return assetType
}

// CalculateAllocation groups position values by asset type and computes each
// group's share of the total, sorted by value descending. Percents are 0 when
// the total is 0.
func CalculateAllocation(positions []domain.PositionSnapshot) []AllocationItem {
	if len(positions) == 0 {
		return []AllocationItem{}
	}

	byType := make(map[string]float64)
	total := 0.0
	for _, pos := range positions {
		byType[pos.AssetType] += pos.CurrentValue
		total += pos.CurrentValue
	}

	items := make([]AllocationItem, 0, len(byType))
	for assetType, value := range byType {
		percent := 0.0
		if total > 0 {
			percent = round2(value / total * 100)
		}
		items = append(items, AllocationItem{
			AssetType: assetType,
			Label:     DisplayLabel(assetType),
			Value:     round2(value),
			Percent:   percent,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Value != items[j].Value {
			return items[i].Value > items[j].Value
		}
		return items[i].AssetType < items[j].AssetType
	})

	return items
}
