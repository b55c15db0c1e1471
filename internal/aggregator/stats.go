package aggregator

import (
	"fmt"
	"sort"
	"time"

	"github.com/nextplace/prediction-engine/internal/adapter"
	"github.com/nextplace/prediction-engine/internal/store"
	"github.com/nextplace/prediction-engine/internal/store/schema"
)

// ComputeStats builds the stats snapshot for one property from its active
// predictions. The result is deterministic: for frozen inputs the serialized
// snapshot is byte-identical across runs. Returns nil when rows is empty,
// meaning the property should carry no snapshot at all.
func ComputeStats(propertyID int64, rows []store.ActivePredictionRow, topN int, computedAt time.Time, jsonAdapter adapter.JSON) (*schema.PredictionStats, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	minPrice := rows[0].PredictedSalePrice
	maxPrice := rows[0].PredictedSalePrice
	var sum float64
	for _, row := range rows {
		price := row.PredictedSalePrice
		if price < minPrice {
			minPrice = price
		}
		if price > maxPrice {
			maxPrice = price
		}
		sum += price
	}

	payload := schema.TopPredictionsPayload{
		Version:     schema.TopPredictionsVersion,
		Predictions: selectTop(rows, topN),
	}
	serialized, err := jsonAdapter.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize top predictions: %w", err)
	}

	return &schema.PredictionStats{
		PropertyID:        propertyID,
		NumPredictions:    int64(len(rows)),
		MinPredictedPrice: minPrice,
		AvgPredictedPrice: sum / float64(len(rows)),
		MaxPredictedPrice: maxPrice,
		TopPredictions:    serialized,
		ComputedAt:        computedAt,
	}, nil
}

// selectTop picks the top-N predictions ranked by the miner's current
// incentive. Ties break on newer prediction date, then lower row id, so the
// ordering is total and recomputation is stable.
func selectTop(rows []store.ActivePredictionRow, topN int) []schema.TopPredictionEntry {
	ranked := make([]store.ActivePredictionRow, len(rows))
	copy(ranked, rows)

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].MinerIncentive != ranked[j].MinerIncentive {
			return ranked[i].MinerIncentive > ranked[j].MinerIncentive
		}
		if !ranked[i].PredictionDate.Equal(ranked[j].PredictionDate) {
			return ranked[i].PredictionDate.After(ranked[j].PredictionDate)
		}
		return ranked[i].ID < ranked[j].ID
	})

	if len(ranked) > topN {
		ranked = ranked[:topN]
	}

	entries := make([]schema.TopPredictionEntry, 0, len(ranked))
	for _, row := range ranked {
		entries = append(entries, schema.TopPredictionEntry{
			MinerHotKey:        row.MinerHotKey,
			PredictedSalePrice: row.PredictedSalePrice,
			PredictedSaleDate:  row.PredictedSaleDate,
			PredictionDate:     row.PredictionDate,
		})
	}
	return entries
}
