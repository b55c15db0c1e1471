package store

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nextplace/prediction-engine/internal/store/schema"
)

// InitDBFunc initializes an isolated database handle and store for one test
type InitDBFunc func(t *testing.T) (*gorm.DB, Store)

var (
	t0 = time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	t1 = t0.Add(24 * time.Hour)
	t2 = t0.Add(48 * time.Hour)

	// sysNow is the frozen system time used for created/updated stamps
	sysNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
)

// =============================================================================
// Test Data Builders
// =============================================================================

func seedProperty(t *testing.T, db *gorm.DB, nextplaceID, market string, listingPrice float64, listingDate time.Time) *schema.Property {
	property := &schema.Property{
		NextplaceID:  nextplaceID,
		Market:       market,
		City:         market,
		ListingPrice: listingPrice,
		ListingDate:  listingDate,
	}
	require.NoError(t, db.Create(property).Error)
	return property
}

func seedMiner(t *testing.T, db *gorm.DB, hotKey string, incentive float64) *schema.Miner {
	miner := &schema.Miner{
		HotKey:    hotKey,
		ColdKey:   hotKey + "-cold",
		Incentive: incentive,
		Active:    true,
	}
	require.NoError(t, db.Create(miner).Error)
	return miner
}

func seedValidator(t *testing.T, db *gorm.DB, hotKey, ip string, active bool) *schema.Validator {
	validator := &schema.Validator{
		HotKey:    hotKey,
		IPAddress: ip,
		Active:    active,
	}
	require.NoError(t, db.Create(validator).Error)
	return validator
}

func predictionInput(propertyID, minerID int64, price float64, predictionDate time.Time) InsertPredictionInput {
	return InsertPredictionInput{
		PropertyID:         propertyID,
		MinerID:            minerID,
		PredictedSalePrice: price,
		PredictedSaleDate:  predictionDate.Add(90 * 24 * time.Hour),
		PredictionDate:     predictionDate,
		Now:                sysNow,
	}
}

func activePredictions(t *testing.T, db *gorm.DB, propertyID, minerID int64) []schema.Prediction {
	var rows []schema.Prediction
	require.NoError(t, db.
		Where("property_id = ? AND miner_id = ? AND active", propertyID, minerID).
		Order("id ASC").
		Find(&rows).Error)
	return rows
}

// RunStoreTests runs the store behavior suite against an implementation
func RunStoreTests(t *testing.T, initDB InitDBFunc) {
	ctx := context.Background()

	t.Run("GetPropertyByNextplaceID", func(t *testing.T) {
		db, st := initDB(t)
		seeded := seedProperty(t, db, "NP-1", "Austin", 400000, t0)

		property, err := st.GetPropertyByNextplaceID(ctx, "NP-1")
		require.NoError(t, err)
		require.NotNil(t, property)
		assert.Equal(t, seeded.ID, property.ID)
		assert.Equal(t, "Austin", property.Market)

		missing, err := st.GetPropertyByNextplaceID(ctx, "NP-absent")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("SearchProperties", func(t *testing.T) {
		db, st := initDB(t)
		seedProperty(t, db, "NP-1", "Austin", 300000, t0)
		seedProperty(t, db, "NP-2", "Austin", 500000, t1)
		sold := seedProperty(t, db, "NP-3", "Denver", 400000, t2)
		saleDate := t2.Add(30 * 24 * time.Hour)
		salePrice := 410000.0
		require.NoError(t, db.Model(sold).Updates(map[string]interface{}{
			"sale_date":  saleDate,
			"sale_price": salePrice,
		}).Error)

		t.Run("by market", func(t *testing.T) {
			properties, total, err := st.SearchProperties(ctx, PropertyQueryFilter{Market: "Austin", Limit: 10})
			require.NoError(t, err)
			assert.Equal(t, uint64(2), total)
			assert.Len(t, properties, 2)
		})

		t.Run("by price range", func(t *testing.T) {
			minPrice := 350000.0
			maxPrice := 450000.0
			properties, total, err := st.SearchProperties(ctx, PropertyQueryFilter{MinPrice: &minPrice, MaxPrice: &maxPrice, Limit: 10})
			require.NoError(t, err)
			assert.Equal(t, uint64(1), total)
			require.Len(t, properties, 1)
			assert.Equal(t, "NP-3", properties[0].NextplaceID)
		})

		t.Run("by sold flag", func(t *testing.T) {
			soldFlag := true
			properties, total, err := st.SearchProperties(ctx, PropertyQueryFilter{Sold: &soldFlag, Limit: 10})
			require.NoError(t, err)
			assert.Equal(t, uint64(1), total)
			require.Len(t, properties, 1)
			assert.Equal(t, "NP-3", properties[0].NextplaceID)

			unsold := false
			_, total, err = st.SearchProperties(ctx, PropertyQueryFilter{Sold: &unsold, Limit: 10})
			require.NoError(t, err)
			assert.Equal(t, uint64(2), total)
		})

		t.Run("pagination returns total", func(t *testing.T) {
			properties, total, err := st.SearchProperties(ctx, PropertyQueryFilter{Limit: 2})
			require.NoError(t, err)
			assert.Equal(t, uint64(3), total)
			assert.Len(t, properties, 2)
		})
	})

	t.Run("GetOrCreateMinerByHotKey", func(t *testing.T) {
		db, st := initDB(t)

		miner, err := st.GetOrCreateMinerByHotKey(ctx, "hot-new", "cold-new")
		require.NoError(t, err)
		require.NotNil(t, miner)
		assert.NotZero(t, miner.ID)
		// First-seen miners are inactive placeholders with no incentive
		assert.False(t, miner.Active)
		assert.Zero(t, miner.Incentive)

		again, err := st.GetOrCreateMinerByHotKey(ctx, "hot-new", "cold-new")
		require.NoError(t, err)
		assert.Equal(t, miner.ID, again.ID)

		existing := seedMiner(t, db, "hot-known", 0.8)
		resolved, err := st.GetOrCreateMinerByHotKey(ctx, "hot-known", "ignored")
		require.NoError(t, err)
		assert.Equal(t, existing.ID, resolved.ID)
		assert.Equal(t, 0.8, resolved.Incentive)
	})

	t.Run("GetMinerByHotKey", func(t *testing.T) {
		db, st := initDB(t)
		seeded := seedMiner(t, db, "hot-1", 0.8)

		miner, err := st.GetMinerByHotKey(ctx, "hot-1")
		require.NoError(t, err)
		require.NotNil(t, miner)
		assert.Equal(t, seeded.ID, miner.ID)

		missing, err := st.GetMinerByHotKey(ctx, "hot-absent")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("GetActiveValidatorByIP", func(t *testing.T) {
		db, st := initDB(t)
		seedValidator(t, db, "val-1", "10.0.0.1", true)
		seedValidator(t, db, "val-2", "10.0.0.2", false)

		validator, err := st.GetActiveValidatorByIP(ctx, "10.0.0.1")
		require.NoError(t, err)
		require.NotNil(t, validator)
		assert.Equal(t, "val-1", validator.HotKey)

		// Inactive validator does not authorize
		inactive, err := st.GetActiveValidatorByIP(ctx, "10.0.0.2")
		require.NoError(t, err)
		assert.Nil(t, inactive)

		unknown, err := st.GetActiveValidatorByIP(ctx, "192.0.2.1")
		require.NoError(t, err)
		assert.Nil(t, unknown)
	})

	t.Run("InsertPredictionSuperseding", func(t *testing.T) {
		t.Run("monotonic sequence leaves exactly one active row", func(t *testing.T) {
			db, st := initDB(t)
			property := seedProperty(t, db, "NP-1", "Austin", 400000, t0)
			miner := seedMiner(t, db, "hot-1", 0.5)

			superseded, err := st.InsertPredictionSuperseding(ctx, predictionInput(property.ID, miner.ID, 300000, t0))
			require.NoError(t, err)
			assert.Zero(t, superseded)

			superseded, err = st.InsertPredictionSuperseding(ctx, predictionInput(property.ID, miner.ID, 310000, t1))
			require.NoError(t, err)
			assert.Equal(t, 1, superseded)

			superseded, err = st.InsertPredictionSuperseding(ctx, predictionInput(property.ID, miner.ID, 320000, t2))
			require.NoError(t, err)
			assert.Equal(t, 1, superseded)

			active := activePredictions(t, db, property.ID, miner.ID)
			require.Len(t, active, 1)
			assert.Equal(t, 320000.0, active[0].PredictedSalePrice)
			assert.True(t, active[0].PredictionDate.Equal(t2))
		})

		t.Run("deactivated rows keep audit trail with system timestamps", func(t *testing.T) {
			db, st := initDB(t)
			property := seedProperty(t, db, "NP-1", "Austin", 400000, t0)
			miner := seedMiner(t, db, "hot-1", 0.5)

			_, err := st.InsertPredictionSuperseding(ctx, predictionInput(property.ID, miner.ID, 300000, t0))
			require.NoError(t, err)
			_, err = st.InsertPredictionSuperseding(ctx, predictionInput(property.ID, miner.ID, 310000, t1))
			require.NoError(t, err)

			var all []schema.Prediction
			require.NoError(t, db.Where("property_id = ?", property.ID).Order("id ASC").Find(&all).Error)
			require.Len(t, all, 2)
			assert.False(t, all[0].Active)
			assert.True(t, all[1].Active)
			// Deactivation stamps system time, not the submission's business time
			assert.True(t, all[0].UpdatedAt.Equal(sysNow))
		})

		t.Run("non-monotonic input leaves both rows active", func(t *testing.T) {
			db, st := initDB(t)
			property := seedProperty(t, db, "NP-1", "Austin", 400000, t0)
			miner := seedMiner(t, db, "hot-1", 0.5)

			_, err := st.InsertPredictionSuperseding(ctx, predictionInput(property.ID, miner.ID, 310000, t1))
			require.NoError(t, err)

			// Older business time than the active row: nothing superseded,
			// the record still inserts as active
			superseded, err := st.InsertPredictionSuperseding(ctx, predictionInput(property.ID, miner.ID, 300000, t0))
			require.NoError(t, err)
			assert.Zero(t, superseded)

			active := activePredictions(t, db, property.ID, miner.ID)
			assert.Len(t, active, 2)
		})

		t.Run("exact timestamp replay leaves two active rows", func(t *testing.T) {
			db, st := initDB(t)
			property := seedProperty(t, db, "NP-1", "Austin", 400000, t0)
			miner := seedMiner(t, db, "hot-1", 0.5)

			for i := 0; i < 2; i++ {
				superseded, err := st.InsertPredictionSuperseding(ctx, predictionInput(property.ID, miner.ID, 300000, t0))
				require.NoError(t, err)
				assert.Zero(t, superseded)
			}

			active := activePredictions(t, db, property.ID, miner.ID)
			assert.Len(t, active, 2)
		})

		t.Run("multiple prior active rows are all deactivated", func(t *testing.T) {
			db, st := initDB(t)
			property := seedProperty(t, db, "NP-1", "Austin", 400000, t0)
			miner := seedMiner(t, db, "hot-1", 0.5)

			// Produce two simultaneously-active rows via non-monotonic input
			_, err := st.InsertPredictionSuperseding(ctx, predictionInput(property.ID, miner.ID, 310000, t1))
			require.NoError(t, err)
			_, err = st.InsertPredictionSuperseding(ctx, predictionInput(property.ID, miner.ID, 300000, t0))
			require.NoError(t, err)

			superseded, err := st.InsertPredictionSuperseding(ctx, predictionInput(property.ID, miner.ID, 320000, t2))
			require.NoError(t, err)
			assert.Equal(t, 2, superseded)

			active := activePredictions(t, db, property.ID, miner.ID)
			require.Len(t, active, 1)
			assert.Equal(t, 320000.0, active[0].PredictedSalePrice)
		})

		t.Run("keys are independent across miners and properties", func(t *testing.T) {
			db, st := initDB(t)
			propertyA := seedProperty(t, db, "NP-A", "Austin", 400000, t0)
			propertyB := seedProperty(t, db, "NP-B", "Austin", 500000, t0)
			minerA := seedMiner(t, db, "hot-a", 0.5)
			minerB := seedMiner(t, db, "hot-b", 0.5)

			_, err := st.InsertPredictionSuperseding(ctx, predictionInput(propertyA.ID, minerA.ID, 300000, t0))
			require.NoError(t, err)
			_, err = st.InsertPredictionSuperseding(ctx, predictionInput(propertyB.ID, minerA.ID, 300000, t0))
			require.NoError(t, err)

			superseded, err := st.InsertPredictionSuperseding(ctx, predictionInput(propertyA.ID, minerB.ID, 310000, t1))
			require.NoError(t, err)
			assert.Zero(t, superseded)

			assert.Len(t, activePredictions(t, db, propertyA.ID, minerA.ID), 1)
			assert.Len(t, activePredictions(t, db, propertyB.ID, minerA.ID), 1)
			assert.Len(t, activePredictions(t, db, propertyA.ID, minerB.ID), 1)
		})
	})

	t.Run("InsertScoreSuperseding", func(t *testing.T) {
		scoreInput := func(minerID int64, validatorID *int64, score float64, generated time.Time) InsertScoreInput {
			return InsertScoreInput{
				MinerID:        minerID,
				ValidatorID:    validatorID,
				Score:          score,
				NumPredictions: 10,
				GenerationDate: generated,
				Now:            sysNow,
			}
		}

		t.Run("newer generation supersedes", func(t *testing.T) {
			db, st := initDB(t)
			miner := seedMiner(t, db, "hot-1", 0.5)
			validator := seedValidator(t, db, "val-1", "10.0.0.1", true)

			superseded, err := st.InsertScoreSuperseding(ctx, scoreInput(miner.ID, &validator.ID, 0.5, t0))
			require.NoError(t, err)
			assert.Zero(t, superseded)

			superseded, err = st.InsertScoreSuperseding(ctx, scoreInput(miner.ID, &validator.ID, 0.7, t1))
			require.NoError(t, err)
			assert.Equal(t, 1, superseded)

			scores, err := st.GetActiveScoresByMinerID(ctx, miner.ID)
			require.NoError(t, err)
			require.Len(t, scores, 1)
			assert.Equal(t, 0.7, scores[0].Score)
		})

		t.Run("nil validator is its own key", func(t *testing.T) {
			db, st := initDB(t)
			miner := seedMiner(t, db, "hot-1", 0.5)
			validator := seedValidator(t, db, "val-1", "10.0.0.1", true)

			_, err := st.InsertScoreSuperseding(ctx, scoreInput(miner.ID, nil, 0.4, t0))
			require.NoError(t, err)
			_, err = st.InsertScoreSuperseding(ctx, scoreInput(miner.ID, &validator.ID, 0.6, t0))
			require.NoError(t, err)

			// Superseding the platform-scored row leaves the validator's alone
			superseded, err := st.InsertScoreSuperseding(ctx, scoreInput(miner.ID, nil, 0.5, t1))
			require.NoError(t, err)
			assert.Equal(t, 1, superseded)

			scores, err := st.GetActiveScoresByMinerID(ctx, miner.ID)
			require.NoError(t, err)
			assert.Len(t, scores, 2)
		})
	})

	t.Run("GetActivePredictionsWithIncentive", func(t *testing.T) {
		db, st := initDB(t)
		property := seedProperty(t, db, "NP-1", "Austin", 400000, t0)
		minerA := seedMiner(t, db, "hot-a", 0.9)
		minerB := seedMiner(t, db, "hot-b", 0.2)

		_, err := st.InsertPredictionSuperseding(ctx, predictionInput(property.ID, minerA.ID, 300000, t0))
		require.NoError(t, err)
		_, err = st.InsertPredictionSuperseding(ctx, predictionInput(property.ID, minerB.ID, 350000, t0))
		require.NoError(t, err)
		// Superseded rows must not appear
		_, err = st.InsertPredictionSuperseding(ctx, predictionInput(property.ID, minerB.ID, 360000, t1))
		require.NoError(t, err)

		rows, err := st.GetActivePredictionsWithIncentive(ctx, property.ID)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "hot-a", rows[0].MinerHotKey)
		assert.Equal(t, 0.9, rows[0].MinerIncentive)
		assert.Equal(t, "hot-b", rows[1].MinerHotKey)
		assert.Equal(t, 360000.0, rows[1].PredictedSalePrice)
	})

	t.Run("PredictionStats", func(t *testing.T) {
		db, st := initDB(t)
		property := seedProperty(t, db, "NP-1", "Austin", 400000, t0)

		payload, err := json.Marshal(schema.TopPredictionsPayload{
			Version: schema.TopPredictionsVersion,
			Predictions: []schema.TopPredictionEntry{
				{MinerHotKey: "hot-1", PredictedSalePrice: 300000, PredictedSaleDate: t2, PredictionDate: t0},
			},
		})
		require.NoError(t, err)

		stats := &schema.PredictionStats{
			PropertyID:        property.ID,
			NumPredictions:    1,
			MinPredictedPrice: 300000,
			AvgPredictedPrice: 300000,
			MaxPredictedPrice: 300000,
			TopPredictions:    payload,
			ComputedAt:        sysNow,
		}
		require.NoError(t, st.UpsertPredictionStats(ctx, stats))

		loaded, err := st.GetPredictionStats(ctx, property.ID)
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, int64(1), loaded.NumPredictions)

		// Upsert replaces the snapshot wholesale
		stats.NumPredictions = 3
		stats.AvgPredictedPrice = 310000
		require.NoError(t, st.UpsertPredictionStats(ctx, stats))

		loaded, err = st.GetPredictionStats(ctx, property.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(3), loaded.NumPredictions)
		assert.Equal(t, 310000.0, loaded.AvgPredictedPrice)

		require.NoError(t, st.DeletePredictionStats(ctx, property.ID))
		loaded, err = st.GetPredictionStats(ctx, property.ID)
		require.NoError(t, err)
		assert.Nil(t, loaded)
	})

	t.Run("ListPropertyIDsForAggregation", func(t *testing.T) {
		db, st := initDB(t)
		withPrediction := seedProperty(t, db, "NP-1", "Austin", 400000, t0)
		withStaleStats := seedProperty(t, db, "NP-2", "Austin", 400000, t0)
		seedProperty(t, db, "NP-3", "Austin", 400000, t0)
		miner := seedMiner(t, db, "hot-1", 0.5)

		_, err := st.InsertPredictionSuperseding(ctx, predictionInput(withPrediction.ID, miner.ID, 300000, t0))
		require.NoError(t, err)

		// A stats row with no active predictions must still be listed so the
		// aggregator clears it
		require.NoError(t, st.UpsertPredictionStats(ctx, &schema.PredictionStats{
			PropertyID: withStaleStats.ID,
			ComputedAt: sysNow,
		}))

		ids, err := st.ListPropertyIDsForAggregation(ctx, 0, 100)
		require.NoError(t, err)
		assert.ElementsMatch(t, []int64{withPrediction.ID, withStaleStats.ID}, ids)

		// Cursor pagination
		first, err := st.ListPropertyIDsForAggregation(ctx, 0, 1)
		require.NoError(t, err)
		require.Len(t, first, 1)
		rest, err := st.ListPropertyIDsForAggregation(ctx, first[0], 100)
		require.NoError(t, err)
		require.Len(t, rest, 1)
		assert.Greater(t, rest[0], first[0])
	})

	t.Run("DeletePropertiesListedBefore", func(t *testing.T) {
		db, st := initDB(t)
		old1 := seedProperty(t, db, "NP-old-1", "Austin", 400000, t0)
		seedProperty(t, db, "NP-old-2", "Austin", 400000, t0.Add(time.Hour))
		fresh := seedProperty(t, db, "NP-fresh", "Austin", 400000, t2)
		miner := seedMiner(t, db, "hot-1", 0.5)

		_, err := st.InsertPredictionSuperseding(ctx, predictionInput(old1.ID, miner.ID, 300000, t0))
		require.NoError(t, err)
		require.NoError(t, st.UpsertPredictionStats(ctx, &schema.PredictionStats{
			PropertyID: old1.ID,
			ComputedAt: sysNow,
		}))

		cutoff := t1

		// Batch size caps one sweep's deletions
		deleted, err := st.DeletePropertiesListedBefore(ctx, cutoff, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)

		deleted, err = st.DeletePropertiesListedBefore(ctx, cutoff, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)

		// Predictions and stats cascade with their property
		var predictionCount int64
		require.NoError(t, db.Model(&schema.Prediction{}).Count(&predictionCount).Error)
		assert.Zero(t, predictionCount)
		var statsCount int64
		require.NoError(t, db.Model(&schema.PredictionStats{}).Count(&statsCount).Error)
		assert.Zero(t, statsCount)

		remaining, err := st.GetPropertyByNextplaceID(ctx, "NP-fresh")
		require.NoError(t, err)
		require.NotNil(t, remaining)
		assert.Equal(t, fresh.ID, remaining.ID)
	})

	t.Run("DeactivateDuplicatePredictions", func(t *testing.T) {
		db, st := initDB(t)
		property := seedProperty(t, db, "NP-1", "Austin", 400000, t0)
		miner := seedMiner(t, db, "hot-1", 0.5)
		other := seedMiner(t, db, "hot-2", 0.5)

		// Non-monotonic input produces two active rows for the same key
		_, err := st.InsertPredictionSuperseding(ctx, predictionInput(property.ID, miner.ID, 310000, t1))
		require.NoError(t, err)
		_, err = st.InsertPredictionSuperseding(ctx, predictionInput(property.ID, miner.ID, 300000, t0))
		require.NoError(t, err)
		// A clean key is untouched
		_, err = st.InsertPredictionSuperseding(ctx, predictionInput(property.ID, other.ID, 320000, t0))
		require.NoError(t, err)

		deactivated, err := st.DeactivateDuplicatePredictions(ctx, sysNow)
		require.NoError(t, err)
		assert.Equal(t, int64(1), deactivated)

		// The row with the greatest business timestamp survives
		active := activePredictions(t, db, property.ID, miner.ID)
		require.Len(t, active, 1)
		assert.True(t, active[0].PredictionDate.Equal(t1))

		assert.Len(t, activePredictions(t, db, property.ID, other.ID), 1)

		// Second sweep is a no-op
		deactivated, err = st.DeactivateDuplicatePredictions(ctx, sysNow)
		require.NoError(t, err)
		assert.Zero(t, deactivated)
	})

	t.Run("DeactivateDuplicateScores", func(t *testing.T) {
		db, st := initDB(t)
		miner := seedMiner(t, db, "hot-1", 0.5)

		// Two active platform-scored rows (validator NULL) for the same miner
		for i, generated := range []time.Time{t1, t0} {
			score := schema.Score{
				MinerID:        miner.ID,
				Score:          0.5 + float64(i)/10,
				GenerationDate: generated,
				Active:         true,
			}
			require.NoError(t, db.Create(&score).Error)
		}

		deactivated, err := st.DeactivateDuplicateScores(ctx, sysNow)
		require.NoError(t, err)
		assert.Equal(t, int64(1), deactivated)

		scores, err := st.GetActiveScoresByMinerID(ctx, miner.ID)
		require.NoError(t, err)
		require.Len(t, scores, 1)
		assert.True(t, scores[0].GenerationDate.Equal(t1))
	})

	t.Run("JobValues", func(t *testing.T) {
		_, st := initDB(t)

		value, err := st.GetJobValue(ctx, "aggregation_cursor")
		require.NoError(t, err)
		assert.Empty(t, value)

		require.NoError(t, st.SetJobValue(ctx, "aggregation_cursor", "42"))
		value, err = st.GetJobValue(ctx, "aggregation_cursor")
		require.NoError(t, err)
		assert.Equal(t, "42", value)

		require.NoError(t, st.SetJobValue(ctx, "aggregation_cursor", "43"))
		value, err = st.GetJobValue(ctx, "aggregation_cursor")
		require.NoError(t, err)
		assert.Equal(t, "43", value)
	})

	t.Run("Ping", func(t *testing.T) {
		_, st := initDB(t)
		require.NoError(t, st.Ping(ctx))
	})

	t.Run("GetActivePredictionsByPropertyID", func(t *testing.T) {
		db, st := initDB(t)
		property := seedProperty(t, db, "NP-1", "Austin", 400000, t0)
		for i := 0; i < 3; i++ {
			miner := seedMiner(t, db, fmt.Sprintf("hot-%d", i), 0.5)
			_, err := st.InsertPredictionSuperseding(ctx, predictionInput(property.ID, miner.ID, 300000+float64(i)*10000, t0.Add(time.Duration(i)*time.Hour)))
			require.NoError(t, err)
		}

		predictions, total, err := st.GetActivePredictionsByPropertyID(ctx, property.ID, 2, 0)
		require.NoError(t, err)
		assert.Equal(t, uint64(3), total)
		require.Len(t, predictions, 2)
		// Newest business time first
		assert.Equal(t, 320000.0, predictions[0].PredictedSalePrice)
	})
}
