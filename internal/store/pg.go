package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nextplace/prediction-engine/internal/store/schema"
)

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// ConfigureConnectionPool configures the connection pool settings for a GORM
// database connection. Zero values fall back to defaults:
//   - MaxOpenConns: 20
//   - MaxIdleConns: 5
//   - ConnMaxLifetime: 5 minutes
//   - ConnMaxIdleTime: 10 minutes
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// Ping verifies database connectivity
func (s *pgStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// GetPropertyByNextplaceID retrieves a property by its external identifier
func (s *pgStore) GetPropertyByNextplaceID(ctx context.Context, nextplaceID string) (*schema.Property, error) {
	var property schema.Property
	err := s.db.WithContext(ctx).Where("nextplace_id = ?", nextplaceID).First(&property).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get property: %w", err)
	}
	return &property, nil
}

// SearchProperties retrieves properties matching the filter plus the total count
func (s *pgStore) SearchProperties(ctx context.Context, filter PropertyQueryFilter) ([]schema.Property, uint64, error) {
	query := s.db.WithContext(ctx).Model(&schema.Property{})

	if filter.Market != "" {
		query = query.Where("market = ?", filter.Market)
	}
	if filter.City != "" {
		query = query.Where("city = ?", filter.City)
	}
	if filter.MinPrice != nil {
		query = query.Where("listing_price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		query = query.Where("listing_price <= ?", *filter.MaxPrice)
	}
	if filter.Sold != nil {
		if *filter.Sold {
			query = query.Where("sale_date IS NOT NULL")
		} else {
			query = query.Where("sale_date IS NULL")
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count properties: %w", err)
	}

	var properties []schema.Property
	err := query.Order("listing_date DESC").Order("id DESC").
		Limit(filter.Limit).Offset(int(filter.Offset)). //nolint:gosec,G115
		Find(&properties).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search properties: %w", err)
	}

	return properties, uint64(total), nil //nolint:gosec,G115
}

// GetMinerByHotKey retrieves a miner by hot key
func (s *pgStore) GetMinerByHotKey(ctx context.Context, hotKey string) (*schema.Miner, error) {
	var miner schema.Miner
	err := s.db.WithContext(ctx).Where("hot_key = ?", hotKey).First(&miner).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get miner: %w", err)
	}
	return &miner, nil
}

// GetOrCreateMinerByHotKey resolves a miner, creating an inactive placeholder on first sight
func (s *pgStore) GetOrCreateMinerByHotKey(ctx context.Context, hotKey, coldKey string) (*schema.Miner, error) {
	miner := schema.Miner{
		HotKey:    hotKey,
		ColdKey:   coldKey,
		Incentive: 0,
		Active:    false,
	}

	// ON CONFLICT DO NOTHING on hot_key so concurrent first-seen submissions
	// for the same miner cannot race into a constraint violation
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "hot_key"}},
		DoNothing: true,
	}).Clauses(clause.Returning{Columns: []clause.Column{}}).
		Create(&miner).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create miner: %w", err)
	}

	// ID == 0 means the miner already existed, so fetch it
	if miner.ID == 0 {
		if err := s.db.WithContext(ctx).Where("hot_key = ?", hotKey).First(&miner).Error; err != nil {
			return nil, fmt.Errorf("failed to get existing miner: %w", err)
		}
	}

	return &miner, nil
}

// GetActiveValidatorByIP resolves the ingestion caller address against the allow-list
func (s *pgStore) GetActiveValidatorByIP(ctx context.Context, ip string) (*schema.Validator, error) {
	var validator schema.Validator
	err := s.db.WithContext(ctx).
		Where("ip_address = ? AND active = ?", ip, true).
		First(&validator).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get validator by IP: %w", err)
	}
	return &validator, nil
}

// InsertPredictionSuperseding atomically deactivates all active predictions for
// (miner, property) with an earlier PredictionDate and inserts the new row as
// active. The read+deactivate+insert sequence runs in a single transaction
// with row locks so concurrent submissions for the same key serialize on the
// prior rows instead of both reading "no active record".
//
// An existing active row with PredictionDate >= input.PredictionDate is left
// untouched and the new row is still inserted, so non-monotonic input yields
// multiple active rows. The dedup sweeper reconciles those.
func (s *pgStore) InsertPredictionSuperseding(ctx context.Context, input InsertPredictionInput) (int, error) {
	var superseded int

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prior []schema.Prediction
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("miner_id = ? AND property_id = ? AND active = ? AND prediction_date < ?",
				input.MinerID, input.PropertyID, true, input.PredictionDate).
			Find(&prior).Error
		if err != nil {
			return fmt.Errorf("failed to lock prior predictions: %w", err)
		}

		if len(prior) > 0 {
			ids := make([]int64, len(prior))
			for i, p := range prior {
				ids[i] = p.ID
			}
			err = tx.Model(&schema.Prediction{}).
				Where("id IN ?", ids).
				Updates(map[string]interface{}{
					"active":     false,
					"updated_at": input.Now,
				}).Error
			if err != nil {
				return fmt.Errorf("failed to deactivate prior predictions: %w", err)
			}
		}

		prediction := schema.Prediction{
			PropertyID:         input.PropertyID,
			MinerID:            input.MinerID,
			ValidatorID:        input.ValidatorID,
			PredictedSalePrice: input.PredictedSalePrice,
			PredictedSaleDate:  input.PredictedSaleDate,
			PredictionDate:     input.PredictionDate,
			Active:             true,
			CreatedAt:          input.Now,
			UpdatedAt:          input.Now,
		}
		if err := tx.Create(&prediction).Error; err != nil {
			return fmt.Errorf("failed to insert prediction: %w", err)
		}

		superseded = len(prior)
		return nil
	})
	if err != nil {
		return 0, err
	}

	return superseded, nil
}

// InsertScoreSuperseding is the score analogue of InsertPredictionSuperseding,
// keyed on (miner, validator-or-null) and ordered by GenerationDate
func (s *pgStore) InsertScoreSuperseding(ctx context.Context, input InsertScoreInput) (int, error) {
	var superseded int

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("miner_id = ? AND active = ? AND generation_date < ?",
				input.MinerID, true, input.GenerationDate)
		if input.ValidatorID != nil {
			query = query.Where("validator_id = ?", *input.ValidatorID)
		} else {
			query = query.Where("validator_id IS NULL")
		}

		var prior []schema.Score
		if err := query.Find(&prior).Error; err != nil {
			return fmt.Errorf("failed to lock prior scores: %w", err)
		}

		if len(prior) > 0 {
			ids := make([]int64, len(prior))
			for i, sc := range prior {
				ids[i] = sc.ID
			}
			err := tx.Model(&schema.Score{}).
				Where("id IN ?", ids).
				Updates(map[string]interface{}{
					"active":     false,
					"updated_at": input.Now,
				}).Error
			if err != nil {
				return fmt.Errorf("failed to deactivate prior scores: %w", err)
			}
		}

		score := schema.Score{
			MinerID:          input.MinerID,
			ValidatorID:      input.ValidatorID,
			Score:            input.Score,
			NumPredictions:   input.NumPredictions,
			TotalPredictions: input.TotalPredictions,
			GenerationDate:   input.GenerationDate,
			Active:           true,
			CreatedAt:        input.Now,
			UpdatedAt:        input.Now,
		}
		if err := tx.Create(&score).Error; err != nil {
			return fmt.Errorf("failed to insert score: %w", err)
		}

		superseded = len(prior)
		return nil
	})
	if err != nil {
		return 0, err
	}

	return superseded, nil
}

// GetActivePredictionsByPropertyID retrieves active predictions for a property
func (s *pgStore) GetActivePredictionsByPropertyID(ctx context.Context, propertyID int64, limit int, offset uint64) ([]schema.Prediction, uint64, error) {
	query := s.db.WithContext(ctx).Model(&schema.Prediction{}).
		Where("property_id = ? AND active = ?", propertyID, true)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count predictions: %w", err)
	}

	var predictions []schema.Prediction
	err := query.Order("prediction_date DESC").Order("id DESC").
		Limit(limit).Offset(int(offset)). //nolint:gosec,G115
		Find(&predictions).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get predictions: %w", err)
	}

	return predictions, uint64(total), nil //nolint:gosec,G115
}

// GetActiveScoresByMinerID retrieves active scores for a miner
func (s *pgStore) GetActiveScoresByMinerID(ctx context.Context, minerID int64) ([]schema.Score, error) {
	var scores []schema.Score
	err := s.db.WithContext(ctx).
		Where("miner_id = ? AND active = ?", minerID, true).
		Order("generation_date DESC").
		Find(&scores).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get scores: %w", err)
	}
	return scores, nil
}

// GetPredictionStats retrieves the stats snapshot for a property
func (s *pgStore) GetPredictionStats(ctx context.Context, propertyID int64) (*schema.PredictionStats, error) {
	var stats schema.PredictionStats
	err := s.db.WithContext(ctx).Where("property_id = ?", propertyID).First(&stats).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get prediction stats: %w", err)
	}
	return &stats, nil
}

// ListPropertyIDsForAggregation pages through property IDs that either have
// active predictions or a stats snapshot. The union catches snapshots whose
// predictions have since been deactivated or deleted, so they get cleared.
func (s *pgStore) ListPropertyIDsForAggregation(ctx context.Context, afterID int64, limit int) ([]int64, error) {
	var ids []int64
	err := s.db.WithContext(ctx).Raw(`
		SELECT property_id FROM (
			SELECT property_id FROM predictions WHERE active
			UNION
			SELECT property_id FROM prediction_stats
		) sub
		WHERE property_id > ?
		ORDER BY property_id ASC
		LIMIT ?
	`, afterID, limit).Scan(&ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list property ids for aggregation: %w", err)
	}
	return ids, nil
}

// GetActivePredictionsWithIncentive loads a property's active predictions
// joined with each miner's current incentive. Ordered by prediction ID so the
// aggregator's input is stable across runs with unchanged rows.
func (s *pgStore) GetActivePredictionsWithIncentive(ctx context.Context, propertyID int64) ([]ActivePredictionRow, error) {
	var rows []ActivePredictionRow
	err := s.db.WithContext(ctx).
		Table("predictions").
		Select("predictions.*, miners.hot_key AS miner_hot_key, miners.incentive AS miner_incentive").
		Joins("JOIN miners ON miners.id = predictions.miner_id").
		Where("predictions.property_id = ? AND predictions.active = ?", propertyID, true).
		Order("predictions.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get active predictions with incentive: %w", err)
	}
	return rows, nil
}

// UpsertPredictionStats replaces the property's snapshot wholesale
func (s *pgStore) UpsertPredictionStats(ctx context.Context, stats *schema.PredictionStats) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "property_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"num_predictions",
			"min_predicted_price",
			"avg_predicted_price",
			"max_predicted_price",
			"top_predictions",
			"computed_at",
		}),
	}).Create(stats).Error
	if err != nil {
		return fmt.Errorf("failed to upsert prediction stats: %w", err)
	}
	return nil
}

// DeletePredictionStats removes the property's snapshot
func (s *pgStore) DeletePredictionStats(ctx context.Context, propertyID int64) error {
	err := s.db.WithContext(ctx).
		Where("property_id = ?", propertyID).
		Delete(&schema.PredictionStats{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete prediction stats: %w", err)
	}
	return nil
}

// DeletePropertiesListedBefore deletes up to batchSize properties older than
// the cutoff. Predictions and stats rows cascade at the SQL level; stats rows
// for other properties are deliberately not recomputed here.
func (s *pgStore) DeletePropertiesListedBefore(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	result := s.db.WithContext(ctx).Exec(`
		DELETE FROM properties
		WHERE id IN (
			SELECT id FROM properties
			WHERE listing_date < ?
			ORDER BY listing_date ASC
			LIMIT ?
		)
	`, cutoff, batchSize)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete expired properties: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// DeactivateDuplicatePredictions restores the single-active-per-key invariant
// in one statement, keeping the row with the greatest (prediction_date, id)
// per (miner, property)
func (s *pgStore) DeactivateDuplicatePredictions(ctx context.Context, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Exec(`
		UPDATE predictions SET active = false, updated_at = ?
		WHERE active AND id NOT IN (
			SELECT DISTINCT ON (miner_id, property_id) id
			FROM predictions
			WHERE active
			ORDER BY miner_id, property_id, prediction_date DESC, id DESC
		)
	`, now)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to deactivate duplicate predictions: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// DeactivateDuplicateScores is the score analogue of
// DeactivateDuplicatePredictions. DISTINCT ON treats NULL validator_id values
// as a single group, matching the (miner, validator-or-null) key.
func (s *pgStore) DeactivateDuplicateScores(ctx context.Context, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Exec(`
		UPDATE miner_scores SET active = false, updated_at = ?
		WHERE active AND id NOT IN (
			SELECT DISTINCT ON (miner_id, validator_id) id
			FROM miner_scores
			WHERE active
			ORDER BY miner_id, validator_id, generation_date DESC, id DESC
		)
	`, now)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to deactivate duplicate scores: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// GetJobValue retrieves a job bookkeeping value
func (s *pgStore) GetJobValue(ctx context.Context, key string) (string, error) {
	var kv schema.KeyValueStore
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&kv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get job value: %w", err)
	}
	return kv.Value, nil
}

// SetJobValue stores a job bookkeeping value
func (s *pgStore) SetJobValue(ctx context.Context, key, value string) error {
	kv := schema.KeyValueStore{
		Key:   key,
		Value: value,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&kv).Error
	if err != nil {
		return fmt.Errorf("failed to set job value: %w", err)
	}
	return nil
}
