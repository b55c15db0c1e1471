package main

import (
	"math/rand/v2"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentile(t *testing.T) {
	sorted := []time.Duration{
		10 * time.Millisecond,
		20 * time.Millisecond,
		30 * time.Millisecond,
		40 * time.Millisecond,
		100 * time.Millisecond,
	}

	assert.Equal(t, 30*time.Millisecond, percentile(sorted, 50))
	assert.Equal(t, 100*time.Millisecond, percentile(sorted, 100))
	assert.Equal(t, 10*time.Millisecond, percentile(sorted, 0))
	assert.Equal(t, time.Duration(0), percentile(nil, 50))
}

func TestFormatRate(t *testing.T) {
	assert.Equal(t, "100.00/s", formatRate(1000, 10*time.Second))
	assert.Equal(t, "N/A", formatRate(1000, 0))
}

func TestPercentageString(t *testing.T) {
	assert.Equal(t, "50.00%", percentageString(1, 2))
	assert.Equal(t, "0.00%", percentageString(0, 0))
}

func TestBuildBatch(t *testing.T) {
	cfg := &Config{
		BatchSize:  50,
		Properties: 10,
		Miners:     5,
		Seed:       1,
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, 0))
	batch := buildBatch(rng, cfg)
	require.Len(t, batch.Predictions, 50)

	for _, p := range batch.Predictions {
		assert.NotEmpty(t, p.NextplaceID)
		assert.NotEmpty(t, p.MinerHotKey)
		assert.Greater(t, p.PredictedSalePrice, 0.0)
		assert.False(t, p.PredictionDate.IsZero())
		assert.True(t, p.PredictedSaleDate.After(p.PredictionDate))
	}

	// Same seed produces the same key sequence
	rng2 := rand.New(rand.NewPCG(cfg.Seed, 0))
	batch2 := buildBatch(rng2, cfg)
	for i := range batch.Predictions {
		assert.Equal(t, batch.Predictions[i].NextplaceID, batch2.Predictions[i].NextplaceID)
		assert.Equal(t, batch.Predictions[i].MinerHotKey, batch2.Predictions[i].MinerHotKey)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	original := &BenchmarkConfig{APIURL: "http://api.example.com:8080"}
	require.NoError(t, SaveConfig(path, original))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, original.APIURL, loaded.APIURL)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
