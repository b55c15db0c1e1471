// Command benchmark drives synthetic prediction batches against a running
// API server and reports ingestion throughput and latency percentiles.
//
// The caller's IP must belong to an active validator, otherwise every
// request comes back 403.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/nextplace/prediction-engine/internal/adapter"
	"github.com/nextplace/prediction-engine/internal/api/rest/dto"
)

const defaultAPIURL = "http://localhost:8080"

type Config struct {
	APIURL      string
	Batches     int           // Total number of batches to submit
	BatchSize   int           // Predictions per batch
	Concurrency int           // Number of concurrent submitters
	Properties  int           // Distinct nextplace IDs to spread predictions over
	Miners      int           // Distinct miner hot keys
	Timeout     time.Duration // Per-request timeout
	OutputFile  string        // Output markdown file path (optional)
	Seed        uint64        // PRNG seed for reproducible batches
}

type BenchmarkStats struct {
	StartTime time.Time
	EndTime   time.Time

	Submitted  int64
	Failed     int64
	Inserted   int64
	Superseded int64
	Rejected   int64

	mu        sync.Mutex
	latencies []time.Duration
	errors    map[string]int
}

func (s *BenchmarkStats) recordLatency(d time.Duration) {
	s.mu.Lock()
	s.latencies = append(s.latencies, d)
	s.mu.Unlock()
}

func (s *BenchmarkStats) recordError(msg string) {
	s.mu.Lock()
	if s.errors == nil {
		s.errors = make(map[string]int)
	}
	s.errors[msg]++
	s.mu.Unlock()
}

func main() {
	cfg := parseFlags()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	fmt.Printf("Target API: %s\n", cfg.APIURL)
	fmt.Printf("Submitting %d batches of %d predictions with %d workers\n\n",
		cfg.Batches, cfg.BatchSize, cfg.Concurrency)

	stats := runBenchmark(ctx, cfg)

	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("BENCHMARK RESULTS")
	fmt.Println(strings.Repeat("=", 80))
	printStats(cfg, stats)

	if cfg.OutputFile != "" {
		if err := writeMarkdownReport(cfg.OutputFile, cfg, stats); err != nil {
			fmt.Printf("\nWarning: failed to write markdown file: %v\n", err)
		} else {
			fmt.Printf("\nReport written to: %s\n", cfg.OutputFile)
		}
	}

	if stats.Failed > 0 {
		os.Exit(1)
	}
}

func parseFlags() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.APIURL, "api-url", defaultAPIURL, "Base URL of the API server")
	flag.IntVar(&cfg.Batches, "batches", 100, "Total number of batches to submit")
	flag.IntVar(&cfg.BatchSize, "batch-size", 100, "Predictions per batch")
	flag.IntVar(&cfg.Concurrency, "concurrency", 4, "Number of concurrent submitters")
	flag.IntVar(&cfg.Properties, "properties", 500, "Distinct properties to predict on")
	flag.IntVar(&cfg.Miners, "miners", 50, "Distinct miner hot keys")
	flag.DurationVar(&cfg.Timeout, "timeout", 30*time.Second, "Per-request timeout")
	flag.StringVar(&cfg.OutputFile, "output", "", "Output markdown file path (optional)")
	flag.Uint64Var(&cfg.Seed, "seed", 1, "PRNG seed for reproducible batches")

	configPath := flag.String("config", "", "Optional JSON config file (flags win)")
	flag.Parse()

	if *configPath != "" {
		fileCfg, err := LoadConfig(*configPath)
		if err != nil {
			fmt.Printf("Error loading config file: %v\n", err)
			os.Exit(1)
		}
		if fileCfg.APIURL != "" && cfg.APIURL == defaultAPIURL {
			cfg.APIURL = fileCfg.APIURL
		}
	}

	return cfg
}

func runBenchmark(ctx context.Context, cfg *Config) *BenchmarkStats {
	stats := &BenchmarkStats{StartTime: time.Now()}
	client := &http.Client{Timeout: cfg.Timeout}
	jsonAdapter := adapter.NewJSON()

	batchCh := make(chan int, cfg.Batches)
	for i := 0; i < cfg.Batches; i++ {
		batchCh <- i
	}
	close(batchCh)

	var done atomic.Int64
	var wg sync.WaitGroup
	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			// Per-worker PRNG keeps batches reproducible under any
			// worker interleaving
			rng := rand.New(rand.NewPCG(cfg.Seed, uint64(worker)))

			for range batchCh {
				select {
				case <-ctx.Done():
					return
				default:
				}

				request := buildBatch(rng, cfg)
				body, err := jsonAdapter.Marshal(request)
				if err != nil {
					atomic.AddInt64(&stats.Failed, 1)
					stats.recordError(err.Error())
					continue
				}

				start := time.Now()
				result, err := submitBatch(ctx, client, cfg.APIURL, body, jsonAdapter)
				latency := time.Since(start)
				if err != nil {
					atomic.AddInt64(&stats.Failed, 1)
					stats.recordError(err.Error())
					continue
				}

				stats.recordLatency(latency)
				atomic.AddInt64(&stats.Submitted, 1)
				atomic.AddInt64(&stats.Inserted, int64(result.Inserted))
				atomic.AddInt64(&stats.Superseded, int64(result.Superseded))
				atomic.AddInt64(&stats.Rejected, int64(result.Rejected))

				n := done.Add(1)
				fmt.Printf("\rSubmitted %d/%d batches    ", n, cfg.Batches)
			}
		}(w)
	}
	wg.Wait()

	stats.EndTime = time.Now()
	return stats
}

// buildBatch produces one synthetic submission batch. Property and miner
// keys are drawn from fixed-size pools so repeated batches exercise the
// supersession path, not just fresh inserts.
func buildBatch(rng *rand.Rand, cfg *Config) dto.SubmitPredictionsRequest {
	now := time.Now().UTC()
	predictions := make([]dto.PredictionSubmissionDTO, 0, cfg.BatchSize)
	for i := 0; i < cfg.BatchSize; i++ {
		property := rng.IntN(cfg.Properties)
		miner := rng.IntN(cfg.Miners)
		predictions = append(predictions, dto.PredictionSubmissionDTO{
			NextplaceID:        fmt.Sprintf("bench-property-%d", property),
			MinerHotKey:        fmt.Sprintf("bench-miner-%d", miner),
			MinerColdKey:       fmt.Sprintf("bench-cold-%d", miner),
			PredictedSalePrice: 200000 + rng.Float64()*600000,
			PredictedSaleDate:  now.Add(90 * 24 * time.Hour),
			PredictionDate:     now,
		})
	}
	return dto.SubmitPredictionsRequest{Predictions: predictions}
}

func submitBatch(ctx context.Context, client *http.Client, apiURL string, body []byte, jsonAdapter adapter.JSON) (*dto.BatchResultDTO, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(apiURL, "/")+"/api/v1/predictions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var result dto.BatchResultDTO
	if err := jsonAdapter.Unmarshal(respBody, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func printStats(cfg *Config, stats *BenchmarkStats) {
	elapsed := stats.EndTime.Sub(stats.StartTime)
	records := int(stats.Submitted) * cfg.BatchSize

	fmt.Printf("\nDuration:    %s\n", formatDuration(elapsed))
	fmt.Printf("Batches:     %d submitted, %d failed (%s success)\n",
		stats.Submitted, stats.Failed,
		percentageString(int(stats.Submitted), int(stats.Submitted+stats.Failed)))
	fmt.Printf("Records:     %d (%s)\n", records, formatRate(records, elapsed))
	fmt.Printf("Outcomes:    %d inserted, %d superseded, %d rejected\n",
		stats.Inserted, stats.Superseded, stats.Rejected)

	stats.mu.Lock()
	latencies := append([]time.Duration(nil), stats.latencies...)
	stats.mu.Unlock()

	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
		fmt.Printf("\nBatch latency:\n")
		fmt.Printf("  min: %s\n", formatDuration(latencies[0]))
		fmt.Printf("  p50: %s\n", formatDuration(percentile(latencies, 50)))
		fmt.Printf("  p90: %s\n", formatDuration(percentile(latencies, 90)))
		fmt.Printf("  p99: %s\n", formatDuration(percentile(latencies, 99)))
		fmt.Printf("  max: %s\n", formatDuration(latencies[len(latencies)-1]))
	}

	stats.mu.Lock()
	defer stats.mu.Unlock()
	if len(stats.errors) > 0 {
		fmt.Printf("\nErrors:\n")
		for msg, count := range stats.errors {
			fmt.Printf("  %dx %s\n", count, msg)
		}
	}
}

func writeMarkdownReport(path string, cfg *Config, stats *BenchmarkStats) error {
	elapsed := stats.EndTime.Sub(stats.StartTime)
	records := int(stats.Submitted) * cfg.BatchSize

	var b strings.Builder
	b.WriteString("# Ingestion Benchmark Report\n\n")
	b.WriteString(fmt.Sprintf("- Target: %s\n", cfg.APIURL))
	b.WriteString(fmt.Sprintf("- Batches: %d x %d predictions, %d workers\n", cfg.Batches, cfg.BatchSize, cfg.Concurrency))
	b.WriteString(fmt.Sprintf("- Duration: %s\n", formatDuration(elapsed)))
	b.WriteString(fmt.Sprintf("- Throughput: %s records\n", formatRate(records, elapsed)))
	b.WriteString(fmt.Sprintf("- Outcomes: %d inserted / %d superseded / %d rejected\n",
		stats.Inserted, stats.Superseded, stats.Rejected))
	b.WriteString(fmt.Sprintf("- Failed batches: %d\n", stats.Failed))

	return os.WriteFile(path, []byte(b.String()), 0600)
}
