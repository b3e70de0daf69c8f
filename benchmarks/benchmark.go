// Command benchmarks drives the buffer pool with insert, scan and aggregate
// workloads, sequentially and concurrently, and writes a JSON report.
//
// Environment variables:
//   - BENCHMARK_OUTPUT: directory for reports (default ./benchmark-results)
//   - BENCHMARK_ITERATIONS: transactions per workload (default 200)
//   - BENCHMARK_CONCURRENCY: goroutines for concurrent runs (default 8)
//   - BENCHMARK_ROWS: rows loaded before the read workloads (default 1000); scans
//     hold every page until commit, so the table must fit in the pool
//   - BENCHMARK_CONFIG: optional INI or TOML engine configuration
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"heapstore/pkg/concurrency/transaction"
	"heapstore/pkg/config"
	"heapstore/pkg/execution/aggregation"
	"heapstore/pkg/iterator"
	"heapstore/pkg/logging"
	"heapstore/pkg/memory"
	"heapstore/pkg/primitives"
	"heapstore/pkg/storage/heap"
	"heapstore/pkg/tuple"
	"heapstore/pkg/types"
)

// BenchmarkResult captures timing statistics for one workload run.
type BenchmarkResult struct {
	Workload       string        `json:"workload"`
	Iterations     int           `json:"iterations"`
	Concurrency    int           `json:"concurrency"`
	TotalDuration  time.Duration `json:"total_duration_ns"`
	AvgDuration    time.Duration `json:"avg_duration_ns"`
	MinDuration    time.Duration `json:"min_duration_ns"`
	MaxDuration    time.Duration `json:"max_duration_ns"`
	MedianDuration time.Duration `json:"median_duration_ns"`
	P95Duration    time.Duration `json:"p95_duration_ns"`
	P99Duration    time.Duration `json:"p99_duration_ns"`
	TxPerSecond    float64       `json:"tx_per_second"`
	SuccessCount   int           `json:"success_count"`
	ErrorCount     int           `json:"error_count"`
	ErrorSamples   []string      `json:"error_samples"`
	Pool           memory.Stats  `json:"pool"`
}

// BenchmarkReport aggregates every workload result.
type BenchmarkReport struct {
	StartTime     time.Time         `json:"start_time"`
	EndTime       time.Time         `json:"end_time"`
	TotalDuration time.Duration     `json:"total_duration"`
	PageSize      int               `json:"page_size"`
	PoolPages     int               `json:"pool_pages"`
	Results       []BenchmarkResult `json:"results"`
}

// workload runs one transaction's worth of work.
type workload func(store *memory.PageStore, hf *heap.HeapFile, tid *transaction.TransactionID) error

// suite holds the knobs of one benchmark run.
type suite struct {
	outputDir   string
	configPath  string
	tempRoot    string
	iterations  int
	concurrency int
	rows        int
}

func main() {
	s := suite{
		outputDir:   envString("BENCHMARK_OUTPUT", "./benchmark-results"),
		configPath:  os.Getenv("BENCHMARK_CONFIG"),
		iterations:  envInt("BENCHMARK_ITERATIONS", 200),
		concurrency: envInt("BENCHMARK_CONCURRENCY", 8),
		rows:        envInt("BENCHMARK_ROWS", 1000),
	}

	if _, err := s.run(); err != nil {
		logrus.WithError(err).Error("benchmark suite failed")
		os.Exit(1)
	}
}

// run loads the data set into a scratch directory, runs every workload and
// writes the JSON report, returning its path. The scratch directory is
// removed and the pool closed on every return path.
func (s suite) run() (string, error) {
	cfg := config.Default()
	if s.configPath != "" {
		var err error
		if cfg, err = config.Load(s.configPath); err != nil {
			return "", errors.Wrap(err, "load config")
		}
	}
	if err := logging.Init(cfg.Log); err != nil {
		return "", errors.Wrap(err, "init logging")
	}
	defer logging.Close()
	log := logging.WithComponent("benchmark")

	if err := os.MkdirAll(s.outputDir, 0o750); err != nil {
		return "", errors.Wrapf(err, "create %s", s.outputDir)
	}
	dataDir, err := os.MkdirTemp(s.tempRoot, "heapstore-bench-")
	if err != nil {
		return "", errors.Wrap(err, "create data dir")
	}
	defer os.RemoveAll(dataDir)

	store, hf, err := setup(cfg, filepath.Join(dataDir, "users.dat"))
	if err != nil {
		return "", errors.Wrap(err, "setup")
	}
	defer store.Close()

	if err := load(store, hf, s.rows); err != nil {
		return "", errors.Wrapf(err, "load %d rows", s.rows)
	}
	log.WithField("rows", s.rows).Info("benchmark data loaded")

	report := BenchmarkReport{
		StartTime: time.Now(),
		PageSize:  cfg.PageSize,
		PoolPages: cfg.BufferPoolPages,
	}

	benchmarks := []struct {
		name       string
		run        workload
		concurrent bool
	}{
		{"insert", insertOne, false},
		{"full scan", scanAll, true},
		{"count", aggregate(aggregation.Count, aggregation.NoGrouping), true},
		{"avg group by age", aggregate(aggregation.Avg, 1), true},
	}

	for _, bench := range benchmarks {
		result := runBenchmark(store, hf, bench.name, bench.run, s.iterations, 1)
		report.Results = append(report.Results, result)
		printBenchmarkResult(result)

		if bench.concurrent {
			result := runBenchmark(store, hf, bench.name+" (concurrent)", bench.run, s.iterations, s.concurrency)
			report.Results = append(report.Results, result)
			printBenchmarkResult(result)
		}
	}

	report.EndTime = time.Now()
	report.TotalDuration = report.EndTime.Sub(report.StartTime)

	jsonFile := filepath.Join(s.outputDir, fmt.Sprintf("benchmark_report_%s.json", time.Now().Format("20060102_150405")))
	if err := saveJSONReport(report, jsonFile); err != nil {
		return "", err
	}
	log.WithFields(logrus.Fields{
		"tests":    len(report.Results),
		"duration": formatDuration(report.TotalDuration),
		"report":   jsonFile,
	}).Info("benchmark suite complete")
	return jsonFile, nil
}

func setup(cfg *config.Config, path string) (*memory.PageStore, *heap.HeapFile, error) {
	td, err := tuple.NewTupleDesc(
		[]types.Type{types.IntType, types.IntType, types.StringType},
		[]string{"id", "age", "name"},
	)
	if err != nil {
		return nil, nil, err
	}

	tables := memory.NewTableManager()
	store, err := memory.NewPageStore(cfg, tables)
	if err != nil {
		return nil, nil, err
	}
	hf, err := heap.NewHeapFile(primitives.Filepath(path), td, store)
	if err != nil {
		return nil, nil, err
	}
	if err := tables.AddTable("users", hf); err != nil {
		return nil, nil, err
	}
	return store, hf, nil
}

// load inserts rows in batches small enough that the dirty pages of one
// batch fit in the pool.
func load(store *memory.PageStore, hf *heap.HeapFile, rows int) error {
	const batch = 100
	for start := 0; start < rows; start += batch {
		tid := transaction.NewTransactionID()
		for i := start; i < min(start+batch, rows); i++ {
			if err := store.InsertTuple(tid, hf.GetID(), userRow(hf, i)); err != nil {
				_ = store.AbortTransaction(tid)
				return err
			}
		}
		if err := store.CommitTransaction(tid); err != nil {
			return err
		}
	}
	return nil
}

func userRow(hf *heap.HeapFile, i int) *tuple.Tuple {
	return tuple.NewBuilder(hf.GetTupleDesc()).
		AddInt(int32(i)).
		AddInt(int32(20 + i%50)).
		AddString("user" + strconv.Itoa(i)).
		MustBuild()
}

func insertOne(store *memory.PageStore, hf *heap.HeapFile, tid *transaction.TransactionID) error {
	return store.InsertTuple(tid, hf.GetID(), userRow(hf, 99999))
}

func scanAll(_ *memory.PageStore, hf *heap.HeapFile, tid *transaction.TransactionID) error {
	it := hf.Iterator(tid)
	if err := it.Open(); err != nil {
		return err
	}
	defer it.Close()
	_, err := iterator.Count(it)
	return err
}

func aggregate(op aggregation.AggregateOp, groupBy int) workload {
	return func(_ *memory.PageStore, hf *heap.HeapFile, tid *transaction.TransactionID) error {
		scan := iterator.NewFileScan(hf.Iterator(tid), hf.GetTupleDesc())
		agg, err := aggregation.NewAggregateOperator(scan, 1, groupBy, op)
		if err != nil {
			return err
		}
		if err := agg.Open(); err != nil {
			return err
		}
		defer agg.Close()
		_, err = iterator.Count(agg)
		return err
	}
}

// runBenchmark runs iterations transactions of fn, at most concurrent at a
// time. A failed transaction is aborted and counted as an error.
func runBenchmark(store *memory.PageStore, hf *heap.HeapFile, name string, fn workload, iterations, concurrent int) BenchmarkResult {
	durations := make([]time.Duration, 0, iterations)
	var mu sync.Mutex
	var wg sync.WaitGroup

	successCount := 0
	errorCount := 0
	errorSamples := make([]string, 0, 5)
	before := store.Stats()
	startTime := time.Now()

	sem := make(chan struct{}, concurrent)

	for range iterations {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			tid := transaction.NewTransactionID()
			txStart := time.Now()
			err := fn(store, hf, tid)
			if err == nil {
				err = store.CommitTransaction(tid)
			} else {
				_ = store.AbortTransaction(tid)
			}
			duration := time.Since(txStart)

			mu.Lock()
			durations = append(durations, duration)
			if err != nil {
				errorCount++
				if len(errorSamples) < 5 {
					errorSamples = append(errorSamples, err.Error())
				}
			} else {
				successCount++
			}
			mu.Unlock()
		}()
	}

	wg.Wait()
	result := summarize(durations, time.Since(startTime))
	result.Workload = name
	result.Concurrency = concurrent
	result.SuccessCount = successCount
	result.ErrorCount = errorCount
	result.ErrorSamples = errorSamples
	result.Pool = poolDelta(before, store.Stats())
	return result
}

// summarize computes latency percentiles and throughput.
func summarize(durations []time.Duration, total time.Duration) BenchmarkResult {
	result := BenchmarkResult{Iterations: len(durations), TotalDuration: total}
	if len(durations) == 0 {
		return result
	}

	slices.Sort(durations)
	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	n := len(durations)
	result.AvgDuration = sum / time.Duration(n)
	result.MinDuration = durations[0]
	result.MaxDuration = durations[n-1]
	result.MedianDuration = durations[n/2]
	result.P95Duration = durations[min(n-1, int(float64(n)*0.95))]
	result.P99Duration = durations[min(n-1, int(float64(n)*0.99))]
	if total > 0 {
		result.TxPerSecond = float64(n) / total.Seconds()
	}
	return result
}

func poolDelta(before, after memory.Stats) memory.Stats {
	return memory.Stats{
		Hits:      after.Hits - before.Hits,
		Misses:    after.Misses - before.Misses,
		Evictions: after.Evictions - before.Evictions,
		Flushes:   after.Flushes - before.Flushes,
		Resident:  after.Resident,
		Capacity:  after.Capacity,
	}
}

// formatDuration formats a duration in a human-readable way with appropriate units.
// Examples: 1.23ms, 456.78µs, 12.34s
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.2fms", float64(d.Microseconds())/1000.0)
	case d >= time.Microsecond:
		return fmt.Sprintf("%.2fµs", float64(d.Nanoseconds())/1000.0)
	default:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
}

func printBenchmarkResult(result BenchmarkResult) {
	entry := logging.WithComponent("benchmark").WithFields(logrus.Fields{
		"workload":    result.Workload,
		"concurrency": result.Concurrency,
		"avg":         formatDuration(result.AvgDuration),
		"p50":         formatDuration(result.MedianDuration),
		"p95":         formatDuration(result.P95Duration),
		"p99":         formatDuration(result.P99Duration),
		"tx_per_sec":  fmt.Sprintf("%.0f", result.TxPerSecond),
		"hits":        result.Pool.Hits,
		"misses":      result.Pool.Misses,
		"evictions":   result.Pool.Evictions,
	})

	if result.ErrorCount > 0 {
		entry.WithFields(logrus.Fields{
			"errors": result.ErrorCount,
			"sample": result.ErrorSamples[0],
		}).Warn("workload finished with failed transactions")
		return
	}
	entry.Info("workload finished")
}

func saveJSONReport(report BenchmarkReport, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal report")
	}
	return errors.Wrapf(os.WriteFile(path, data, 0o600), "write %s", path)
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return filepath.Clean(v)
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
