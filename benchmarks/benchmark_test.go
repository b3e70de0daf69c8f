package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heapstore/pkg/config"
	"heapstore/pkg/execution/aggregation"
	"heapstore/pkg/logging"
)

func TestSummarize(t *testing.T) {
	var durations []time.Duration
	for i := 100; i >= 1; i-- {
		durations = append(durations, time.Duration(i)*time.Millisecond)
	}

	r := summarize(durations, 2*time.Second)
	assert.Equal(t, 100, r.Iterations)
	assert.Equal(t, time.Millisecond, r.MinDuration)
	assert.Equal(t, 100*time.Millisecond, r.MaxDuration)
	assert.Equal(t, 51*time.Millisecond, r.MedianDuration)
	assert.Equal(t, 96*time.Millisecond, r.P95Duration)
	assert.Equal(t, 100*time.Millisecond, r.P99Duration)
	assert.InDelta(t, 50.0, r.TxPerSecond, 0.001)

	assert.Zero(t, summarize(nil, time.Second).AvgDuration)
}

func TestRunBenchmark(t *testing.T) {
	cfg := config.Default()
	cfg.BufferPoolPages = 16
	store, hf, err := setup(cfg, filepath.Join(t.TempDir(), "users.dat"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, load(store, hf, 300))

	r := runBenchmark(store, hf, "count", aggregate(aggregation.Count, aggregation.NoGrouping), 20, 4)
	assert.Equal(t, 20, r.SuccessCount, "%v", r.ErrorSamples)
	assert.Zero(t, r.ErrorCount)
	assert.Equal(t, 4, r.Concurrency)

	r = runBenchmark(store, hf, "insert", insertOne, 5, 1)
	assert.Equal(t, 5, r.SuccessCount, "%v", r.ErrorSamples)
	assert.NotZero(t, r.Pool.Flushes, "commits force dirty pages")
}

func TestSuiteRun_WritesReport(t *testing.T) {
	require.NoError(t, logging.Close())
	s := suite{
		outputDir:   t.TempDir(),
		tempRoot:    t.TempDir(),
		iterations:  4,
		concurrency: 2,
		rows:        60,
	}

	path, err := s.run()
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var report BenchmarkReport
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Len(t, report.Results, 7)
	for _, r := range report.Results {
		assert.Zero(t, r.ErrorCount, "%s: %v", r.Workload, r.ErrorSamples)
	}

	scratch, err := os.ReadDir(s.tempRoot)
	require.NoError(t, err)
	assert.Empty(t, scratch, "data directory is removed")
}

func TestSuiteRun_CleansUpOnFailure(t *testing.T) {
	require.NoError(t, logging.Close())
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "tiny.ini")
	require.NoError(t, os.WriteFile(cfgPath, []byte("[bufferpool]\npages = 1\n"), 0o600))

	s := suite{
		outputDir:   filepath.Join(dir, "out"),
		configPath:  cfgPath,
		tempRoot:    t.TempDir(),
		iterations:  1,
		concurrency: 1,
		rows:        200,
	}

	// one batch needs several pages but only one frame exists
	_, err := s.run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load 200 rows")

	scratch, err := os.ReadDir(s.tempRoot)
	require.NoError(t, err)
	assert.Empty(t, scratch, "data directory is removed after a failed load")
}
