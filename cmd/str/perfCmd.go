package str

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	metrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/strandkv/strand/cmd/util"
	"github.com/strandkv/strand/lib/command"
	"github.com/strandkv/strand/lib/pipeliner"
)

// perfKeyPrefix marks every key written by the benchmarks so they never
// clash with real data and can be cleaned up afterwards.
const perfKeyPrefix = "__perf"

var (
	perfNumThreads       int
	perfLargeValueSizeKB int
	perfKeySpread        int
	perfSkip             []string
	perfCSVPath          string

	perfTestCmd = &cobra.Command{
		Use:   "perf",
		Short: "Runs benchmarks against a strand server",
		Long: util.WrapString(
			`Runs a set of benchmarks against the connected server and prints throughput and latency percentiles per operation. All keys are prefixed with __perf and deleted after each benchmark.`,
		),
		Args:    cobra.NoArgs,
		PreRunE: processPerfConfig,
		RunE:    runPerfTest,
	}
)

func init() {
	key := "threads"
	perfTestCmd.Flags().Int(key, 16, util.WrapString("Number of parallel workers per benchmark"))

	key = "large-value-size"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("Size of the value used by the set-large benchmark (in KB)"))

	key = "keys"
	perfTestCmd.Flags().Int(key, 1000, util.WrapString("Number of distinct keys each benchmark cycles through"))

	key = "skip"
	perfTestCmd.Flags().StringSlice(key, nil, util.WrapString("Benchmarks to skip (set, set-large, get, strlen, mixed, pipeline-get)"))

	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Path of a CSV file to write the results to"))
}

func processPerfConfig(_ *cobra.Command, _ []string) error {
	perfNumThreads = viper.GetInt("threads")
	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	perfKeySpread = viper.GetInt("keys")
	perfSkip = viper.GetStringSlice("skip")
	perfCSVPath = viper.GetString("csv")

	if perfNumThreads < 1 {
		return fmt.Errorf("threads must be at least 1")
	}
	if perfKeySpread < 1 {
		return fmt.Errorf("keys must be at least 1")
	}
	return nil
}

func runPerfTest(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	var (
		registry    = metrics.NewRegistry()
		results     = map[string]testing.BenchmarkResult{}
		timers      = map[string]metrics.Timer{}
		resultOrder []string
	)

	runBench := func(name string, bench func(b *testing.B, timer metrics.Timer)) {
		if slices.Contains(perfSkip, name) {
			fmt.Printf("%s: skipped\n", name)
			return
		}
		timer := metrics.GetOrRegisterTimer(name, registry)
		result := testing.Benchmark(func(b *testing.B) { bench(b, timer) })
		results[name] = result
		timers[name] = timer
		resultOrder = append(resultOrder, name)
		printResult(name, result, timer)
	}

	value := []byte("test")
	largeValue := make([]byte, perfLargeValueSizeKB*1024)

	runBench("set", func(b *testing.B, timer metrics.Timer) {
		getKey, iter := getKeys("set")
		b.Cleanup(func() { cleanupKeys(ctx, iter) })
		b.SetParallelism(perfNumThreads)
		b.ResetTimer()
		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				start := time.Now()
				_, err := rpcStore.Set(ctx, setCmdFor(getKey(counter), value))
				timer.UpdateSince(start)
				if err != nil {
					log.Printf("(set) - error setting key: %v\n", err)
				}
				counter++
			}
		})
	})

	runBench("set-large", func(b *testing.B, timer metrics.Timer) {
		getKey, iter := getKeys("set-large")
		b.Cleanup(func() { cleanupKeys(ctx, iter) })
		b.SetParallelism(perfNumThreads)
		b.ResetTimer()
		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				start := time.Now()
				_, err := rpcStore.Set(ctx, setCmdFor(getKey(counter), largeValue))
				timer.UpdateSince(start)
				if err != nil {
					log.Printf("(set-large) - error setting key: %v\n", err)
				}
				counter++
			}
		})
	})

	runBench("get", func(b *testing.B, timer metrics.Timer) {
		getKey, iter := getKeys("get")
		seedKeys(ctx, iter, value)
		b.Cleanup(func() { cleanupKeys(ctx, iter) })
		b.SetParallelism(perfNumThreads)
		b.ResetTimer()
		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				start := time.Now()
				_, err := rpcStore.Get(ctx, keyCmdFor(getKey(counter)))
				timer.UpdateSince(start)
				if err != nil {
					log.Printf("(get) - error getting key: %v\n", err)
				}
				counter++
			}
		})
	})

	runBench("strlen", func(b *testing.B, timer metrics.Timer) {
		getKey, iter := getKeys("strlen")
		seedKeys(ctx, iter, value)
		b.Cleanup(func() { cleanupKeys(ctx, iter) })
		b.SetParallelism(perfNumThreads)
		b.ResetTimer()
		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				start := time.Now()
				_, err := rpcStore.StrLen(ctx, keyCmdFor(getKey(counter)))
				timer.UpdateSince(start)
				if err != nil {
					log.Printf("(strlen) - error reading length: %v\n", err)
				}
				counter++
			}
		})
	})

	runBench("mixed", func(b *testing.B, timer metrics.Timer) {
		getKey, iter := getKeys("mixed")
		seedKeys(ctx, iter, value)
		b.Cleanup(func() { cleanupKeys(ctx, iter) })
		b.SetParallelism(perfNumThreads)
		b.ResetTimer()
		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				var err error
				start := time.Now()
				switch counter % 4 {
				case 0:
					_, err = rpcStore.Set(ctx, setCmdFor(getKey(counter), value))
				case 1:
					_, err = rpcStore.Get(ctx, keyCmdFor(getKey(counter)))
				case 2:
					_, err = rpcStore.StrLen(ctx, keyCmdFor(getKey(counter)))
				case 3:
					_, err = rpcStore.GetDel(ctx, keyCmdFor(getKey(counter)))
				}
				timer.UpdateSince(start)
				if err != nil {
					log.Printf("(mixed) - error running op: %v\n", err)
				}
				counter++
			}
		})
	})

	// Throughput of the pipelined path. Per-command latency is not sampled
	// here, so the timer stays empty and only ns/op is reported.
	runBench("pipeline-get", func(b *testing.B, _ metrics.Timer) {
		getKey, iter := getKeys("pipeline-get")
		seedKeys(ctx, iter, value)
		b.Cleanup(func() { cleanupKeys(ctx, iter) })
		p := pipeliner.NewPipeliner(rpcStore, perfNumThreads)
		b.ResetTimer()

		in := make(chan command.KeyCommand)
		go func() {
			defer close(in)
			for i := 0; i < b.N; i++ {
				in <- keyCmdFor(getKey(i))
			}
		}()
		for resp := range p.Get(ctx, in) {
			if err := resp.Err(); err != nil {
				log.Printf("(pipeline-get) - error getting key: %v\n", err)
			}
		}
	})

	if perfCSVPath != "" {
		if err := writeResultsToCSV(resultOrder, results, timers); err != nil {
			return fmt.Errorf("failed to write csv: %w", err)
		}
		fmt.Printf("results written to %s\n", perfCSVPath)
	}
	return nil
}

func printResult(name string, result testing.BenchmarkResult, timer metrics.Timer) {
	opsPerSec := float64(result.N) / result.T.Seconds()
	fmt.Printf("%s:\n", name)
	fmt.Printf("  %d ops in %s (%.0f ops/sec, %s/op)\n",
		result.N, result.T.Round(time.Millisecond), opsPerSec, time.Duration(result.NsPerOp()))
	if timer.Count() > 0 {
		ps := timer.Percentiles([]float64{0.5, 0.95, 0.99})
		fmt.Printf("  latency p50=%s p95=%s p99=%s\n",
			time.Duration(ps[0]), time.Duration(ps[1]), time.Duration(ps[2]))
	}
}

// getKeys returns a key generator cycling through perfKeySpread distinct
// keys for the given benchmark, and an iterator over all of them.
func getKeys(prefix string) (func(int) string, func(func(string))) {
	numKeys := perfKeySpread
	getKey := func(i int) string {
		return fmt.Sprintf("%s-%s-%d", perfKeyPrefix, prefix, i%numKeys)
	}
	iter := func(fn func(string)) {
		for i := 0; i < numKeys; i++ {
			fn(getKey(i))
		}
	}
	return getKey, iter
}

func seedKeys(ctx context.Context, iter func(func(string)), value []byte) {
	iter(func(k string) {
		if _, err := rpcStore.Set(ctx, setCmdFor(k, value)); err != nil {
			log.Printf("seed - error setting key %s: %v\n", k, err)
		}
	})
}

func cleanupKeys(ctx context.Context, iter func(func(string))) {
	iter(func(k string) {
		if _, err := rpcStore.GetDel(ctx, keyCmdFor(k)); err != nil {
			log.Printf("cleanup - error deleting key %s: %v\n", k, err)
		}
	})
}

// Benchmark keys are generated and never empty, construction cannot fail.

func setCmdFor(key string, value []byte) command.SetCommand {
	c, _ := command.Set([]byte(key))
	c, _ = c.WithValue(value)
	return c
}

func keyCmdFor(key string) command.KeyCommand {
	c, _ := command.NewKey([]byte(key))
	return c
}

func writeResultsToCSV(order []string, results map[string]testing.BenchmarkResult, timers map[string]metrics.Timer) error {
	file, err := os.Create(perfCSVPath)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	config := util.GetClientConfig()
	header := []string{
		"Test", "Ops", "NsPerOp", "OpsPerSec", "P50Ns", "P95Ns", "P99Ns",
		"Endpoints", "TimeoutSec", "Retries", "ConnectionsPerEndpoint",
		"Database", "Serializer", "Transport", "Threads", "LargeValueSizeKB", "Keys",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, name := range order {
		result := results[name]
		ps := timers[name].Percentiles([]float64{0.5, 0.95, 0.99})
		record := []string{
			name,
			strconv.Itoa(result.N),
			strconv.FormatInt(result.NsPerOp(), 10),
			strconv.FormatFloat(float64(result.N)/result.T.Seconds(), 'f', 0, 64),
			strconv.FormatFloat(ps[0], 'f', 0, 64),
			strconv.FormatFloat(ps[1], 'f', 0, 64),
			strconv.FormatFloat(ps[2], 'f', 0, 64),
			strings.Join(config.Endpoints, " "),
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.RetryCount),
			strconv.Itoa(config.ConnectionsPerEndpoint),
			strconv.FormatUint(util.GetDatabaseID(), 10),
			viper.GetString("serializer"),
			viper.GetString("transport"),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfLargeValueSizeKB),
			strconv.Itoa(perfKeySpread),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	return nil
}
