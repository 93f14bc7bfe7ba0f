package query

import (
	"encoding/csv"
	"fmt"
	"github.com/ValentinKolb/climastro/cmd/util"
	"github.com/ValentinKolb/climastro/lib/forecast"
	"github.com/ValentinKolb/climastro/rpc/client"
	"github.com/ValentinKolb/climastro/rpc/common"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"os"
	"strconv"
	"sync/atomic"
	"time"
)

var (
	perfCmd = &cobra.Command{
		Use:   "perf",
		Short: "Load test a climastro service",
		Long:  "Sends --requests requests from --threads concurrent clients to the service selected with --target (echo, weather, horoscope, aggregate) and prints latency statistics.",
		RunE:  runPerf,
	}
)

func init() {
	key := "target"
	perfCmd.Flags().String(key, "aggregate", util.WrapString("The service to test (echo, weather, horoscope, aggregate)"))
	key = "threads"
	perfCmd.Flags().Int(key, 10, util.WrapString("Number of concurrent clients"))
	key = "requests"
	perfCmd.Flags().Int(key, 1000, util.WrapString("Total number of requests"))
	key = "csv"
	perfCmd.Flags().String(key, "", util.WrapString("Optional path to save the results as CSV"))
}

// perfResult is the outcome of one load test
type perfResult struct {
	Target   string
	Threads  int
	Requests int
	Failed   int64
	Elapsed  time.Duration
	Timer    gometrics.Timer
}

func runPerf(_ *cobra.Command, _ []string) error {
	config := util.GetClientConfig("")
	target := viper.GetString("target")
	threads := viper.GetInt("threads")
	requests := viper.GetInt("requests")

	if threads <= 0 || requests <= 0 {
		return fmt.Errorf("threads and requests must be positive")
	}

	request, err := perfRequest(target, config)
	if err != nil {
		return err
	}

	fmt.Println("Performance testing tool for climastro services")
	fmt.Println(config.String())
	fmt.Printf("Target: %s, Threads: %d, Requests: %d\n\n", target, threads, requests)

	result := perfResult{
		Target:   target,
		Threads:  threads,
		Requests: requests,
		Timer:    gometrics.NewTimer(),
	}

	var failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(threads)

	start := time.Now()
	for i := 0; i < requests; i++ {
		g.Go(func() error {
			t := time.Now()
			if err := request(i); err != nil {
				if failed.Add(1) == 1 {
					fmt.Printf("(%s) - first error: %v\n", target, err)
				}
				return nil
			}
			result.Timer.UpdateSince(t)
			return nil
		})
	}
	_ = g.Wait()

	result.Elapsed = time.Since(start)
	result.Failed = failed.Load()
	printPerfResult(result)

	if path := viper.GetString("csv"); path != "" {
		if err := writePerfCSV(path, result, config); err != nil {
			return err
		}
		fmt.Printf("results written to %s\n", path)
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// perfRequest returns a function sending the i-th request to target
func perfRequest(target string, config common.ClientConfig) (func(i int) error, error) {
	today := time.Now()

	switch target {
	case "echo":
		c := client.NewEchoClient(config)
		return func(i int) error {
			_, err := c.Echo(fmt.Sprintf("perf-%d", i))
			return err
		}, nil
	case "weather":
		c := client.NewWeatherClient(config)
		return func(i int) error {
			_, err := c.Get(common.NewDate(today.AddDate(0, 0, i%forecast.Days)))
			return err
		}, nil
	case "horoscope":
		c := client.NewHoroscopeClient(config)
		return func(i int) error {
			_, err := c.Get(perfQuery(today, i))
			return err
		}, nil
	case "aggregate":
		c := client.NewAggregateClient(config)
		return func(i int) error {
			_, err := c.Get(perfQuery(today, i))
			return err
		}, nil
	default:
		return nil, fmt.Errorf("invalid target %s (expected one of: echo, weather, horoscope, aggregate)", target)
	}
}

// perfQuery spreads the requests over all days and signs
func perfQuery(today time.Time, i int) common.Query {
	return common.Query{
		Date: today.AddDate(0, 0, i%forecast.Days).Format(forecast.DateLayout),
		Sign: forecast.Sign(i % int(forecast.NumSigns)).String(),
	}
}

// printPerfResult prints the result of a load test in a formatted way
func printPerfResult(r perfResult) {
	ok := r.Timer.Count()
	opsPerSec := float64(ok) / r.Elapsed.Seconds()

	fmt.Printf("%-12s%d ok, %d failed in %s\t%.0f ops/sec\n", r.Target, ok, r.Failed, r.Elapsed.Round(time.Millisecond), opsPerSec)
	fmt.Printf("%-12smean %s, p50 %s, p99 %s, max %s\n", "",
		time.Duration(r.Timer.Mean()),
		time.Duration(r.Timer.Percentile(0.5)),
		time.Duration(r.Timer.Percentile(0.99)),
		time.Duration(r.Timer.Max()),
	)
}

// writePerfCSV writes the result of a load test to a CSV file
func writePerfCSV(path string, r perfResult, config common.ClientConfig) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	header := []string{
		"Target", "Endpoint", "TimeoutSec", "Threads", "Requests", "Failed",
		"ElapsedNs", "MeanNs", "P50Ns", "P99Ns", "MaxNs",
	}
	row := []string{
		r.Target,
		config.Endpoint(),
		strconv.Itoa(config.TimeoutSecond),
		strconv.Itoa(r.Threads),
		strconv.Itoa(r.Requests),
		strconv.FormatInt(r.Failed, 10),
		strconv.FormatInt(r.Elapsed.Nanoseconds(), 10),
		fmt.Sprintf("%.0f", r.Timer.Mean()),
		fmt.Sprintf("%.0f", r.Timer.Percentile(0.5)),
		fmt.Sprintf("%.0f", r.Timer.Percentile(0.99)),
		strconv.FormatInt(r.Timer.Max(), 10),
	}

	if err := writer.WriteAll([][]string{header, row}); err != nil {
		return fmt.Errorf("failed to write CSV: %v", err)
	}
	return nil
}
