// Command loadtest drives a running search server with concurrent find and
// match requests and prints latency, status code and cache statistics.
//
// With -seed it first posts a generated corpus so the queries have
// something to hit.
//
// Usage:
//
//	go run ./cmd/loadtest [-url http://localhost:8080] [-concurrency 10] [-duration 30s] [-seed 500]
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Seed        int
	Queries     []string
}

type Stats struct {
	totalRequests atomic.Int64
	successCount  atomic.Int64
	errorCount    atomic.Int64
	cacheHits     atomic.Int64
	zeroResults   atomic.Int64
	latencies     []time.Duration
	latenciesMu   sync.Mutex
	statusCodes   map[int]*atomic.Int64
	statusCodesMu sync.Mutex
}

func NewStats() *Stats {
	return &Stats{
		latencies:   make([]time.Duration, 0, 100000),
		statusCodes: make(map[int]*atomic.Int64),
	}
}

func (s *Stats) RecordRequest(duration time.Duration, statusCode int, err error) {
	s.totalRequests.Add(1)

	if err != nil {
		s.errorCount.Add(1)
		return
	}

	if statusCode >= 200 && statusCode < 300 {
		s.successCount.Add(1)
	} else {
		s.errorCount.Add(1)
	}

	s.latenciesMu.Lock()
	s.latencies = append(s.latencies, duration)
	s.latenciesMu.Unlock()

	s.statusCodesMu.Lock()
	if _, ok := s.statusCodes[statusCode]; !ok {
		s.statusCodes[statusCode] = &atomic.Int64{}
	}
	s.statusCodes[statusCode].Add(1)
	s.statusCodesMu.Unlock()
}

var vocabulary = []string{
	"funny", "pet", "nasty", "rat", "curly", "hair", "white", "cat",
	"fluffy", "tail", "dog", "collar", "sparrow", "groomed", "eyes",
	"starling", "parrot", "very", "not", "big",
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the search server")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	seed := flag.Int("seed", 0, "number of generated documents to add before the run")
	flag.Parse()

	cfg := Config{
		BaseURL:     strings.TrimRight(*baseURL, "/"),
		Concurrency: *concurrency,
		Duration:    *duration,
		Seed:        *seed,
		Queries: []string{
			"funny pet",
			"nasty rat -not",
			"curly hair -rat",
			"white cat fluffy tail",
			"big dog -collar",
			"very funny nasty pet",
			"sparrow starling",
			"parrot",
		},
	}

	fmt.Println("=== Search Server Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Queries:     %d unique\n", len(cfg.Queries))
	fmt.Println()

	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	if cfg.Seed > 0 {
		added, err := seedDocuments(client, cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "seeding failed after %d documents: %v\n", added, err)
			os.Exit(1)
		}
		fmt.Printf("Seeded %d documents\n\n", added)
	}

	stats := runLoadTest(client, cfg)
	printReport(stats, cfg.Duration)
}

// seedDocuments posts cfg.Seed random documents with ids counting up from
// the time of the run, so repeated runs do not collide.
func seedDocuments(client *http.Client, cfg Config) (int, error) {
	base := int(time.Now().Unix() % 1_000_000 * 1000)
	rng := rand.New(rand.NewPCG(uint64(base), 7))
	statuses := []string{"ACTUAL", "ACTUAL", "ACTUAL", "IRRELEVANT", "BANNED"}

	for i := range cfg.Seed {
		words := make([]string, 3+rng.IntN(8))
		for j := range words {
			words[j] = vocabulary[rng.IntN(len(vocabulary))]
		}
		body, err := json.Marshal(map[string]any{
			"id":      base + i,
			"text":    strings.Join(words, " "),
			"status":  statuses[rng.IntN(len(statuses))],
			"ratings": []int{rng.IntN(21) - 10, rng.IntN(21) - 10},
		})
		if err != nil {
			return i, err
		}
		resp, err := client.Post(cfg.BaseURL+"/api/v1/documents", "application/json", bytes.NewReader(body))
		if err != nil {
			return i, err
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			return i, fmt.Errorf("document %d: status %d", base+i, resp.StatusCode)
		}
	}
	return cfg.Seed, nil
}

func runLoadTest(client *http.Client, cfg Config) *Stats {
	stats := NewStats()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	fmt.Print("Running")
	var g errgroup.Group
	for w := range cfg.Concurrency {
		g.Go(func() error {
			queryIdx := w
			for ctx.Err() == nil {
				query := cfg.Queries[queryIdx%len(cfg.Queries)]
				policy := "seq"
				if queryIdx%2 == 1 {
					policy = "par"
				}
				queryIdx++

				target := fmt.Sprintf("%s/api/v1/search?q=%s&policy=%s",
					cfg.BaseURL, url.QueryEscape(query), policy)
				if queryIdx%10 == 0 {
					target = fmt.Sprintf("%s/api/v1/match?q=%s&id=%d&policy=%s",
						cfg.BaseURL, url.QueryEscape(query), queryIdx, policy)
				}
				doRequest(ctx, client, target, stats)
			}
			return nil
		})
	}

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	}()

	_ = g.Wait()
	fmt.Println(" done!")
	fmt.Println()
	return stats
}

func doRequest(ctx context.Context, client *http.Client, target string, stats *Stats) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		panic(fmt.Sprintf("creating request: %v", err))
	}

	start := time.Now()
	resp, err := client.Do(req)
	duration := time.Since(start)
	if err != nil {
		if ctx.Err() == nil {
			stats.RecordRequest(duration, 0, err)
		}
		return
	}
	defer resp.Body.Close()

	var body struct {
		Results  []json.RawMessage `json:"results"`
		CacheHit bool              `json:"cache_hit"`
	}
	if resp.StatusCode == http.StatusOK && strings.Contains(target, "/search") {
		if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
			if body.CacheHit {
				stats.cacheHits.Add(1)
			}
			if len(body.Results) == 0 {
				stats.zeroResults.Add(1)
			}
		}
	}
	io.Copy(io.Discard, resp.Body)
	stats.RecordRequest(duration, resp.StatusCode, nil)
}

func printReport(stats *Stats, duration time.Duration) {
	total := stats.totalRequests.Load()
	success := stats.successCount.Load()
	errors := stats.errorCount.Load()

	fmt.Println("=== Results ===")
	fmt.Printf("Total Requests:  %d\n", total)
	fmt.Printf("Successful:      %d\n", success)
	fmt.Printf("Errors:          %d\n", errors)
	fmt.Printf("Cache Hits:      %d\n", stats.cacheHits.Load())
	fmt.Printf("Zero Results:    %d\n", stats.zeroResults.Load())

	if total > 0 {
		errorRate := float64(errors) / float64(total) * 100
		fmt.Printf("Error Rate:      %.2f%%\n", errorRate)
		rps := float64(total) / duration.Seconds()
		fmt.Printf("Requests/sec:    %.2f\n", rps)
	}

	stats.latenciesMu.Lock()
	latencies := slices.Clone(stats.latencies)
	stats.latenciesMu.Unlock()

	if len(latencies) > 0 {
		slices.Sort(latencies)

		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		avg := sum / time.Duration(len(latencies))

		fmt.Println()
		fmt.Println("=== Latency ===")
		fmt.Printf("Min:    %s\n", latencies[0])
		fmt.Printf("Avg:    %s\n", avg)
		fmt.Printf("P50:    %s\n", percentile(latencies, 50))
		fmt.Printf("P90:    %s\n", percentile(latencies, 90))
		fmt.Printf("P95:    %s\n", percentile(latencies, 95))
		fmt.Printf("P99:    %s\n", percentile(latencies, 99))
		fmt.Printf("Max:    %s\n", latencies[len(latencies)-1])

		var sumSquared float64
		avgFloat := float64(avg)
		for _, l := range latencies {
			diff := float64(l) - avgFloat
			sumSquared += diff * diff
		}
		stddev := time.Duration(math.Sqrt(sumSquared / float64(len(latencies))))
		fmt.Printf("StdDev: %s\n", stddev)
	}

	fmt.Println()
	fmt.Println("=== Status Codes ===")
	stats.statusCodesMu.Lock()
	codes := make([]int, 0, len(stats.statusCodes))
	for code := range stats.statusCodes {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	for _, code := range codes {
		fmt.Printf("  %d: %d\n", code, stats.statusCodes[code].Load())
	}
	stats.statusCodesMu.Unlock()

	if total == 0 {
		fmt.Println()
		fmt.Println("WARNING: No requests completed. Is the search server running?")
		os.Exit(1)
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	return sorted[max(0, min(idx, len(sorted)-1))]
}
