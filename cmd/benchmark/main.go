// Benchmark tool for testing ScamShield against a labeled query dataset.
//
// Usage:
//   go run cmd/benchmark/main.go -csv /path/to/queries.csv -url http://localhost:8080
//
// The CSV has two columns: query,label where label is "scam" or "safe".
// This tool:
//   1. Sends each query to POST /check
//   2. Compares the verdict with the label (non-SAFE counts as scam)
//   3. Calculates precision, recall, F1-score, and confusion matrix
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// LabeledQuery is a row from the benchmark dataset.
type LabeledQuery struct {
	Query  string
	IsScam bool
}

// CheckRequest is the ScamShield API request format.
type CheckRequest struct {
	Query string `json:"query"`
}

// CheckResponse is the subset of the ScamShield response the benchmark reads.
type CheckResponse struct {
	RiskLevel       string `json:"riskLevel"`
	IdentityScore   int    `json:"identityScore"`
	ServedFromCache bool   `json:"servedFromCache"`
}

// Metrics tracks benchmark results.
type Metrics struct {
	TruePositives  int64 // scam flagged as non-SAFE
	FalsePositives int64 // safe flagged as non-SAFE
	TrueNegatives  int64 // safe flagged as SAFE
	FalseNegatives int64 // scam flagged as SAFE (missed!)

	TotalProcessed int64
	TotalErrors    int64
	CacheHits      int64
}

func main() {
	csvPath := flag.String("csv", "", "Path to labeled query CSV file")
	baseURL := flag.String("url", "http://localhost:8080", "ScamShield base URL")
	limit := flag.Int("limit", 10000, "Maximum queries to process (0 = all)")
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	dangerousOnly := flag.Bool("dangerous-only", false, "Count only DANGEROUS as a scam prediction")
	verbose := flag.Bool("verbose", false, "Print each query result")
	flag.Parse()

	if *csvPath == "" {
		fmt.Println("Usage: benchmark -csv /path/to/queries.csv [-url http://localhost:8080]")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║          SCAMSHIELD BENCHMARK - Labeled Query Replay          ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	fmt.Printf("\nCSV File:        %s\n", *csvPath)
	fmt.Printf("ScamShield URL:  %s\n", *baseURL)
	fmt.Printf("Workers:         %d\n", *workers)
	fmt.Printf("Limit:           %d\n", *limit)
	fmt.Printf("Dangerous only:  %v\n", *dangerousOnly)
	fmt.Println()

	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: ScamShield not reachable at %s: %v\n", *baseURL, err)
		os.Exit(1)
	}

	queries, err := loadQueries(*csvPath, *limit)
	if err != nil {
		fmt.Printf("ERROR: failed to load dataset: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded %d labeled queries\n\n", len(queries))

	var metrics Metrics
	start := time.Now()

	jobs := make(chan LabeledQuery)
	var wg sync.WaitGroup
	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 30 * time.Second}
			for q := range jobs {
				processQuery(client, *baseURL, q, *dangerousOnly, *verbose, &metrics)
			}
		}()
	}

	for _, q := range queries {
		jobs <- q
	}
	close(jobs)
	wg.Wait()

	elapsed := time.Since(start)
	printResults(&metrics, elapsed)
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health returned status %d", resp.StatusCode)
	}
	return nil
}

func loadQueries(path string, limit int) ([]LabeledQuery, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 2

	var queries []LabeledQuery
	first := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		// Skip header row
		if first {
			first = false
			if strings.EqualFold(record[0], "query") {
				continue
			}
		}

		queries = append(queries, LabeledQuery{
			Query:  record[0],
			IsScam: strings.EqualFold(strings.TrimSpace(record[1]), "scam"),
		})

		if limit > 0 && len(queries) >= limit {
			break
		}
	}

	return queries, nil
}

func processQuery(client *http.Client, baseURL string, q LabeledQuery, dangerousOnly, verbose bool, m *Metrics) {
	payload, _ := json.Marshal(CheckRequest{Query: q.Query})

	resp, err := client.Post(baseURL+"/check", "application/json", bytes.NewReader(payload))
	if err != nil {
		atomic.AddInt64(&m.TotalErrors, 1)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		atomic.AddInt64(&m.TotalErrors, 1)
		return
	}

	var result CheckResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		atomic.AddInt64(&m.TotalErrors, 1)
		return
	}

	atomic.AddInt64(&m.TotalProcessed, 1)
	if result.ServedFromCache {
		atomic.AddInt64(&m.CacheHits, 1)
	}

	predicted := result.RiskLevel != "SAFE"
	if dangerousOnly {
		predicted = result.RiskLevel == "DANGEROUS"
	}

	switch {
	case q.IsScam && predicted:
		atomic.AddInt64(&m.TruePositives, 1)
	case q.IsScam && !predicted:
		atomic.AddInt64(&m.FalseNegatives, 1)
	case !q.IsScam && predicted:
		atomic.AddInt64(&m.FalsePositives, 1)
	default:
		atomic.AddInt64(&m.TrueNegatives, 1)
	}

	if verbose {
		fmt.Printf("%-40s label=%-5v level=%-9s score=%d\n",
			q.Query, q.IsScam, result.RiskLevel, result.IdentityScore)
	}
}

func printResults(m *Metrics, elapsed time.Duration) {
	tp := float64(m.TruePositives)
	fp := float64(m.FalsePositives)
	fn := float64(m.FalseNegatives)

	precision := 0.0
	if tp+fp > 0 {
		precision = tp / (tp + fp)
	}
	recall := 0.0
	if tp+fn > 0 {
		recall = tp / (tp + fn)
	}
	f1 := 0.0
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}

	throughput := float64(m.TotalProcessed) / elapsed.Seconds()

	fmt.Println("\n═══════════════════════ RESULTS ═══════════════════════")
	fmt.Printf("Processed:      %d (errors: %d)\n", m.TotalProcessed, m.TotalErrors)
	fmt.Printf("Elapsed:        %s (%.1f req/s)\n", elapsed.Round(time.Millisecond), throughput)
	fmt.Printf("Cache hits:     %d\n", m.CacheHits)
	fmt.Println()
	fmt.Println("Confusion matrix:")
	fmt.Printf("  True positives:   %d\n", m.TruePositives)
	fmt.Printf("  False positives:  %d\n", m.FalsePositives)
	fmt.Printf("  True negatives:   %d\n", m.TrueNegatives)
	fmt.Printf("  False negatives:  %d (missed scams!)\n", m.FalseNegatives)
	fmt.Println()
	fmt.Printf("Precision:      %.3f\n", precision)
	fmt.Printf("Recall:         %.3f\n", recall)
	fmt.Printf("F1-score:       %.3f\n", f1)
}
