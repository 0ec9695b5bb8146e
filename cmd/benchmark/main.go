// Benchmark tool for exercising Accord with synthetic consultations.
//
// Usage:
//
//	go run cmd/benchmark/main.go -url http://localhost:8080 -count 5000
//
// This tool:
//  1. Generates randomized consultation sessions (machine vs self bands
//     plus sampled follow-up answers from the rule catalog)
//  2. Sends each session to Accord's /reconcile endpoint
//  3. Compares the server's OK/REFER status with a local engine run
//     on the same inputs
//  4. Calculates agreement, referral rates, latency, and throughput
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/clearskin/accord/internal/catalog"
	"github.com/clearskin/accord/internal/domain"
	"github.com/clearskin/accord/internal/engine"
)

// Consultation is one synthetic benchmark case with its locally
// computed expected outcome.
type Consultation struct {
	ID           string
	MachineBands map[string]string
	SelfBands    map[string]string
	Answers      map[string]domain.Answers
	Profile      domain.Profile

	ExpectRefer   bool
	ExpectUpdates int
}

// ReconcileRequest matches Accord's /reconcile request format.
type ReconcileRequest struct {
	MachineBands map[string]string         `json:"machineBands"`
	SelfBands    map[string]string         `json:"selfBands"`
	Answers      map[string]domain.Answers `json:"answers"`
	Profile      domain.Profile            `json:"profile,omitempty"`
}

// ReconcileResponse matches Accord's /reconcile response format.
type ReconcileResponse struct {
	ReconciliationID string                 `json:"reconciliationId"`
	Status           string                 `json:"status"` // "OK" or "REFER"
	Updates          map[string]domain.Band `json:"updates"`
	ReferralReasons  []string               `json:"referralReasons"`
}

// Metrics tracks benchmark results.
type Metrics struct {
	AgreeRefer int64 // Both local and server said REFER
	AgreeOK    int64 // Both said OK
	OnlyServer int64 // Server REFER, local OK
	OnlyLocal  int64 // Local REFER, server OK

	UpdateMismatches int64 // Band update maps differ in size

	TotalProcessed int64
	TotalRefer     int64
	TotalErrors    int64

	ProcessingTimeMs int64
}

func main() {
	// Parse flags
	baseURL := flag.String("url", "http://localhost:8080", "Accord base URL")
	clinicID := flag.String("clinic", "benchmark-clinic", "Clinic ID for requests")
	count := flag.Int("count", 5000, "Number of consultations to generate")
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	disagree := flag.Float64("disagree", 0.6, "Fraction of band pairs forced into disagreement (0.0-1.0)")
	seed := flag.Int64("seed", 42, "Random seed for reproducible runs")
	verbose := flag.Bool("verbose", false, "Print each consultation result")
	flag.Parse()

	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║       ACCORD BENCHMARK - Synthetic Band Reconciliation        ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	fmt.Printf("\nAccord URL:    %s\n", *baseURL)
	fmt.Printf("Clinic ID:     %s\n", *clinicID)
	fmt.Printf("Consultations: %d\n", *count)
	fmt.Printf("Workers:       %d\n", *workers)
	fmt.Printf("Disagree Rate: %.2f\n", *disagree)
	fmt.Printf("Seed:          %d\n", *seed)
	fmt.Println()

	// Check Accord is running
	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: Accord not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure Accord is running:")
		fmt.Println("  go run cmd/accord/main.go")
		os.Exit(1)
	}
	fmt.Println("✓ Accord is healthy")

	// Generate synthetic consultations with a local engine as oracle
	fmt.Printf("\nGenerating %d consultations...\n", *count)
	consultations := generateConsultations(*count, *disagree, *seed)
	fmt.Printf("✓ Generated %d consultations\n", len(consultations))

	referCount := 0
	for _, c := range consultations {
		if c.ExpectRefer {
			referCount++
		}
	}
	fmt.Printf("  - Expected REFER: %d (%.2f%%)\n", referCount, 100*float64(referCount)/float64(len(consultations)))
	fmt.Printf("  - Expected OK:    %d (%.2f%%)\n", len(consultations)-referCount, 100*float64(len(consultations)-referCount)/float64(len(consultations)))

	// Run benchmark
	fmt.Printf("\nRunning benchmark with %d workers...\n", *workers)
	startTime := time.Now()
	metrics := runBenchmark(consultations, *baseURL, *clinicID, *workers, *verbose)
	duration := time.Since(startTime)

	// Print results
	printResults(metrics, duration)
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// generateConsultations builds synthetic sessions and runs the local
// engine over each to record the expected outcome.
func generateConsultations(count int, disagreeRate float64, seed int64) []Consultation {
	rng := rand.New(rand.NewSource(seed))
	rules := catalog.Default()
	eng := engine.New(rules)
	bandKeys := domain.ResolvableBandKeys()
	low := []domain.Band{domain.BandGreen, domain.BandBlue}
	high := []domain.Band{domain.BandYellow, domain.BandRed}

	consultations := make([]Consultation, 0, count)

	for i := 0; i < count; i++ {
		machine := make(map[string]string)
		self := make(map[string]string)

		for _, key := range bandKeys {
			// Leave some attributes unmeasured
			if rng.Float64() < 0.15 {
				continue
			}

			if rng.Float64() < disagreeRate {
				// Force a disagreement, direction chosen at random
				if rng.Intn(2) == 0 {
					machine[key] = string(high[rng.Intn(len(high))])
					self[key] = string(low[rng.Intn(len(low))])
				} else {
					machine[key] = string(low[rng.Intn(len(low))])
					self[key] = string(high[rng.Intn(len(high))])
				}
			} else {
				// Agreement: both sides from the same half
				side := low
				if rng.Intn(2) == 0 {
					side = high
				}
				machine[key] = string(side[rng.Intn(len(side))])
				self[key] = string(side[rng.Intn(len(side))])
			}
		}

		profile := domain.Profile{Age: 18 + rng.Intn(50)}

		// Sample answers for every rule the pair matches
		machineReadings := parseReadings(machine)
		selfReadings := parseReadings(self)
		answers := make(map[string]domain.Answers)
		for _, match := range eng.Match(machineReadings, selfReadings) {
			rule, ok := eng.Rule(match.RuleID)
			if !ok || len(rule.Questions) == 0 {
				continue
			}
			answers[rule.ID] = sampleAnswers(rng, rule)
		}

		// Run the local engine as the oracle
		result := eng.AggregateAll(machineReadings, selfReadings, answers, profile)

		consultations = append(consultations, Consultation{
			ID:            fmt.Sprintf("bench-%06d", i),
			MachineBands:  machine,
			SelfBands:     self,
			Answers:       answers,
			Profile:       profile,
			ExpectRefer:   hasReferralFlag(result),
			ExpectUpdates: len(result.Updates),
		})
	}

	return consultations
}

// sampleAnswers picks a random option for each of the rule's
// questions; multi-select questions may get one or two options.
func sampleAnswers(rng *rand.Rand, rule *domain.Rule) domain.Answers {
	answers := make(domain.Answers, len(rule.Questions))
	for _, q := range rule.Questions {
		if len(q.Options) == 0 {
			continue
		}
		if q.Multi && rng.Intn(2) == 0 && len(q.Options) > 1 {
			first := rng.Intn(len(q.Options))
			second := rng.Intn(len(q.Options))
			if second == first {
				second = (second + 1) % len(q.Options)
			}
			answers[q.ID] = domain.Answer{q.Options[first], q.Options[second]}
		} else {
			answers[q.ID] = domain.Answer{q.Options[rng.Intn(len(q.Options))]}
		}
	}
	return answers
}

func parseReadings(raw map[string]string) domain.Readings {
	out := make(domain.Readings, len(raw))
	for key, val := range raw {
		if band, ok := domain.ParseBand(val); ok {
			out[key] = band
		}
	}
	return out
}

func hasReferralFlag(result *domain.AggregateResult) bool {
	for _, dec := range result.PerRule {
		if dec == nil {
			continue
		}
		for _, f := range dec.Flags {
			if strings.HasPrefix(f, domain.ReferralFlagPrefix) {
				return true
			}
		}
	}
	return false
}

func runBenchmark(consultations []Consultation, baseURL, clinicID string, numWorkers int, verbose bool) *Metrics {
	metrics := &Metrics{}

	// Create work channel
	work := make(chan Consultation, 100)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 10 * time.Second}

			for c := range work {
				start := time.Now()
				result, err := reconcile(client, baseURL, clinicID, c)
				elapsed := time.Since(start).Milliseconds()

				atomic.AddInt64(&metrics.ProcessingTimeMs, elapsed)
				atomic.AddInt64(&metrics.TotalProcessed, 1)

				if err != nil {
					atomic.AddInt64(&metrics.TotalErrors, 1)
					if verbose {
						fmt.Printf("ERROR: %s -> %v\n", c.ID, err)
					}
					continue
				}

				serverRefer := result.Status == domain.StatusRefer
				if serverRefer {
					atomic.AddInt64(&metrics.TotalRefer, 1)
				}

				// Agreement matrix against the local oracle
				if serverRefer && c.ExpectRefer {
					atomic.AddInt64(&metrics.AgreeRefer, 1)
				} else if serverRefer && !c.ExpectRefer {
					atomic.AddInt64(&metrics.OnlyServer, 1)
				} else if !serverRefer && !c.ExpectRefer {
					atomic.AddInt64(&metrics.AgreeOK, 1)
				} else { // !serverRefer && c.ExpectRefer
					atomic.AddInt64(&metrics.OnlyLocal, 1)
				}

				if len(result.Updates) != c.ExpectUpdates {
					atomic.AddInt64(&metrics.UpdateMismatches, 1)
				}

				if verbose {
					status := "✓"
					if serverRefer != c.ExpectRefer || len(result.Updates) != c.ExpectUpdates {
						status = "✗"
					}
					fmt.Printf("%s %s | Bands: %d/%d | Rules answered: %d | Server: %-5s | Local refer: %-5v | Updates: %d/%d\n",
						status,
						c.ID,
						len(c.MachineBands),
						len(c.SelfBands),
						len(c.Answers),
						result.Status,
						c.ExpectRefer,
						len(result.Updates),
						c.ExpectUpdates,
					)
				}
			}
		}()
	}

	// Send work
	for _, c := range consultations {
		work <- c
	}
	close(work)

	// Wait for completion
	wg.Wait()

	return metrics
}

func reconcile(client *http.Client, baseURL, clinicID string, c Consultation) (*ReconcileResponse, error) {
	req := ReconcileRequest{
		MachineBands: c.MachineBands,
		SelfBands:    c.SelfBands,
		Answers:      c.Answers,
		Profile:      c.Profile,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequest(http.MethodPost, baseURL+"/reconcile", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Clinic-ID", clinicID)

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var result ReconcileResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return &result, nil
}

func printResults(m *Metrics, duration time.Duration) {
	fmt.Println("\n╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                      BENCHMARK RESULTS                        ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")

	fmt.Printf("\n📊 RUN STATISTICS\n")
	fmt.Printf("   Total Processed:  %d\n", m.TotalProcessed)
	fmt.Printf("   Server REFER:     %d\n", m.TotalRefer)
	fmt.Printf("   Errors:           %d\n", m.TotalErrors)

	fmt.Printf("\n📈 AGREEMENT MATRIX (server vs local engine)\n")
	fmt.Println("                        Server")
	fmt.Println("                   REFER        OK")
	fmt.Println("              ┌──────────┬──────────┐")
	fmt.Printf("   Local  R   │ %8d │ %8d │\n", m.AgreeRefer, m.OnlyLocal)
	fmt.Println("              ├──────────┼──────────┤")
	fmt.Printf("          OK  │ %8d │ %8d │\n", m.OnlyServer, m.AgreeOK)
	fmt.Println("              └──────────┴──────────┘")

	total := m.AgreeRefer + m.AgreeOK + m.OnlyServer + m.OnlyLocal
	agreement := float64(0)
	if total > 0 {
		agreement = float64(m.AgreeRefer+m.AgreeOK) / float64(total)
	}

	fmt.Printf("\n🎯 CONSISTENCY\n")
	fmt.Printf("   Status Agreement:  %.4f\n", agreement)
	fmt.Printf("   Status Mismatches: %d\n", m.OnlyServer+m.OnlyLocal)
	fmt.Printf("   Update Mismatches: %d\n", m.UpdateMismatches)

	fmt.Printf("\n⏱️  PERFORMANCE\n")
	fmt.Printf("   Total Duration:   %v\n", duration.Round(time.Millisecond))
	if m.TotalProcessed > 0 {
		avgMs := float64(m.ProcessingTimeMs) / float64(m.TotalProcessed)
		rps := float64(m.TotalProcessed) / duration.Seconds()
		fmt.Printf("   Avg Latency:      %.2f ms\n", avgMs)
		fmt.Printf("   Throughput:       %.2f req/sec\n", rps)
	}

	fmt.Printf("\n💡 INTERPRETATION\n")
	if total > 0 && m.OnlyServer+m.OnlyLocal == 0 && m.UpdateMismatches == 0 {
		fmt.Println("   ✅ Server output matches the local engine exactly")
	} else if agreement >= 0.99 {
		fmt.Println("   ⚠️  Near-perfect agreement - investigate the few mismatches")
	} else {
		fmt.Println("   ❌ Server and local engine disagree - catalog versions may differ")
	}

	fmt.Println()
}
