/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/acronis/go-asyncrest/restclient"
)

var (
	bold  = color.New(color.Bold)
	green = color.New(color.FgGreen)
	red   = color.New(color.FgRed)
)

const outcomeSuccess = "success"

type outcomeStats struct {
	outcome   string
	latencies []time.Duration
}

type report struct {
	total         int
	succeeded     int
	elapsed       time.Duration
	maxConcurrent int
	pacingDelay   time.Duration
	outcomes      []*outcomeStats
	statusCodes   map[int]int
	firstFailures []string
}

const maxReportedFailures = 5

func newReport(samples []sample, elapsed time.Duration, cfg *restclient.Config) *report {
	r := &report{
		total:         len(samples),
		elapsed:       elapsed,
		maxConcurrent: cfg.MaxConcurrentRequests,
		pacingDelay:   cfg.PacingDelay,
		statusCodes:   make(map[int]int),
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].key < samples[j].key })

	byOutcome := make(map[string]*outcomeStats)
	for _, s := range samples {
		outcome := outcomeSuccess
		if s.result.IsFailure() {
			outcome = s.result.Kind().String()
			if code, err := s.result.StatusCode(); err == nil {
				r.statusCodes[code]++
			}
			if len(r.firstFailures) < maxReportedFailures {
				msg, _ := s.result.ErrorMessage()
				r.firstFailures = append(r.firstFailures, fmt.Sprintf("#%d %s: %s", s.key, outcome, msg))
			}
		} else {
			r.succeeded++
		}
		st, ok := byOutcome[outcome]
		if !ok {
			st = &outcomeStats{outcome: outcome}
			byOutcome[outcome] = st
			r.outcomes = append(r.outcomes, st)
		}
		st.latencies = append(st.latencies, s.latency)
	}
	sort.Slice(r.outcomes, func(i, j int) bool {
		if len(r.outcomes[i].latencies) != len(r.outcomes[j].latencies) {
			return len(r.outcomes[i].latencies) > len(r.outcomes[j].latencies)
		}
		return r.outcomes[i].outcome < r.outcomes[j].outcome
	})
	for _, st := range r.outcomes {
		sort.Slice(st.latencies, func(i, j int) bool { return st.latencies[i] < st.latencies[j] })
	}
	return r
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}

func formatLatency(d time.Duration) string {
	switch {
	case d >= time.Second:
		return d.Round(time.Millisecond).String()
	case d >= time.Millisecond:
		return d.Round(10 * time.Microsecond).String()
	}
	return d.Round(time.Microsecond).String()
}

func renderReport(w io.Writer, r *report) error {
	limit := "unbounded"
	if r.maxConcurrent > 0 {
		limit = strconv.Itoa(r.maxConcurrent)
	}
	_, _ = bold.Fprintln(w, "LOAD SUMMARY")
	_, _ = fmt.Fprintf(w, "requests: %d, elapsed: %s, throughput: %.1f req/s, max in flight: %s, pacing delay: %s\n",
		r.total, r.elapsed.Round(time.Millisecond), float64(r.total)/r.elapsed.Seconds(), limit, r.pacingDelay)

	table := tablewriter.NewWriter(w)
	table.Header("Outcome", "Count", "Share", "P50", "P95", "P99", "Max")
	for _, st := range r.outcomes {
		n := len(st.latencies)
		_ = table.Append(
			st.outcome,
			strconv.Itoa(n),
			fmt.Sprintf("%.1f%%", float64(n)*100/float64(r.total)),
			formatLatency(percentile(st.latencies, 0.50)),
			formatLatency(percentile(st.latencies, 0.95)),
			formatLatency(percentile(st.latencies, 0.99)),
			formatLatency(st.latencies[n-1]),
		)
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("render outcomes table: %w", err)
	}

	if len(r.statusCodes) != 0 {
		codes := make([]int, 0, len(r.statusCodes))
		for code := range r.statusCodes {
			codes = append(codes, code)
		}
		sort.Ints(codes)
		statusTable := tablewriter.NewWriter(w)
		statusTable.Header("Status", "Count")
		for _, code := range codes {
			_ = statusTable.Append(strconv.Itoa(code), strconv.Itoa(r.statusCodes[code]))
		}
		if err := statusTable.Render(); err != nil {
			return fmt.Errorf("render status codes table: %w", err)
		}
	}

	for _, f := range r.firstFailures {
		_, _ = red.Fprintln(w, f)
	}
	if r.succeeded == r.total {
		_, _ = green.Fprintf(w, "all %d requests succeeded\n", r.total)
	} else {
		_, _ = red.Fprintf(w, "%d of %d requests failed\n", r.total-r.succeeded, r.total)
	}
	return nil
}
