package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/opensource-finance/ticpe/internal/api"
	"github.com/opensource-finance/ticpe/internal/domain"
	"github.com/opensource-finance/ticpe/internal/engine"
	"github.com/opensource-finance/ticpe/internal/reference"
)

func newBenchServer(t *testing.T) *httptest.Server {
	t.Helper()
	eng, err := engine.New(nil, reference.Default())
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	cfg := domain.ServerConfig{Host: "localhost", Port: 8080, ReadTimeout: 30, WriteTimeout: 30}
	srv := httptest.NewServer(api.NewServer(cfg, nil, nil, nil, eng, nil).Router())
	t.Cleanup(srv.Close)
	return srv
}

func labeledSessions(t *testing.T) []Session {
	t.Helper()
	freight, err := parseSession([]byte(freightSession))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	amount := 5496.0
	return []Session{
		{ID: "freight", Responses: freight.Responses, Expected: &Expectation{Eligible: true, EstimatedRecovery: &amount}},
		{ID: "retail", Responses: []domain.Response{
			{QuestionID: "secteur_activite", Value: "Commerce de détail"},
		}, Expected: &Expectation{Eligible: true}},
		{ID: "unlabeled", Responses: freight.Responses},
	}
}

func TestRunBench(t *testing.T) {
	srv := newBenchServer(t)
	opts := benchOptions{baseURL: srv.URL, tenantID: "bench", workers: 2, tolerance: 1}
	client := &http.Client{Timeout: 5 * time.Second}

	m := runBench(context.Background(), client, labeledSessions(t), opts, nil)

	if m.Processed != 3 || m.Labeled != 2 || m.Errors != 0 {
		t.Fatalf("unexpected counts: %+v", m)
	}
	if m.TruePositives != 1 || m.FalseNegatives != 1 || m.FalsePositives != 0 || m.TrueNegatives != 0 {
		t.Errorf("unexpected confusion matrix: %+v", m)
	}
	if m.AmountChecked != 1 || m.AmountMatched != 1 {
		t.Errorf("unexpected estimate checks: %+v", m)
	}

	t.Run("InvalidTenant", func(t *testing.T) {
		opts := opts
		opts.tenantID = "bad tenant!"
		m := runBench(context.Background(), client, labeledSessions(t), opts, nil)
		if m.Errors != 3 || m.Labeled != 0 {
			t.Errorf("expected every request to fail, got %+v", m)
		}
	})
}

func TestPrintBenchResults(t *testing.T) {
	var out bytes.Buffer
	m := &BenchMetrics{
		TruePositives: 3, FalsePositives: 1, TrueNegatives: 4, FalseNegatives: 2,
		Processed: 10, Labeled: 10, LatencyMs: 50,
	}
	printBenchResults(&out, m, time.Second)

	for _, want := range []string{"Precision:  0.7500", "Recall:     0.6000", "Accuracy:   0.7000", "Avg latency: 5.00 ms"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
	if strings.Contains(out.String(), "ESTIMATES") {
		t.Error("estimates section printed without amount checks")
	}
}

func TestBenchCommand(t *testing.T) {
	srv := newBenchServer(t)
	path := writeFile(t, t.TempDir(), "sessions.json",
		`[{"id": "s1", "responses": [], "expected": {"eligible": false}}]`)

	out, err := execute(t, "bench", "--quiet", "--url", srv.URL, path)
	if err != nil {
		t.Fatalf("bench failed: %v", err)
	}
	if !strings.Contains(out, "Accuracy:   1.0000") {
		t.Errorf("unexpected output:\n%s", out)
	}

	t.Run("Unreachable", func(t *testing.T) {
		closed := httptest.NewServer(http.NotFoundHandler())
		closed.Close()
		if _, err := execute(t, "bench", "--quiet", "--url", closed.URL, path); err == nil {
			t.Error("expected error for unreachable service")
		}
	})
}
