package jobs

import (
	"context"
	"fmt"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"

	"github.com/cloud-companion/cloud-companion/internal/config"
	"github.com/cloud-companion/cloud-companion/internal/repositories"
	"github.com/cloud-companion/cloud-companion/internal/telemetry"
)

type fakeQuerier struct {
	results [][]map[string]any
	err     error
	params  []map[string]any
}

func (f *fakeQuerier) ExecuteRead(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	f.params = append(f.params, params)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.results) == 0 {
		return nil, nil
	}
	r := f.results[0]
	f.results = f.results[1:]
	return r, nil
}

func (f *fakeQuerier) ExecuteWrite(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	return nil, nil
}

func gaugeValue(t *testing.T) float64 {
	t.Helper()
	var m dto.Metric
	if err := telemetry.APIKeysExpiringSoon.Write(&m); err != nil {
		t.Fatalf("reading gauge: %v", err)
	}
	return m.GetGauge().GetValue()
}

func TestNewKeyExpirySweeper_Defaults(t *testing.T) {
	s := NewKeyExpirySweeper(repositories.NewAPIKeyRepository(&fakeQuerier{}), &config.JobsConfig{})

	if s.interval != 24*time.Hour {
		t.Errorf("interval = %v, want 24h", s.interval)
	}
	if s.window != 7*24*time.Hour {
		t.Errorf("window = %v, want 168h", s.window)
	}
}

func TestNewKeyExpirySweeper_Configured(t *testing.T) {
	s := NewKeyExpirySweeper(repositories.NewAPIKeyRepository(&fakeQuerier{}), &config.JobsConfig{
		KeyExpiryCheckIntervalHr: 6,
		KeyExpiryWarningDays:     14,
	})

	if s.interval != 6*time.Hour {
		t.Errorf("interval = %v, want 6h", s.interval)
	}
	if s.window != 14*24*time.Hour {
		t.Errorf("window = %v, want 336h", s.window)
	}
}

func TestRunSweep_SetsGauge(t *testing.T) {
	q := &fakeQuerier{results: [][]map[string]any{{
		{"id": "key-1", "name": "ci", "status": "active"},
		{"id": "key-2", "name": "staging", "status": "active"},
	}}}
	s := NewKeyExpirySweeper(repositories.NewAPIKeyRepository(q), &config.JobsConfig{})

	s.runSweep(context.Background())

	if got := gaugeValue(t); got != 2 {
		t.Errorf("gauge = %v, want 2", got)
	}
	if len(q.params) != 1 {
		t.Fatalf("expected one query, got %d", len(q.params))
	}
}

func TestRunSweep_NoExpiringKeys(t *testing.T) {
	s := NewKeyExpirySweeper(repositories.NewAPIKeyRepository(&fakeQuerier{}), &config.JobsConfig{})

	s.runSweep(context.Background())

	if got := gaugeValue(t); got != 0 {
		t.Errorf("gauge = %v, want 0", got)
	}
}

func TestRunSweep_QueryErrorKeepsGauge(t *testing.T) {
	telemetry.APIKeysExpiringSoon.Set(3)
	q := &fakeQuerier{err: fmt.Errorf("bolt connection refused")}
	s := NewKeyExpirySweeper(repositories.NewAPIKeyRepository(q), &config.JobsConfig{})

	s.runSweep(context.Background())

	// A failed sweep must not zero the gauge and mask a real backlog.
	if got := gaugeValue(t); got != 3 {
		t.Errorf("gauge = %v, want 3", got)
	}
}

func TestStart_DisabledReturnsImmediately(t *testing.T) {
	s := NewKeyExpirySweeper(repositories.NewAPIKeyRepository(&fakeQuerier{}), &config.JobsConfig{KeyExpirySweepEnabled: false})

	done := make(chan struct{})
	go func() {
		s.Start(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return for a disabled sweeper")
	}
}

func TestStart_StopEndsLoop(t *testing.T) {
	s := NewKeyExpirySweeper(repositories.NewAPIKeyRepository(&fakeQuerier{}), &config.JobsConfig{
		KeyExpirySweepEnabled:    true,
		KeyExpiryCheckIntervalHr: 1,
	})

	done := make(chan struct{})
	go func() {
		s.Start(context.Background())
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	s.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Stop")
	}
}
