package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/khovattu/khovattu/internal/inventory"
	jobmetrics "github.com/khovattu/khovattu/internal/jobs"
)

type stubAuditor struct {
	issues []inventory.IntegrityIssue
	low    []inventory.LowStockItem
	err    error
	calls  int
}

func (s *stubAuditor) VerifyIntegrity(context.Context) ([]inventory.IntegrityIssue, error) {
	s.calls++
	return s.issues, s.err
}

func (s *stubAuditor) LowStock(context.Context) ([]inventory.LowStockItem, error) {
	s.calls++
	return s.low, s.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestIntegrityJobReportsMismatches(t *testing.T) {
	auditor := &stubAuditor{issues: []inventory.IntegrityIssue{
		{WarehouseID: 1, ProductID: 2, Balance: decimal.NewFromInt(5), MovementTotal: decimal.NewFromInt(4)},
	}}
	j := NewInventoryJobs(auditor, quietLogger(), jobmetrics.NewMetrics(prometheus.NewRegistry()))

	require.NoError(t, j.HandleIntegrity(context.Background(), NewInventoryIntegrityTask()))
	require.Equal(t, 1, auditor.calls)
}

func TestLowStockJobPropagatesFailure(t *testing.T) {
	boom := errors.New("db down")
	j := NewInventoryJobs(&stubAuditor{err: boom}, quietLogger(), nil)

	err := j.HandleLowStock(context.Background(), NewInventoryLowStockTask())
	require.ErrorIs(t, err, boom)
}

func TestJobsRequireAuditor(t *testing.T) {
	var j *InventoryJobs
	require.Error(t, j.HandleIntegrity(context.Background(), NewInventoryIntegrityTask()))
	require.Error(t, (&InventoryJobs{}).HandleLowStock(context.Background(), NewInventoryLowStockTask()))
}

func TestHandlersCoverBothTasks(t *testing.T) {
	j := NewInventoryJobs(&stubAuditor{}, nil, nil)
	var types []string
	for _, h := range j.Handlers() {
		types = append(types, h.Type)
		require.NotNil(t, h.Handler)
	}
	require.ElementsMatch(t, []string{TaskInventoryIntegrity, TaskInventoryLowStock}, types)
}

func TestNewWorkerRejectsBadCron(t *testing.T) {
	_, err := NewWorker(WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: "127.0.0.1:1"},
		Cron:      []CronRegistration{{Spec: "not a cron", Task: NewInventoryLowStockTask()}},
	})
	require.Error(t, err)
}

func TestHealthWithoutInspector(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(nil, quietLogger()).MountRoutes(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"queue":"default","pending":0,"active":0,"failed":0}`, rr.Body.String())
}
