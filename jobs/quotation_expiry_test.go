package jobs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bsm/redislock"
	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/odyssey-erp/backoffice/internal/jobs"
	"github.com/odyssey-erp/backoffice/internal/shared"
)

type stubSweeper struct {
	calls   int
	days    []time.Time
	expired int
	err     error
}

func (s *stubSweeper) ExpireSweep(_ context.Context, today time.Time) (int, error) {
	s.calls++
	s.days = append(s.days, today)
	return s.expired, s.err
}

func newLocker(t *testing.T) *redislock.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redislock.New(client)
}

func newJob(t *testing.T, sweeper Sweeper, locker *redislock.Client) *QuotationExpiryJob {
	t.Helper()
	job := NewQuotationExpiryJob(sweeper, locker, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	job.clock = func() time.Time { return time.Date(2024, 6, 2, 0, 5, 0, 0, time.UTC) }
	return job
}

func TestQuotationExpiryRunsSweep(t *testing.T) {
	sweeper := &stubSweeper{expired: 3}
	job := newJob(t, sweeper, newLocker(t))

	task, err := NewQuotationExpireTask(QuotationExpirePayload{})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 1, sweeper.calls)
	require.Equal(t, "2024-06-02", sweeper.days[0].Format("2006-01-02"))

	// Lock is released after the run.
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 2, sweeper.calls)
}

func TestQuotationExpiryHonoursPayloadDay(t *testing.T) {
	sweeper := &stubSweeper{}
	job := newJob(t, sweeper, nil)

	task, err := NewQuotationExpireTask(QuotationExpirePayload{Day: "2024-01-31"})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), sweeper.days[0])
}

func TestQuotationExpirySkipsWhileLocked(t *testing.T) {
	locker := newLocker(t)
	held, err := locker.Obtain(context.Background(), quotationSweepLockKey, time.Minute, nil)
	require.NoError(t, err)
	defer func() { _ = held.Release(context.Background()) }()

	sweeper := &stubSweeper{}
	job := newJob(t, sweeper, locker)
	task, err := NewQuotationExpireTask(QuotationExpirePayload{})
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	require.Zero(t, sweeper.calls)
}

func TestQuotationExpiryRejectsBadPayload(t *testing.T) {
	sweeper := &stubSweeper{}
	job := newJob(t, sweeper, nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskQuotationExpire, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	bad, err := NewQuotationExpireTask(QuotationExpirePayload{Day: "31/01/2024"})
	require.NoError(t, err)
	require.ErrorIs(t, job.Handle(context.Background(), bad), asynq.SkipRetry)
	require.Zero(t, sweeper.calls)
}

func TestQuotationExpiryPropagatesSweepError(t *testing.T) {
	boom := errors.New("db down")
	job := newJob(t, &stubSweeper{err: boom}, nil)
	task, err := NewQuotationExpireTask(QuotationExpirePayload{})
	require.NoError(t, err)
	require.ErrorIs(t, job.Handle(context.Background(), task), boom)
}

func TestJobsHealthWithoutInspector(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(nil, nil, nil).MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"queue":"default","pending":0}`, rec.Body.String())
}

type stubEnqueuer struct {
	payloads []QuotationExpirePayload
	err      error
}

func (s *stubEnqueuer) EnqueueQuotationExpire(_ context.Context, payload QuotationExpirePayload) (*asynq.TaskInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.payloads = append(s.payloads, payload)
	return &asynq.TaskInfo{ID: "task-1", Queue: QueueDefault}, nil
}

func triggerRequest(role, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/jobs/quotations/expire", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	actor := shared.Actor{ID: 1, Role: shared.ParseRole(role)}
	return req.WithContext(shared.ContextWithActor(req.Context(), actor))
}

func TestTriggerQuotationExpire(t *testing.T) {
	enq := &stubEnqueuer{}
	r := chi.NewRouter()
	NewHandler(nil, enq, nil).MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, triggerRequest("ADMIN", `{"day":"2024-06-01"}`))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	require.JSONEq(t, `{"taskId":"task-1","queue":"default"}`, rec.Body.String())
	require.Equal(t, "2024-06-01", enq.payloads[0].Day)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, triggerRequest("USER", ""))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, triggerRequest("ADMIN", `{"day":"yesterday"}`))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Len(t, enq.payloads, 1)

	enq.err = asynq.ErrDuplicateTask
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, triggerRequest("SUPERADMIN", ""))
	require.Equal(t, http.StatusConflict, rec.Code)
}
