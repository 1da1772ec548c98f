package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketRegime/internal/domain/models"
	"MarketRegime/internal/usecase"
	"MarketRegime/pkg/config"
	applogger "MarketRegime/pkg/logger"
)

type fakeRunner struct {
	mu   sync.Mutex
	reqs []models.RunRequest
	err  error
}

func (f *fakeRunner) RunNow(_ context.Context, req models.RunRequest) (models.RunSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	return models.RunSummary{RunID: "r1", OK: 2}, f.err
}

func schedule(cron, tz string) config.ScheduleConfig {
	on := true
	return config.ScheduleConfig{Enabled: &on, Cron: cron, Timezone: tz}
}

func TestNew_Rejects(t *testing.T) {
	_, err := New(schedule("not a cron", "UTC"), time.Minute, &fakeRunner{}, applogger.NewNop())
	assert.Error(t, err)

	_, err = New(schedule("30 16 * * 1-5", "Mars/Olympus"), time.Minute, &fakeRunner{}, applogger.NewNop())
	assert.Error(t, err)
}

func TestFire_TagsRequest(t *testing.T) {
	runner := &fakeRunner{}
	s, err := New(schedule("30 16 * * 1-5", "Asia/Kolkata"), time.Minute, runner, applogger.NewNop())
	require.NoError(t, err)

	s.fire()
	runner.err = usecase.ErrRunInProgress
	s.fire()

	require.Len(t, runner.reqs, 2)
	assert.Equal(t, RequestedBy, runner.reqs[0].RequestedBy)
	assert.Empty(t, runner.reqs[0].Symbols)
}

func TestStartStop_NextInZone(t *testing.T) {
	s, err := New(schedule("30 16 * * 1-5", "Asia/Kolkata"), time.Minute, &fakeRunner{}, applogger.NewNop())
	require.NoError(t, err)

	s.Start()
	next := s.Next()
	require.False(t, next.IsZero())

	loc, _ := time.LoadLocation("Asia/Kolkata")
	local := next.In(loc)
	assert.Equal(t, 16, local.Hour())
	assert.Equal(t, 30, local.Minute())
	assert.NotEqual(t, time.Saturday, local.Weekday())
	assert.NotEqual(t, time.Sunday, local.Weekday())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}
