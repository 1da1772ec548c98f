package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketRegime/internal/domain/models"
	pkgkafka "MarketRegime/pkg/kafka"
	applogger "MarketRegime/pkg/logger"
)

type stubRunner struct {
	got []models.RunRequest
	err error
}

func (s *stubRunner) RunNow(_ context.Context, req models.RunRequest) (models.RunSummary, error) {
	s.got = append(s.got, req)
	if s.err != nil {
		return models.RunSummary{}, s.err
	}
	return models.RunSummary{RunID: "run-1", OK: len(req.Symbols)}, nil
}

func TestRunRequestHandler(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		runErr    error
		permanent bool
		wantErr   bool
		wantRuns  int
	}{
		{name: "valid request triggers a run", payload: `{"symbols":["TCS.NS"],"requested_by":"ops"}`, wantRuns: 1},
		{name: "empty symbols means the whole universe", payload: `{}`, wantRuns: 1},
		{name: "bad json goes straight to the dlq", payload: `{"symbols":`, wantErr: true, permanent: true},
		{name: "blank symbol is invalid", payload: `{"symbols":[""]}`, wantErr: true, permanent: true},
		{name: "busy runner is retried", payload: `{}`, runErr: ErrRunInProgress, wantErr: true, wantRuns: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &stubRunner{err: tt.runErr}
			h := NewRunRequestHandler("market.run-requests", runner, newFakeMetrics(), applogger.NewNop())
			assert.Equal(t, "market.run-requests", h.Topic())

			err := h.Handle(context.Background(), []byte(tt.payload))
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.permanent, pkgkafka.IsPermanent(err))
			} else {
				require.NoError(t, err)
			}
			require.Len(t, runner.got, tt.wantRuns)
			if tt.wantRuns > 0 && tt.runErr == nil {
				assert.NotEmpty(t, runner.got[0].RequestedBy)
			}
		})
	}
}
