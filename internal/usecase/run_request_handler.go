package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"MarketRegime/internal/domain/models"
	domrepo "MarketRegime/internal/domain/repository"
	pkgkafka "MarketRegime/pkg/kafka"
	applogger "MarketRegime/pkg/logger"
)

// Runner runs the pipeline synchronously. PipelineRunner implements it.
type Runner interface {
	RunNow(ctx context.Context, req models.RunRequest) (models.RunSummary, error)
}

var requestValidator = validator.New()

// RunRequestHandler triggers a pipeline run for every message on the
// run-requests topic. Undecodable or invalid payloads are permanent
// failures and go straight to the DLQ. A busy runner is retried.
type RunRequestHandler struct {
	topic   string
	runner  Runner
	metrics domrepo.Metrics
	l       *applogger.Logger
}

var _ pkgkafka.MessageHandler = (*RunRequestHandler)(nil)

func NewRunRequestHandler(topic string, runner Runner, metrics domrepo.Metrics, l *applogger.Logger) *RunRequestHandler {
	return &RunRequestHandler{topic: topic, runner: runner, metrics: metrics, l: l}
}

func (h *RunRequestHandler) Topic() string { return h.topic }

func (h *RunRequestHandler) Handle(ctx context.Context, b []byte) error {
	var req models.RunRequest
	if err := json.Unmarshal(b, &req); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return pkgkafka.Permanent(fmt.Errorf("decode run request: %w", err))
	}
	if err := requestValidator.Struct(req); err != nil {
		h.metrics.RecordError("consumer_validate")
		return pkgkafka.Permanent(fmt.Errorf("invalid run request: %w", err))
	}
	if req.RequestedBy == "" {
		req.RequestedBy = "kafka"
	}

	summary, err := h.runner.RunNow(ctx, req)
	if err != nil {
		return err
	}
	h.l.Info("run request handled",
		applogger.String("run_id", summary.RunID),
		applogger.String("requested_by", req.RequestedBy),
		applogger.Int("ok", summary.OK),
		applogger.Int("failed", summary.Failed),
	)
	return nil
}
