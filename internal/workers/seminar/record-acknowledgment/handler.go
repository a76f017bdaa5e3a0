// internal/workers/seminar/record-acknowledgment/handler.go
package recordacknowledgment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"seminar-workers/internal/common/gate"
	"seminar-workers/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "record-acknowledgment"
)

var (
	ErrRecordFailed = errors.New("QUERY_EXECUTION_FAILED")
)

// Handler stores the evaluator's acknowledgment of the seminar
// conditions. Recording twice is harmless, the second call just reports
// firstTime false.
type Handler struct {
	config *Config
	gate   *gate.Gate
	logger logger.Logger
}

func NewHandler(config *Config, g *gate.Gate, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		gate:   g,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, "PARSE_ERROR", fmt.Sprintf("parse input: %v", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.failJob(client, job, "QUERY_EXECUTION_FAILED", err.Error())
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, fmt.Errorf("input cannot be nil")
	}
	if input.SeminarID == 0 || input.EvaluatorID == 0 {
		return nil, fmt.Errorf("%w: seminarId and evaluatorId required", ErrRecordFailed)
	}

	firstTime, err := h.gate.Record(ctx, input.SeminarID, input.EvaluatorID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecordFailed, err)
	}

	h.logger.Info("acknowledgment recorded", map[string]interface{}{
		"seminarId":   input.SeminarID,
		"evaluatorId": input.EvaluatorID,
		"firstTime":   firstTime,
	})

	return &Output{
		SeminarID:    input.SeminarID,
		EvaluatorID:  input.EvaluatorID,
		Acknowledged: true,
		FirstTime:    firstTime,
	}, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, errorCode, errorMessage string) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":       job.Key,
		"errorCode":    errorCode,
		"errorMessage": errorMessage,
	})

	_, err := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(errorCode).
		ErrorMessage(errorMessage).
		Send(context.Background())
	if err != nil {
		h.logger.Error("failed to throw error", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
