package presenter

import (
	"encoding/json"

	"github.com/johnquangdev/call-coach/internal/adapter/dto/run"
	"github.com/johnquangdev/call-coach/internal/domain/entities"
)

// ToRunResponse converts a PipelineRun entity to RunResponse DTO
func ToRunResponse(r *entities.PipelineRun) *run.RunResponse {
	if r == nil {
		return nil
	}

	// Stage results are large; history only needs the outcome of each stage
	var stages []run.StageSummary
	if len(r.Stages) > 0 {
		_ = json.Unmarshal(r.Stages, &stages)
	}
	if stages == nil {
		stages = []run.StageSummary{}
	}

	response := &run.RunResponse{
		ID:         r.ID.String(),
		Trigger:    r.Trigger,
		Status:     string(r.Status),
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		DurationMs: r.DurationMs,
		Stages:     stages,
	}
	for _, s := range stages {
		if !s.Success {
			response.Failed = append(response.Failed, s.Stage)
		}
	}

	return response
}

// ToRunResponses converts a list of runs
func ToRunResponses(runs []*entities.PipelineRun) []*run.RunResponse {
	out := make([]*run.RunResponse, 0, len(runs))
	for _, r := range runs {
		out = append(out, ToRunResponse(r))
	}
	return out
}
