package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dottraffic/backend/internal/classifier"
	"github.com/dottraffic/backend/internal/metrics"
	"github.com/dottraffic/backend/internal/model"
	"github.com/dottraffic/backend/internal/repository"
)

// TriageServiceImpl は TriageService の実装。出力の形は外部の自動化が依存しているため変えないこと。
type TriageServiceImpl struct {
	classifier   classifier.Classifier
	instructions classifier.Instructions
	allocator    AllocatorService
	projects     ProjectStoreService
	opts         Options
}

// NewTriageService は TriageServiceImpl を生成する
func NewTriageService(c classifier.Classifier, instructions classifier.Instructions, allocator AllocatorService, projects ProjectStoreService, opts Options) TriageService {
	return &TriageServiceImpl{
		classifier:   c,
		instructions: instructions,
		allocator:    allocator,
		projects:     projects,
		opts:         opts.withDefaults(),
	}
}

// Triage はメールを分類し、実在するクライアントなら採番してジョブを作成する。
// 社内コードと TBC は採番せず "<code> TBC" を返す。
func (s *TriageServiceImpl) Triage(ctx context.Context, req TriageRequest) (*TriageResponse, error) {
	if strings.TrimSpace(req.EmailContent) == "" {
		return nil, fmt.Errorf("%w: emailContent is required", ErrInvalidRequest)
	}

	analysis, err := s.classifier.Classify(ctx, s.instructions.Prompt(classifier.TaskTriage, "Email content:\n\n"+req.EmailContent))
	if err != nil {
		return nil, classifyErr(err)
	}

	clientCode := strings.ToUpper(analysis.StringOr("clientCode", model.SentinelToken))
	jobName := analysis.StringOr("jobName", "Untitled")

	var alloc Allocation
	if clientCode == s.opts.HouseClientCode || clientCode == model.SentinelToken {
		alloc = Allocation{JobNumber: model.SentinelJobNumber(clientCode)}
	} else {
		alloc, err = s.allocator.Allocate(ctx, clientCode)
		if err != nil {
			return nil, err
		}
	}

	var jobRecordID string
	if alloc.JobNumber != "" && !model.IsSentinelJobNumber(alloc.JobNumber) {
		jobRecordID, err = s.projects.Create(ctx, NewProject{
			JobNumber:   alloc.JobNumber,
			Name:        jobName,
			ClientCode:  clientCode,
			Description: analysis.String("jobSummary"),
			Owner:       analysis.StringOr("projectOwner", model.SentinelToken),
			ClientLink:  alloc.ClientRecordID,
		})
		if err != nil {
			if s.opts.Fallback == FallbackStrict && !errors.Is(err, repository.ErrNotConfigured) {
				return nil, err
			}
			metrics.StoreFallbacksTotal.WithLabelValues("create_job").Inc()
			s.opts.Logger.Warn("job record not created", "job_number", alloc.JobNumber, "error", err)
			jobRecordID = ""
		}
	}

	return &TriageResponse{
		JobNumber:        alloc.JobNumber,
		JobName:          jobName,
		ClientCode:       clientCode,
		ClientName:       analysis.String("clientName"),
		ProjectOwner:     analysis.String("projectOwner"),
		TeamID:           optional(alloc.TeamID),
		CollaborationURL: optional(alloc.CollaborationURL),
		SharepointURL:    optional(alloc.CollaborationURL),
		JobRecordID:      optional(jobRecordID),
		FullAnalysis:     analysis,
	}, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
