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

// RouteClarify は送信者への確認が必要な振り分け先
const RouteClarify = "clarify"

// TrafficServiceImpl は TrafficService の実装
type TrafficServiceImpl struct {
	classifier   classifier.Classifier
	instructions classifier.Instructions
	projects     ProjectStoreService
	allocator    AllocatorService
	opts         Options
}

// NewTrafficService は TrafficServiceImpl を生成する
func NewTrafficService(c classifier.Classifier, instructions classifier.Instructions, projects ProjectStoreService, allocator AllocatorService, opts Options) TrafficService {
	return &TrafficServiceImpl{
		classifier:   c,
		instructions: instructions,
		projects:     projects,
		allocator:    allocator,
		opts:         opts.withDefaults(),
	}
}

// Route はメールを分類する。
// 分類結果にジョブ番号があればプロジェクトを引き、見つからなければ route を clarify に差し替える。
func (s *TrafficServiceImpl) Route(ctx context.Context, req TrafficRequest) (classifier.Result, error) {
	if strings.TrimSpace(req.EmailContent) == "" {
		return nil, fmt.Errorf("%w: emailContent is required", ErrInvalidRequest)
	}

	decision, err := s.classifier.Classify(ctx, s.instructions.Prompt(classifier.TaskTraffic, trafficText(req)))
	if err != nil {
		return nil, classifyErr(err)
	}
	out := decision.Clone()

	jobNumber := decision.String("jobNumber")
	if jobNumber == "" || model.IsSentinelJobNumber(jobNumber) {
		return out, nil
	}

	project, err := s.projects.Find(ctx, jobNumber)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		s.opts.Logger.Info("routed job number not found, asking sender to clarify", "job_number", jobNumber)
		out["originalRoute"] = decision["route"]
		out["route"] = RouteClarify
		out["clarifyMessage"] = clarifyMessage(req.SenderName, jobNumber)
		return out, nil
	case err != nil:
		if s.opts.Fallback == FallbackStrict && !errors.Is(err, repository.ErrNotConfigured) {
			return nil, err
		}
		metrics.StoreFallbacksTotal.WithLabelValues("traffic_enrich").Inc()
		s.opts.Logger.Warn("job enrichment skipped", "job_number", jobNumber, "error", err)
		out["enrichmentError"] = err.Error()
		return out, nil
	}

	out["projectName"] = project.Name
	out["clientName"] = project.ClientName
	out["currentRound"] = project.Round
	out["currentStage"] = project.Stage
	out["currentStatus"] = project.Status
	out["withClient"] = project.WithClient
	out["channelId"] = nullable(project.CollaborationChannelID)
	out["jobRecordId"] = project.RecordID

	info, err := s.allocator.Lookup(ctx, model.ClientCodeOf(project.JobNumber))
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.opts.Logger.Warn("client lookup failed", "job_number", jobNumber, "error", err)
	}
	out["teamId"] = nullable(info.TeamID)
	out["collaborationUrl"] = nullable(info.CollaborationURL)
	return out, nil
}

// trafficText は分類サービスに渡す本文を組み立てる
func trafficText(req TrafficRequest) string {
	var b strings.Builder
	b.WriteString("Email to route:\n\n")
	fmt.Fprintf(&b, "Subject: %s\n", strings.TrimSpace(req.SubjectLine))
	switch {
	case req.SenderName != "" && req.SenderEmail != "":
		fmt.Fprintf(&b, "From: %s <%s>\n", req.SenderName, req.SenderEmail)
	case req.SenderEmail != "":
		fmt.Fprintf(&b, "From: %s\n", req.SenderEmail)
	case req.SenderName != "":
		fmt.Fprintf(&b, "From: %s\n", req.SenderName)
	}
	if len(req.AllRecipients) > 0 {
		fmt.Fprintf(&b, "Recipients: %s\n", strings.Join(req.AllRecipients, ", "))
	}
	if req.HasAttachments || len(req.AttachmentNames) > 0 {
		if len(req.AttachmentNames) > 0 {
			fmt.Fprintf(&b, "Attachments: %s\n", strings.Join(req.AttachmentNames, ", "))
		} else {
			b.WriteString("Attachments: yes\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(req.EmailContent)
	return b.String()
}

// clarifyMessage は送信者宛ての確認メッセージを作る。名前が無ければ "there" で呼びかける。
func clarifyMessage(senderName, jobNumber string) string {
	name := strings.TrimSpace(senderName)
	if name == "" {
		name = "there"
	} else if first, _, ok := strings.Cut(name, " "); ok {
		name = first
	}
	return fmt.Sprintf("Hi %s, I couldn't find job %s in our system. "+
		"Could you double-check the job number, or let me know if this is a new job that needs a number?",
		name, jobNumber)
}

// classifyErr は分類サービスの障害を ErrDependencyUnavailable に揃える。不正な応答はそのまま返す。
func classifyErr(err error) error {
	if errors.Is(err, classifier.ErrUnavailable) && !errors.Is(err, ErrDependencyUnavailable) {
		return fmt.Errorf("%w: %w", ErrDependencyUnavailable, err)
	}
	return err
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
