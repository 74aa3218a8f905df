package core

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"universe-gateway/models"
)

// ContentService 展示层唯一入口：组合请求构造、远端调用、补齐与兜底
// 两个操作都是全函数，任何失败都会被替换为兜底内容
type ContentService struct {
	builder  *ContentRequestBuilder
	client   *GenerativeClient
	enricher *ResultEnricher
	recorder OutcomeRecorder
	logger   *logrus.Logger
}

func NewContentService(
	builder *ContentRequestBuilder,
	client *GenerativeClient,
	enricher *ResultEnricher,
	recorder OutcomeRecorder,
	logger *logrus.Logger,
) *ContentService {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &ContentService{
		builder:  builder,
		client:   client,
		enricher: enricher,
		recorder: recorder,
		logger:   logger,
	}
}

// Configured 是否配置了远端能力
func (s *ContentService) Configured() bool {
	return s.client.Configured()
}

// Model 当前使用的模型标识
func (s *ContentService) Model() string {
	return s.builder.model
}

// CredentialStatus 凭证状态：available / cooldown / dead
func (s *ContentService) CredentialStatus() string {
	return s.client.CredentialStatus().String()
}

// ResetCredential 管理员在更换或恢复凭证后手动解除失效标记
func (s *ContentService) ResetCredential() {
	s.client.ResetCredential()
}

// GetFeed 生成 Feed；未配置、失败或全部记录被丢弃时返回 MockFeed
func (s *ContentService) GetFeed(ctx context.Context, interests []string) []models.UniverseNode {
	spec := s.builder.BuildFeedRequest(interests)
	outcome := s.client.Execute(ctx, spec)

	entry := s.newLogEntry(ctx, spec, outcome)
	defer s.recorder.Record(entry)

	if outcome.Kind != OutcomeSuccess {
		entry.Fallback = true
		return MockFeed()
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(outcome.Payload, &elems); err != nil {
		s.logger.WithError(err).Warn("Feed payload is not an array")
		entry.Outcome = OutcomeMalformed.String()
		entry.ErrorMsg = err.Error()
		entry.Fallback = true
		return MockFeed()
	}
	raw := s.decodeRecords(elems)

	nodes, dropped := s.enricher.EnrichFeed(raw)
	entry.Records = len(raw)
	entry.Dropped = dropped
	if len(nodes) == 0 {
		s.logger.WithField("records", len(raw)).Warn("No usable records after enrichment, serving fallback feed")
		entry.Fallback = true
		return MockFeed()
	}
	return nodes
}

// CoCreate 共创内容。调用方负责拒绝空 prompt
func (s *ContentService) CoCreate(ctx context.Context, prompt string) models.GeneratedContent {
	spec := s.builder.BuildCoCreationRequest(prompt)
	outcome := s.client.Execute(ctx, spec)

	entry := s.newLogEntry(ctx, spec, outcome)
	defer s.recorder.Record(entry)

	switch outcome.Kind {
	case OutcomeSuccess:
		var content models.GeneratedContent
		if err := json.Unmarshal(outcome.Payload, &content); err != nil {
			s.logger.WithError(err).Warn("Co-creation payload could not be decoded")
			entry.Outcome = OutcomeMalformed.String()
			entry.ErrorMsg = err.Error()
			entry.Fallback = true
			return MockCoCreation()
		}
		entry.Records = 1
		return content
	case OutcomeUnconfigured:
		entry.Fallback = true
		return UnconfiguredCoCreation()
	default:
		entry.Fallback = true
		return MockCoCreation()
	}
}

// decodeRecords 逐条解码；无法解码的元素保留为空记录，由 EnrichFeed 计入丢弃
func (s *ContentService) decodeRecords(elems []json.RawMessage) []models.RawNode {
	records := make([]models.RawNode, len(elems))
	for i, elem := range elems {
		if err := json.Unmarshal(elem, &records[i]); err != nil {
			records[i] = models.RawNode{}
			s.logger.WithFields(logrus.Fields{
				"index":  i,
				"reason": err.Error(),
			}).Warn("Generated record could not be decoded")
		}
	}
	return records
}

func (s *ContentService) newLogEntry(ctx context.Context, spec RequestSpec, outcome Outcome) *models.GenerationLog {
	entry := &models.GenerationLog{
		CreatedAt: time.Now(),
		RequestID: RequestIDFrom(ctx),
		Kind:      string(spec.Kind),
		Outcome:   outcome.Kind.String(),
		Model:     spec.Model,
		Duration:  outcome.Latency.Milliseconds(),
	}
	if outcome.Err != nil {
		entry.ErrorMsg = truncate(outcome.Err.Error(), 500)
	}
	return entry
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...(truncated)"
}

// NopRecorder 不持久化遥测
type NopRecorder struct{}

func (NopRecorder) Record(*models.GenerationLog) {}

var _ ContentGateway = (*ContentService)(nil)
