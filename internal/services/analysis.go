package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/viab/viab-backend/internal/analysis"
	"github.com/viab/viab-backend/internal/memory"
	"github.com/viab/viab-backend/internal/prompts"
	"github.com/viab/viab-backend/internal/providers"
	"github.com/viab/viab-backend/internal/repository"
)

// InputFile is one uploaded file, already read into memory.
type InputFile struct {
	Name     string
	MimeType string
	Data     []byte
}

// AnalyzeRequest carries one drawing-analysis run. Either Files or Text must
// be present; Prompt optionally overrides the default instructions for file
// runs.
type AnalyzeRequest struct {
	UserID    string
	SessionID string
	Files     []InputFile
	Text      string
	Prompt    string

	// OnDelta, when set, receives streamed text fragments as each batch
	// produces them. Fragment boundaries are arbitrary.
	OnDelta func(delta string)
}

// AnalyzeResult is the merged outcome of an analysis run.
type AnalyzeResult struct {
	Content    string             `json:"content"`
	Batches    int                `json:"batches"`
	FilesUsed  int                `json:"files_used"`
	Skipped    []analysis.Skipped `json:"skipped,omitempty"`
	FactsSaved int                `json:"facts_saved"`
}

// AnalysisService coordinates the visualizer agent over one or more file
// batches and consolidates the outcome into session memory.
type AnalysisService struct {
	registry    *providers.Registry
	store       memory.Store
	sessions    repository.SessionRepository
	transcripts repository.TranscriptRepository
	locks       *sessionLocks

	maxInline   int
	batchSize   int
	callTimeout time.Duration
}

// NewAnalysisService wires the drawing-analysis coordinator.
func NewAnalysisService(
	registry *providers.Registry,
	store memory.Store,
	sessions repository.SessionRepository,
	transcripts repository.TranscriptRepository,
	locks *sessionLocks,
	maxInline, batchSize int,
	callTimeout time.Duration,
) *AnalysisService {
	if maxInline <= 0 {
		maxInline = analysis.DefaultMaxInline
	}
	if batchSize <= 0 {
		batchSize = analysis.DefaultBatchSize
	}
	if callTimeout <= 0 {
		callTimeout = 2 * time.Minute
	}
	return &AnalysisService{
		registry:    registry,
		store:       store,
		sessions:    sessions,
		transcripts: transcripts,
		locks:       locks,
		maxInline:   maxInline,
		batchSize:   batchSize,
		callTimeout: callTimeout,
	}
}

// Analyze runs the full pipeline: screen, plan, execute batches in order,
// merge, persist. Batches run strictly sequentially; each call carries the
// earlier batches' exchanges, and a completed batch's facts reach memory
// before the next call goes out. A failed batch becomes a placeholder
// section rather than aborting the run. Cancellation between batches still
// merges and persists whatever completed.
func (s *AnalysisService) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeResult, error) {
	if req.UserID == "" || req.SessionID == "" {
		return nil, fmt.Errorf("%w: user_id and session_id are required", analysis.ErrInvalidRequest)
	}
	if len(req.Files) == 0 && strings.TrimSpace(req.Text) == "" {
		return nil, analysis.ErrInvalidRequest
	}

	scope := memory.Scope{UserID: req.UserID, SessionID: req.SessionID}
	release, ok := s.locks.tryAcquire(scope)
	if !ok {
		return nil, analysis.ErrSessionBusy
	}
	defer release()

	if len(req.Files) == 0 {
		return s.analyzeText(ctx, scope, req)
	}

	refs := make([]analysis.FileRef, len(req.Files))
	for i, f := range req.Files {
		refs[i] = analysis.FileRef{OriginalName: f.Name, Kind: analysis.Classify(f.Name)}
	}
	usable, skipped := analysis.Screen(refs)
	byName := make(map[string]InputFile, len(req.Files))
	for _, f := range req.Files {
		byName[f.Name] = f
	}

	batches, err := analysis.Plan(usable, s.maxInline, s.batchSize)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.Ensure(ctx, req.UserID, req.SessionID); err != nil {
		return nil, &analysis.PersistenceError{Err: err}
	}

	log := logrus.WithFields(logrus.Fields{
		"user_id":    req.UserID,
		"session_id": req.SessionID,
		"files":      len(usable),
		"batches":    len(batches),
	})
	log.Info("Starting drawing analysis")

	provider, err := s.registry.Get(providers.RoleVisualizer)
	if err != nil {
		return nil, err
	}

	outputs := make([]analysis.BatchOutput, 0, len(batches))
	var history []providers.Message
	for _, batch := range batches {
		if err := ctx.Err(); err != nil {
			log.WithField("completed", len(outputs)).Warn("Analysis cancelled between batches")
			break
		}

		names := make([]string, len(batch.Files))
		for i, ref := range batch.Files {
			names[i] = ref.OriginalName
		}
		userMsg := prompts.VisualizerBatch(names, batch.Index, len(batches))
		if req.Prompt != "" {
			userMsg += "\nClient instructions:\n" + req.Prompt
		}

		content, err := s.runBatch(ctx, provider, scope, batch, byName, history, userMsg, req.OnDelta)
		out := analysis.BatchOutput{Index: batch.Index, Files: len(batch.Files)}
		if err != nil {
			out.Err = &analysis.BatchError{Batch: batch.Index, Total: len(batches), Err: err}
			log.WithError(err).WithField("batch", batch.Index).Error("Batch analysis failed")
		} else {
			out.Content = content
		}
		outputs = append(outputs, out)

		if err == nil {
			// Later batches see this exchange, so the final batch can
			// consolidate across the whole project.
			history = append(history,
				providers.Message{Role: "user", Content: userMsg},
				providers.Message{Role: "assistant", Content: content})
			// Fold this batch's facts into memory before the next call
			// is issued, so partial runs leave usable state behind.
			if perr := s.saveFacts(context.WithoutCancel(ctx), scope, content); perr != nil {
				merged, _ := analysis.Aggregate(outputs, len(usable))
				return nil, &analysis.PersistenceError{Content: merged, Err: perr}
			}
		}
	}

	merged, err := analysis.Aggregate(outputs, len(usable))
	if err != nil {
		return nil, err
	}

	factsSaved, err := s.persist(context.WithoutCancel(ctx), scope, usable, len(outputs), merged)
	if err != nil {
		return nil, &analysis.PersistenceError{Content: merged, Err: err}
	}

	log.WithField("facts_saved", factsSaved).Info("Drawing analysis complete")

	return &AnalyzeResult{
		Content:    merged,
		Batches:    len(outputs),
		FilesUsed:  len(usable),
		Skipped:    skipped,
		FactsSaved: factsSaved,
	}, nil
}

// analyzeText handles a files-free run: one completion over the client's
// text, same consolidation and persistence as a single-batch file run.
func (s *AnalysisService) analyzeText(ctx context.Context, scope memory.Scope, req AnalyzeRequest) (*AnalyzeResult, error) {
	if err := s.sessions.Ensure(ctx, req.UserID, req.SessionID); err != nil {
		return nil, &analysis.PersistenceError{Err: err}
	}

	provider, err := s.registry.Get(providers.RoleVisualizer)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	creq := providers.CompletionRequest{
		Messages: []providers.Message{
			{Role: "system", Content: prompts.VisualizerSystem},
			{Role: "user", Content: req.Text},
		},
		UserID:    scope.UserID,
		SessionID: scope.SessionID,
	}

	var content string
	if req.OnDelta == nil {
		resp, err := provider.Complete(callCtx, creq)
		if err != nil {
			return nil, err
		}
		content = resp.Content
	} else {
		chunks, err := provider.StreamComplete(callCtx, creq)
		if err != nil {
			return nil, err
		}
		var b strings.Builder
		for chunk := range chunks {
			if chunk.Error != "" {
				return nil, fmt.Errorf("stream error: %s", chunk.Error)
			}
			if chunk.Delta != "" {
				b.WriteString(chunk.Delta)
				req.OnDelta(chunk.Delta)
			}
		}
		content = b.String()
	}

	if strings.TrimSpace(content) == "" {
		return nil, analysis.ErrEmptyResult
	}

	pctx := context.WithoutCancel(ctx)
	entries := analysis.ExtractFacts(content).Entries()
	for key, value := range entries {
		if err := s.store.Put(pctx, scope, key, value); err != nil {
			return nil, &analysis.PersistenceError{Content: content, Err: err}
		}
	}
	turns := []*repository.Turn{
		{UserID: scope.UserID, SessionID: scope.SessionID, Agent: providers.RoleVisualizer, Role: "user", Content: req.Text},
		{UserID: scope.UserID, SessionID: scope.SessionID, Agent: providers.RoleVisualizer, Role: "assistant", Content: content},
	}
	for _, turn := range turns {
		if err := s.transcripts.Append(pctx, turn); err != nil {
			return nil, &analysis.PersistenceError{Content: content, Err: err}
		}
	}

	return &AnalyzeResult{Content: content, Batches: 1, FactsSaved: len(entries)}, nil
}

func (s *AnalysisService) runBatch(
	ctx context.Context,
	provider providers.Provider,
	scope memory.Scope,
	batch analysis.Batch,
	byName map[string]InputFile,
	history []providers.Message,
	userMsg string,
	onDelta func(string),
) (string, error) {
	attachments := make([]providers.Attachment, len(batch.Files))
	for i, ref := range batch.Files {
		src := byName[ref.OriginalName]
		kind := providers.AttachmentImage
		if ref.Kind == analysis.KindDocument {
			kind = providers.AttachmentDocument
		}
		attachments[i] = providers.Attachment{
			Kind:     kind,
			Name:     ref.OriginalName,
			MimeType: src.MimeType,
			Data:     src.Data,
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	messages := make([]providers.Message, 0, len(history)+2)
	messages = append(messages, providers.Message{Role: "system", Content: prompts.VisualizerSystem})
	messages = append(messages, history...)
	messages = append(messages, providers.Message{Role: "user", Content: userMsg})
	req := providers.CompletionRequest{
		Messages:    messages,
		Attachments: attachments,
		UserID:      scope.UserID,
		SessionID:   scope.SessionID,
	}

	if onDelta == nil {
		resp, err := provider.Complete(callCtx, req)
		if err != nil {
			return "", err
		}
		return resp.Content, nil
	}

	chunks, err := provider.StreamComplete(callCtx, req)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for chunk := range chunks {
		if chunk.Error != "" {
			return "", fmt.Errorf("stream error: %s", chunk.Error)
		}
		if chunk.Delta != "" {
			b.WriteString(chunk.Delta)
			onDelta(chunk.Delta)
		}
	}
	return b.String(), nil
}

// saveFacts folds the labeled facts found in content into session memory.
func (s *AnalysisService) saveFacts(ctx context.Context, scope memory.Scope, content string) error {
	for key, value := range analysis.ExtractFacts(content).Entries() {
		if err := s.store.Put(ctx, scope, key, value); err != nil {
			return fmt.Errorf("failed to save %q: %w", key, err)
		}
	}
	return nil
}

// persist writes the consolidated facts to memory and the exchange to the
// transcript. It runs detached from request cancellation so completed work
// survives a client disconnect.
func (s *AnalysisService) persist(
	ctx context.Context,
	scope memory.Scope,
	usable []analysis.FileRef,
	batches int,
	merged string,
) (int, error) {
	facts := analysis.ExtractFacts(merged)
	entries := facts.Entries()

	// The file count is known even when the model omits it from the summary.
	if _, ok := entries[analysis.KeyTotalFloorPlans]; !ok {
		entries[analysis.KeyTotalFloorPlans] = strconv.Itoa(len(usable))
	}
	if batches > 1 {
		entries[analysis.KeyMultiFileComplete] = "true"
	}

	saved := 0
	for key, value := range entries {
		if err := s.store.Put(ctx, scope, key, value); err != nil {
			return saved, fmt.Errorf("failed to save %q: %w", key, err)
		}
		saved++
	}

	names := make([]string, len(usable))
	for i, ref := range usable {
		names[i] = ref.OriginalName
	}
	userTurn := &repository.Turn{
		UserID:    scope.UserID,
		SessionID: scope.SessionID,
		Agent:     providers.RoleVisualizer,
		Role:      "user",
		Content:   "Analyze architectural files: " + strings.Join(names, ", "),
	}
	if err := s.transcripts.Append(ctx, userTurn); err != nil {
		return saved, err
	}
	assistantTurn := &repository.Turn{
		UserID:    scope.UserID,
		SessionID: scope.SessionID,
		Agent:     providers.RoleVisualizer,
		Role:      "assistant",
		Content:   merged,
	}
	if err := s.transcripts.Append(ctx, assistantTurn); err != nil {
		return saved, err
	}

	return saved, nil
}
