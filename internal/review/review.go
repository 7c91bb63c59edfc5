package review

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/techmentor/gateway/internal/extract"
	"github.com/techmentor/gateway/internal/llm"
	"github.com/techmentor/gateway/internal/session"
)

// Validation and extraction failures terminal for a single request.
var (
	// ErrTooLarge rejects uploads over the configured size cap.
	ErrTooLarge = errors.New("review: file too large")
	// ErrBadType rejects anything that is not a PDF or DOCX upload.
	ErrBadType = errors.New("review: unsupported file type")
	// ErrNoText means extraction produced nothing to review.
	ErrNoText = errors.New("review: could not extract text from document")
)

// Completer is the completion surface the pipeline needs.
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message) (string, error)
}

// Config bounds the pipeline.
type Config struct {
	MaxUploadBytes int64
	ChunkChars     int
	MaxChunks      int
}

// DefaultConfig returns the standard pipeline bounds: 10MB uploads, five
// chunks of 14000 characters.
func DefaultConfig() Config {
	return Config{
		MaxUploadBytes: 10 << 20,
		ChunkChars:     14000,
		MaxChunks:      5,
	}
}

// Result is a finished review.
type Result struct {
	Reply    string
	Stats    Stats
	ReportID string
}

// Service runs the document review pipeline: validate, extract, chunk,
// summarize each chunk, reduce to one report, persist. Linear, no retries;
// a failure at any stage aborts the request with no partial report.
type Service struct {
	completer Completer
	sessions  session.Store
	extractor extract.Extractor
	cfg       Config
}

// NewService wires the pipeline dependencies.
func NewService(completer Completer, sessions session.Store, extractor extract.Extractor, cfg Config) *Service {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultConfig().MaxUploadBytes
	}
	if cfg.ChunkChars <= 0 {
		cfg.ChunkChars = DefaultConfig().ChunkChars
	}
	if cfg.MaxChunks <= 0 {
		cfg.MaxChunks = DefaultConfig().MaxChunks
	}
	return &Service{completer: completer, sessions: sessions, extractor: extractor, cfg: cfg}
}

const reviewPolicy = `Ты — ТехМентор, рецензент студенческих работ.
Оценивай структуру, аргументацию, оформление и соответствие теме.
Указывай и сильные стороны, и конкретные недочёты с рекомендациями.
Не переписывай работу за студента. Пиши по-русски.`

const mapInstruction = `Выдели не более 10 сжатых тезисов-замечаний по этому
фрагменту работы (маркированный список, без вступления и заключения).`

const reduceInstruction = `Ниже собраны тезисы-замечания по всем фрагментам
одной работы. Объедини их в единую рецензию: убери дубли, сгруппируй по темам,
заверши краткими рекомендациями.`

// reviewSystemPrompt parameterizes the policy with optional
// institution-specific requirements.
func reviewSystemPrompt(uniReq string) string {
	uniReq = strings.TrimSpace(uniReq)
	if uniReq == "" {
		return reviewPolicy
	}
	return reviewPolicy + "\n\nТребования вуза, которые нужно учесть при проверке:\n" + uniReq
}

// Review runs the full pipeline for one uploaded document. The caller holds
// the admission ticket for the whole call; chunks are summarized
// sequentially so one document never consumes more than that single slot.
func (s *Service) Review(ctx context.Context, sessionID, uniReq, mimeType string, data []byte) (Result, error) {
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return Result{}, ErrTooLarge
	}
	if mimeType != extract.MIMEPDF && mimeType != extract.MIMEDOCX {
		return Result{}, ErrBadType
	}

	text, err := s.extractor.Extract(ctx, mimeType, data)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrNoText, err)
	}
	if strings.TrimSpace(text) == "" {
		return Result{}, ErrNoText
	}

	chunks := splitChunks(text, s.cfg.ChunkChars, s.cfg.MaxChunks)
	system := reviewSystemPrompt(uniReq)

	findings := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		userMsg := fmt.Sprintf("Фрагмент %d из %d:\n\n%s\n\n%s", i+1, len(chunks), chunk, mapInstruction)
		found, err := s.completer.Complete(ctx, []llm.Message{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: userMsg},
		})
		if err != nil {
			return Result{}, fmt.Errorf("review: summarizing chunk %d: %w", i+1, err)
		}
		findings = append(findings, found)
	}

	report, err := s.completer.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: reduceInstruction + "\n\n" + strings.Join(findings, "\n\n---\n\n")},
	})
	if err != nil {
		return Result{}, fmt.Errorf("review: consolidating report: %w", err)
	}

	stats := computeStats(text)
	reply := stats.header() + report

	history, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return Result{}, fmt.Errorf("review: loading session: %w", err)
	}
	history = append(history, session.Turn{Role: session.RoleAssistant, Content: reply})
	if err := s.sessions.Set(ctx, sessionID, history); err != nil {
		return Result{}, fmt.Errorf("review: saving session: %w", err)
	}

	id := uuid.NewString()
	log.Printf("review: report %s for session %s (%d chunks, ~%d pages)", id, sessionID, len(chunks), stats.PagesEst)

	return Result{Reply: reply, Stats: stats, ReportID: id}, nil
}
