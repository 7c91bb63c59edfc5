package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/techmentor/gateway/internal/extract"
	"github.com/techmentor/gateway/internal/llm"
	"github.com/techmentor/gateway/internal/session"
)

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) Extract(context.Context, string, []byte) (string, error) {
	return f.text, f.err
}

type fakeCompleter struct {
	calls   []string // first user-message line per call
	replies []string
	err     error
}

func (f *fakeCompleter) Complete(_ context.Context, messages []llm.Message) (string, error) {
	last := messages[len(messages)-1].Content
	f.calls = append(f.calls, strings.SplitN(last, "\n", 2)[0])
	if f.err != nil {
		return "", f.err
	}
	reply := fmt.Sprintf("reply-%d", len(f.calls))
	if len(f.replies) >= len(f.calls) {
		reply = f.replies[len(f.calls)-1]
	}
	return reply, nil
}

func TestSplitChunksBoundaries(t *testing.T) {
	text := strings.Repeat("a", 50000)
	chunks := splitChunks(text, 14000, 5)
	sizes := make([]int, len(chunks))
	for i, c := range chunks {
		sizes[i] = len(c)
	}
	want := []int{14000, 14000, 14000, 8000}
	if len(sizes) != len(want) {
		t.Fatalf("sizes = %v, want %v", sizes, want)
	}
	for i := range want {
		if sizes[i] != want[i] {
			t.Fatalf("sizes = %v, want %v", sizes, want)
		}
	}
}

func TestSplitChunksDropsRemainder(t *testing.T) {
	text := strings.Repeat("b", 80000)
	chunks := splitChunks(text, 14000, 5)
	if len(chunks) != 5 {
		t.Fatalf("len = %d, want 5", len(chunks))
	}
	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	if total != 5*14000 {
		t.Errorf("total analyzed = %d, want %d (remainder dropped)", total, 5*14000)
	}
}

func TestSplitChunksContiguous(t *testing.T) {
	text := "abcdefghij"
	chunks := splitChunks(text, 3, 5)
	if strings.Join(chunks, "") != text {
		t.Errorf("chunks %v do not reassemble into input", chunks)
	}
}

func TestComputeStats(t *testing.T) {
	text := "Введение в тему.\n[1] Иванов И.И. Учебник.\n2. Петров П.П. Статья.\nТекст про ГОСТ 7.32 и стандарт IEEE 830."
	stats := computeStats(text)

	if stats.Words != 19 {
		t.Errorf("Words = %d, want 19", stats.Words)
	}
	if stats.PagesEst != 1 {
		t.Errorf("PagesEst = %d, want 1 (minimum)", stats.PagesEst)
	}
	// Two citation-style lines plus two standards-body mentions.
	if stats.Refs != 4 {
		t.Errorf("Refs = %d, want 4", stats.Refs)
	}
}

func TestComputeStatsPageEstimate(t *testing.T) {
	stats := computeStats(strings.Repeat("х", 9000))
	// 9000/2000 rounds to 5 pages... 4.5 rounds up.
	if stats.PagesEst != 5 {
		t.Errorf("PagesEst = %d, want 5", stats.PagesEst)
	}
	if stats.Chars != 9000 {
		t.Errorf("Chars = %d, want 9000", stats.Chars)
	}
}

func TestReviewMapReduceFlow(t *testing.T) {
	completer := &fakeCompleter{}
	store := session.NewMemoryStore()
	svc := NewService(completer, store, &fakeExtractor{text: strings.Repeat("т", 30000)}, Config{
		ChunkChars: 14000,
		MaxChunks:  5,
	})

	res, err := svc.Review(context.Background(), "s1", "оформление по ГОСТ", extract.MIMEPDF, []byte("%PDF"))
	if err != nil {
		t.Fatalf("Review: %v", err)
	}

	// 3 chunks (14000+14000+2000) => 3 map calls + 1 reduce call.
	if len(completer.calls) != 4 {
		t.Fatalf("completion calls = %d, want 4", len(completer.calls))
	}
	for i := 0; i < 3; i++ {
		if !strings.HasPrefix(completer.calls[i], fmt.Sprintf("Фрагмент %d из 3:", i+1)) {
			t.Errorf("call %d = %q, want chunk prompt", i, completer.calls[i])
		}
	}

	// The reply is the reduce output behind the stats header.
	if !strings.Contains(res.Reply, "reply-4") {
		t.Errorf("reply %q missing reduced report", res.Reply)
	}
	if !strings.HasPrefix(res.Reply, "Статистика документа:") {
		t.Errorf("reply %q missing stats header", res.Reply)
	}
	if res.ReportID == "" {
		t.Error("ReportID empty")
	}
	if res.Stats.Chars != 30000 {
		t.Errorf("Stats.Chars = %d, want 30000", res.Stats.Chars)
	}

	// The report was persisted as an assistant turn.
	history, err := store.Get(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(history) != 1 || history[0].Role != session.RoleAssistant {
		t.Fatalf("history = %+v, want one assistant turn", history)
	}
	if history[0].Content != res.Reply {
		t.Error("persisted turn differs from reply")
	}
}

func TestReviewEmptyExtractionIsTerminal(t *testing.T) {
	completer := &fakeCompleter{}
	svc := NewService(completer, session.NewMemoryStore(), &fakeExtractor{text: "   \n\t"}, DefaultConfig())

	_, err := svc.Review(context.Background(), "s1", "", extract.MIMEPDF, []byte("%PDF"))
	if !errors.Is(err, ErrNoText) {
		t.Fatalf("Review = %v, want ErrNoText", err)
	}
	if len(completer.calls) != 0 {
		t.Errorf("upstream calls = %d, want 0 after failed extraction", len(completer.calls))
	}
}

func TestReviewRejectsBeforeAnyWork(t *testing.T) {
	completer := &fakeCompleter{}
	extractor := &fakeExtractor{text: "should never be read"}
	svc := NewService(completer, session.NewMemoryStore(), extractor, Config{MaxUploadBytes: 100})

	_, err := svc.Review(context.Background(), "s1", "", extract.MIMEPDF, make([]byte, 200))
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("Review = %v, want ErrTooLarge", err)
	}

	_, err = svc.Review(context.Background(), "s1", "", "text/plain", []byte("hi"))
	if !errors.Is(err, ErrBadType) {
		t.Fatalf("Review = %v, want ErrBadType", err)
	}
	if len(completer.calls) != 0 {
		t.Errorf("upstream calls = %d, want 0", len(completer.calls))
	}
}

func TestReviewNoPartialReportOnMapFailure(t *testing.T) {
	completer := &fakeCompleter{err: errors.New("upstream exploded")}
	store := session.NewMemoryStore()
	svc := NewService(completer, store, &fakeExtractor{text: "короткий текст работы"}, DefaultConfig())

	_, err := svc.Review(context.Background(), "s1", "", extract.MIMEDOCX, []byte("PK"))
	if err == nil {
		t.Fatal("expected error")
	}
	history, _ := store.Get(context.Background(), "s1")
	if len(history) != 0 {
		t.Errorf("history = %+v, want nothing persisted on failure", history)
	}
}

func TestReviewUniReqReachesPrompt(t *testing.T) {
	var system string
	completer := completerFunc(func(_ context.Context, messages []llm.Message) (string, error) {
		system = messages[0].Content
		return "ok", nil
	})
	svc := NewService(completer, session.NewMemoryStore(), &fakeExtractor{text: "текст"}, DefaultConfig())

	if _, err := svc.Review(context.Background(), "s1", "титульный лист по форме 01", extract.MIMEPDF, []byte("%PDF")); err != nil {
		t.Fatalf("Review: %v", err)
	}
	if !strings.Contains(system, "титульный лист по форме 01") {
		t.Errorf("system prompt %q missing university requirements", system)
	}
}

type completerFunc func(ctx context.Context, messages []llm.Message) (string, error)

func (f completerFunc) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	return f(ctx, messages)
}
