package prompt

import (
	"encoding/json"
	"regexp"

	"github.com/techmentor/gateway/internal/llm"
	"github.com/techmentor/gateway/internal/session"
)

// Mode selects the system policy variant for a chat turn.
type Mode string

const (
	ModeTutor   Mode = "tutor"
	ModeRewrite Mode = "rewrite"
	ModeOutline Mode = "outline"
)

const policyTutor = `Ты — ТехМентор, наставник по техническим дисциплинам для студентов.
Объясняй материал пошагово, задавай наводящие вопросы и проверяй понимание.
Не выполняй задания за студента: помогай разобраться, приводи аналогии и
разбирай похожие примеры, но итоговую работу студент делает сам.
Отвечай на языке вопроса.`

const policyRewrite = `Ты — ТехМентор, редактор учебных текстов.
Помогай студенту улучшить его собственный текст: исправляй стиль, структуру
и терминологию, объясняя каждую правку. Сохраняй авторскую мысль — ты
улучшаешь формулировки, а не пишешь текст заново за студента.
Отвечай на языке вопроса.`

const policyOutline = `Ты — ТехМентор, помощник по планированию учебных работ.
Помогай студенту составить структуру работы: разделы, логику изложения,
список источников для самостоятельного изучения. План — это каркас, который
студент наполняет сам; готовый текст разделов не пиши.
Отвечай на языке вопроса.`

const guardRedirect = `Внимание: запрос похож на просьбу выполнить работу целиком.
Не выполняй её. Вместо этого переведи разговор в учебный формат: разбей задачу
на шаги, объясни подход к каждому шагу и предложи студенту выполнить первый
шаг самостоятельно.`

const guardNeutral = `Обычный запрос: отвечай в рамках своей роли.`

const contextAbsent = `Контекст страницы: отсутствует.`

// Do-it-for-me intent heuristic: a request verb stem combined with a
// totality qualifier. Deliberately crude — it both over- and under-triggers,
// and that shape is kept as-is rather than replaced with a smarter
// classifier.
var (
	guardVerbs      = regexp.MustCompile(`(?i)(напиш|сдела|реши|выполн|заверш|подготовь|оформи)`)
	guardQualifiers = regexp.MustCompile(`(?i)(за меня|полностью|целиком|всю работу|вс[её] задание|от начала до конца)`)
)

// policyFor returns the fixed system policy for a mode. Unknown or absent
// modes default to tutoring.
func policyFor(mode Mode) string {
	switch mode {
	case ModeRewrite:
		return policyRewrite
	case ModeOutline:
		return policyOutline
	default:
		return policyTutor
	}
}

// guardFor classifies userText and returns the matching guard instruction.
// It runs on every call regardless of mode.
func guardFor(userText string) string {
	if guardVerbs.MatchString(userText) && guardQualifiers.MatchString(userText) {
		return guardRedirect
	}
	return guardNeutral
}

// contextFor serializes the opaque page context, or notes its absence.
func contextFor(pageContext any) string {
	if pageContext == nil {
		return contextAbsent
	}
	raw, err := json.Marshal(pageContext)
	if err != nil {
		return contextAbsent
	}
	return "Контекст страницы: " + string(raw)
}

// Compose builds the ordered message list for one chat turn:
// policy, guard, page context, stored history, then the new user turn.
// The order is fixed and significant.
func Compose(mode Mode, pageContext any, history []session.Turn, userText string) []llm.Message {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: policyFor(mode)},
		{Role: llm.RoleSystem, Content: guardFor(userText)},
		{Role: llm.RoleSystem, Content: contextFor(pageContext)},
	}
	for _, turn := range history {
		messages = append(messages, llm.Message{
			Role:    llm.Role(turn.Role),
			Content: turn.Content,
		})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: userText})
	return messages
}
