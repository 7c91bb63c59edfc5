package review

import (
	"fmt"
	"regexp"
	"strings"
)

// Stats summarizes an extracted document with cheap heuristics. These are
// estimates for the report header, not exact document metrics.
type Stats struct {
	Words    int `json:"words"`
	Chars    int `json:"chars"`
	PagesEst int `json:"pagesEst"`
	Refs     int `json:"refs"`
}

const charsPerPage = 2000

// Bibliography entries typically open with a bracketed or dotted numeral:
// "[12] ..." or "12. ...".
var refLinePattern = regexp.MustCompile(`^\s*(\[\d+\]|\d+\.)\s`)

// Standards-body abbreviations counted wherever they appear in the text.
var standardsPattern = regexp.MustCompile(`ГОСТ|СНиП|ISO|IEEE|DIN|ANSI`)

// computeStats derives the document statistics from the extracted text:
// whitespace-delimited word count, character count, a page estimate
// (chars/2000, rounded, minimum 1) and a reference count from citation-like
// line openings plus standards-body mentions.
func computeStats(text string) Stats {
	chars := len([]rune(text))
	pages := (chars + charsPerPage/2) / charsPerPage
	if pages < 1 {
		pages = 1
	}

	refs := 0
	for _, line := range strings.Split(text, "\n") {
		if refLinePattern.MatchString(line) {
			refs++
		}
	}
	refs += len(standardsPattern.FindAllString(text, -1))

	return Stats{
		Words:    len(strings.Fields(text)),
		Chars:    chars,
		PagesEst: pages,
		Refs:     refs,
	}
}

// header renders the statistics block prepended to the final report.
func (s Stats) header() string {
	return fmt.Sprintf(
		"Статистика документа: ~%d стр., %d слов, %d символов, источников/ссылок: %d.\n\n",
		s.PagesEst, s.Words, s.Chars, s.Refs)
}
