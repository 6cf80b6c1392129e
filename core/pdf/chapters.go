package pdf

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// maxTitleLen bounds chapter titles taken from the header or body.
const maxTitleLen = 100

// Chapter is one segment of a book.
type Chapter struct {
	Number int
	Title  string // may be empty
	Body   string
}

// Heading is "Chapter N" or "Chapter N: Title".
func (c Chapter) Heading() string {
	if c.Title == "" {
		return fmt.Sprintf("Chapter %d", c.Number)
	}
	return fmt.Sprintf("Chapter %d: %s", c.Number, c.Title)
}

// CompilePatterns compiles chapter header patterns. Each pattern must
// capture the chapter number in group 1 and may capture a title in group 2.
func CompilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("chapter pattern %q: %w", p, err)
		}
		if re.NumSubexp() < 1 {
			return nil, fmt.Errorf("chapter pattern %q: needs a capture group for the number", p)
		}
		out = append(out, re)
	}
	return out, nil
}

// SplitChapters segments text at chapter headers. The first pattern that
// finds any header is used. A chapter number seen more than once (a table
// of contents followed by the chapters themselves) keeps the occurrence
// with the longest body. Chapters are returned in numeric order, at most
// max of them when max > 0. Nil means no headers were found.
func SplitChapters(text string, patterns []*regexp.Regexp, max int) []Chapter {
	for _, re := range patterns {
		if chapters := split(text, re); len(chapters) > 0 {
			sort.SliceStable(chapters, func(i, j int) bool { return chapters[i].Number < chapters[j].Number })
			if max > 0 && len(chapters) > max {
				chapters = chapters[:max]
			}
			return chapters
		}
	}
	return nil
}

type header struct {
	start, end int
	number     int
	title      string
}

func split(text string, re *regexp.Regexp) []Chapter {
	var headers []header
	for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
		if m[2] < 0 {
			continue
		}
		n, ok := parseNumber(text[m[2]:m[3]])
		if !ok {
			continue
		}
		h := header{start: m[0], end: m[1], number: n}
		if len(m) >= 6 && m[4] >= 0 {
			h.title = cleanTitle(text[m[4]:m[5]])
		}
		headers = append(headers, h)
	}

	byNumber := make(map[int]int) // chapter number -> index in out
	var out []Chapter
	for i, h := range headers {
		end := len(text)
		if i+1 < len(headers) {
			end = headers[i+1].start
		}
		body := strings.TrimSpace(text[h.end:end])
		title := h.title
		if title == "" {
			title, body = titleFromBody(body)
		}
		ch := Chapter{Number: h.number, Title: title, Body: body}

		if j, seen := byNumber[h.number]; seen {
			if len(body) > len(out[j].Body) {
				out[j] = ch
			}
			continue
		}
		byNumber[h.number] = len(out)
		out = append(out, ch)
	}
	return out
}

// titleFromBody takes the first paragraph as the title when it is a single
// short line.
func titleFromBody(body string) (string, string) {
	para, rest, _ := strings.Cut(body, "\n\n")
	para = strings.TrimSpace(para)
	if para == "" || strings.Contains(para, "\n") || utf8.RuneCountInString(para) > maxTitleLen {
		return "", body
	}
	if rest == "" {
		// A lone line is content, not a title.
		return "", body
	}
	return para, strings.TrimSpace(rest)
}

func cleanTitle(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.Trim(s, ":.-–— ")
	if utf8.RuneCountInString(s) > maxTitleLen {
		return ""
	}
	return s
}

func parseNumber(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, n > 0
	}
	return parseRoman(s)
}

var romanValues = map[rune]int{'I': 1, 'V': 5, 'X': 10, 'L': 50, 'C': 100, 'D': 500, 'M': 1000}

// parseRoman accepts upper-case numerals with subtractive notation.
func parseRoman(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	total, prev := 0, 0
	runes := []rune(strings.ToUpper(s))
	for i := len(runes) - 1; i >= 0; i-- {
		v, ok := romanValues[runes[i]]
		if !ok {
			return 0, false
		}
		if v < prev {
			total -= v
		} else {
			total += v
			prev = v
		}
	}
	return total, total > 0
}
