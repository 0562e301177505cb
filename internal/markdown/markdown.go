// Package markdown inspects prompt content: optional YAML frontmatter, a
// title hint, a one-line summary and the fenced code blocks.
package markdown

import (
	"bytes"
	"sort"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// SummaryLength caps the derived summary, in runes.
const SummaryLength = 120

// CodeBlock is one fenced block. Lang is the first word of the info string,
// lowercased; empty when the fence carries none.
type CodeBlock struct {
	Lang string `json:"lang"`
	Code string `json:"code"`
}

// Result is the outcome of inspecting one prompt body.
type Result struct {
	Frontmatter map[string]interface{} `json:"frontmatter,omitempty"`
	Body        string                 `json:"-"`
	Title       string                 `json:"title"`
	Summary     string                 `json:"summary"`
	CodeBlocks  []CodeBlock            `json:"codeBlocks"`
}

// Languages returns the distinct non-empty code block languages, sorted.
func (r Result) Languages() []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, b := range r.CodeBlocks {
		if b.Lang == "" {
			continue
		}
		if _, ok := seen[b.Lang]; ok {
			continue
		}
		seen[b.Lang] = struct{}{}
		out = append(out, b.Lang)
	}
	sort.Strings(out)
	return out
}

// Parse never fails: malformed frontmatter is treated as body text and an
// unterminated fence runs to the end of the content.
func Parse(content string) Result {
	fm, body := splitFrontmatter([]byte(content))
	blocks, prose := scanFences(body)
	return Result{
		Frontmatter: fm,
		Body:        body,
		Title:       deriveTitle(fm, prose),
		Summary:     deriveSummary(fm, prose),
		CodeBlocks:  blocks,
	}
}

func splitFrontmatter(data []byte) (map[string]interface{}, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data)
	}

	var fm map[string]interface{}
	if err := yaml.Unmarshal(rest[:idx], &fm); err != nil || fm == nil {
		return nil, string(data)
	}
	body := strings.TrimLeft(string(rest[idx+1+len(delim):]), "\n\r")
	return fm, body
}

// scanFences extracts fenced blocks and returns the remaining prose lines.
func scanFences(body string) ([]CodeBlock, []string) {
	blocks := []CodeBlock{}
	var prose []string

	var (
		inFence bool
		marker  string
		lang    string
		code    []string
	)
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if !inFence {
			if m := fenceMarker(trimmed); m != "" {
				inFence, marker, code = true, m, nil
				lang = ""
				if fields := strings.Fields(trimmed[len(m):]); len(fields) > 0 {
					lang = strings.ToLower(fields[0])
				}
				continue
			}
			prose = append(prose, line)
			continue
		}
		if strings.HasPrefix(trimmed, marker) && strings.Trim(trimmed, marker[:1]) == "" {
			blocks = append(blocks, CodeBlock{Lang: lang, Code: strings.Join(code, "\n")})
			inFence = false
			continue
		}
		code = append(code, line)
	}
	if inFence {
		blocks = append(blocks, CodeBlock{Lang: lang, Code: strings.Join(code, "\n")})
	}
	return blocks, prose
}

// fenceMarker returns the run of backticks or tildes opening a fence.
func fenceMarker(line string) string {
	for _, c := range []byte{'`', '~'} {
		n := 0
		for n < len(line) && line[n] == c {
			n++
		}
		if n >= 3 {
			return line[:n]
		}
	}
	return ""
}

func fmString(fm map[string]interface{}, key string) string {
	if fm == nil {
		return ""
	}
	if s, ok := fm[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func deriveTitle(fm map[string]interface{}, prose []string) string {
	if t := fmString(fm, "title"); t != "" {
		return t
	}
	for _, line := range prose {
		if h, ok := heading(line); ok && h != "" {
			return h
		}
	}
	return ""
}

func deriveSummary(fm map[string]interface{}, prose []string) string {
	for _, key := range []string{"summary", "description"} {
		if s := fmString(fm, key); s != "" {
			return truncate(s)
		}
	}
	for _, line := range prose {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if _, ok := heading(trimmed); ok {
			continue
		}
		trimmed = strings.TrimLeft(trimmed, "-*>+ ")
		if trimmed == "" {
			continue
		}
		return truncate(trimmed)
	}
	return ""
}

// heading reports whether line is an ATX heading and returns its text.
func heading(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	level := 0
	for level < len(trimmed) && trimmed[level] == '#' {
		level++
	}
	if level == 0 || level > 6 {
		return "", false
	}
	rest := trimmed[level:]
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return "", false
	}
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(rest), "#")), true
}

func truncate(s string) string {
	if utf8.RuneCountInString(s) <= SummaryLength {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:SummaryLength])) + "…"
}
