package core

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Parsed is the outcome of a parse chain: a value, or the unparseable state.
type Parsed[T any] struct {
	Value T
	OK    bool
}

func parsed[T any](v T) Parsed[T] { return Parsed[T]{Value: v, OK: true} }

func unparseable[T any]() Parsed[T] { return Parsed[T]{} }

var (
	fenceRe  = regexp.MustCompile("(?s)```[a-zA-Z]*")
	prefixRe = regexp.MustCompile(`^[A-Za-z_ ]{1,40}:\s*`)
)

// candidates yields the texts a chain tries, in order: the raw text, the text with code
// fences and a leading "label:" removed, and the first balanced open..close span.
func candidates(text string, open, close byte) []string {
	raw := strings.TrimSpace(text)
	stripped := strings.TrimSpace(fenceRe.ReplaceAllString(raw, ""))
	if loc := prefixRe.FindStringIndex(stripped); loc != nil && !strings.HasPrefix(stripped, string(open)) {
		stripped = strings.TrimSpace(stripped[loc[1]:])
	}
	out := []string{raw, stripped}
	if span, ok := balancedSpan(stripped, open, close); ok {
		out = append(out, span)
	}
	return out
}

// parseChain runs strict decoding over each candidate, then again with quote repair.
func parseChain[T any](text string, open, close byte, accept func(T) bool) Parsed[T] {
	cands := candidates(text, open, close)
	for _, repair := range []bool{false, true} {
		for _, c := range cands {
			if repair {
				c = repairQuotes(c)
			}
			var v T
			if err := json.Unmarshal([]byte(c), &v); err != nil {
				continue
			}
			if accept == nil || accept(v) {
				return parsed(v)
			}
		}
	}
	return unparseable[T]()
}

// balancedSpan returns the first open..close substring with balanced nesting, skipping
// delimiters inside quoted strings.
func balancedSpan(s string, open, close byte) (string, bool) {
	start := strings.IndexByte(s, open)
	if start < 0 {
		return "", false
	}
	depth := 0
	var quote byte
	for i := start; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			switch {
			case c == '\\':
				i++
			case c == quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"':
			quote = c
		case '\'':
			// only a quote when it opens a value, not an apostrophe inside a bare word
			if i > 0 && isWordByte(s[i-1]) {
				continue
			}
			quote = c
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

func isWordByte(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

// repairQuotes rewrites single-quoted strings as JSON strings. An apostrophe inside a
// single-quoted string only closes it when followed by a structural character.
func repairQuotes(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)
	inDouble, inSingle := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inDouble:
			b.WriteByte(c)
			if c == '\\' && i+1 < len(s) {
				i++
				b.WriteByte(s[i])
			} else if c == '"' {
				inDouble = false
			}
		case inSingle:
			switch {
			case c == '\\' && i+1 < len(s) && s[i+1] == '\'':
				b.WriteByte('\'')
				i++
			case c == '"':
				b.WriteString(`\"`)
			case c == '\'' && closesValue(s[i+1:]):
				b.WriteByte('"')
				inSingle = false
			default:
				b.WriteByte(c)
			}
		case c == '"':
			inDouble = true
			b.WriteByte(c)
		case c == '\'':
			inSingle = true
			b.WriteByte('"')
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func closesValue(rest string) bool {
	rest = strings.TrimLeft(rest, " \t\r\n")
	if rest == "" {
		return true
	}
	switch rest[0] {
	case ',', ']', '}', ':':
		return true
	}
	return false
}

// ParseList extracts a list of non-empty strings.
func ParseList(text string) Parsed[[]string] {
	p := parseChain(text, '[', ']', func(v []string) bool { return v != nil })
	if !p.OK {
		return p
	}
	out := make([]string, 0, len(p.Value))
	for _, s := range p.Value {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return parsed(out)
}

type rawPlanStep struct {
	ID           *int   `json:"id"`
	Step         string `json:"step"`
	Description  string `json:"description"`
	Dependencies []int  `json:"dependencies"`
}

// ParsePlan extracts plan steps without validating their structure.
func ParsePlan(text string) Parsed[[]PlanStep] {
	p := parseChain(text, '[', ']', func(v []rawPlanStep) bool { return len(v) > 0 })
	if !p.OK {
		return unparseable[[]PlanStep]()
	}
	steps := make([]PlanStep, 0, len(p.Value))
	for _, r := range p.Value {
		if r.ID == nil {
			return unparseable[[]PlanStep]()
		}
		desc := strings.TrimSpace(r.Step)
		if desc == "" {
			desc = strings.TrimSpace(r.Description)
		}
		deps := r.Dependencies
		if deps == nil {
			deps = []int{}
		}
		steps = append(steps, PlanStep{ID: *r.ID, Description: desc, Dependencies: deps})
	}
	return parsed(steps)
}

type rawAction struct {
	Action string `json:"action"`
	Kind   string `json:"kind"`
	Query  string `json:"query"`
	URL    string `json:"url"`
	Text   string `json:"text"`
}

// ParseAction extracts an agent action. Unknown kinds and missing arguments are
// unparseable.
func ParseAction(text string) Parsed[AgentAction] {
	p := parseChain(text, '{', '}', func(r rawAction) bool {
		return r.Action != "" || r.Kind != ""
	})
	if !p.OK {
		return unparseable[AgentAction]()
	}
	kind := p.Value.Action
	if kind == "" {
		kind = p.Value.Kind
	}
	a := AgentAction{Kind: ActionKind(strings.ToLower(strings.TrimSpace(kind)))}
	switch a.Kind {
	case ActionSearch:
		a.Query = strings.TrimSpace(p.Value.Query)
	case ActionVisit:
		a.URL = strings.TrimSpace(p.Value.URL)
	case ActionAnswer:
		a.Text = p.Value.Text
	default:
		return unparseable[AgentAction]()
	}
	if !a.Valid() {
		return unparseable[AgentAction]()
	}
	return parsed(a)
}
