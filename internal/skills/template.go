package skills

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ehalsey/chat-copilot/internal/core/domain"
)

var variableBlock = regexp.MustCompile(`^\s*\$([A-Za-z_][A-Za-z0-9_]*)\s*$`)

// segment is either literal text or a variable reference.
type segment struct {
	text     string
	variable string
}

// Template is a parsed prompt template. Variables are written {{$name}};
// unknown variables render as empty strings.
type Template struct {
	segments []segment
}

// ParseTemplate parses a prompt template.
func ParseTemplate(src string) (*Template, error) {
	t := &Template{}
	rest := src
	offset := 0
	for {
		start := strings.Index(rest, "{{")
		if start < 0 {
			t.appendText(rest)
			return t, nil
		}
		t.appendText(rest[:start])

		end := strings.Index(rest[start+2:], "}}")
		if end < 0 {
			return nil, fmt.Errorf("%w: unclosed block at offset %d", domain.ErrInvalidInput, offset+start)
		}
		body := rest[start+2 : start+2+end]
		m := variableBlock.FindStringSubmatch(body)
		if m == nil {
			return nil, fmt.Errorf("%w: unsupported block {{%s}} at offset %d", domain.ErrInvalidInput, body, offset+start)
		}
		t.segments = append(t.segments, segment{variable: m[1]})

		consumed := start + 2 + end + 2
		rest = rest[consumed:]
		offset += consumed
	}
}

func (t *Template) appendText(s string) {
	if s != "" {
		t.segments = append(t.segments, segment{text: s})
	}
}

// Variables lists referenced variable names in order of first use.
func (t *Template) Variables() []string {
	var names []string
	seen := make(map[string]bool)
	for _, s := range t.segments {
		if s.variable != "" && !seen[s.variable] {
			seen[s.variable] = true
			names = append(names, s.variable)
		}
	}
	return names
}

// Render substitutes vars into the template.
func (t *Template) Render(vars domain.Variables) string {
	var b strings.Builder
	for _, s := range t.segments {
		if s.variable != "" {
			b.WriteString(vars[s.variable])
			continue
		}
		b.WriteString(s.text)
	}
	return b.String()
}
