package skills

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ehalsey/chat-copilot/internal/core/domain"
	"github.com/ehalsey/chat-copilot/internal/core/ports/driven"
)

// Built-in skill names.
const (
	TimeSkill   = "time"
	TextSkill   = "text"
	MemorySkill = "memory"
)

// Variables read by the memory skill.
const (
	CollectionVariable = "collection"
	KeyVariable        = "key"
	LimitVariable      = "limit"
	RelevanceVariable  = "relevance"
)

// builtin is a skill compiled into the binary.
type builtin struct {
	name      string
	functions func(host driven.SkillHost) []domain.Function
}

func (r *Registrar) builtins() []builtin {
	return []builtin{
		{name: TimeSkill, functions: func(driven.SkillHost) []domain.Function { return timeFunctions(r.now) }},
		{name: TextSkill, functions: func(driven.SkillHost) []domain.Function { return textFunctions() }},
		{name: MemorySkill, functions: memoryFunctions},
	}
}

func constant(name, description string, fn func() string) domain.Function {
	return domain.Function{
		Name:        name,
		Description: description,
		Handler: func(context.Context, domain.Variables) (string, error) {
			return fn(), nil
		},
	}
}

func timeFunctions(now func() time.Time) []domain.Function {
	return []domain.Function{
		constant("now", "Current date and time", func() string {
			return now().Format(time.RFC1123)
		}),
		constant("today", "Current date in long form", func() string {
			return now().Format("Monday, January 2, 2006")
		}),
		constant("date", "Current date as YYYY-MM-DD", func() string {
			return now().Format(time.DateOnly)
		}),
		constant("time", "Current time as HH:MM:SS", func() string {
			return now().Format(time.TimeOnly)
		}),
	}
}

func transform(name, description string, fn func(string) string) domain.Function {
	return domain.Function{
		Name:        name,
		Description: description,
		Parameters:  []string{domain.InputVariable},
		Handler: func(_ context.Context, vars domain.Variables) (string, error) {
			return fn(vars.Input()), nil
		},
	}
}

func textFunctions() []domain.Function {
	return []domain.Function{
		transform("uppercase", "Convert the input to upper case", strings.ToUpper),
		transform("lowercase", "Convert the input to lower case", strings.ToLower),
		transform("trim", "Remove leading and trailing whitespace", strings.TrimSpace),
		transform("trimstart", "Remove leading whitespace", func(s string) string {
			return strings.TrimLeft(s, " \t\r\n")
		}),
		transform("trimend", "Remove trailing whitespace", func(s string) string {
			return strings.TrimRight(s, " \t\r\n")
		}),
		transform("length", "Count the characters of the input", func(s string) string {
			return strconv.Itoa(utf8.RuneCountInString(s))
		}),
		{
			Name:        "concat",
			Description: "Join input and input2",
			Parameters:  []string{domain.InputVariable, "input2"},
			Handler: func(_ context.Context, vars domain.Variables) (string, error) {
				return vars.Input() + vars["input2"], nil
			},
		},
	}
}

func memoryFunctions(host driven.SkillHost) []domain.Function {
	return []domain.Function{
		{
			Name:        "save",
			Description: "Remember the input in a memory collection",
			Parameters:  []string{domain.InputVariable, CollectionVariable, KeyVariable},
			Handler: func(ctx context.Context, vars domain.Variables) (string, error) {
				return host.Save(ctx, vars[CollectionVariable], vars[KeyVariable], vars.Input(), "")
			},
		},
		{
			Name:        "recall",
			Description: "Return the memories closest to the input, one per line",
			Parameters:  []string{domain.InputVariable, CollectionVariable, LimitVariable, RelevanceVariable},
			Handler: func(ctx context.Context, vars domain.Variables) (string, error) {
				limit := 1
				if v := vars[LimitVariable]; v != "" {
					n, err := strconv.Atoi(v)
					if err != nil || n <= 0 {
						return "", fmt.Errorf("%w: limit %q must be a positive integer", domain.ErrInvalidInput, v)
					}
					limit = n
				}
				relevance := domain.DefaultMinRelevance
				if v := vars[RelevanceVariable]; v != "" {
					f, err := strconv.ParseFloat(v, 64)
					if err != nil || f < 0 || f > 1 {
						return "", fmt.Errorf("%w: relevance %q must be between 0 and 1", domain.ErrInvalidInput, v)
					}
					relevance = f
				}

				results, err := host.Recall(ctx, vars[CollectionVariable], vars.Input(), limit, relevance)
				if err != nil {
					return "", err
				}
				lines := make([]string, 0, len(results))
				for _, r := range results {
					lines = append(lines, recalledText(r.Record))
				}
				return strings.Join(lines, "\n"), nil
			},
		},
	}
}

// recalledText is the line a recalled record contributes. References saved
// without text fall back to their description, then to source:id.
func recalledText(r domain.MemoryRecord) string {
	switch {
	case r.Text != "":
		return r.Text
	case r.Description != "":
		return r.Description
	case r.ExternalSourceName != "":
		return r.ExternalSourceName + ":" + r.ID
	default:
		return r.ID
	}
}
