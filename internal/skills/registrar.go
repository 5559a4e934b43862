// Package skills attaches built-in skills and prompt-template skills loaded
// from a directory to an assembled kernel.
//
// A semantic skill directory looks like:
//
//	<dir>/<Skill>/<Function>/skprompt.txt
//	<dir>/<Skill>/<Function>/config.json   (optional)
//
// Prompts reference variables as {{$name}}; {{$input}} is the main argument.
package skills

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/ehalsey/chat-copilot/internal/core/domain"
	"github.com/ehalsey/chat-copilot/internal/core/ports/driven"
	"github.com/ehalsey/chat-copilot/internal/logger"
)

// Ensure Registrar implements the interface.
var _ driven.SkillRegistrar = (*Registrar)(nil)

// Registrar registers built-in skills first, then every skill found in the
// configured directory. One failing skill never stops the rest.
type Registrar struct {
	settings domain.SkillSettings
	now      func() time.Time
}

// Option configures a Registrar.
type Option func(*Registrar)

// WithClock sets the time source of the time skill.
func WithClock(now func() time.Time) Option {
	return func(r *Registrar) {
		r.now = now
	}
}

// NewRegistrar creates a registrar for settings.
func NewRegistrar(settings domain.SkillSettings, opts ...Option) *Registrar {
	r := &Registrar{settings: settings, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterSkills attaches skills to host and returns one outcome per skill
// that was attempted. Disabled skills produce no outcome.
func (r *Registrar) RegisterSkills(ctx context.Context, host driven.SkillHost) []domain.SkillOutcome {
	var outcomes []domain.SkillOutcome

	for _, b := range r.builtins() {
		if r.settings.IsDisabled(b.name) {
			logger.Debug("skill %s disabled", b.name)
			continue
		}
		outcomes = append(outcomes, r.attach(host, b.name, domain.SkillSourceBuiltin, b.functions(host), nil))
	}

	if r.settings.Directory == "" {
		return outcomes
	}
	names, err := skillDirs(r.settings.Directory)
	if errors.Is(err, os.ErrNotExist) {
		logger.Warn("skill directory %s does not exist", r.settings.Directory)
		return outcomes
	}
	if err != nil {
		logger.Warn("cannot read skill directory %s: %v", r.settings.Directory, err)
		return outcomes
	}

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			outcomes = append(outcomes, failed(name, domain.SkillSourceSemantic, err))
			continue
		}
		if r.settings.IsDisabled(name) {
			logger.Debug("skill %s disabled", name)
			continue
		}
		functions, err := loadSemanticSkill(filepath.Join(r.settings.Directory, name), host)
		outcomes = append(outcomes, r.attach(host, name, domain.SkillSourceSemantic, functions, err))
	}
	return outcomes
}

func (r *Registrar) attach(
	host driven.SkillHost, name string, source domain.SkillSource, functions []domain.Function, loadErr error,
) domain.SkillOutcome {
	if loadErr != nil {
		return failed(name, source, loadErr)
	}
	if err := host.RegisterSkill(name, functions...); err != nil {
		return failed(name, source, err)
	}
	return domain.SkillOutcome{Skill: name, Source: source, Functions: len(functions)}
}

func failed(name string, source domain.SkillSource, err error) domain.SkillOutcome {
	return domain.SkillOutcome{
		Skill:  name,
		Source: source,
		Err:    &domain.SkillRegistrationError{Skill: name, Err: err},
	}
}
