package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ehalsey/chat-copilot/internal/core/domain"
	"github.com/ehalsey/chat-copilot/internal/core/ports/driven"
	"github.com/ehalsey/chat-copilot/internal/logger"
)

// Backends are the process-wide backend singletons built from settings.
// Every kernel assembled from the same Backends shares them.
type Backends struct {
	Store      driven.VectorStore
	Embedding  driven.EmbeddingService
	Completion driven.CompletionService
}

// BuildBackends creates the vector store, the embedding backend and the
// completion backend, in that order. Settings are validated first; if any
// factory fails, backends built so far are closed and the error is returned
// unchanged.
func BuildBackends(
	settings *domain.KernelSettings,
	aiFactory driven.AIServiceFactory,
	storeFactory driven.MemoryStoreFactory,
) (*Backends, error) {
	if settings == nil {
		return nil, domain.NewConfigurationError("settings", "", "kernel settings are required")
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	logger.Section("Backends")
	b := &Backends{}

	store, err := storeFactory.CreateMemoryStore(&settings.MemoryStore)
	if err != nil {
		return nil, err
	}
	b.Store = store
	logger.Debug("memory store: %s", settings.MemoryStore.Type.Description())

	embedding, err := aiFactory.CreateEmbeddingService(&settings.AIService)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	b.Embedding = embedding
	logger.Debug("embedding backend: %s (%s)", settings.AIService.Type.Description(), embedding.ModelName())

	completion, err := aiFactory.CreateCompletionService(&settings.AIService)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	b.Completion = completion
	logger.Debug("completion backend: %s (%s)", settings.AIService.Type.Description(), completion.ModelName())

	return b, nil
}

// Close releases every backend that was built.
func (b *Backends) Close() error {
	var errs []error
	if b.Completion != nil {
		errs = append(errs, b.Completion.Close())
	}
	if b.Embedding != nil {
		errs = append(errs, b.Embedding.Close())
	}
	if b.Store != nil {
		errs = append(errs, b.Store.Close())
	}
	return errors.Join(errs...)
}

// AssemblyReport records what happened to each skill during assembly.
type AssemblyReport struct {
	Skills []domain.SkillOutcome
}

// Attached returns the outcomes of skills that were registered.
func (r *AssemblyReport) Attached() []domain.SkillOutcome {
	var out []domain.SkillOutcome
	for _, o := range r.Skills {
		if o.OK() {
			out = append(out, o)
		}
	}
	return out
}

// Failed returns the outcomes of skills that could not be registered.
func (r *AssemblyReport) Failed() []domain.SkillOutcome {
	var out []domain.SkillOutcome
	for _, o := range r.Skills {
		if !o.OK() {
			out = append(out, o)
		}
	}
	return out
}

// Assembler builds kernels over a shared set of backends.
type Assembler struct {
	backends   *Backends
	registrar  driven.SkillRegistrar
	kernelOpts []KernelOption
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithKernelOptions applies opts to every assembled kernel.
func WithKernelOptions(opts ...KernelOption) AssemblerOption {
	return func(a *Assembler) {
		a.kernelOpts = append(a.kernelOpts, opts...)
	}
}

// NewAssembler creates an assembler. The registrar may be nil, in which case
// kernels are assembled without skills.
func NewAssembler(backends *Backends, registrar driven.SkillRegistrar, opts ...AssemblerOption) *Assembler {
	a := &Assembler{backends: backends, registrar: registrar}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble constructs a kernel and runs the skill registrar against it.
// Skill failures are logged and reported; they never fail assembly.
func (a *Assembler) Assemble(ctx context.Context) (*Kernel, *AssemblyReport, error) {
	if a.backends == nil || a.backends.Store == nil || a.backends.Embedding == nil || a.backends.Completion == nil {
		return nil, nil, fmt.Errorf("%w: all backends are required", domain.ErrInvalidInput)
	}

	memory, err := NewSemanticMemory(a.backends.Embedding, a.backends.Store)
	if err != nil {
		return nil, nil, err
	}
	kernel, err := NewKernel(a.backends.Completion, memory, a.kernelOpts...)
	if err != nil {
		return nil, nil, err
	}

	report := &AssemblyReport{}
	if a.registrar != nil {
		logger.Section("Skills")
		report.Skills = a.registrar.RegisterSkills(ctx, kernel)
	}
	for _, o := range report.Skills {
		if o.OK() {
			logger.Debug("skill %s attached (%s, %d functions)", o.Skill, o.Source, o.Functions)
			continue
		}
		logger.Warn("skill %s skipped: %v", o.Skill, o.Err)
	}
	return kernel, report, nil
}

// Assembly is a kernel together with the backends it owns.
type Assembly struct {
	Kernel   *Kernel
	Backends *Backends
	Report   *AssemblyReport
}

// Close releases the backends.
func (a *Assembly) Close() error {
	return a.Backends.Close()
}

// Assemble builds backends from settings and assembles one kernel over them.
// Invalid settings fail before any backend is built or any skill registered.
func Assemble(
	ctx context.Context,
	settings *domain.KernelSettings,
	aiFactory driven.AIServiceFactory,
	storeFactory driven.MemoryStoreFactory,
	registrar driven.SkillRegistrar,
	opts ...AssemblerOption,
) (*Assembly, error) {
	backends, err := BuildBackends(settings, aiFactory, storeFactory)
	if err != nil {
		return nil, err
	}

	kernel, report, err := NewAssembler(backends, registrar, opts...).Assemble(ctx)
	if err != nil {
		_ = backends.Close()
		return nil, err
	}
	return &Assembly{Kernel: kernel, Backends: backends, Report: report}, nil
}
