// Package cli provides the chatcopilot command-line interface.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ehalsey/chat-copilot/internal/adapters/driven/ai"
	"github.com/ehalsey/chat-copilot/internal/adapters/driven/config/file"
	"github.com/ehalsey/chat-copilot/internal/adapters/driven/storage"
	"github.com/ehalsey/chat-copilot/internal/core/domain"
	"github.com/ehalsey/chat-copilot/internal/core/ports/driving"
	"github.com/ehalsey/chat-copilot/internal/core/services"
	"github.com/ehalsey/chat-copilot/internal/logger"
	"github.com/ehalsey/chat-copilot/internal/skills"
)

var version = "dev"

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "chatcopilot",
	Short: "Chat copilot kernel",
	Long: `chatcopilot assembles an AI kernel from configuration: a completion and an
embedding backend, a long-term memory store, and a set of skills.

Configuration is read from ~/.chatcopilot/config.toml and CHATCOPILOT_*
environment variables, which take precedence over the file.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.chatcopilot/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// openKernel assembles a kernel and returns it with a function releasing its
// backends. Tests replace it.
var openKernel = assembleKernel

func assembleKernel(ctx context.Context) (driving.Kernel, func() error, error) {
	settings, err := loadSettings()
	if err != nil {
		return nil, nil, err
	}

	assembly, err := services.Assemble(ctx, &settings,
		ai.NewFactory(),
		storage.NewFactory(),
		skills.NewRegistrar(settings.Skills),
		services.WithKernelOptions(services.WithCompletionDefaults(settings.Completion)),
	)
	if err != nil {
		return nil, nil, err
	}
	return assembly.Kernel, assembly.Close, nil
}

func newSettingsLoader() (*file.SettingsLoader, error) {
	return file.NewSettingsLoader(configPath)
}

func loadSettings() (domain.KernelSettings, error) {
	loader, err := newSettingsLoader()
	if err != nil {
		return domain.KernelSettings{}, err
	}
	settings, err := loader.Load()
	if err != nil {
		return domain.KernelSettings{}, fmt.Errorf("loading %s: %w", loader.Path(), err)
	}
	return settings, nil
}

// withKernel assembles a kernel, runs fn against it and releases the backends.
func withKernel(cmd *cobra.Command, fn func(ctx context.Context, kernel driving.Kernel) error) error {
	ctx := cmd.Context()
	kernel, closeKernel, err := openKernel(ctx)
	if err != nil {
		return fmt.Errorf("assembling kernel: %w", err)
	}
	defer func() {
		if err := closeKernel(); err != nil {
			logger.Warn("closing backends: %v", err)
		}
	}()
	return fn(ctx, kernel)
}
