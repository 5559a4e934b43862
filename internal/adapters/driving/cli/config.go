package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ehalsey/chat-copilot/internal/adapters/driven/ai"
	"github.com/ehalsey/chat-copilot/internal/adapters/driven/config/file"
	"github.com/ehalsey/chat-copilot/internal/core/domain"
)

var (
	configCheckPing bool
	configInitForce bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and create the kernel configuration",
	Long: `View, validate and initialise the kernel configuration.

Settings are read from the config file and overridden by CHATCOPILOT_*
environment variables, for example CHATCOPILOT_AI_SERVICE_API_KEY or
CHATCOPILOT_MEMORY_STORE_TYPE.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration",
	Long: `Validate the configuration without building any backend.

With --ping the completion and embedding backends are also contacted.`,
	RunE: runConfigCheck,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	RunE:  runConfigInit,
}

func init() {
	configCheckCmd.Flags().BoolVar(&configCheckPing, "ping", false, "contact the AI backends")
	configInitCmd.Flags().BoolVarP(&configInitForce, "force", "f", false, "overwrite an existing file")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configCheckCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	loader, err := newSettingsLoader()
	if err != nil {
		return err
	}
	settings, err := loader.Load()
	if err != nil {
		return fmt.Errorf("loading %s: %w", loader.Path(), err)
	}

	cmd.Printf("Config file: %s\n", loader.Path())
	cmd.Println()

	svc := settings.AIService
	cmd.Println("AI Service:")
	cmd.Printf("  Type: %s\n", svc.Type.Description())
	if svc.Endpoint != "" {
		cmd.Printf("  Endpoint: %s\n", svc.Endpoint)
	}
	if svc.APIKey != "" {
		cmd.Printf("  API Key: %s\n", maskAPIKey(svc.APIKey))
	} else {
		cmd.Printf("  API Key: (not set)\n")
	}
	cmd.Printf("  Completion model: %s\n", svc.CompletionModelID)
	cmd.Printf("  Embedding model: %s\n", svc.EmbeddingModelID)
	cmd.Println()

	store := settings.MemoryStore
	cmd.Println("Memory Store:")
	cmd.Printf("  Type: %s\n", store.Type.Description())
	if db := store.VectorDB(); db != nil {
		cmd.Printf("  Host: %s:%d\n", db.Host, db.Port)
		if db.APIKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(db.APIKey))
		}
		if db.VectorSize > 0 {
			cmd.Printf("  Vector size: %d\n", db.VectorSize)
		}
	}
	if store.Type == domain.MemoryStoreSQLite && store.SQLite != nil {
		cmd.Printf("  Path: %s\n", store.SQLite.Path)
	}
	cmd.Println()

	cmd.Println("Skills:")
	if settings.Skills.Directory != "" {
		cmd.Printf("  Directory: %s\n", settings.Skills.Directory)
	} else {
		cmd.Printf("  Directory: (none)\n")
	}
	if len(settings.Skills.Disabled) > 0 {
		cmd.Printf("  Disabled: %s\n", strings.Join(settings.Skills.Disabled, ", "))
	}
	cmd.Println()

	cmd.Println("Completion defaults:")
	cmd.Printf("  Max tokens: %d\n", settings.Completion.MaxTokens)
	if t := settings.Completion.Temperature; t != nil {
		cmd.Printf("  Temperature: %.2f\n", *t)
	} else {
		cmd.Printf("  Temperature: (backend default)\n")
	}
	return nil
}

func runConfigCheck(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	if configCheckPing {
		validator := ai.NewConfigValidator(ai.NewFactory())
		if err := ai.ValidateConnectivity(cmd.Context(), validator, &settings.AIService); err != nil {
			return fmt.Errorf("connectivity check failed: %w", err)
		}
		cmd.Println("AI backends reachable.")
	}

	cmd.Println("Configuration OK.")
	return nil
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	loader, err := newSettingsLoader()
	if err != nil {
		return err
	}
	path := loader.Path()

	if _, err := os.Stat(path); err == nil && !configInitForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking %s: %w", path, err)
	}

	if err := file.SaveKernelSettings(path, domain.DefaultKernelSettings()); err != nil {
		return err
	}
	cmd.Printf("Wrote %s\n", path)
	cmd.Println("Set ai_service.api_key or CHATCOPILOT_AI_SERVICE_API_KEY before use.")
	return nil
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
