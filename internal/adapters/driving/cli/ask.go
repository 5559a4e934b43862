package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ehalsey/chat-copilot/internal/core/domain"
	"github.com/ehalsey/chat-copilot/internal/core/ports/driving"
)

var (
	askSystem      string
	askMaxTokens   int
	askTemperature float64
)

var askCmd = &cobra.Command{
	Use:   "ask [prompt]",
	Short: "Send a prompt to the completion backend",
	Long: `Assembles the kernel and sends a prompt to its completion backend.

Options left unset fall back to the [completion] defaults of the configuration.
With --system the prompt is sent as a chat conversation.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askSystem, "system", "s", "", "system message")
	askCmd.Flags().IntVar(&askMaxTokens, "max-tokens", 0, "maximum tokens to generate (0 = configured default)")
	askCmd.Flags().Float64VarP(&askTemperature, "temperature", "t", 0, "sampling temperature (default from configuration)")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	prompt := strings.Join(args, " ")
	opts := domain.CompletionOptions{MaxTokens: askMaxTokens}
	if cmd.Flags().Changed("temperature") {
		opts.Temperature = domain.Float(askTemperature)
	}

	return withKernel(cmd, func(ctx context.Context, kernel driving.Kernel) error {
		var (
			answer string
			err    error
		)
		if askSystem != "" {
			answer, err = kernel.Chat(ctx, []domain.ChatMessage{
				{Role: domain.RoleSystem, Content: askSystem},
				{Role: domain.RoleUser, Content: prompt},
			}, opts)
		} else {
			answer, err = kernel.Complete(ctx, prompt, opts)
		}
		if err != nil {
			return fmt.Errorf("completion failed: %w", err)
		}
		cmd.Println(answer)
		return nil
	})
}
