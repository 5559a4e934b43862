package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ehalsey/chat-copilot/internal/core/domain"
	"github.com/ehalsey/chat-copilot/internal/core/ports/driving"
)

var (
	memoryCollection   string
	memoryID           string
	memoryDescription  string
	memoryLimit        int
	memoryMinRelevance float64
	memoryJSON         bool
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Manage long-term semantic memory",
	Long: `Save, recall and forget records in the configured memory store.

Records are embedded with the embedding backend and searched by cosine
similarity. Collections default to ` + domain.DefaultMemoryCollection + `.`,
}

var memorySaveCmd = &cobra.Command{
	Use:   "save [text]",
	Short: "Save information to memory",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMemorySave,
}

var memoryRecallCmd = &cobra.Command{
	Use:   "recall [query]",
	Short: "Search memory for similar information",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMemoryRecall,
}

var memoryForgetCmd = &cobra.Command{
	Use:   "forget [id]",
	Short: "Remove a memory by key",
	Args:  cobra.ExactArgs(1),
	RunE:  runMemoryForget,
}

func init() {
	memoryCmd.PersistentFlags().StringVarP(&memoryCollection, "collection", "c",
		domain.DefaultMemoryCollection, "memory collection")

	memorySaveCmd.Flags().StringVar(&memoryID, "id", "", "record key (generated when empty)")
	memorySaveCmd.Flags().StringVarP(&memoryDescription, "description", "d", "", "short description")

	memoryRecallCmd.Flags().IntVarP(&memoryLimit, "limit", "n", domain.DefaultRecallLimit, "maximum number of results")
	memoryRecallCmd.Flags().Float64Var(&memoryMinRelevance, "min-relevance",
		domain.DefaultMinRelevance, "minimum relevance between 0 and 1")
	memoryRecallCmd.Flags().BoolVar(&memoryJSON, "json", false, "output results as JSON")

	memoryCmd.AddCommand(memorySaveCmd)
	memoryCmd.AddCommand(memoryRecallCmd)
	memoryCmd.AddCommand(memoryForgetCmd)
	rootCmd.AddCommand(memoryCmd)
}

func runMemorySave(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	return withKernel(cmd, func(ctx context.Context, kernel driving.Kernel) error {
		id, err := kernel.Save(ctx, memoryCollection, memoryID, text, memoryDescription)
		if err != nil {
			return fmt.Errorf("save failed: %w", err)
		}
		cmd.Printf("Saved %s in %s\n", id, memoryCollection)
		return nil
	})
}

func runMemoryRecall(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	return withKernel(cmd, func(ctx context.Context, kernel driving.Kernel) error {
		results, err := kernel.Recall(ctx, memoryCollection, query, memoryLimit, memoryMinRelevance)
		if err != nil {
			return fmt.Errorf("recall failed: %w", err)
		}
		if memoryJSON {
			return outputMemoryJSON(cmd, results)
		}
		return outputMemoryTable(cmd, results)
	})
}

func runMemoryForget(cmd *cobra.Command, args []string) error {
	return withKernel(cmd, func(ctx context.Context, kernel driving.Kernel) error {
		if err := kernel.Forget(ctx, memoryCollection, args[0]); err != nil {
			return fmt.Errorf("forget failed: %w", err)
		}
		cmd.Printf("Removed %s from %s\n", args[0], memoryCollection)
		return nil
	})
}

type memoryJSONResult struct {
	ID          string  `json:"id"`
	Text        string  `json:"text,omitempty"`
	Description string  `json:"description,omitempty"`
	Source      string  `json:"source,omitempty"`
	Relevance   float64 `json:"relevance"`
}

func outputMemoryJSON(cmd *cobra.Command, results []domain.MemoryQueryResult) error {
	out := make([]memoryJSONResult, len(results))
	for i := range results {
		r := results[i].Record
		out[i] = memoryJSONResult{
			ID:          r.ID,
			Text:        r.Text,
			Description: r.Description,
			Source:      r.ExternalSourceName,
			Relevance:   results[i].Relevance,
		}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputMemoryTable(cmd *cobra.Command, results []domain.MemoryQueryResult) error {
	if len(results) == 0 {
		cmd.Println("No memories found.")
		return nil
	}

	cmd.Println("Memories:")
	cmd.Println()
	for i := range results {
		r := results[i].Record
		cmd.Printf("  [%d] %s (%.2f)\n", i+1, r.ID, results[i].Relevance)
		if r.IsReference {
			cmd.Printf("      Source: %s\n", r.ExternalSourceName)
		}
		if r.Text != "" {
			cmd.Printf("      %s\n", r.Text)
		} else if r.Description != "" {
			cmd.Printf("      %s\n", r.Description)
		}
		cmd.Println()
	}
	return nil
}
