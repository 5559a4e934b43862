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
	skillsJSON bool
	skillVars  map[string]string
)

var skillsCmd = &cobra.Command{
	Use:   "skills",
	Short: "List and run kernel skills",
	Long: `Skills are named groups of functions attached to the kernel.

Built-in skills (time, text, memory) are always available unless disabled.
Prompt-template skills are loaded from the configured skills directory.`,
}

var skillsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List attached skills and their functions",
	Args:  cobra.NoArgs,
	RunE:  runSkillsList,
}

var skillsRunCmd = &cobra.Command{
	Use:   "run [skill] [function] [input]",
	Short: "Run a skill function",
	Long: `Run a function of an attached skill. The optional third argument is passed
as the input variable; other variables are set with --var name=value.

Examples:
  chatcopilot skills run text uppercase "hello"
  chatcopilot skills run memory recall "door code" --var collection=facts`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runSkillsRun,
}

func init() {
	skillsListCmd.Flags().BoolVar(&skillsJSON, "json", false, "output skills as JSON")
	skillsRunCmd.Flags().StringToStringVar(&skillVars, "var", nil, "variable as name=value (repeatable)")

	skillsCmd.AddCommand(skillsListCmd)
	skillsCmd.AddCommand(skillsRunCmd)
	rootCmd.AddCommand(skillsCmd)
}

func runSkillsList(cmd *cobra.Command, _ []string) error {
	return withKernel(cmd, func(_ context.Context, kernel driving.Kernel) error {
		list := kernel.Skills()
		if skillsJSON {
			data, err := json.MarshalIndent(list, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal skills: %w", err)
			}
			cmd.Println(string(data))
			return nil
		}

		if len(list) == 0 {
			cmd.Println("No skills attached.")
			return nil
		}
		for _, skill := range list {
			cmd.Printf("%s\n", skill.Name)
			for _, fn := range skill.Functions {
				line := "  " + fn.Name
				if len(fn.Parameters) > 0 {
					line += "(" + strings.Join(fn.Parameters, ", ") + ")"
				}
				if fn.Description != "" {
					line += " - " + fn.Description
				}
				cmd.Println(line)
			}
		}
		return nil
	})
}

func runSkillsRun(cmd *cobra.Command, args []string) error {
	vars := make(domain.Variables, len(skillVars)+1)
	for k, v := range skillVars {
		vars[k] = v
	}
	if len(args) == 3 {
		vars[domain.InputVariable] = args[2]
	}

	return withKernel(cmd, func(ctx context.Context, kernel driving.Kernel) error {
		result, err := kernel.InvokeSkill(ctx, args[0], args[1], vars)
		if err != nil {
			return fmt.Errorf("skill failed: %w", err)
		}
		cmd.Println(result)
		return nil
	})
}
