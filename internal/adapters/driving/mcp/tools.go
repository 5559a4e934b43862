package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ehalsey/chat-copilot/internal/core/domain"
)

const defaultRecallLimit = 5

// CompleteInput is the input schema for the complete tool.
type CompleteInput struct {
	Prompt      string   `json:"prompt" jsonschema:"the prompt to complete"`
	System      string   `json:"system,omitempty" jsonschema:"optional system message; switches to chat mode"`
	MaxTokens   int      `json:"max_tokens,omitempty" jsonschema:"maximum tokens to generate"`
	Temperature *float64 `json:"temperature,omitempty" jsonschema:"sampling temperature between 0 and 2"`
}

// CompleteOutput is the output schema for the complete tool.
type CompleteOutput struct {
	Text string `json:"text"`
}

// RememberInput is the input schema for the remember tool.
type RememberInput struct {
	Text        string `json:"text" jsonschema:"the information to remember"`
	Collection  string `json:"collection,omitempty" jsonschema:"memory collection (default chat-memories)"`
	ID          string `json:"id,omitempty" jsonschema:"record key; generated when empty"`
	Description string `json:"description,omitempty" jsonschema:"short description of the memory"`
}

// RememberOutput is the output schema for the remember tool.
type RememberOutput struct {
	ID         string `json:"id"`
	Collection string `json:"collection"`
}

// RecallInput is the input schema for the recall tool.
type RecallInput struct {
	Query        string  `json:"query" jsonschema:"what to search memory for"`
	Collection   string  `json:"collection,omitempty" jsonschema:"memory collection (default chat-memories)"`
	Limit        int     `json:"limit,omitempty" jsonschema:"maximum number of memories to return (default 5)"`
	MinRelevance float64 `json:"min_relevance,omitempty" jsonschema:"minimum cosine similarity between 0 and 1 (default 0.7)"`
}

// RecallOutput is the output schema for the recall tool.
type RecallOutput struct {
	Memories []MemoryOutput `json:"memories"`
	Count    int            `json:"count"`
}

// MemoryOutput represents a single recalled memory.
type MemoryOutput struct {
	ID          string  `json:"id"`
	Text        string  `json:"text,omitempty"`
	Description string  `json:"description,omitempty"`
	Source      string  `json:"source,omitempty"`
	Relevance   float64 `json:"relevance"`
}

// ForgetInput is the input schema for the forget tool.
type ForgetInput struct {
	ID         string `json:"id" jsonschema:"key of the memory to remove"`
	Collection string `json:"collection,omitempty" jsonschema:"memory collection (default chat-memories)"`
}

// ForgetOutput is the output schema for the forget tool.
type ForgetOutput struct {
	Removed bool `json:"removed"`
}

// RunSkillInput is the input schema for the run_skill tool.
type RunSkillInput struct {
	Skill     string            `json:"skill" jsonschema:"name of the skill"`
	Function  string            `json:"function" jsonschema:"name of the function within the skill"`
	Input     string            `json:"input,omitempty" jsonschema:"main input passed as the input variable"`
	Variables map[string]string `json:"variables,omitempty" jsonschema:"additional named variables"`
}

// RunSkillOutput is the output schema for the run_skill tool.
type RunSkillOutput struct {
	Result string `json:"result"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "complete",
		Description: "Generate a completion for a prompt with the kernel's completion backend",
	}, s.handleComplete)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "remember",
		Description: "Save information to long-term semantic memory",
	}, s.handleRemember)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "recall",
		Description: "Search long-term memory for information similar to a query",
	}, s.handleRecall)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "forget",
		Description: "Remove a memory by key",
	}, s.handleForget)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "run_skill",
		Description: "Run a function of a skill attached to the kernel",
	}, s.handleRunSkill)
}

func (s *Server) handleComplete(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input CompleteInput,
) (*mcp.CallToolResult, CompleteOutput, error) {
	opts := domain.CompletionOptions{
		MaxTokens:   input.MaxTokens,
		Temperature: input.Temperature,
	}

	var (
		text string
		err  error
	)
	if input.System != "" {
		text, err = s.ports.Kernel.Chat(ctx, []domain.ChatMessage{
			{Role: domain.RoleSystem, Content: input.System},
			{Role: domain.RoleUser, Content: input.Prompt},
		}, opts)
	} else {
		text, err = s.ports.Kernel.Complete(ctx, input.Prompt, opts)
	}
	if err != nil {
		return nil, CompleteOutput{}, err
	}
	return nil, CompleteOutput{Text: text}, nil
}

func (s *Server) handleRemember(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RememberInput,
) (*mcp.CallToolResult, RememberOutput, error) {
	collection := collectionOrDefault(input.Collection)
	id, err := s.ports.Kernel.Save(ctx, collection, input.ID, input.Text, input.Description)
	if err != nil {
		return nil, RememberOutput{}, err
	}
	return nil, RememberOutput{ID: id, Collection: collection}, nil
}

func (s *Server) handleRecall(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RecallInput,
) (*mcp.CallToolResult, RecallOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultRecallLimit
	}
	minRelevance := input.MinRelevance
	if minRelevance <= 0 {
		minRelevance = domain.DefaultMinRelevance
	}

	results, err := s.ports.Kernel.Recall(ctx, collectionOrDefault(input.Collection), input.Query, limit, minRelevance)
	if err != nil {
		return nil, RecallOutput{}, err
	}

	output := RecallOutput{
		Memories: make([]MemoryOutput, len(results)),
		Count:    len(results),
	}
	for i := range results {
		r := results[i].Record
		output.Memories[i] = MemoryOutput{
			ID:          r.ID,
			Text:        r.Text,
			Description: r.Description,
			Source:      r.ExternalSourceName,
			Relevance:   results[i].Relevance,
		}
	}
	return nil, output, nil
}

func (s *Server) handleForget(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ForgetInput,
) (*mcp.CallToolResult, ForgetOutput, error) {
	if err := s.ports.Kernel.Forget(ctx, collectionOrDefault(input.Collection), input.ID); err != nil {
		return nil, ForgetOutput{}, err
	}
	return nil, ForgetOutput{Removed: true}, nil
}

func (s *Server) handleRunSkill(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RunSkillInput,
) (*mcp.CallToolResult, RunSkillOutput, error) {
	if input.Skill == "" || input.Function == "" {
		return nil, RunSkillOutput{}, errors.New("skill and function are required")
	}

	vars := make(domain.Variables, len(input.Variables)+1)
	for k, v := range input.Variables {
		vars[k] = v
	}
	if input.Input != "" {
		vars[domain.InputVariable] = input.Input
	}

	result, err := s.ports.Kernel.InvokeSkill(ctx, input.Skill, input.Function, vars)
	if err != nil {
		return nil, RunSkillOutput{}, err
	}
	return nil, RunSkillOutput{Result: result}, nil
}

func collectionOrDefault(collection string) string {
	if collection == "" {
		return domain.DefaultMemoryCollection
	}
	return collection
}
