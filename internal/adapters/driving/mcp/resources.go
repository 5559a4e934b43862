package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ehalsey/chat-copilot/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for kernel resources.
	uriScheme = "chatcopilot://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "skills",
		Name:        "skills",
		Description: "Skills attached to the kernel and their functions",
		MIMEType:    "application/json",
	}, s.handleSkillsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "skills/{skill}",
		Name:        "skill",
		Description: "Functions and parameters of a single skill",
		MIMEType:    "application/json",
	}, s.handleSkillResource)
}

// handleSkillsResource returns every attached skill.
func (s *Server) handleSkillsResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	return jsonResource(req.Params.URI, toSkillOutputs(s.ports.Kernel.Skills()))
}

// handleSkillResource returns a single skill by name.
func (s *Server) handleSkillResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	name := extractSkillName(req.Params.URI)
	if name == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	for _, skill := range s.ports.Kernel.Skills() {
		if strings.EqualFold(skill.Name, name) {
			return jsonResource(req.Params.URI, toSkillOutputs([]domain.SkillInfo{skill})[0])
		}
	}
	return nil, mcp.ResourceNotFoundError(req.Params.URI)
}

type skillOutput struct {
	Name      string           `json:"name"`
	Functions []functionOutput `json:"functions"`
}

type functionOutput struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Parameters  []string `json:"parameters,omitempty"`
}

func toSkillOutputs(skills []domain.SkillInfo) []skillOutput {
	out := make([]skillOutput, len(skills))
	for i, skill := range skills {
		fns := make([]functionOutput, len(skill.Functions))
		for j, fn := range skill.Functions {
			fns[j] = functionOutput{Name: fn.Name, Description: fn.Description, Parameters: fn.Parameters}
		}
		out[i] = skillOutput{Name: skill.Name, Functions: fns}
	}
	return out
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractSkillName extracts the skill name from a URI like chatcopilot://skills/{skill}.
func extractSkillName(uri string) string {
	const prefix = uriScheme + "skills/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	name := strings.TrimPrefix(uri, prefix)
	if strings.Contains(name, "/") {
		return ""
	}
	return name
}
