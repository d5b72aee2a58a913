package cmd

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cobra"

	"github.com/teemow/workdigest/internal/app"
	"github.com/teemow/workdigest/internal/config"
	"github.com/teemow/workdigest/internal/server"
)

func newGenerateDocsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate MCP tool documentation",
		Long: `Generate markdown documentation for all available MCP tools.
The tools are registered with write operations enabled and introspected, so
the reference always matches the server. Use --output to write a file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			markdown, err := toolsReference(cmd.Context())
			if err != nil {
				return err
			}
			if opts.output != "" {
				if err := os.WriteFile(opts.output, []byte(markdown), 0o644); err != nil {
					return fmt.Errorf("failed to write output file: %w", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Documentation written to: %s\n", opts.output)
				return nil
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), markdown)
			return err
		},
	}
}

// toolsReference registers every tool on a throwaway server and renders it.
func toolsReference(ctx context.Context) (string, error) {
	a, err := app.New(ctx, config.Default(), app.Options{})
	if err != nil {
		return "", err
	}
	sc := server.NewServerContext(ctx, a)
	defer func() { _ = sc.Shutdown() }()

	mcpSrv := newMCPServer()
	if err := registerAllTools(mcpSrv, sc, false); err != nil {
		return "", err
	}

	serverTools := mcpSrv.ListTools()
	tools := make([]mcp.Tool, 0, len(serverTools))
	for _, st := range serverTools {
		tools = append(tools, st.Tool)
	}
	return generateToolsMarkdown(tools), nil
}

func generateToolsMarkdown(tools []mcp.Tool) string {
	var sb strings.Builder

	sb.WriteString("# MCP Tools Reference\n\n")
	sb.WriteString("This document lists the tools available when running workdigest as an MCP server.\n\n")
	sb.WriteString("**Note:** This documentation is automatically generated from the tool definitions.\n\n")

	toolsByCategory := make(map[string][]mcp.Tool)
	for _, tool := range tools {
		category := toolCategory(tool.Name)
		toolsByCategory[category] = append(toolsByCategory[category], tool)
	}

	categories := make([]string, 0, len(toolsByCategory))
	for category := range toolsByCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	sb.WriteString("## Table of Contents\n\n")
	for _, category := range categories {
		anchor := strings.ToLower(strings.ReplaceAll(category, " ", "-"))
		fmt.Fprintf(&sb, "- [%s](#%s)\n", category, anchor)
	}
	sb.WriteString("\n")

	sb.WriteString("## Accounts\n\n")
	sb.WriteString("Tools that call Google take an optional `account` argument naming the stored token to use. ")
	sb.WriteString("Without it the server's configured account is used.\n\n")
	sb.WriteString("Tools that create calendar events, Meet spaces or tasks are only registered when the server runs with `--yolo`.\n\n")

	for _, category := range categories {
		categoryTools := toolsByCategory[category]
		sort.Slice(categoryTools, func(i, j int) bool {
			return categoryTools[i].Name < categoryTools[j].Name
		})

		fmt.Fprintf(&sb, "## %s\n\n", category)
		for _, tool := range categoryTools {
			sb.WriteString(toolMarkdown(tool))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

func toolCategory(name string) string {
	switch {
	case strings.HasSuffix(name, "_report"):
		return "Report Tools"
	case strings.HasPrefix(name, "calendar_"):
		return "Calendar Tools"
	case strings.HasPrefix(name, "meet_"):
		return "Google Meet Tools"
	case strings.HasPrefix(name, "tasks_"):
		return "Google Tasks Tools"
	case strings.HasPrefix(name, "google_"):
		return "Google Account Tools"
	default:
		return "Other"
	}
}

func toolMarkdown(tool mcp.Tool) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "### %s\n\n", tool.Name)
	if tool.Description != "" {
		fmt.Fprintf(&sb, "%s\n\n", tool.Description)
	}

	if len(tool.InputSchema.Properties) == 0 {
		return sb.String()
	}

	names := make([]string, 0, len(tool.InputSchema.Properties))
	for name := range tool.InputSchema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	sb.WriteString("**Arguments:**\n")
	for _, name := range names {
		prop, ok := tool.InputSchema.Properties[name].(map[string]any)
		if !ok {
			continue
		}

		required := "optional"
		if slices.Contains(tool.InputSchema.Required, name) {
			required = "required"
		}

		fmt.Fprintf(&sb, "- `%s` (%s): ", name, required)
		if desc, ok := prop["description"].(string); ok {
			sb.WriteString(desc)
		} else {
			fmt.Fprintf(&sb, "%s parameter", propertyType(prop))
		}
		if values := enumValues(prop); len(values) > 0 {
			fmt.Fprintf(&sb, " One of: `%s`.", strings.Join(values, "`, `"))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

func propertyType(prop map[string]any) string {
	if t, ok := prop["type"].(string); ok {
		return t
	}
	return "any"
}

func enumValues(prop map[string]any) []string {
	switch v := prop["enum"].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			out = append(out, fmt.Sprint(e))
		}
		return out
	}
	return nil
}
