package ui

import (
	"fmt"
	"strings"

	"github.com/Cyclone1070/conanws/internal/overlay"
	"github.com/charmbracelet/glamour"
)

// MarkdownRenderer renders markdown for the terminal.
type MarkdownRenderer interface {
	Render(content string, width int) (string, error)
}

// GlamourRenderer implements MarkdownRenderer with glamour.
type GlamourRenderer struct {
	style string
}

// NewGlamourRenderer creates a renderer using one of glamour's standard
// styles ("dark", "light", "notty", ...). An empty style picks one from the
// terminal background.
func NewGlamourRenderer(style string) *GlamourRenderer {
	return &GlamourRenderer{style: style}
}

func (r *GlamourRenderer) Render(content string, width int) (string, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if r.style == "" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(r.style))
	}
	tr, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", err
	}
	return tr.Render(content)
}

// EnvironmentMarkdown describes the active environment as markdown.
func EnvironmentMarkdown(marker overlay.Marker, active bool, mirrorPath string) string {
	var sb strings.Builder
	if !active {
		sb.WriteString("# Conan environment\n\nNo environment is active.\n")
		return sb.String()
	}

	fmt.Fprintf(&sb, "# Conan %s environment\n\n", marker.Kind)
	if len(marker.Overlay) == 0 {
		sb.WriteString("The active environment changes no variables.\n")
	} else {
		sb.WriteString("| Variable | Value |\n|---|---|\n")
		for _, p := range marker.Overlay {
			value := "*unset*"
			if p.Value != nil {
				value = "`" + escapeCell(*p.Value) + "`"
			}
			fmt.Fprintf(&sb, "| %s | %s |\n", p.Name, value)
		}
	}
	if mirrorPath != "" {
		fmt.Fprintf(&sb, "\nMirrored to `%s`.\n", mirrorPath)
	}
	return sb.String()
}

// RenderEnvironment renders EnvironmentMarkdown with renderer.
func RenderEnvironment(renderer MarkdownRenderer, marker overlay.Marker, active bool, mirrorPath string, width int) (string, error) {
	return renderer.Render(EnvironmentMarkdown(marker, active, mirrorPath), width)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
