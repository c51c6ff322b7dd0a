// Package conflict drives AI-assisted resolution of rebase conflicts:
// one resolver pass per conflicted file, each cancellable on its own.
package conflict

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mikan-dev/splice/internal/domain"
)

// GeneratorResolver implements domain.ConflictResolver on a TextGenerator:
// it feeds the three-way content to the generator and expects the complete
// merged file back.
// Fields are ordered to minimize memory padding.
type GeneratorResolver struct {
	gen     domain.TextGenerator
	profile string
}

var _ domain.ConflictResolver = (*GeneratorResolver)(nil)

// NewGeneratorResolver creates a resolver running under the given profile.
func NewGeneratorResolver(gen domain.TextGenerator, profile string) *GeneratorResolver {
	return &GeneratorResolver{gen: gen, profile: profile}
}

// ResolveConflict asks the generator for the merged content of one file.
func (r *GeneratorResolver) ResolveConflict(ctx context.Context, req domain.ConflictFileRequest) (string, error) {
	prompt, err := buildResolutionPrompt(req)
	if err != nil {
		return "", err
	}

	merged, err := r.gen.Generate(ctx, r.profile, prompt)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", req.Path, err)
	}

	merged = stripCodeFence(merged)
	if strings.TrimSpace(merged) == "" {
		return "", fmt.Errorf("resolve %s: empty resolution", req.Path)
	}
	if strings.Contains(merged, "<<<<<<<") || strings.Contains(merged, ">>>>>>>") {
		return "", fmt.Errorf("resolve %s: resolution still contains conflict markers", req.Path)
	}
	return merged, nil
}

func buildResolutionPrompt(req domain.ConflictFileRequest) (string, error) {
	current, err := os.ReadFile(req.CurrentPath)
	if err != nil {
		return "", fmt.Errorf("read conflicted file: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Resolve the merge conflict in %s.\n\n", req.Path)
	b.WriteString("Respond with ONLY the complete merged file content. ")
	b.WriteString("Do not include explanations, code fences, or conflict markers.\n\n")
	writeSection(&b, "File with conflict markers", string(current))
	writeFileSection(&b, "Merge base version", req.BasePath)
	writeFileSection(&b, "Our version", req.OursPath)
	writeFileSection(&b, "Their version", req.TheirsPath)
	return b.String(), nil
}

func writeFileSection(b *strings.Builder, title, path string) {
	if path == "" {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	writeSection(b, title, string(data))
}

func writeSection(b *strings.Builder, title, content string) {
	fmt.Fprintf(b, "=== %s ===\n%s\n\n", title, content)
}

// stripCodeFence unwraps a response the model wrapped in a ``` block
// despite instructions.
func stripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return s
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 || strings.TrimSpace(lines[len(lines)-1]) != "```" {
		return s
	}
	return strings.Join(lines[1:len(lines)-1], "\n") + "\n"
}
