package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/siance/internal/model"
)

// Renderer writes reports as JSON and Markdown
type Renderer struct {
	labels model.LabelSet
}

// NewRenderer creates a renderer; labels name the predicted ids and may be nil
func NewRenderer(labels model.LabelSet) *Renderer {
	return &Renderer{labels: labels}
}

// WriteJSON encodes the report, indented
func (r *Renderer) WriteJSON(w io.Writer, report *model.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// WriteMarkdown prints the report header followed by its outline
func (r *Renderer) WriteMarkdown(w io.Writer, report *model.Report, outline model.Outline) error {
	var b strings.Builder

	title := report.Name
	if title == "" {
		title = report.LetterID
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	if report.Codep != "" {
		fmt.Fprintf(&b, "- **CODEP:** %s\n", report.Codep)
	}
	if report.Inspection != "" {
		fmt.Fprintf(&b, "- **Inspection:** %s\n", report.Inspection)
	}
	if report.SentAt != nil {
		fmt.Fprintf(&b, "- **Sent:** %s\n", report.SentAt.Format("2006-01-02"))
	}
	fmt.Fprintf(&b, "- **Zones:** %d\n- **Demands:** %d\n", len(report.Zones), len(report.Demands))
	if report.ModelName != "" {
		fmt.Fprintf(&b, "- **Model:** %s (%d predictions)\n", report.ModelName, len(report.Predictions))
	}
	for _, f := range report.Failures {
		fmt.Fprintf(&b, "- **Failure:** %s: %s\n", f.Kind, f.Message)
	}
	b.WriteString("\n")

	if outline != nil {
		model.WalkOutline(outline, func(o model.Outline, depth int) bool {
			switch n := o.(type) {
			case *model.OutlineNode:
				r.writeNode(&b, n, depth)
			case model.OutlineLeaf:
				r.writeLeaf(&b, n, depth)
			}
			return true
		})
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func (r *Renderer) writeNode(b *strings.Builder, n *model.OutlineNode, depth int) {
	switch n.Kind {
	case model.OutlineLetter:
		return
	case model.OutlineZone:
		fmt.Fprintf(b, "## %s [%d, %d)\n\n", n.Title, n.Start, n.End)
	case model.OutlineDemand:
		fmt.Fprintf(b, "### Demand [%d, %d)%s\n\n", n.Start, n.End, r.labelSuffix(n.LabelIDs))
	case model.OutlineSentence:
		fmt.Fprintf(b, "%s- [%d, %d)%s\n", strings.Repeat("  ", max(0, depth-3)), n.Start, n.End, r.labelSuffix(n.LabelIDs))
	}
}

func (r *Renderer) writeLeaf(b *strings.Builder, leaf model.OutlineLeaf, depth int) {
	text := strings.TrimSpace(leaf.Text)
	if text == "" {
		return
	}
	if depth >= 4 {
		fmt.Fprintf(b, "  > %s\n\n", strings.ReplaceAll(text, "\n", " "))
		return
	}
	for _, line := range strings.Split(text, "\n") {
		fmt.Fprintf(b, "> %s\n", line)
	}
	b.WriteString("\n")
}

func (r *Renderer) labelSuffix(ids []int) string {
	if len(ids) == 0 {
		return ""
	}
	names := make([]string, len(ids))
	for i, id := range ids {
		if l, ok := r.labels[id]; ok {
			names[i] = l.Name()
		} else {
			names[i] = fmt.Sprintf("#%d", id)
		}
	}
	return ": " + strings.Join(names, ", ")
}

// RenderJSON writes the report to a file
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	return writeFile(path, func(w io.Writer) error { return r.WriteJSON(w, report) })
}

// RenderMarkdown writes the report and its outline to a file
func (r *Renderer) RenderMarkdown(report *model.Report, outline model.Outline, path string) error {
	return writeFile(path, func(w io.Writer) error { return r.WriteMarkdown(w, report, outline) })
}

func writeFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
