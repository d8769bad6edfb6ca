package classify

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/siance/internal/model"
)

// ReadSamples reads JSON lines of the form {"vector":[...],"label":12} or
// {"text":"...","label":12}; text samples are embedded by the caller.
// Blank lines are skipped.
func ReadSamples(r io.Reader) ([]Sample, error) {
	var samples []Sample
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var s Sample
		if err := json.Unmarshal([]byte(text), &s); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(s.Vector) == 0 && s.Text == "" {
			return nil, fmt.Errorf("line %d: empty vector", line)
		}
		samples = append(samples, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return samples, nil
}

// ReadSamplesFile reads samples from a JSONL file
func ReadSamplesFile(path string) ([]Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadSamples(f)
}

type labelsFile struct {
	Labels []model.Label `yaml:"labels"`
}

// ReadLabels decodes a YAML taxonomy with a top-level "labels" list
func ReadLabels(r io.Reader) ([]model.Label, error) {
	var f labelsFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode labels: %w", err)
	}
	if len(f.Labels) == 0 {
		return nil, fmt.Errorf("no labels defined")
	}
	seen := make(map[int]bool, len(f.Labels))
	for _, l := range f.Labels {
		if seen[l.ID] {
			return nil, fmt.Errorf("duplicate label id %d", l.ID)
		}
		seen[l.ID] = true
		if l.Category == "" {
			return nil, fmt.Errorf("label %d has no category", l.ID)
		}
	}
	return f.Labels, nil
}

// LoadLabels reads a YAML taxonomy file
func LoadLabels(path string) ([]model.Label, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadLabels(f)
}
