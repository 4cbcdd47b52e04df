package pipeline

import (
	"context"
	"fmt"
	"strings"

	"tutorial-backend/internal/llm"
)

// Mapper infers directed relationships between abstractions with one batched
// language-model call.
type Mapper struct {
	LLM       llm.Client
	MaxTokens int
}

// NewMapper returns a relationship mapper over the given client.
func NewMapper(client llm.Client) *Mapper {
	return &Mapper{LLM: client}
}

// Map prompts the model for edges between the abstractions. Self-edges and
// edges referencing unknown abstractions are discarded; duplicate directed
// pairs collapse into one edge whose weight counts the occurrences.
func (m *Mapper) Map(ctx context.Context, abstractions []Abstraction) ([]Relationship, error) {
	if len(abstractions) < 2 {
		return nil, nil
	}

	raw, err := m.LLM.Complete(ctx, buildRelationshipPrompt(abstractions), m.MaxTokens)
	if err != nil {
		return nil, fmt.Errorf("map relationships: %w", err)
	}
	var parsed []Relationship
	if err := decodeModelJSON(raw, &parsed); err != nil {
		return nil, fmt.Errorf("map relationships: %w", err)
	}

	byName := make(map[string]string, len(abstractions))
	for _, a := range abstractions {
		byName[strings.ToLower(a.Name)] = a.Name
	}

	type pair struct{ from, to string }
	seen := make(map[pair]int)
	var order []pair
	labels := make(map[pair]string)
	for _, r := range parsed {
		from, okFrom := byName[strings.ToLower(strings.TrimSpace(r.From))]
		to, okTo := byName[strings.ToLower(strings.TrimSpace(r.To))]
		if !okFrom || !okTo || from == to {
			continue
		}
		p := pair{from, to}
		if seen[p] == 0 {
			order = append(order, p)
			labels[p] = strings.TrimSpace(r.Label)
		}
		seen[p]++
	}

	out := make([]Relationship, 0, len(order))
	for _, p := range order {
		label := labels[p]
		if label == "" {
			label = "uses"
		}
		out = append(out, Relationship{From: p.from, To: p.to, Label: label, Weight: seen[p]})
	}
	return out, nil
}
