// Package topics normalizes AI-extracted topic strings to a canonical taxonomy
// so "affordable housing" and "housing crisis" both collapse to "housing".
package topics

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
)

// Entry is one taxonomy category as stored in the taxonomy JSON file.
type Entry struct {
	Canonical   string   `json:"canonical"`
	DisplayName string   `json:"display_name"`
	Synonyms    []string `json:"synonyms"`
}

type taxonomyFile struct {
	Taxonomy       map[string]Entry `json:"taxonomy"`
	PromptExamples []string         `json:"prompt_examples"`
}

// Normalizer maps raw topic strings to canonical taxonomy entries.
type Normalizer struct {
	taxonomy       map[string]Entry
	synonymMap     map[string]string // lowercase synonym -> canonical
	promptExamples []string
	logger         *slog.Logger
}

// Load reads a taxonomy JSON file and builds the reverse synonym map.
func Load(path string, logger *slog.Logger) (*Normalizer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("topics: reading taxonomy %s: %w", path, err)
	}

	var tf taxonomyFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("topics: parsing taxonomy %s: %w", path, err)
	}

	n := &Normalizer{
		taxonomy:       tf.Taxonomy,
		synonymMap:     make(map[string]string),
		promptExamples: tf.PromptExamples,
		logger:         logger,
	}
	for _, entry := range tf.Taxonomy {
		n.synonymMap[strings.ToLower(entry.Canonical)] = entry.Canonical
		for _, syn := range entry.Synonyms {
			n.synonymMap[strings.ToLower(syn)] = entry.Canonical
		}
	}

	logger.Info("loaded topic taxonomy", "categories", len(tf.Taxonomy), "mappings", len(n.synonymMap))
	return n, nil
}

// Normalize maps raw topics to canonical, deduplicated, alphabetically sorted topics.
func (n *Normalizer) Normalize(raw []string) []string {
	if len(raw) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	for _, topic := range raw {
		topic = strings.ToLower(strings.TrimSpace(topic))
		if topic == "" {
			continue
		}

		if canonical, ok := n.synonymMap[topic]; ok {
			seen[canonical] = true
			continue
		}

		if canonical, ok := n.substringMatch(topic); ok {
			seen[canonical] = true
			continue
		}

		n.logger.Debug("unknown topic candidate", "topic", topic)
		seen[topic] = true
	}

	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// substringMatch scans synonyms for containment either direction; first hit wins.
// Map iteration order is randomized per run, matching the "first hit" contract
// loosely — callers relying on a specific tie-break among overlapping synonyms
// should disambiguate in the taxonomy itself.
func (n *Normalizer) substringMatch(topic string) (string, bool) {
	for synonym, canonical := range n.synonymMap {
		if strings.Contains(synonym, topic) || strings.Contains(topic, synonym) {
			return canonical, true
		}
	}
	return "", false
}

// DisplayName returns the human-friendly label for a canonical topic.
func (n *Normalizer) DisplayName(canonical string) string {
	for _, entry := range n.taxonomy {
		if entry.Canonical == canonical {
			return entry.DisplayName
		}
	}
	return titleCase(strings.ReplaceAll(canonical, "_", " "))
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// AllCanonicalTopics returns every canonical topic key, for API/frontend use.
func (n *Normalizer) AllCanonicalTopics() []string {
	out := make([]string, 0, len(n.taxonomy))
	for _, entry := range n.taxonomy {
		out = append(out, entry.Canonical)
	}
	sort.Strings(out)
	return out
}

// PromptExamples returns the taxonomy's example topics for LLM prompt seeding.
func (n *Normalizer) PromptExamples() string {
	return strings.Join(n.promptExamples, ", ")
}

// AggregateByFrequency counts canonical topics across a meeting's items and
// returns them sorted descending by count, per spec.md §4.5's meeting-level
// aggregation rule.
func AggregateByFrequency(perItemTopics [][]string) []string {
	counts := make(map[string]int)
	var order []string
	for _, topics := range perItemTopics {
		for _, t := range topics {
			if counts[t] == 0 {
				order = append(order, t)
			}
			counts[t]++
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	return order
}
