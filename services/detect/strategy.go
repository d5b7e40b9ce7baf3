package detect

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/speclens/speclens/services/llm"
)

// agreementThreshold is the pairwise similarity at or above which two
// interpretations count as the same reading.
const agreementThreshold = 0.7

// Result is a strategy's verdict for one section.
type Result struct {
	// Similarity is the overall agreement score in [0,1].
	Similarity float64

	// Groups clusters model ids by agreement; singletons are models no
	// other model agreed with.
	Groups [][]string

	// Summary explains the disagreement in one or two sentences.
	Summary string
}

// Strategy compares the per-model interpretations of one section.
type Strategy interface {
	Name() string
	Compare(ctx context.Context, sectionID string, interps map[string]llm.Interpretation) (Result, error)
}

// =============================================================================
// Keyword strategy
// =============================================================================

var stopwords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"the", "a", "an", "and", "or", "but", "in", "on", "at", "to",
		"for", "of", "with", "by", "from", "as", "is", "are", "was",
		"were", "be", "been", "being", "this", "that", "these", "those",
		"it", "its", "you", "your", "we", "our", "they", "their", "i",
		"will", "would", "should", "could", "can", "may", "might",
		"must", "have", "has", "had", "do", "does", "did", "not", "no",
		"then", "than", "there", "here", "when", "where", "which",
		"what", "how", "all", "any", "each", "into", "about", "also",
	} {
		stopwords[w] = struct{}{}
	}
}

// KeywordStrategy scores agreement deterministically: keyword-set
// Jaccard similarity over the interpretation text and steps (weight
// 0.7) blended with step-count similarity (weight 0.3). Deterministic
// input yields deterministic findings, which makes detection
// idempotent and cheap enough to run on every edit.
type KeywordStrategy struct{}

func (KeywordStrategy) Name() string { return "keyword" }

func (KeywordStrategy) Compare(_ context.Context, _ string, interps map[string]llm.Interpretation) (Result, error) {
	models := sortedModels(interps)

	// Mean of all pairwise similarities.
	var total float64
	var pairs int
	for i := 0; i < len(models); i++ {
		for j := i + 1; j < len(models); j++ {
			total += pairSimilarity(interps[models[i]], interps[models[j]])
			pairs++
		}
	}
	similarity := 1.0
	if pairs > 0 {
		similarity = total / float64(pairs)
	}

	groups := clusterModels(models, interps)

	return Result{
		Similarity: similarity,
		Groups:     groups,
		Summary:    describeGroups(groups, similarity),
	}, nil
}

// pairSimilarity blends keyword overlap with step-count agreement.
func pairSimilarity(a, b llm.Interpretation) float64 {
	ka, kb := keywords(a), keywords(b)
	sim := jaccard(ka, kb)*0.7 + stepCountSimilarity(len(a.Steps), len(b.Steps))*0.3
	return sim
}

func keywords(interp llm.Interpretation) map[string]struct{} {
	text := interp.Text + " " + strings.Join(interp.Steps, " ")
	out := make(map[string]struct{})
	for _, word := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	}) {
		if len(word) <= 2 {
			continue
		}
		if _, stop := stopwords[word]; stop {
			continue
		}
		out[word] = struct{}{}
	}
	return out
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	var inter int
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 1.0
	}
	return float64(inter) / float64(union)
}

func stepCountSimilarity(a, b int) float64 {
	if a == 0 && b == 0 {
		return 1.0
	}
	return 1.0 - math.Abs(float64(a-b))/math.Max(float64(a), float64(b))
}

// clusterModels greedily assigns each model to the first existing group
// whose representative it agrees with. Model order is sorted, so the
// clustering is deterministic.
func clusterModels(models []string, interps map[string]llm.Interpretation) [][]string {
	var groups [][]string
	for _, m := range models {
		placed := false
		for gi, group := range groups {
			if pairSimilarity(interps[group[0]], interps[m]) >= agreementThreshold {
				groups[gi] = append(groups[gi], m)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, []string{m})
		}
	}
	return groups
}

func describeGroups(groups [][]string, similarity float64) string {
	if len(groups) <= 1 {
		return fmt.Sprintf("models agree (similarity %.2f)", similarity)
	}
	parts := make([]string, len(groups))
	for i, g := range groups {
		parts[i] = strings.Join(g, "+")
	}
	return fmt.Sprintf("%d distinct readings (%s), similarity %.2f",
		len(groups), strings.Join(parts, " vs "), similarity)
}

func sortedModels(interps map[string]llm.Interpretation) []string {
	models := make([]string, 0, len(interps))
	for m := range interps {
		models = append(models, m)
	}
	sort.Strings(models)
	return models
}

// =============================================================================
// Judge strategy
// =============================================================================

// JudgeStrategy asks an independent model to score the agreement. The
// judge runs stateless; it must see only the interpretations, never the
// conversation that produced them.
type JudgeStrategy struct {
	Judge llm.Backend
}

func (JudgeStrategy) Name() string { return "judge" }

type judgeVerdict struct {
	Similarity float64    `json:"similarity"`
	Groups     [][]string `json:"groups"`
	Summary    string     `json:"summary"`
}

func (s JudgeStrategy) Compare(ctx context.Context, sectionID string, interps map[string]llm.Interpretation) (Result, error) {
	if s.Judge == nil {
		return Result{}, fmt.Errorf("judge strategy has no backend configured")
	}

	prompt := s.buildPrompt(interps)
	resp, err := s.Judge.Query(ctx, "", prompt)
	if err != nil {
		return Result{}, fmt.Errorf("judge query for %s: %w", sectionID, err)
	}

	verdict, err := parseVerdict(resp.Text)
	if err != nil {
		return Result{}, fmt.Errorf("judge verdict for %s: %w", sectionID, err)
	}

	return Result{
		Similarity: verdict.Similarity,
		Groups:     verdict.Groups,
		Summary:    verdict.Summary,
	}, nil
}

func parseVerdict(text string) (judgeVerdict, error) {
	obj := llm.ExtractJSONObject(text)
	if obj == "" {
		return judgeVerdict{}, fmt.Errorf("no JSON object in judge response")
	}
	var v judgeVerdict
	if err := json.Unmarshal([]byte(obj), &v); err != nil {
		return judgeVerdict{}, fmt.Errorf("malformed judge response: %w", err)
	}
	if v.Similarity < 0 || v.Similarity > 1 {
		return judgeVerdict{}, fmt.Errorf("judge similarity %.3f out of range", v.Similarity)
	}
	return v, nil
}

func (s JudgeStrategy) buildPrompt(interps map[string]llm.Interpretation) string {
	var b strings.Builder
	b.WriteString("Several models independently interpreted the same instruction section. ")
	b.WriteString("Judge whether they describe the same procedure.\n\n")
	for _, m := range sortedModels(interps) {
		interp := interps[m]
		fmt.Fprintf(&b, "Model %s:\n  interpretation: %s\n", m, interp.Text)
		if len(interp.Steps) > 0 {
			fmt.Fprintf(&b, "  steps: %s\n", strings.Join(interp.Steps, "; "))
		}
		if len(interp.Assumptions) > 0 {
			fmt.Fprintf(&b, "  assumptions: %s\n", strings.Join(interp.Assumptions, "; "))
		}
		b.WriteString("\n")
	}
	b.WriteString(`Respond ONLY with JSON:
{
  "similarity": <0.0-1.0, 1.0 meaning identical procedures>,
  "groups": [["model", ...], ...] (models clustered by matching reading),
  "summary": "<one sentence on the key disagreement, or agreement>"
}`)
	return b.String()
}
