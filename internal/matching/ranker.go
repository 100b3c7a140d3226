package matching

import (
	"errors"
	"fmt"
	"sort"
)

const DefaultTopK = 5

var ErrInvalidThresholds = errors.New("thresholds must satisfy 0 <= low <= medium <= high <= 1")

// Tier is a coarse confidence bucket derived from a similarity score.
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

// Thresholds are the ascending similarity cut-offs for each tier. Scores
// below Low are not matches.
type Thresholds struct {
	Low    float64
	Medium float64
	High   float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{Low: 0.65, Medium: 0.75, High: 0.85}
}

func (t Thresholds) Validate() error {
	if t.Low < 0 || t.Low > t.Medium || t.Medium > t.High || t.High > 1 {
		return fmt.Errorf("%w: got %.2f/%.2f/%.2f", ErrInvalidThresholds, t.Low, t.Medium, t.High)
	}
	return nil
}

// TierFor buckets score. ok is false when score is below the low threshold.
func (t Thresholds) TierFor(score float64) (tier Tier, ok bool) {
	switch {
	case score < t.Low:
		return "", false
	case score >= t.High:
		return TierHigh, true
	case score >= t.Medium:
		return TierMedium, true
	default:
		return TierLow, true
	}
}

// Candidate is a stored customer considered for a match.
type Candidate struct {
	ID       string
	Vector   []float32
	Identity Identity
}

// Match is one ranked candidate. Matches are computed per query and never
// persisted.
type Match struct {
	CandidateID string   `json:"candidate_id"`
	Score       float64  `json:"similarity_score"`
	Tier        Tier     `json:"confidence_level"`
	Reasons     []string `json:"match_reasons"`
	Identity    Identity `json:"-"`
}

type Ranker struct {
	thresholds Thresholds
}

func NewRanker(t Thresholds) (*Ranker, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &Ranker{thresholds: t}, nil
}

func (r *Ranker) Thresholds() Thresholds {
	return r.thresholds
}

// Rank scores every candidate against queryVec, drops those below the low
// threshold, and returns at most k matches ordered by score descending. Ties
// keep candidate order. k <= 0 means DefaultTopK. No candidates, or none
// above the low threshold, yields an empty result.
func (r *Ranker) Rank(query Identity, queryVec []float32, candidates []Candidate, k int) []Match {
	if k <= 0 {
		k = DefaultTopK
	}

	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		score := CosineSimilarity(queryVec, c.Vector)
		tier, ok := r.thresholds.TierFor(score)
		if !ok {
			continue
		}
		matches = append(matches, Match{
			CandidateID: c.ID,
			Score:       score,
			Tier:        tier,
			Reasons:     r.Explain(query, c.Identity, score),
			Identity:    c.Identity,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

// Explain lists human-readable reasons for a match: exact field matches
// followed by the tier-labeled similarity, or a single generic similarity
// line when no field matches.
func (r *Ranker) Explain(query, candidate Identity, score float64) []string {
	q, c := fieldsOf(query), fieldsOf(candidate)

	var reasons []string
	if q.first != "" && q.first == c.first {
		reasons = append(reasons, "Exact first name match")
	}
	if q.last != "" && q.last == c.last {
		reasons = append(reasons, "Exact last name match")
	}
	if q.email != "" && c.email != "" {
		if q.email == c.email {
			reasons = append(reasons, "Exact email match")
		} else if q.local != "" && q.local == c.local {
			reasons = append(reasons, "Email username match")
		}
	}
	if q.phone != "" && q.phone == c.phone {
		reasons = append(reasons, "Phone number match")
	}

	if len(reasons) == 0 {
		return []string{fmt.Sprintf("Embedding similarity (%s)", percent(score))}
	}
	return append(reasons, fmt.Sprintf("%s similarity (%s)", r.tierLabel(score), percent(score)))
}

func (r *Ranker) tierLabel(score float64) string {
	switch {
	case score >= r.thresholds.High:
		return "High"
	case score >= r.thresholds.Medium:
		return "Medium"
	default:
		return "Low"
	}
}

func percent(score float64) string {
	return fmt.Sprintf("%.2f%%", score*100)
}
