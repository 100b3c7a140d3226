package insight

import "strings"

// RejectReason says why the filter dropped an insight.
type RejectReason string

const (
	Accepted         RejectReason = ""
	RejectBanned     RejectReason = "banned_phrase"
	RejectObvious    RejectReason = "obvious_pattern"
	RejectConfidence RejectReason = "low_confidence"
	RejectValue      RejectReason = "low_value"
)

// An obvious-pattern description survives if it explains itself.
const obviousExemptWord = "why"

type FilterConfig struct {
	BannedPhrases   []string
	ObviousPatterns []string
	MinConfidence   float64
	MinValue        float64
}

func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		BannedPhrases: []string{
			"rain causes cancellations",
			"weekends are busier",
			"holidays affect sales",
			"customers prefer discounts",
			"busy times have more sales",
		},
		ObviousPatterns: []string{
			"more customers",
			"less customers",
			"higher sales",
			"lower sales",
			"busy periods",
			"slow periods",
		},
		MinConfidence: 0.75,
		MinValue:      100,
	}
}

// Filter is a stateless per-insight gate shared by the detector and
// consensus pipelines.
type Filter struct {
	banned   []string
	obvious  []string
	minConf  float64
	minValue float64
}

func NewFilter(cfg FilterConfig) *Filter {
	return &Filter{
		banned:   lowerAll(cfg.BannedPhrases),
		obvious:  lowerAll(cfg.ObviousPatterns),
		minConf:  cfg.MinConfidence,
		minValue: cfg.MinValue,
	}
}

func (f *Filter) Accept(in Insight) bool {
	return f.Reason(in) == Accepted
}

// Reason returns the first gate in rejects, or Accepted.
func (f *Filter) Reason(in Insight) RejectReason {
	text := strings.ToLower(in.Description)
	for _, p := range f.banned {
		if strings.Contains(text, p) {
			return RejectBanned
		}
	}
	if in.Confidence < f.minConf {
		return RejectConfidence
	}
	if in.Value < f.minValue {
		return RejectValue
	}
	if !strings.Contains(text, obviousExemptWord) {
		for _, p := range f.obvious {
			if strings.Contains(text, p) {
				return RejectObvious
			}
		}
	}
	return Accepted
}

// Apply partitions insights, keeping input order in both halves.
func (f *Filter) Apply(insights []Insight) (accepted, rejected []Insight) {
	for _, in := range insights {
		if f.Accept(in) {
			accepted = append(accepted, in)
		} else {
			rejected = append(rejected, in)
		}
	}
	return accepted, rejected
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
