package dto

type IdentityRequest struct {
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
}

type MatchRequest struct {
	IdentityRequest
	MaxMatches int `json:"max_matches"`
}

type BatchMatchRequest struct {
	Identities []IdentityRequest `json:"identities"`
}

type MatchResponse struct {
	CandidateID string   `json:"candidate_id"`
	Score       float64  `json:"similarity_score"`
	Tier        string   `json:"confidence_level"`
	Reasons     []string `json:"match_reasons"`
}
