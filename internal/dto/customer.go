package dto

type CustomerRequest struct {
	ExternalID string `json:"external_id"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
}

type IngestCustomersRequest struct {
	Customers []CustomerRequest `json:"customers"`
}

type IngestResponse struct {
	Stored int `json:"stored"`
}

type BackfillRequest struct {
	Limit int `json:"limit"`
}
