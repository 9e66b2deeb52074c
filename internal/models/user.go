package models

// User represents the authenticated purchaser as reported by the auth
// collaborator. Phone and country feed the self-send guard during
// recipient lookups.
type User struct {
	ID           string `json:"id"`
	FirstName    string `json:"first_name,omitempty"`
	Phone        string `json:"phone,omitempty"`
	PhoneCountry string `json:"phone_country,omitempty"`
}
