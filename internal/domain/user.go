package domain

// User is the account record returned after a successful phone verification.
// It is synthesized per verification; there is no user store behind it.
type User struct {
	ID        string `json:"id"`
	Phone     string `json:"phone"`
	IsNewUser bool   `json:"isNewUser"`
}
