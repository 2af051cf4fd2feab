package domain

import "time"

// OneTimeCode is the issued verification code for a phone number.
// PK: phone_number. At most one code is held per phone; issuing again replaces it.
// ExpiresAt doubles as the DynamoDB TTL attribute (Unix seconds).
type OneTimeCode struct {
	PhoneNumber string `json:"phone_number" dynamodbav:"phone_number"`
	CodeHash    string `json:"code_hash" dynamodbav:"code_hash"`
	IssuedAt    int64  `json:"issued_at" dynamodbav:"issued_at"`
	ExpiresAt   int64  `json:"expires_at" dynamodbav:"expires_at"`
	// Attempts counts failed verifications against this code.
	Attempts int `json:"attempts" dynamodbav:"attempts"`
}

// Expired reports whether the code is no longer usable at now.
func (c *OneTimeCode) Expired(now time.Time) bool {
	return c.ExpiresAt <= now.Unix()
}

// TTL returns the remaining lifetime of the code at now, never negative.
func (c *OneTimeCode) TTL(now time.Time) time.Duration {
	d := time.Unix(c.ExpiresAt, 0).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
