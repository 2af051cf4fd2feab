package dynamo

// Attribute names shared by the otp_codes key schema, TTL setting and item tags.
const (
	fieldPhoneNumber = "phone_number"
	fieldExpiresAt   = "expires_at"
)
