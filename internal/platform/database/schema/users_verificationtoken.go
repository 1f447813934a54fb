package schema

// UserVerificationTokenTable represents the 'users.verificationtoken' table
type UserVerificationTokenTable struct {
	Table     string
	ID        string
	MemberID  string
	Payload   string
	ExpiresAt string
	CreatedAt string
}

// UserVerificationToken is the schema definition for users.verificationtoken
var UserVerificationToken = UserVerificationTokenTable{
	Table:     "users.verificationtoken",
	ID:        "id",
	MemberID:  "memberid",
	Payload:   "payload",
	ExpiresAt: "expiresat",
	CreatedAt: "createdat",
}

// Columns returns all standard column names
func (t UserVerificationTokenTable) Columns() []string {
	return []string{t.ID, t.MemberID, t.Payload, t.ExpiresAt, t.CreatedAt}
}
