package schema

// UserMemberTable represents the 'users.member' table
type UserMemberTable struct {
	Table           string
	ID              string
	AccountHandle   string
	Email           string
	DisplayName     string
	Phone           string
	PasswordHash    string
	AvatarURL       string
	IsVerified      string
	Role            string
	Provider        string
	ProviderSubject string
	CreatedAt       string
	UpdatedAt       string
}

// UserMember is the schema definition for users.member
var UserMember = UserMemberTable{
	Table:           "users.member",
	ID:              "id",
	AccountHandle:   "accounthandle",
	Email:           "email",
	DisplayName:     "displayname",
	Phone:           "phone",
	PasswordHash:    "passwordhash",
	AvatarURL:       "avatarurl",
	IsVerified:      "isverified",
	Role:            "role",
	Provider:        "provider",
	ProviderSubject: "providersubject",
	CreatedAt:       "createdat",
	UpdatedAt:       "updatedat",
}

// Columns returns all standard column names
func (t UserMemberTable) Columns() []string {
	return []string{
		t.ID, t.AccountHandle, t.Email, t.DisplayName, t.Phone, t.PasswordHash,
		t.AvatarURL, t.IsVerified, t.Role, t.Provider, t.ProviderSubject,
		t.CreatedAt, t.UpdatedAt,
	}
}
