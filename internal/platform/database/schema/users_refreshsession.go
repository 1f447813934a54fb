package schema

// UserRefreshSessionTable represents the 'users.refreshsession' table
type UserRefreshSessionTable struct {
	Table         string
	AccountHandle string
	RefreshToken  string
	CreatedAt     string
	UpdatedAt     string
}

// UserRefreshSession is the schema definition for users.refreshsession
var UserRefreshSession = UserRefreshSessionTable{
	Table:         "users.refreshsession",
	AccountHandle: "accounthandle",
	RefreshToken:  "refreshtoken",
	CreatedAt:     "createdat",
	UpdatedAt:     "updatedat",
}

// Columns returns all standard column names
func (t UserRefreshSessionTable) Columns() []string {
	return []string{t.AccountHandle, t.RefreshToken, t.CreatedAt, t.UpdatedAt}
}
