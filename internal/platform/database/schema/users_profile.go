package schema

// UserProfileTable represents the 'users.profile' table
type UserProfileTable struct {
	Table          string
	ID             string
	Email          string
	Password       string
	FirstName      string
	LastName       string
	Role           string
	RoleVerified   string
	LastRoleChange string
	RoleChangeBy   string
	CreatedAt      string
	UpdatedAt      string
	DeletedAt      string
}

// UserProfile is the schema definition for users.profile
var UserProfile = UserProfileTable{
	Table:          "users.profile",
	ID:             "id",
	Email:          "email",
	Password:       "passwordhash",
	FirstName:      "firstname",
	LastName:       "lastname",
	Role:           "role",
	RoleVerified:   "roleverified",
	LastRoleChange: "lastrolechange",
	RoleChangeBy:   "rolechangeby",
	CreatedAt:      "createdat",
	UpdatedAt:      "updatedat",
	DeletedAt:      "deletedat",
}

// Columns returns all standard column names
func (t UserProfileTable) Columns() []string {
	return []string{
		t.ID, t.Email, t.Password, t.FirstName, t.LastName, t.Role,
		t.RoleVerified, t.LastRoleChange, t.RoleChangeBy,
		t.CreatedAt, t.UpdatedAt, t.DeletedAt,
	}
}
