package schema

// InviteInvitationTable represents the 'invite.invitation' table
type InviteInvitationTable struct {
	Table        string
	ID           string
	Email        string
	FirstName    string
	LastName     string
	Role         string
	InvitedBy    string
	TokenHash    string
	TempPassword string
	ExpiresAt    string
	Status       string
	AcceptedAt   string
	CreatedAt    string
	UpdatedAt    string
}

// InviteInvitation is the schema definition for invite.invitation
var InviteInvitation = InviteInvitationTable{
	Table:        "invite.invitation",
	ID:           "id",
	Email:        "email",
	FirstName:    "firstname",
	LastName:     "lastname",
	Role:         "role",
	InvitedBy:    "invitedby",
	TokenHash:    "tokenhash",
	TempPassword: "temppasswordhash",
	ExpiresAt:    "expiresat",
	Status:       "status",
	AcceptedAt:   "acceptedat",
	CreatedAt:    "createdat",
	UpdatedAt:    "updatedat",
}
