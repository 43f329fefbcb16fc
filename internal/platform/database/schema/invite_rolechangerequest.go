package schema

// InviteRoleChangeRequestTable represents the 'invite.rolechangerequest' table
type InviteRoleChangeRequestTable struct {
	Table         string
	ID            string
	UserID        string
	RequestedBy   string
	CurrentRole   string
	RequestedRole string
	Reason        string
	Status        string
	ProcessedBy   string
	ProcessedAt   string
	CreatedAt     string
}

// InviteRoleChangeRequest is the schema definition for invite.rolechangerequest
var InviteRoleChangeRequest = InviteRoleChangeRequestTable{
	Table:         "invite.rolechangerequest",
	ID:            "id",
	UserID:        "userid",
	RequestedBy:   "requestedby",
	CurrentRole:   "currentrole",
	RequestedRole: "requestedrole",
	Reason:        "reason",
	Status:        "status",
	ProcessedBy:   "processedby",
	ProcessedAt:   "processedat",
	CreatedAt:     "createdat",
}
