package schema

// InviteAuditLogTable represents the append-only 'invite.auditlog' table
type InviteAuditLogTable struct {
	Table        string
	ID           string
	UserID       string
	ChangedBy    string
	PreviousRole string
	NewRole      string
	Reason       string
	RequestID    string
	CreatedAt    string
}

// InviteAuditLog is the schema definition for invite.auditlog
var InviteAuditLog = InviteAuditLogTable{
	Table:        "invite.auditlog",
	ID:           "id",
	UserID:       "userid",
	ChangedBy:    "changedby",
	PreviousRole: "previousrole",
	NewRole:      "newrole",
	Reason:       "reason",
	RequestID:    "requestid",
	CreatedAt:    "createdat",
}
