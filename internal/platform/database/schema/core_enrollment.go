package schema

// CoreEnrollmentTable represents the 'core.enrollment' table
type CoreEnrollmentTable struct {
	Table     string
	ID        string
	CourseID  string
	UserID    string
	CreatedAt string
}

// CoreEnrollment is the schema definition for core.enrollment
var CoreEnrollment = CoreEnrollmentTable{
	Table:     "core.enrollment",
	ID:        "id",
	CourseID:  "courseid",
	UserID:    "userid",
	CreatedAt: "createdat",
}
