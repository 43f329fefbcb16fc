package schema

// CoreCourseTable represents the 'core.course' table
type CoreCourseTable struct {
	Table       string
	ID          string
	Title       string
	Description string
	OwnerID     string
	IsPublished string
	CreatedAt   string
	UpdatedAt   string
	DeletedAt   string
}

// CoreCourse is the schema definition for core.course
var CoreCourse = CoreCourseTable{
	Table:       "core.course",
	ID:          "id",
	Title:       "title",
	Description: "description",
	OwnerID:     "ownerid",
	IsPublished: "ispublished",
	CreatedAt:   "createdat",
	UpdatedAt:   "updatedat",
	DeletedAt:   "deletedat",
}
