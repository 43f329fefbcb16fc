// Copyright (c) 2026 Atheneo. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package course

import "context"

// # Course Data Access

// CourseRepository defines the data access contract for courses.
type CourseRepository interface {

	/*
		Create persists a new course record.

		Parameters:
		  - context: context.Context
		  - course: *Course

		Returns:
		  - error: Persistence failures
	*/
	Create(context context.Context, course *Course) error

	/*
		FindByID returns the course with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *Course: Hydrated entity
		  - error: apperr.NotFound or retrieval failures
	*/
	FindByID(context context.Context, id string) (*Course, error)

	/*
		Update persists changes to a course's mutable fields.

		Parameters:
		  - context: context.Context
		  - course: *Course

		Returns:
		  - error: Update failures
	*/
	Update(context context.Context, course *Course) error

	/*
		List returns a page of courses ordered by creation time. When
		includeUnpublished is false only published courses are returned.

		Parameters:
		  - context: context.Context
		  - includeUnpublished: bool
		  - limit: int
		  - offset: int

		Returns:
		  - []*Course: Page of entities
		  - int: Total row count
		  - error: Retrieval failures
	*/
	List(context context.Context, includeUnpublished bool, limit, offset int) ([]*Course, int, error)

	/*
		SoftDelete marks a course as deleted.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - error: Side-effect failures
	*/
	SoftDelete(context context.Context, id string) error
}

// # Enrollment Data Access

// EnrollmentRepository defines the data access contract for enrollments.
type EnrollmentRepository interface {

	/*
		Create persists a new enrollment record.

		Parameters:
		  - context: context.Context
		  - enrollment: *Enrollment

		Returns:
		  - error: apperr.Conflict on duplicate enrollment, or persistence failures
	*/
	Create(context context.Context, enrollment *Enrollment) error

	/*
		Find returns the enrollment linking a user to a course.

		Parameters:
		  - context: context.Context
		  - courseID: string
		  - userID: string

		Returns:
		  - *Enrollment: Hydrated entity
		  - error: apperr.NotFound or retrieval failures
	*/
	Find(context context.Context, courseID, userID string) (*Enrollment, error)

	/*
		Delete removes the enrollment linking a user to a course.

		Parameters:
		  - context: context.Context
		  - courseID: string
		  - userID: string

		Returns:
		  - error: apperr.NotFound if no such enrollment, or deletion failures
	*/
	Delete(context context.Context, courseID, userID string) error

	/*
		ListByCourse returns a page of enrollments for a course.

		Parameters:
		  - context: context.Context
		  - courseID: string
		  - limit: int
		  - offset: int

		Returns:
		  - []*Enrollment: Page of entities
		  - int: Total row count
		  - error: Retrieval failures
	*/
	ListByCourse(context context.Context, courseID string, limit, offset int) ([]*Enrollment, int, error)

	/*
		ListByUser returns a page of the user's enrollments.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - limit: int
		  - offset: int

		Returns:
		  - []*Enrollment: Page of entities
		  - int: Total row count
		  - error: Retrieval failures
	*/
	ListByUser(context context.Context, userID string, limit, offset int) ([]*Enrollment, int, error)
}
