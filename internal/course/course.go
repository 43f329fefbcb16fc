// Copyright (c) 2026 Atheneo. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package course implements the course catalog and enrollment domain.

This is the primary consumer of the derived permission model: every mutating
operation re-resolves the caller's role from the profile store and checks the
capability derived from it, never a stored permission row.

# Architecture

  - Entities: Course, Enrollment.
  - Service: Permission-gated use cases over the repositories.
  - Ownership: Instructors manage their own courses; admins manage any.
*/
package course

import "time"

// Course represents one catalog entry owned by an instructor.
type Course struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`

	// OwnerID is the instructor (or admin) who created the course.
	OwnerID string `json:"owner_id"`

	// IsPublished controls catalog visibility. Unpublished courses are
	// visible only to their owner and admins, and accept no enrollments.
	IsPublished bool `json:"is_published"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Enrollment links one student to one course.
type Enrollment struct {
	ID        string    `json:"id"`
	CourseID  string    `json:"course_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// # Field Identifiers

const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldMessage     = "message"
)
