// Copyright (c) 2026 Atheneo. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Course and enrollment use cases, gated on freshly derived permissions.
package course

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/taibuivan/atheneo/internal/platform/apperr"
	"github.com/taibuivan/atheneo/internal/platform/sec"
	"github.com/taibuivan/atheneo/pkg/uuid"
)

// # Contracts & Types

// RoleResolver resolves the caller's current role from the authoritative
// profile store. The token's role claim is only a fallback.
type RoleResolver interface {
	Resolve(context context.Context, identityID string, fallback sec.Role) (sec.Role, error)
}

// Actor identifies the caller of a use case: the identity ID plus the role
// claim mirrored in the access token.
type Actor struct {
	ID       string
	TokenRol sec.Role
}

// Service implements the course catalog and enrollment use cases.
type Service struct {
	courses     CourseRepository
	enrollments EnrollmentRepository
	resolver    RoleResolver
	logger      *slog.Logger
}

// NewService constructs a new course [Service] with necessary dependencies.
func NewService(
	courses CourseRepository,
	enrollments EnrollmentRepository,
	resolver RoleResolver,
	logger *slog.Logger,
) *Service {
	return &Service{
		courses:     courses,
		enrollments: enrollments,
		resolver:    resolver,
		logger:      logger,
	}
}

// # Course Catalog

// CreateInput holds the data required to create a course.
type CreateInput struct {
	Title       string
	Description string
}

/*
Create persists a new unpublished course owned by the caller.

Description: Requires the CanManageCourses capability derived from the
caller's freshly resolved role. Courses start unpublished; publishing is an
explicit update.

Parameters:
  - context: context.Context
  - actor: Actor
  - input: CreateInput

Returns:
  - *Course: Persisted entity
  - err: Forbidden (no capability) or storage failures
*/
func (service *Service) Create(context context.Context, actor Actor, input CreateInput) (*Course, error) {
	permissions, err := service.permissions(context, actor)
	if err != nil {
		return nil, err
	}
	if !permissions.CanManageCourses {
		return nil, apperr.Forbidden("You cannot manage courses")
	}

	course := &Course{
		ID:          uuid.New(),
		Title:       input.Title,
		Description: input.Description,
		OwnerID:     actor.ID,
		IsPublished: false,
	}

	if err := service.courses.Create(context, course); err != nil {
		return nil, fmt.Errorf("course_service_create_failed: %w", err)
	}

	return course, nil
}

// UpdateInput holds the mutable course fields.
type UpdateInput struct {
	Title       string
	Description string
	IsPublished bool
}

/*
Update modifies a course's title, description, and publication state.

Description: Only the owning instructor or an admin may update a course.

Parameters:
  - context: context.Context
  - actor: Actor
  - courseID: string
  - input: UpdateInput

Returns:
  - *Course: Updated entity
  - err: NotFound, Forbidden, or storage failures
*/
func (service *Service) Update(context context.Context, actor Actor, courseID string, input UpdateInput) (*Course, error) {
	course, _, err := service.manageable(context, actor, courseID)
	if err != nil {
		return nil, err
	}

	course.Title = input.Title
	course.Description = input.Description
	course.IsPublished = input.IsPublished

	if err := service.courses.Update(context, course); err != nil {
		return nil, err
	}

	return course, nil
}

/*
Delete soft-deletes a course.

Parameters:
  - context: context.Context
  - actor: Actor
  - courseID: string

Returns:
  - err: NotFound, Forbidden, or storage failures
*/
func (service *Service) Delete(context context.Context, actor Actor, courseID string) error {
	if _, _, err := service.manageable(context, actor, courseID); err != nil {
		return err
	}
	return service.courses.SoftDelete(context, courseID)
}

/*
Get returns a single course.

Description: Published courses are visible to any authenticated caller.
Unpublished courses are visible only to the owner and admins.

Parameters:
  - context: context.Context
  - actor: Actor
  - courseID: string

Returns:
  - *Course: Hydrated entity
  - err: NotFound (including hidden unpublished courses) or retrieval failures
*/
func (service *Service) Get(context context.Context, actor Actor, courseID string) (*Course, error) {
	course, err := service.courses.FindByID(context, courseID)
	if err != nil {
		return nil, err
	}

	if !course.IsPublished && course.OwnerID != actor.ID {
		role, err := service.resolve(context, actor)
		if err != nil {
			return nil, err
		}
		if !role.AtLeast(sec.RoleAdmin) {
			// Hidden, not forbidden: existence is not disclosed
			return nil, apperr.NotFound("Course")
		}
	}

	return course, nil
}

/*
List returns a page of the catalog.

Description: Admins see unpublished courses too; everyone else sees the
published catalog.

Parameters:
  - context: context.Context
  - actor: Actor
  - limit: int
  - offset: int

Returns:
  - []*Course: Page of entities
  - int: Total row count
  - err: Retrieval failures
*/
func (service *Service) List(context context.Context, actor Actor, limit, offset int) ([]*Course, int, error) {
	role, err := service.resolve(context, actor)
	if err != nil {
		return nil, 0, err
	}

	includeUnpublished := role.AtLeast(sec.RoleAdmin)
	return service.courses.List(context, includeUnpublished, limit, offset)
}

// # Enrollment

/*
Enroll registers the caller as a student of a published course.

Parameters:
  - context: context.Context
  - actor: Actor
  - courseID: string

Returns:
  - *Enrollment: Persisted entity
  - err: Forbidden (no capability), NotFound, Conflict (already enrolled),
    or ValidationError (unpublished course)
*/
func (service *Service) Enroll(context context.Context, actor Actor, courseID string) (*Enrollment, error) {
	permissions, err := service.permissions(context, actor)
	if err != nil {
		return nil, err
	}
	if !permissions.CanEnrollInCourses {
		return nil, apperr.Forbidden("You cannot enroll in courses")
	}

	course, err := service.courses.FindByID(context, courseID)
	if err != nil {
		return nil, err
	}
	if !course.IsPublished {
		return nil, apperr.NotFound("Course")
	}

	enrollment := &Enrollment{
		ID:       uuid.New(),
		CourseID: courseID,
		UserID:   actor.ID,
	}

	if err := service.enrollments.Create(context, enrollment); err != nil {
		return nil, err
	}

	return enrollment, nil
}

/*
Unenroll removes an enrollment.

Description: A caller may always drop their own enrollment. Removing another
user requires the CanRemoveStudents capability AND management rights over the
course (owner or admin).

Parameters:
  - context: context.Context
  - actor: Actor
  - courseID: string
  - targetUserID: string

Returns:
  - err: NotFound, Forbidden, or storage failures
*/
func (service *Service) Unenroll(context context.Context, actor Actor, courseID, targetUserID string) error {
	if targetUserID != actor.ID {
		permissions, err := service.permissions(context, actor)
		if err != nil {
			return err
		}
		if !permissions.CanRemoveStudents {
			return apperr.Forbidden("You cannot remove students")
		}
		if _, _, err := service.manageable(context, actor, courseID); err != nil {
			return err
		}
	}

	return service.enrollments.Delete(context, courseID, targetUserID)
}

/*
ListEnrollments returns a page of a course's enrollments.

Description: Restricted to the course owner and admins.

Parameters:
  - context: context.Context
  - actor: Actor
  - courseID: string
  - limit: int
  - offset: int

Returns:
  - []*Enrollment: Page of entities
  - int: Total row count
  - err: NotFound, Forbidden, or retrieval failures
*/
func (service *Service) ListEnrollments(context context.Context, actor Actor, courseID string, limit, offset int) ([]*Enrollment, int, error) {
	if _, _, err := service.manageable(context, actor, courseID); err != nil {
		return nil, 0, err
	}
	return service.enrollments.ListByCourse(context, courseID, limit, offset)
}

/*
ListMyEnrollments returns a page of the caller's own enrollments.

Parameters:
  - context: context.Context
  - actor: Actor
  - limit: int
  - offset: int

Returns:
  - []*Enrollment: Page of entities
  - int: Total row count
  - err: Retrieval failures
*/
func (service *Service) ListMyEnrollments(context context.Context, actor Actor, limit, offset int) ([]*Enrollment, int, error) {
	return service.enrollments.ListByUser(context, actor.ID, limit, offset)
}

// # Internals

// resolve returns the caller's fresh authoritative role.
func (service *Service) resolve(context context.Context, actor Actor) (sec.Role, error) {
	return service.resolver.Resolve(context, actor.ID, actor.TokenRol)
}

// permissions derives the caller's capability set from the fresh role.
func (service *Service) permissions(context context.Context, actor Actor) (sec.PermissionSet, error) {
	role, err := service.resolve(context, actor)
	if err != nil {
		return sec.PermissionSet{}, err
	}
	return role.Permissions(), nil
}

// manageable loads a course and verifies the caller may manage it
// (capability plus ownership, or admin).
func (service *Service) manageable(context context.Context, actor Actor, courseID string) (*Course, sec.Role, error) {
	course, err := service.courses.FindByID(context, courseID)
	if err != nil {
		return nil, "", err
	}

	role, err := service.resolve(context, actor)
	if err != nil {
		return nil, "", err
	}

	if !role.Permissions().CanManageCourses {
		return nil, "", apperr.Forbidden("You cannot manage courses")
	}
	if course.OwnerID != actor.ID && !role.AtLeast(sec.RoleAdmin) {
		return nil, "", apperr.Forbidden("You can only manage your own courses")
	}

	return course, role, nil
}
