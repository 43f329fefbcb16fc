// Copyright (c) 2026 Atheneo. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// PostgreSQL implementations of the course data access contracts.
package course

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/atheneo/internal/platform/apperr"
	"github.com/taibuivan/atheneo/internal/platform/dberr"
)

// # Course Repository

// PostgresCourseRepository implements the CourseRepository interface using pgx.
type PostgresCourseRepository struct {
	pool *pgxpool.Pool
}

// NewCourseRepository creates a new PostgreSQL implementation of CourseRepository.
func NewCourseRepository(pool *pgxpool.Pool) *PostgresCourseRepository {
	return &PostgresCourseRepository{pool: pool}
}

const courseColumns = `
	id, title, description, ownerid, ispublished, createdat, updatedat`

// scanCourse hydrates a Course entity from a pgx row.
func scanCourse(row pgx.Row) (*Course, error) {
	course := &Course{}
	err := row.Scan(
		&course.ID,
		&course.Title,
		&course.Description,
		&course.OwnerID,
		&course.IsPublished,
		&course.CreatedAt,
		&course.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return course, nil
}

/*
Create persists a new course record into the core.course table.

Parameters:
  - context: context.Context
  - course: *Course

Returns:
  - error: Database constraint violations or connectivity errors
*/
func (repository *PostgresCourseRepository) Create(context context.Context, course *Course) error {
	const query = `
		INSERT INTO core.course (
			id, title, description, ownerid, ispublished, createdat, updatedat
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	now := time.Now()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now

	_, err := repository.pool.Exec(context, query,
		course.ID,
		course.Title,
		course.Description,
		course.OwnerID,
		course.IsPublished,
		course.CreatedAt,
		course.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("postgres_course_repo_create_failed: %w", err)
	}

	return nil
}

/*
FindByID retrieves a course by its unique ID, excluding soft-deleted rows.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - *Course: Hydrated entity
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresCourseRepository) FindByID(context context.Context, id string) (*Course, error) {
	const query = `
		SELECT ` + courseColumns + `
		FROM core.course
		WHERE id = $1 AND deletedat IS NULL`

	course, err := scanCourse(repository.pool.QueryRow(context, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Course")
		}
		return nil, fmt.Errorf("postgres_course_repo_find_by_id_failed: %w", err)
	}

	return course, nil
}

/*
Update persists changes to a course's mutable fields.

Parameters:
  - context: context.Context
  - course: *Course

Returns:
  - error: apperr.NotFound if the course is absent, or execution errors
*/
func (repository *PostgresCourseRepository) Update(context context.Context, course *Course) error {
	const query = `
		UPDATE core.course
		SET title = $2, description = $3, ispublished = $4, updatedat = $5
		WHERE id = $1 AND deletedat IS NULL`

	course.UpdatedAt = time.Now()
	tag, err := repository.pool.Exec(context, query,
		course.ID,
		course.Title,
		course.Description,
		course.IsPublished,
		course.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("postgres_course_repo_update_failed: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Course")
	}

	return nil
}

/*
List returns a page of courses ordered by creation time (newest first).

Parameters:
  - context: context.Context
  - includeUnpublished: bool
  - limit: int
  - offset: int

Returns:
  - []*Course: Page of entities
  - int: Total row count
  - error: Database retrieval failures
*/
func (repository *PostgresCourseRepository) List(context context.Context, includeUnpublished bool, limit, offset int) ([]*Course, int, error) {
	const query = `
		SELECT ` + courseColumns + `, COUNT(*) OVER() AS totalcount
		FROM core.course
		WHERE deletedat IS NULL AND (ispublished = TRUE OR $1)
		ORDER BY createdat DESC
		LIMIT $2 OFFSET $3`

	rows, err := repository.pool.Query(context, query, includeUnpublished, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres_course_repo_list_failed: %w", err)
	}
	defer rows.Close()

	var courses []*Course
	var total int
	for rows.Next() {
		course := &Course{}
		err := rows.Scan(
			&course.ID,
			&course.Title,
			&course.Description,
			&course.OwnerID,
			&course.IsPublished,
			&course.CreatedAt,
			&course.UpdatedAt,
			&total,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("postgres_course_repo_list_scan_failed: %w", err)
		}
		courses = append(courses, course)
	}

	return courses, total, rows.Err()
}

/*
SoftDelete marks a course as deleted using its ID.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - error: Side-effect failures
*/
func (repository *PostgresCourseRepository) SoftDelete(context context.Context, id string) error {
	const query = "UPDATE core.course SET deletedat = $2 WHERE id = $1 AND deletedat IS NULL"
	_, err := repository.pool.Exec(context, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_course_repo_soft_delete_failed: %w", err)
	}
	return nil
}

// # Enrollment Repository

// PostgresEnrollmentRepository implements the EnrollmentRepository interface.
type PostgresEnrollmentRepository struct {
	pool *pgxpool.Pool
}

// NewEnrollmentRepository creates a new PostgreSQL implementation of EnrollmentRepository.
func NewEnrollmentRepository(pool *pgxpool.Pool) *PostgresEnrollmentRepository {
	return &PostgresEnrollmentRepository{pool: pool}
}

/*
Create persists a new enrollment record into the core.enrollment table.

Description: The (courseid, userid) unique constraint is the duplicate-enrollment
guard; a violation maps to apperr.Conflict.

Parameters:
  - context: context.Context
  - enrollment: *Enrollment

Returns:
  - error: apperr.Conflict on duplicate, or persistence failures
*/
func (repository *PostgresEnrollmentRepository) Create(context context.Context, enrollment *Enrollment) error {
	const query = `
		INSERT INTO core.enrollment (id, courseid, userid, createdat)
		VALUES ($1, $2, $3, $4)`

	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = time.Now()
	}

	_, err := repository.pool.Exec(context, query,
		enrollment.ID,
		enrollment.CourseID,
		enrollment.UserID,
		enrollment.CreatedAt,
	)

	if err != nil {
		var pgError *pgconn.PgError
		if errors.As(err, &pgError) && pgError.Code == dberr.UniqueViolation {
			return apperr.Conflict("User is already enrolled in this course")
		}
		return fmt.Errorf("postgres_enrollment_repo_create_failed: %w", err)
	}

	return nil
}

/*
Find returns the enrollment linking a user to a course.

Parameters:
  - context: context.Context
  - courseID: string
  - userID: string

Returns:
  - *Enrollment: Hydrated entity
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresEnrollmentRepository) Find(context context.Context, courseID, userID string) (*Enrollment, error) {
	const query = `
		SELECT id, courseid, userid, createdat
		FROM core.enrollment
		WHERE courseid = $1 AND userid = $2`

	enrollment := &Enrollment{}
	err := repository.pool.QueryRow(context, query, courseID, userID).Scan(
		&enrollment.ID,
		&enrollment.CourseID,
		&enrollment.UserID,
		&enrollment.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Enrollment")
		}
		return nil, fmt.Errorf("postgres_enrollment_repo_find_failed: %w", err)
	}

	return enrollment, nil
}

/*
Delete removes the enrollment linking a user to a course.

Parameters:
  - context: context.Context
  - courseID: string
  - userID: string

Returns:
  - error: apperr.NotFound if no such enrollment, or deletion failures
*/
func (repository *PostgresEnrollmentRepository) Delete(context context.Context, courseID, userID string) error {
	const query = "DELETE FROM core.enrollment WHERE courseid = $1 AND userid = $2"

	tag, err := repository.pool.Exec(context, query, courseID, userID)
	if err != nil {
		return fmt.Errorf("postgres_enrollment_repo_delete_failed: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Enrollment")
	}

	return nil
}

/*
ListByCourse returns a page of enrollments for a course, oldest first.

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
func (repository *PostgresEnrollmentRepository) ListByCourse(context context.Context, courseID string, limit, offset int) ([]*Enrollment, int, error) {
	const query = `
		SELECT id, courseid, userid, createdat, COUNT(*) OVER() AS totalcount
		FROM core.enrollment
		WHERE courseid = $1
		ORDER BY createdat ASC
		LIMIT $2 OFFSET $3`

	return repository.listRows(context, query, courseID, limit, offset)
}

/*
ListByUser returns a page of the user's enrollments, newest first.

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
func (repository *PostgresEnrollmentRepository) ListByUser(context context.Context, userID string, limit, offset int) ([]*Enrollment, int, error) {
	const query = `
		SELECT id, courseid, userid, createdat, COUNT(*) OVER() AS totalcount
		FROM core.enrollment
		WHERE userid = $1
		ORDER BY createdat DESC
		LIMIT $2 OFFSET $3`

	return repository.listRows(context, query, userID, limit, offset)
}

// listRows executes a paginated enrollment query and hydrates the result set.
func (repository *PostgresEnrollmentRepository) listRows(context context.Context, query string, key string, limit, offset int) ([]*Enrollment, int, error) {
	rows, err := repository.pool.Query(context, query, key, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres_enrollment_repo_list_failed: %w", err)
	}
	defer rows.Close()

	var enrollments []*Enrollment
	var total int
	for rows.Next() {
		enrollment := &Enrollment{}
		err := rows.Scan(
			&enrollment.ID,
			&enrollment.CourseID,
			&enrollment.UserID,
			&enrollment.CreatedAt,
			&total,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("postgres_enrollment_repo_list_scan_failed: %w", err)
		}
		enrollments = append(enrollments, enrollment)
	}

	return enrollments, total, rows.Err()
}
