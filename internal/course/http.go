// Copyright (c) 2026 Atheneo. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// HTTP delivery layer for the course catalog and enrollments.
package course

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/atheneo/internal/platform/middleware"
	requestutil "github.com/taibuivan/atheneo/internal/platform/request"
	"github.com/taibuivan/atheneo/internal/platform/respond"
	"github.com/taibuivan/atheneo/internal/platform/sec"
	"github.com/taibuivan/atheneo/internal/platform/validate"
	"github.com/taibuivan/atheneo/pkg/pagination"
)

// # Definitions & Constructors

// Handler implements the course HTTP endpoints.
type Handler struct {
	courseService *Service
}

// NewHandler constructs a new [Handler] with its dependencies.
func NewHandler(service *Service) *Handler {
	return &Handler{courseService: service}
}

// Routes returns a [chi.Router] configured with course routes.
//
// Every route requires an authenticated caller; finer-grained decisions
// (ownership, capability) are made in the service from the fresh role.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth)

	router.Get("/", handler.listCourses)
	router.Post("/", handler.createCourse)
	router.Get("/enrollments", handler.listMyEnrollments)
	router.Get("/{courseID}", handler.getCourse)
	router.Put("/{courseID}", handler.updateCourse)
	router.Delete("/{courseID}", handler.deleteCourse)
	router.Post("/{courseID}/enroll", handler.enroll)
	router.Delete("/{courseID}/enroll", handler.unenrollSelf)
	router.Get("/{courseID}/enrollments", handler.listEnrollments)
	router.Delete("/{courseID}/enrollments/{userID}", handler.removeStudent)

	return router
}

// actorFrom builds the service-level caller identity from the token claims.
func actorFrom(request *http.Request) (Actor, error) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		return Actor{}, err
	}
	return Actor{ID: claims.UserID, TokenRol: sec.Role(claims.Role)}, nil
}

// # Request Payloads

type courseRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	IsPublished bool   `json:"is_published"`
}

func (input courseRequest) validate() error {
	v := &validate.Validator{}
	v.Required(FieldTitle, input.Title).
		MaxLen(FieldTitle, input.Title, 200).
		MaxLen(FieldDescription, input.Description, 5000)
	return v.Err()
}

/*
CreateCourse creates a new unpublished course owned by the caller.

POST /api/v1/courses

Response:
  - 201: Course: Persisted entity
  - 403: FORBIDDEN: Caller lacks the manage-courses capability
*/
func (handler *Handler) createCourse(writer http.ResponseWriter, request *http.Request) {
	actor, err := actorFrom(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input courseRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}
	if err := input.validate(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	course, err := handler.courseService.Create(request.Context(), actor, CreateInput{
		Title:       input.Title,
		Description: input.Description,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, course)
}

/*
GetCourse returns a single course.

GET /api/v1/courses/{courseID}
*/
func (handler *Handler) getCourse(writer http.ResponseWriter, request *http.Request) {
	actor, err := actorFrom(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	course, err := handler.courseService.Get(request.Context(), actor, requestutil.ID(request, "courseID"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, course)
}

/*
UpdateCourse modifies a course's title, description, and publication state.

PUT /api/v1/courses/{courseID}
*/
func (handler *Handler) updateCourse(writer http.ResponseWriter, request *http.Request) {
	actor, err := actorFrom(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input courseRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}
	if err := input.validate(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	course, err := handler.courseService.Update(request.Context(), actor, requestutil.ID(request, "courseID"), UpdateInput{
		Title:       input.Title,
		Description: input.Description,
		IsPublished: input.IsPublished,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, course)
}

/*
DeleteCourse soft-deletes a course.

DELETE /api/v1/courses/{courseID}
*/
func (handler *Handler) deleteCourse(writer http.ResponseWriter, request *http.Request) {
	actor, err := actorFrom(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.courseService.Delete(request.Context(), actor, requestutil.ID(request, "courseID")); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
ListCourses returns a paginated catalog view.

GET /api/v1/courses?page=&limit=
*/
func (handler *Handler) listCourses(writer http.ResponseWriter, request *http.Request) {
	actor, err := actorFrom(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	params := pagination.FromRequest(request)
	courses, total, err := handler.courseService.List(request.Context(), actor, params.Limit, params.Offset())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, courses, pagination.NewMeta(params.Page, params.Limit, total))
}

/*
Enroll registers the caller as a student of a published course.

POST /api/v1/courses/{courseID}/enroll
*/
func (handler *Handler) enroll(writer http.ResponseWriter, request *http.Request) {
	actor, err := actorFrom(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	enrollment, err := handler.courseService.Enroll(request.Context(), actor, requestutil.ID(request, "courseID"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, enrollment)
}

/*
UnenrollSelf drops the caller's own enrollment.

DELETE /api/v1/courses/{courseID}/enroll
*/
func (handler *Handler) unenrollSelf(writer http.ResponseWriter, request *http.Request) {
	actor, err := actorFrom(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.courseService.Unenroll(request.Context(), actor, requestutil.ID(request, "courseID"), actor.ID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
RemoveStudent removes another user's enrollment from a course.

DELETE /api/v1/courses/{courseID}/enrollments/{userID}
*/
func (handler *Handler) removeStudent(writer http.ResponseWriter, request *http.Request) {
	actor, err := actorFrom(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	err = handler.courseService.Unenroll(
		request.Context(),
		actor,
		requestutil.ID(request, "courseID"),
		requestutil.ID(request, "userID"),
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
ListEnrollments returns a paginated roster for a course.

GET /api/v1/courses/{courseID}/enrollments?page=&limit=
*/
func (handler *Handler) listEnrollments(writer http.ResponseWriter, request *http.Request) {
	actor, err := actorFrom(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	params := pagination.FromRequest(request)
	enrollments, total, err := handler.courseService.ListEnrollments(
		request.Context(),
		actor,
		requestutil.ID(request, "courseID"),
		params.Limit,
		params.Offset(),
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, enrollments, pagination.NewMeta(params.Page, params.Limit, total))
}

/*
ListMyEnrollments returns the caller's own enrollments.

GET /api/v1/courses/enrollments?page=&limit=
*/
func (handler *Handler) listMyEnrollments(writer http.ResponseWriter, request *http.Request) {
	actor, err := actorFrom(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	params := pagination.FromRequest(request)
	enrollments, total, err := handler.courseService.ListMyEnrollments(request.Context(), actor, params.Limit, params.Offset())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, enrollments, pagination.NewMeta(params.Page, params.Limit, total))
}
