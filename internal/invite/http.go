// Copyright (c) 2026 Atheneo. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
HTTP delivery layer for the invitation and role-change workflow.

# Architecture

Admin surfaces are guarded by the access gate (fresh role resolution), not by
the token-mirror middleware: an admin demoted seconds ago must lose this
console immediately.
*/
package invite

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/atheneo/internal/platform/middleware"
	requestutil "github.com/taibuivan/atheneo/internal/platform/request"
	"github.com/taibuivan/atheneo/internal/platform/respond"
	"github.com/taibuivan/atheneo/internal/platform/sec"
	"github.com/taibuivan/atheneo/internal/platform/validate"
	"github.com/taibuivan/atheneo/internal/rbac"
	"github.com/taibuivan/atheneo/pkg/pagination"
)

// # Definitions & Constructors

// Handler implements the workflow HTTP endpoints.
type Handler struct {
	workflowService *Service
	gate            *rbac.Gate
}

// NewHandler constructs a new [Handler] with its dependencies.
func NewHandler(service *Service, gate *rbac.Gate) *Handler {
	return &Handler{workflowService: service, gate: gate}
}

// Routes returns a [chi.Router] configured with workflow routes.
//
// # Endpoints
//   - POST /invitations           : Issue an invitation (admin).
//   - POST /invitations/validate  : Resolve an emailed token (public).
//   - POST /invitations/accept    : Redeem a token into an account (public).
//   - POST /role-requests         : File a role-change petition (self).
//   - PUT  /users/{userID}/role   : Direct admin role edit.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Route("/invitations", func(r chi.Router) {
		// Public: the invitee holds no account yet
		r.Post("/validate", handler.validateInvitation)
		r.Post("/accept", handler.acceptInvitation)

		// Admin console, gated on the fresh role
		r.Group(func(admin chi.Router) {
			admin.Use(handler.gate.Require(sec.RoleAdmin))
			admin.Post("/", handler.issueInvitation)
			admin.Get("/", handler.listInvitations)
			admin.Post("/{invitationID}/resend", handler.resendInvitation)
			admin.Post("/{invitationID}/cancel", handler.cancelInvitation)
		})
	})

	router.Route("/role-requests", func(r chi.Router) {
		// Any authenticated member may petition for their own role
		r.Group(func(member chi.Router) {
			member.Use(middleware.RequireAuth)
			member.Post("/", handler.requestRoleChange)
		})

		// Processing is admin-only
		r.Group(func(admin chi.Router) {
			admin.Use(handler.gate.Require(sec.RoleAdmin))
			admin.Get("/", handler.listRequests)
			admin.Post("/{requestID}/approve", handler.approveRequest)
			admin.Post("/{requestID}/reject", handler.rejectRequest)
		})
	})

	router.Group(func(admin chi.Router) {
		admin.Use(handler.gate.Require(sec.RoleAdmin))
		admin.Get("/audit", handler.listAudit)
		admin.Put("/users/{userID}/role", handler.directRoleChange)
	})

	return router
}

// # Request Payloads

type issueRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

type acceptRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type roleChangeRequestBody struct {
	RequestedRole string `json:"requested_role"`
	Reason        string `json:"reason"`
}

type processRequestBody struct {
	Note string `json:"note"`
}

type directRoleRequest struct {
	Role   string `json:"role"`
	Reason string `json:"reason"`
}

/*
IssueInvitation creates and dispatches a new invitation.

POST /api/v1/invitations

Request:
  - Body: issueRequest (Email, FirstName, LastName, Role — optional)

Response:
  - 201: Invitation: Persisted pending invitation
  - 409: ErrConflict: Account or open invitation already exists
  - 503: SERVICE_UNAVAILABLE: Row saved but email undeliverable
*/
func (handler *Handler) issueInvitation(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input issueRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	v := &validate.Validator{}
	v.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldFirstName, input.FirstName).
		MaxLen(FieldFirstName, input.FirstName, 100).
		MaxLen(FieldLastName, input.LastName, 100)
	if input.Role != "" {
		v.Role(FieldRole, sec.Role(input.Role))
	}

	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	invitation, err := handler.workflowService.Issue(request.Context(), IssueInput{
		Email:     input.Email,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Role:      sec.Role(input.Role),
		InvitedBy: claims.UserID,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, invitation)
}

/*
ValidateInvitation resolves an emailed token without consuming it.

POST /api/v1/invitations/validate

Description: The acceptance page calls this to render the invitee's name and
granted role before asking for a password.

Request:
  - Body: tokenRequest (Token)

Response:
  - 200: Invitation: Still-valid pending invitation
  - 404: ErrNotFound: Unknown token
  - 410: EXPIRED: Redemption window passed
  - 409: ErrConflict: Already accepted or cancelled
*/
func (handler *Handler) validateInvitation(writer http.ResponseWriter, request *http.Request) {
	var input tokenRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	if input.Token == "" {
		respond.Error(writer, request, validate.RequiredError(FieldToken, "is required"))
		return
	}

	invitation, err := handler.workflowService.Validate(request.Context(), input.Token)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, invitation)
}

/*
AcceptInvitation redeems a token into a live account.

POST /api/v1/invitations/accept

Request:
  - Body: acceptRequest (Token, Password)

Response:
  - 201: User: Created account carrying the invited role
  - 404/410/409: Validation outcomes (see ValidateInvitation)
*/
func (handler *Handler) acceptInvitation(writer http.ResponseWriter, request *http.Request) {
	var input acceptRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	v := &validate.Validator{}
	v.Required(FieldToken, input.Token).
		Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, 8)

	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.workflowService.Accept(request.Context(), AcceptInput{
		Token:    input.Token,
		Password: input.Password,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, user)
}

/*
ResendInvitation rotates and re-dispatches a pending invitation.

POST /api/v1/invitations/{invitationID}/resend

Response:
  - 200: Invitation: Updated entity with a fresh expiry
  - 409: ErrConflict: No longer pending
*/
func (handler *Handler) resendInvitation(writer http.ResponseWriter, request *http.Request) {
	invitationID := requestutil.ID(request, "invitationID")

	invitation, err := handler.workflowService.Resend(request.Context(), invitationID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, invitation)
}

/*
CancelInvitation terminates a pending invitation.

POST /api/v1/invitations/{invitationID}/cancel

Response:
  - 200: Success: Invitation cancelled
  - 409: ErrConflict: Already terminal
*/
func (handler *Handler) cancelInvitation(writer http.ResponseWriter, request *http.Request) {
	invitationID := requestutil.ID(request, "invitationID")

	if err := handler.workflowService.Cancel(request.Context(), invitationID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{
		FieldMessage: "Invitation cancelled",
	})
}

/*
ListInvitations returns a paginated admin view of invitations.

GET /api/v1/invitations?page=&limit=
*/
func (handler *Handler) listInvitations(writer http.ResponseWriter, request *http.Request) {
	params := pagination.FromRequest(request)

	invitations, total, err := handler.workflowService.ListInvitations(request.Context(), params.Limit, params.Offset())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, invitations, pagination.NewMeta(params.Page, params.Limit, total))
}

/*
RequestRoleChange files a petition for the caller's own role.

POST /api/v1/role-requests

Request:
  - Body: roleChangeRequestBody (RequestedRole, Reason)

Response:
  - 201: RoleChangeRequest: Pending petition
  - 409: ErrConflict: An open petition already exists
*/
func (handler *Handler) requestRoleChange(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input roleChangeRequestBody
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	v := &validate.Validator{}
	v.Required(FieldRequestedRole, input.RequestedRole).
		Role(FieldRequestedRole, sec.Role(input.RequestedRole)).
		Required(FieldReason, input.Reason).
		MaxLen(FieldReason, input.Reason, 500)

	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	petition, err := handler.workflowService.RequestRoleChange(request.Context(), RoleChangeInput{
		UserID:        claims.UserID,
		RequestedRole: sec.Role(input.RequestedRole),
		Reason:        input.Reason,
		RequestedBy:   claims.UserID,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, petition)
}

/*
ApproveRequest approves a pending role-change request.

POST /api/v1/role-requests/{requestID}/approve
*/
func (handler *Handler) approveRequest(writer http.ResponseWriter, request *http.Request) {
	handler.processRequest(writer, request, true)
}

/*
RejectRequest rejects a pending role-change request.

POST /api/v1/role-requests/{requestID}/reject
*/
func (handler *Handler) rejectRequest(writer http.ResponseWriter, request *http.Request) {
	handler.processRequest(writer, request, false)
}

// processRequest is the shared decision path for approve and reject.
func (handler *Handler) processRequest(writer http.ResponseWriter, request *http.Request, approve bool) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	requestID := requestutil.ID(request, "requestID")

	// Note body is optional
	var input processRequestBody
	_ = requestutil.DecodeJSON(request, &input)

	petition, err := handler.workflowService.ProcessRoleChange(request.Context(), ProcessInput{
		RequestID:   requestID,
		Approve:     approve,
		ProcessedBy: claims.UserID,
		Note:        input.Note,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, petition)
}

/*
ListRequests returns a paginated admin view of role-change requests.

GET /api/v1/role-requests?page=&limit=
*/
func (handler *Handler) listRequests(writer http.ResponseWriter, request *http.Request) {
	params := pagination.FromRequest(request)

	requests, total, err := handler.workflowService.ListRequests(request.Context(), params.Limit, params.Offset())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, requests, pagination.NewMeta(params.Page, params.Limit, total))
}

/*
ListAudit returns the paginated role audit log.

GET /api/v1/audit?page=&limit=
*/
func (handler *Handler) listAudit(writer http.ResponseWriter, request *http.Request) {
	params := pagination.FromRequest(request)

	entries, total, err := handler.workflowService.ListAudit(request.Context(), params.Limit, params.Offset())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, entries, pagination.NewMeta(params.Page, params.Limit, total))
}

/*
DirectRoleChange applies an immediate admin role edit.

PUT /api/v1/users/{userID}/role

Request:
  - Body: directRoleRequest (Role, Reason)

Response:
  - 200: Success: Role applied and audited
  - 400: ErrInvalidJSON: Unknown role or no-op edit
*/
func (handler *Handler) directRoleChange(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	userID := requestutil.ID(request, "userID")

	var input directRoleRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	v := &validate.Validator{}
	v.Required(FieldRole, input.Role).
		Role(FieldRole, sec.Role(input.Role))

	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	err = handler.workflowService.DirectRoleChange(
		request.Context(),
		userID,
		sec.Role(input.Role),
		claims.UserID,
		input.Reason,
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{
		FieldMessage: "Role updated",
	})
}
