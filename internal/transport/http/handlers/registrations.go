package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/baechuer/eventhub/internal/application/registration"
	"github.com/baechuer/eventhub/internal/domain"
	"github.com/baechuer/eventhub/internal/metrics"
	"github.com/baechuer/eventhub/internal/transport/http/dto"
	"github.com/baechuer/eventhub/internal/transport/http/middleware"
	"github.com/baechuer/eventhub/internal/transport/http/response"
)

type RegistrationsHandler struct {
	svc RegistrationService
}

func NewRegistrationsHandler(svc RegistrationService) *RegistrationsHandler {
	return &RegistrationsHandler{svc: svc}
}

func (h *RegistrationsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	uid, _ := middleware.UserIDFromContext(r.Context())

	req, err := h.svc.Submit(r.Context(), uid, chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	metrics.RecordRegistrationSubmitted()
	response.Created(w, dto.ToRegistrationResp(req))
}

func (h *RegistrationsHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	uid, _ := middleware.UserIDFromContext(r.Context())
	f, err := listFilter(r)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	res, err := h.svc.ListMine(r.Context(), uid, f)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, toCursorPage(res))
}

func (h *RegistrationsHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	role, _ := middleware.RoleFromContext(r.Context())
	f, err := listFilter(r)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	res, err := h.svc.ListForAdmin(r.Context(), role, f)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, toCursorPage(res))
}

func (h *RegistrationsHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, "approve", h.svc.Approve)
}

func (h *RegistrationsHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, "reject", h.svc.Reject)
}

type reviewFunc func(ctx context.Context, adminID, actorRole, requestID string) (*domain.RegistrationRequest, error)

func (h *RegistrationsHandler) review(w http.ResponseWriter, r *http.Request, decision string, fn reviewFunc) {
	uid, _ := middleware.UserIDFromContext(r.Context())
	role, _ := middleware.RoleFromContext(r.Context())

	req, err := fn(r.Context(), uid, role, chi.URLParam(r, "id"))
	if err != nil {
		metrics.RecordReview(decision, errCode(err))
		response.WriteError(w, r, err)
		return
	}
	metrics.RecordReview(decision, "ok")
	response.OK(w, dto.ToRegistrationResp(req))
}

func listFilter(r *http.Request) (registration.ListFilter, error) {
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"), "limit")
	if err != nil {
		return registration.ListFilter{}, err
	}
	return registration.ListFilter{
		Status: q.Get("status"),
		Limit:  limit,
		Cursor: q.Get("cursor"),
	}, nil
}

func toCursorPage(res registration.ListResult) dto.CursorPage[dto.RequestViewResp] {
	out := make([]dto.RequestViewResp, 0, len(res.Items))
	for _, v := range res.Items {
		out = append(out, dto.ToRequestViewResp(v))
	}
	return dto.CursorPage[dto.RequestViewResp]{Items: out, NextCursor: res.NextCursor}
}

// errCode keeps metric labels bounded to known domain codes.
func errCode(err error) string {
	var de *domain.Error
	if errors.As(err, &de) {
		return de.Code
	}
	return "internal_error"
}
