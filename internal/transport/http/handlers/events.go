package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/baechuer/eventhub/internal/application/event"
	"github.com/baechuer/eventhub/internal/domain"
	"github.com/baechuer/eventhub/internal/transport/http/dto"
	"github.com/baechuer/eventhub/internal/transport/http/middleware"
	"github.com/baechuer/eventhub/internal/transport/http/response"
	"github.com/baechuer/eventhub/internal/transport/http/validate"
)

const imageField = "image"

type EventsHandler struct {
	svc   EventService
	clock Clock
}

func NewEventsHandler(svc EventService, clock Clock) *EventsHandler {
	return &EventsHandler{svc: svc, clock: clock}
}

func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := intParam(q.Get("page"), "page")
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	pageSize, err := intParam(q.Get("page_size"), "page_size")
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	res, err := h.svc.List(r.Context(), event.ListFilter{
		Category: q.Get("category"),
		Phase:    q.Get("phase"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	now := h.clock.Now().UTC()
	out := make([]dto.EventResp, 0, len(res.Items))
	for _, e := range res.Items {
		out = append(out, dto.ToEventResp(e, h.svc.ImageURL(e.ImageKey), now))
	}
	response.OK(w, dto.PageResp[dto.EventResp]{
		Items:    out,
		Page:     res.Page,
		PageSize: res.PageSize,
		Total:    res.Total,
	})
}

func (h *EventsHandler) Get(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.ToEventResp(e, h.svc.ImageURL(e.ImageKey), h.clock.Now().UTC()))
}

func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateEventRequest
	if err := validate.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	uid, _ := middleware.UserIDFromContext(r.Context())
	role, _ := middleware.RoleFromContext(r.Context())

	e, err := h.svc.Create(r.Context(), uid, role, event.CreateCmd{
		Title:        req.Title,
		Date:         req.Date,
		Location:     req.Location,
		Description:  req.Description,
		Category:     req.Category,
		MaxAttendees: req.MaxAttendees,
	})
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.Created(w, dto.ToEventResp(e, h.svc.ImageURL(e.ImageKey), h.clock.Now().UTC()))
}

// UploadImage reads the multipart field "image" without buffering the whole form on disk.
func (h *EventsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	limit := h.svc.MaxUploadSize()
	// room for multipart headers and boundaries
	r.Body = http.MaxBytesReader(w, r.Body, limit+64<<10)

	data, err := readImagePart(r, limit)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	uid, _ := middleware.UserIDFromContext(r.Context())
	role, _ := middleware.RoleFromContext(r.Context())

	e, err := h.svc.SetImage(r.Context(), uid, role, chi.URLParam(r, "id"), data)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.ToEventResp(e, h.svc.ImageURL(e.ImageKey), h.clock.Now().UTC()))
}

func readImagePart(r *http.Request, limit int64) ([]byte, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, domain.ErrInvalidField(imageField, "expected multipart/form-data")
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, domain.ErrMissingField(imageField)
		}
		if err != nil {
			return nil, tooLargeOr(err, limit, domain.ErrInvalidField(imageField, "malformed multipart body"))
		}
		if part.FormName() != imageField {
			_ = part.Close()
			continue
		}

		data, err := io.ReadAll(io.LimitReader(part, limit+1))
		_ = part.Close()
		if err != nil {
			return nil, tooLargeOr(err, limit, domain.ErrInvalidField(imageField, "unreadable upload"))
		}
		if int64(len(data)) > limit {
			return nil, domain.ErrImageTooLarge(limit)
		}
		return data, nil
	}
}

func tooLargeOr(err error, limit int64, fallback error) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return domain.ErrImageTooLarge(limit)
	}
	return fallback
}

func intParam(v, name string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, domain.ErrInvalidField(name, "must be an integer")
	}
	return n, nil
}
