package registration

import (
	"context"

	"github.com/baechuer/eventhub/internal/application/notify"
	"github.com/baechuer/eventhub/internal/domain"
	"github.com/google/uuid"
)

// Approve marks a pending request approved and appends the requester to the
// event's attendees. Everything happens in one transaction holding the event
// row lock, so two approvals racing for the last spot cannot both succeed.
func (s *Service) Approve(ctx context.Context, adminID, actorRole, requestID string) (*domain.RegistrationRequest, error) {
	return s.review(ctx, adminID, actorRole, requestID, domain.RequestApproved)
}

// Reject marks a pending request rejected. The attendee list is not touched.
func (s *Service) Reject(ctx context.Context, adminID, actorRole, requestID string) (*domain.RegistrationRequest, error) {
	return s.review(ctx, adminID, actorRole, requestID, domain.RequestRejected)
}

func (s *Service) review(ctx context.Context, adminID, actorRole, requestID string, to domain.RequestStatus) (*domain.RegistrationRequest, error) {
	if err := requireAdmin(actorRole); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(requestID); err != nil {
		return nil, domain.ErrRequestNotFound()
	}

	var out *domain.RegistrationRequest

	err := s.repo.WithTx(ctx, func(tx TxRepo) error {
		req, err := tx.GetRequestForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if req.Status != domain.RequestPending {
			return domain.ErrRequestNotPending(req.Status)
		}

		now := s.clock.Now().UTC()
		title := domain.MissingEventTitle

		ev, err := tx.LockEvent(ctx, req.EventID)
		switch {
		case err == nil:
			title = ev.Title
		case to == domain.RequestRejected && domain.Is(err, "event_not_found"):
			// a request for a deleted event can still be turned down
		default:
			return err
		}

		var mail notify.Mail
		if to == domain.RequestApproved {
			if ev.Phase(now) == domain.PhasePast {
				return domain.ErrEventEnded()
			}
			if err := ev.AddAttendee(req.UserID, now); err != nil {
				return err
			}
			if err := req.Approve(adminID, now); err != nil {
				return err
			}
			if err := tx.InsertAttendee(ctx, ev.ID, req.UserID, now); err != nil {
				return err
			}
		} else {
			if err := req.Reject(adminID, now); err != nil {
				return err
			}
		}

		if err := tx.UpdateRequestStatus(ctx, req); err != nil {
			return err
		}

		u, err := tx.GetUser(ctx, req.UserID)
		if err != nil {
			return err
		}
		if to == domain.RequestApproved {
			mail = notify.ApprovedMail(u.Email, title)
		} else {
			mail = notify.RejectedMail(u.Email, title)
		}
		msg, err := notify.NewMailOutbox(ctx, mail, now)
		if err != nil {
			return domain.ErrInternal(err)
		}
		if err := tx.InsertOutbox(ctx, msg); err != nil {
			return err
		}

		out = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	// best-effort, after commit
	if s.cache != nil {
		s.cache.Invalidate(ctx, out.EventID)
	}

	s.audit("registration."+string(to), map[string]string{
		"request_id": out.ID,
		"event_id":   out.EventID,
		"user_id":    out.UserID,
		"admin_id":   adminID,
	})

	return out, nil
}
