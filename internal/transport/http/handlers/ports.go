package handlers

import (
	"context"
	"time"

	"github.com/baechuer/eventhub/internal/application/auth"
	"github.com/baechuer/eventhub/internal/application/event"
	"github.com/baechuer/eventhub/internal/application/registration"
	"github.com/baechuer/eventhub/internal/domain"
)

type Clock interface{ Now() time.Time }

type AuthService interface {
	Signup(ctx context.Context, cmd auth.SignupCmd) (auth.AuthResult, error)
	Login(ctx context.Context, cmd auth.LoginCmd) (auth.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (auth.AuthTokens, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context, userID string) (domain.User, error)
}

type EventService interface {
	Create(ctx context.Context, actorID, actorRole string, cmd event.CreateCmd) (*domain.Event, error)
	Get(ctx context.Context, id string) (*domain.Event, error)
	List(ctx context.Context, f event.ListFilter) (event.ListResult, error)
	SetImage(ctx context.Context, actorID, actorRole, eventID string, data []byte) (*domain.Event, error)
	ImageURL(key string) string
	MaxUploadSize() int64
}

type RegistrationService interface {
	Submit(ctx context.Context, userID, eventID string) (*domain.RegistrationRequest, error)
	ListMine(ctx context.Context, userID string, f registration.ListFilter) (registration.ListResult, error)
	ListForAdmin(ctx context.Context, actorRole string, f registration.ListFilter) (registration.ListResult, error)
	Approve(ctx context.Context, adminID, actorRole, requestID string) (*domain.RegistrationRequest, error)
	Reject(ctx context.Context, adminID, actorRole, requestID string) (*domain.RegistrationRequest, error)
}
