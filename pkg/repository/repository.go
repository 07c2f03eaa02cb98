package repository

import (
	"context"
	"errors"

	"github.com/garnizeh/prepwise/internal/models"
)

// Repository interfaces for domain entities. These are the public contracts
// consumers should depend on; concrete implementations live under internal/.

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrAlreadyCompleted  = errors.New("interview already completed")
	ErrQuotaExhausted    = errors.New("no interviews left")
	ErrDuplicateDelivery = errors.New("webhook delivery already processed")
)

type UserRepo interface {
	CreateUser(ctx context.Context, u *models.User) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// CreateOptions tune CreateInterviewForUser.
type CreateOptions struct {
	// DeliveryID, when set, is recorded with the interview; a second
	// create with the same id fails with ErrDuplicateDelivery.
	DeliveryID string
	// RequireQuota rejects the create with ErrQuotaExhausted when the
	// user has no interviews left.
	RequireQuota bool
}

type InterviewRepo interface {
	// CreateInterviewForUser inserts iv under the user identified by email
	// and decrements that user's quota by one, atomically.
	CreateInterviewForUser(ctx context.Context, email string, iv *models.Interview, opts CreateOptions) error
	// HasDelivery reports whether a webhook delivery id was already recorded.
	HasDelivery(ctx context.Context, deliveryID string) (bool, error)
	GetInterview(ctx context.Context, id string) (*models.Interview, error)
	ListInterviewsByUser(ctx context.Context, userID int64) ([]models.Interview, error)
	// CompleteInterview sets is_completed and the analysis in one write.
	CompleteInterview(ctx context.Context, id string, analysis string) error
}

type SchemaRepo interface {
	CreateSchema(ctx context.Context, version, description, schemaJSON string) (int64, error)
	GetSchemaByVersion(ctx context.Context, version string) (*models.Schema, error)
	ListSchemas(ctx context.Context) ([]models.Schema, error)
	DeleteSchema(ctx context.Context, version string) error
}

type TemplateRepo interface {
	CreateTemplate(ctx context.Context, name, version, templateText string, schemaVersion *string, metadata *string) (int64, error)
	GetTemplate(ctx context.Context, name, version string) (*models.Template, error)
	ListTemplates(ctx context.Context) ([]models.Template, error)
	DeleteTemplate(ctx context.Context, name, version string) error
}
