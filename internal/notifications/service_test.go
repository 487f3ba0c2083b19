package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/calloway-labs/dispatch-backend/pkg/db/models"
	"github.com/calloway-labs/dispatch-backend/pkg/enums"
	pkgerrors "github.com/calloway-labs/dispatch-backend/pkg/errors"
)

type stubRepo struct {
	rows      []models.Notification
	err       error
	lastLimit int
	created   []*models.Notification
	createErr error
}

func (r *stubRepo) Create(_ context.Context, notification *models.Notification) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.created = append(r.created, notification)
	return nil
}

func (r *stubRepo) ListByWorkItem(_ context.Context, _ uuid.UUID, limit int) ([]models.Notification, error) {
	r.lastLimit = limit
	return r.rows, r.err
}

func (r *stubRepo) ListByOwner(_ context.Context, _ uuid.UUID, limit int) ([]models.Notification, error) {
	r.lastLimit = limit
	return r.rows, r.err
}

func TestNewServiceRequiresRepo(t *testing.T) {
	if _, err := NewService(nil); err == nil {
		t.Fatal("expected error creating service without repo")
	}
}

func TestListByWorkItemMapsRows(t *testing.T) {
	row := models.Notification{
		ID:         uuid.New(),
		WorkItemID: uuid.New(),
		OwnerID:    uuid.New(),
		Kind:       enums.NotificationKindReassigned,
		Message:    "your order has a new driver",
		SentAt:     time.Now().UTC(),
	}
	repo := &stubRepo{rows: []models.Notification{row}}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	got, err := svc.ListByWorkItem(context.Background(), row.WorkItemID, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 row, got %d", len(got))
	}
	if got[0].ID != row.ID || got[0].Message != row.Message || got[0].Kind != row.Kind {
		t.Fatalf("row mapped incorrectly: %+v", got[0])
	}
	if repo.lastLimit != defaultListLimit {
		t.Fatalf("expected default limit %d, got %d", defaultListLimit, repo.lastLimit)
	}
}

func TestListClampsLimit(t *testing.T) {
	repo := &stubRepo{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if _, err := svc.ListByOwner(context.Background(), uuid.New(), 10_000); err != nil {
		t.Fatalf("list: %v", err)
	}
	if repo.lastLimit != maxListLimit {
		t.Fatalf("expected clamped limit %d, got %d", maxListLimit, repo.lastLimit)
	}
}

func TestListRequiresID(t *testing.T) {
	svc, err := NewService(&stubRepo{})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, gotErr := svc.ListByWorkItem(context.Background(), uuid.Nil, 10)
	if typed := pkgerrors.As(gotErr); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", gotErr)
	}
}

func TestListWrapsRepoError(t *testing.T) {
	svc, err := NewService(&stubRepo{err: errors.New("db down")})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, gotErr := svc.ListByWorkItem(context.Background(), uuid.New(), 10)
	if typed := pkgerrors.As(gotErr); typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", gotErr)
	}
}
