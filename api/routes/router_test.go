package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/calloway-labs/dispatch-backend/internal/assignment"
	"github.com/calloway-labs/dispatch-backend/internal/notifications"
	"github.com/calloway-labs/dispatch-backend/internal/workitem"
	"github.com/calloway-labs/dispatch-backend/pkg/config"
	"github.com/calloway-labs/dispatch-backend/pkg/enums"
	pkgerrors "github.com/calloway-labs/dispatch-backend/pkg/errors"
	"github.com/calloway-labs/dispatch-backend/pkg/logger"
	"github.com/calloway-labs/dispatch-backend/pkg/redis"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubAssignmentService struct {
	item *workitem.WorkItem
	err  error
}

func (s stubAssignmentService) Create(context.Context, assignment.CreateInput) (*workitem.WorkItem, error) {
	return s.item, s.err
}

func (s stubAssignmentService) Offer(context.Context, uuid.UUID, uuid.UUID) (*workitem.WorkItem, error) {
	return s.item, s.err
}

func (s stubAssignmentService) Respond(context.Context, uuid.UUID, uuid.UUID, enums.AssignmentResponse) (*workitem.WorkItem, error) {
	return s.item, s.err
}

func (s stubAssignmentService) Get(context.Context, uuid.UUID) (*workitem.WorkItem, error) {
	return s.item, s.err
}

func (s stubAssignmentService) Cancel(context.Context, uuid.UUID) (*workitem.WorkItem, error) {
	return s.item, s.err
}

func (s stubAssignmentService) Shutdown() {}

type stubNotificationsService struct {
	rows []notifications.NotificationDTO
	err  error
}

func (s stubNotificationsService) ListByWorkItem(context.Context, uuid.UUID, int) ([]notifications.NotificationDTO, error) {
	return s.rows, s.err
}

func (s stubNotificationsService) ListByOwner(context.Context, uuid.UUID, int) ([]notifications.NotificationDTO, error) {
	return s.rows, s.err
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
	}
}

func newTestRouter(cfg *config.Config, assignmentSvc assignment.Service) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		(*redis.Client)(nil),
		stubPinger{},
		nil,
		assignmentSvc,
		stubNotificationsService{},
	)
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(testConfig(), stubAssignmentService{})

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got := resp.Header().Get("X-Dispatch-Env"); got != "test" {
		t.Fatalf("expected env header test got %q", got)
	}
}

func TestStatusRouteReturnsWorkItem(t *testing.T) {
	item := &workitem.WorkItem{ID: uuid.New(), Status: enums.WorkItemStatusPending}
	router := newTestRouter(testConfig(), stubAssignmentService{item: item})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/work-items/"+item.ID.String()+"/status", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), item.ID.String()) {
		t.Fatalf("expected body to include work item id, got %s", resp.Body.String())
	}
}

func TestStatusRouteRejectsMalformedID(t *testing.T) {
	router := newTestRouter(testConfig(), stubAssignmentService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/work-items/not-a-uuid/status", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestStateConflictSurfacesAs422(t *testing.T) {
	svc := stubAssignmentService{err: pkgerrors.New(pkgerrors.CodeStateConflict, "work item already resolved")}
	router := newTestRouter(testConfig(), svc)

	body := strings.NewReader(`{"candidate_id":"` + uuid.NewString() + `","response":"accepted"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/work-items/"+uuid.NewString()+"/response", body)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestCreateRouteValidatesBody(t *testing.T) {
	router := newTestRouter(testConfig(), stubAssignmentService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/work-items", strings.NewReader(`{"owner_id":"nope"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestNotificationsRouteEmptyList(t *testing.T) {
	router := newTestRouter(testConfig(), stubAssignmentService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/work-items/"+uuid.NewString()+"/notifications", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestUnknownRouteReturns404(t *testing.T) {
	router := newTestRouter(testConfig(), stubAssignmentService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/unknown", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}
