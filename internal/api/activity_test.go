package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/worktrail/worktrail/internal/api"
	"github.com/worktrail/worktrail/internal/models"
)

func activityRouter(svc *mockActivity) http.Handler {
	r := newTestRouter()
	h := api.NewActivityHandler(svc, testLogger())
	r.POST("/activity", h.Log)
	r.GET("/activity", h.Query)
	r.GET("/activity/timeline", h.Timeline)
	r.GET("/activity/entity/:type/:id", h.EntityHistory)
	r.GET("/activity/actor/:id", h.ActorHistory)

	return r
}

func TestActivityLog_Created(t *testing.T) {
	t.Parallel()

	svc := &mockActivity{
		logFn: func(_ context.Context, _ *models.Principal, req models.ActivityLogRequest) (int64, error) {
			if req.ActivityType != "photo_uploaded" {
				t.Errorf("activity type = %q", req.ActivityType)
			}

			return 7, nil
		},
	}

	body := `{"project_id":"` + uuid.NewString() + `","entity_type":"problem","entity_id":"p1","activity_type":"photo_uploaded","metadata":{"tags":["photo"]}}`
	w := doRequest(activityRouter(svc), http.MethodPost, "/activity", body)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
}

func TestActivityEntityHistory(t *testing.T) {
	t.Parallel()

	var gotType, gotID string

	svc := &mockActivity{
		entityFn: func(_ context.Context, entityType, entityID string, limit, offset int) models.Page[models.ActivityEvent] {
			gotType, gotID = entityType, entityID
			return models.NewPage([]models.ActivityEvent{{ID: 1}}, 1, limit, offset)
		},
	}

	w := doRequest(activityRouter(svc), http.MethodGet, "/activity/entity/diary/d-17?limit=5", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	if gotType != "diary" || gotID != "d-17" {
		t.Errorf("entity = %s/%s", gotType, gotID)
	}
}

func TestActivityActorHistory_BadID(t *testing.T) {
	t.Parallel()

	if w := doRequest(activityRouter(&mockActivity{}), http.MethodGet, "/activity/actor/bob", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestActivityQuery_TagsAndTypes(t *testing.T) {
	t.Parallel()

	var got models.ActivityQuery

	svc := &mockActivity{
		projectFn: func(_ context.Context, q models.ActivityQuery) models.Page[models.ActivityEvent] {
			got = q
			return models.EmptyPage[models.ActivityEvent](q.Limit, q.Offset)
		},
	}

	w := doRequest(activityRouter(svc), http.MethodGet, "/activity?tag=safety&tag=concrete&activity_type=problem_created", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	if len(got.Tags) != 2 || got.ActivityTypes[0] != "problem_created" {
		t.Errorf("query = %+v", got)
	}
}

func TestActivityTimeline_Groups(t *testing.T) {
	t.Parallel()

	svc := &mockActivity{
		timelineFn: func(context.Context, models.ActivityQuery) []models.TimelineGroup {
			return []models.TimelineGroup{
				{Date: "2026-03-04", Events: []models.ActivityEvent{{ID: 2}}},
				{Date: "2026-03-03", Events: []models.ActivityEvent{{ID: 1}}},
			}
		},
	}

	w := doRequest(activityRouter(svc), http.MethodGet, "/activity/timeline", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body struct {
		Groups []models.TimelineGroup `json:"groups"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if len(body.Groups) != 2 || body.Groups[0].Date != "2026-03-04" {
		t.Errorf("groups = %+v", body.Groups)
	}
}
