package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/worktrail/worktrail/internal/domain"
	"github.com/worktrail/worktrail/internal/models"
)

// WorkItemHandler serves the problem, diary and acceptance endpoints.
type WorkItemHandler struct {
	svc domain.WorkItemService
	log *logrus.Logger
}

// NewWorkItemHandler creates a WorkItemHandler.
func NewWorkItemHandler(svc domain.WorkItemService, log *logrus.Logger) *WorkItemHandler {
	return &WorkItemHandler{svc: svc, log: log}
}

// bindJSON decodes the request body, writing a 400 on malformed input.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")
		return false
	}

	return true
}

func parseWorkItemQuery(c *gin.Context) (models.WorkItemQuery, bool) {
	p, ok := parseListParams(c)
	if !ok {
		return models.WorkItemQuery{}, false
	}

	createdBy, ok := queryUUID(c, "created_by")
	if !ok {
		return models.WorkItemQuery{}, false
	}

	includeDeleted, _ := strconv.ParseBool(c.Query("include_deleted"))

	return models.WorkItemQuery{
		ProjectID:      p.ProjectID,
		Statuses:       queryList(c, "status"),
		CreatedBy:      createdBy,
		StartDate:      p.StartDate,
		EndDate:        p.EndDate,
		Search:         p.Search,
		IncludeDeleted: includeDeleted,
		OrderBy:        p.OrderBy,
		OrderDirection: p.OrderDirection,
		Limit:          p.Limit,
		Offset:         p.Offset,
	}, true
}

// CreateProblem handles POST /api/v1/problems.
func (h *WorkItemHandler) CreateProblem(c *gin.Context) {
	var req models.CreateProblemRequest
	if !bindJSON(c, &req) {
		return
	}

	actor := principal(c)
	if actor == nil {
		return
	}

	p, err := h.svc.CreateProblem(c.Request.Context(), actor, req)
	if err != nil {
		respondServiceError(c, h.log, err, "problem.create")
		return
	}

	c.JSON(http.StatusCreated, p)
}

// ListProblems handles GET /api/v1/problems.
func (h *WorkItemHandler) ListProblems(c *gin.Context) {
	q, ok := parseWorkItemQuery(c)
	if !ok {
		return
	}

	page, err := h.svc.ListProblems(c.Request.Context(), q)
	if err != nil {
		respondServiceError(c, h.log, err, "problem.list")
		return
	}

	c.JSON(http.StatusOK, page)
}

// GetProblem handles GET /api/v1/problems/:id.
func (h *WorkItemHandler) GetProblem(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	p, err := h.svc.GetProblem(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, h.log, err, "problem.get")
		return
	}

	c.JSON(http.StatusOK, p)
}

// ChangeProblemStatus handles POST /api/v1/problems/:id/status.
func (h *WorkItemHandler) ChangeProblemStatus(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req models.ProblemStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	actor := principal(c)
	if actor == nil {
		return
	}

	p, err := h.svc.ChangeProblemStatus(c.Request.Context(), actor, id, req)
	if err != nil {
		respondServiceError(c, h.log, err, "problem.status")
		return
	}

	c.JSON(http.StatusOK, p)
}

// CreateDiary handles POST /api/v1/diaries.
func (h *WorkItemHandler) CreateDiary(c *gin.Context) {
	var req models.CreateDiaryRequest
	if !bindJSON(c, &req) {
		return
	}

	actor := principal(c)
	if actor == nil {
		return
	}

	d, err := h.svc.CreateDiary(c.Request.Context(), actor, req)
	if err != nil {
		respondServiceError(c, h.log, err, "diary.create")
		return
	}

	c.JSON(http.StatusCreated, d)
}

// ListDiaries handles GET /api/v1/diaries.
func (h *WorkItemHandler) ListDiaries(c *gin.Context) {
	q, ok := parseWorkItemQuery(c)
	if !ok {
		return
	}

	page, err := h.svc.ListDiaries(c.Request.Context(), q)
	if err != nil {
		respondServiceError(c, h.log, err, "diary.list")
		return
	}

	c.JSON(http.StatusOK, page)
}

// GetDiary handles GET /api/v1/diaries/:id.
func (h *WorkItemHandler) GetDiary(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	d, err := h.svc.GetDiary(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, h.log, err, "diary.get")
		return
	}

	c.JSON(http.StatusOK, d)
}

// ChangeDiaryStatus handles POST /api/v1/diaries/:id/status.
func (h *WorkItemHandler) ChangeDiaryStatus(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req models.DiaryStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	actor := principal(c)
	if actor == nil {
		return
	}

	d, err := h.svc.ChangeDiaryStatus(c.Request.Context(), actor, id, req)
	if err != nil {
		respondServiceError(c, h.log, err, "diary.status")
		return
	}

	c.JSON(http.StatusOK, d)
}

// CreateAcceptance handles POST /api/v1/acceptances.
func (h *WorkItemHandler) CreateAcceptance(c *gin.Context) {
	var req models.CreateAcceptanceRequest
	if !bindJSON(c, &req) {
		return
	}

	actor := principal(c)
	if actor == nil {
		return
	}

	a, err := h.svc.CreateAcceptance(c.Request.Context(), actor, req)
	if err != nil {
		respondServiceError(c, h.log, err, "acceptance.create")
		return
	}

	c.JSON(http.StatusCreated, a)
}

// ListAcceptances handles GET /api/v1/acceptances.
func (h *WorkItemHandler) ListAcceptances(c *gin.Context) {
	q, ok := parseWorkItemQuery(c)
	if !ok {
		return
	}

	page, err := h.svc.ListAcceptances(c.Request.Context(), q)
	if err != nil {
		respondServiceError(c, h.log, err, "acceptance.list")
		return
	}

	c.JSON(http.StatusOK, page)
}

// GetAcceptance handles GET /api/v1/acceptances/:id.
func (h *WorkItemHandler) GetAcceptance(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	a, err := h.svc.GetAcceptance(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, h.log, err, "acceptance.get")
		return
	}

	c.JSON(http.StatusOK, a)
}

// startRequest is the optional body of POST /acceptances/:id/start.
type startRequest struct {
	Comment         *string `json:"comment,omitempty"`
	ExpectedVersion *int    `json:"expected_version,omitempty"`
}

// StartAcceptance handles POST /api/v1/acceptances/:id/start.
func (h *WorkItemHandler) StartAcceptance(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req startRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	actor := principal(c)
	if actor == nil {
		return
	}

	a, err := h.svc.StartAcceptance(c.Request.Context(), actor, id, req.Comment, req.ExpectedVersion)
	if err != nil {
		respondServiceError(c, h.log, err, "acceptance.start")
		return
	}

	c.JSON(http.StatusOK, a)
}

// DecideAcceptance handles POST /api/v1/acceptances/:id/decision.
func (h *WorkItemHandler) DecideAcceptance(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req models.DecisionRequest
	if !bindJSON(c, &req) {
		return
	}

	actor := principal(c)
	if actor == nil {
		return
	}

	a, approval, err := h.svc.DecideAcceptance(c.Request.Context(), actor, id, req)
	if err != nil {
		respondServiceError(c, h.log, err, "acceptance.decide")
		return
	}

	c.JSON(http.StatusOK, gin.H{"acceptance": a, "approval": approval})
}

// ListApprovals handles GET /api/v1/acceptances/:id/approvals.
func (h *WorkItemHandler) ListApprovals(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	approvals, err := h.svc.ListApprovals(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, h.log, err, "acceptance.approvals")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": approvals})
}

// Delete returns the DELETE /api/v1/<kind>/:id handler.
func (h *WorkItemHandler) Delete(kind models.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathUUID(c, "id")
		if !ok {
			return
		}

		actor := principal(c)
		if actor == nil {
			return
		}

		if err := h.svc.DeleteWorkItem(c.Request.Context(), actor, kind, id); err != nil {
			respondServiceError(c, h.log, err, string(kind)+".delete")
			return
		}

		c.JSON(http.StatusOK, gin.H{"deleted": true})
	}
}

// Actions returns the GET /api/v1/<kind>/:id/actions handler.
func (h *WorkItemHandler) Actions(kind models.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathUUID(c, "id")
		if !ok {
			return
		}

		actions, err := h.svc.ListActions(c.Request.Context(), kind, id)
		if err != nil {
			respondServiceError(c, h.log, err, string(kind)+".actions")
			return
		}

		c.JSON(http.StatusOK, gin.H{"data": actions})
	}
}
