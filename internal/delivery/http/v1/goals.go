package v1

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/smart-goals/internal/domain/goals"
	"github.com/adanyl0v/smart-goals/internal/models"
	"github.com/adanyl0v/smart-goals/internal/store"
)

type goalResponse struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Deadline      string    `json:"deadline,omitempty"`
	DeadlineLabel string    `json:"deadlineLabel"`
	Status        string    `json:"status"`
	StatusLabel   string    `json:"statusLabel"`
	Progress      int       `json:"progress"`
	CreatedAt     time.Time `json:"createdAt"`
}

func newGoalResponse(goal models.Goal) goalResponse {
	resp := goalResponse{
		ID:            goal.ID,
		Title:         goal.Title,
		Description:   goal.Description,
		DeadlineLabel: models.FormatDisplayDate(goal.Deadline, models.NoDeadline),
		Status:        goal.Status.String(),
		StatusLabel:   goal.Status.Label(),
		Progress:      goal.Progress,
		CreatedAt:     goal.CreatedAt,
	}
	if goal.Deadline != nil {
		resp.Deadline = models.FormatISODate(*goal.Deadline)
	}
	return resp
}

type viewResponse struct {
	Filter string         `json:"filter"`
	Goals  []goalResponse `json:"goals"`
	Shown  int            `json:"shown"`
	Total  int            `json:"total"`
}

func newViewResponse(view goals.View) viewResponse {
	resp := viewResponse{
		Filter: view.Filter.String(),
		Goals:  make([]goalResponse, 0, len(view.Goals)),
		Shown:  view.Shown,
		Total:  view.Total,
	}
	for _, goal := range view.Goals {
		resp.Goals = append(resp.Goals, newGoalResponse(goal))
	}
	return resp
}

type createGoalRequest struct {
	Title       string  `json:"title" binding:"required,max=255"`
	Description string  `json:"description" binding:"max=4096"`
	Deadline    string  `json:"deadline" binding:"required"`
	Status      *string `json:"status,omitempty"`
	Progress    *int    `json:"progress,omitempty" binding:"omitempty,min=0,max=100"`
}

func (h *handlerImpl) HandleCreateGoal(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	var req createGoalRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	if strings.TrimSpace(req.Title) == "" {
		abort(c, newBadRequestError(errBlankTitle.Error()))
		return
	}

	deadline := models.ParseDate(strings.TrimSpace(req.Deadline))
	if deadline == nil {
		h.logger.Error().
			Str("deadline", req.Deadline).
			Msg("invalid deadline")
		abort(c, newBadRequestError(errInvalidDeadline.Error()))
		return
	}

	fields := store.Fields{
		models.FieldUserID:      userID,
		models.FieldTitle:       req.Title,
		models.FieldDescription: req.Description,
		models.FieldDeadline:    models.FormatISODate(*deadline),
	}
	if req.Status != nil {
		status, err := models.ParseStatus(*req.Status)
		if err != nil {
			abort(c, newBadRequestError(err.Error()))
			return
		}
		fields[models.FieldStatus] = status.String()
	}
	if req.Progress != nil {
		fields[models.FieldProgress] = *req.Progress
	}

	id, err := h.goals.Create(c, fields)
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("user_id", userID).
			Msg("failed to create goal")
		h.abortStoreError(c, err)
		return
	}

	goal, ok := h.loadGoal(c, userID, id)
	if !ok {
		return
	}
	c.JSON(http.StatusCreated, newGoalResponse(goal))
}

func (h *handlerImpl) HandleGetGoals(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	mode, err := goals.ParseFilterMode(c.Query("filter"))
	if err != nil {
		abort(c, newBadRequestError(err.Error()))
		return
	}

	list, ok := h.listGoals(c, userID)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newViewResponse(goals.Project(list, mode)))
}

func (h *handlerImpl) HandleGetGoalStats(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	list, ok := h.listGoals(c, userID)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, goals.ComputeStats(list))
}

type updateGoalRequest struct {
	Title       *string `json:"title,omitempty" binding:"omitempty,min=1,max=255"`
	Description *string `json:"description,omitempty" binding:"omitempty,max=4096"`
	Deadline    *string `json:"deadline,omitempty"`
	Status      *string `json:"status,omitempty"`
	Progress    *int    `json:"progress,omitempty"`
}

// normalize rejects blank titles and unparseable deadlines, which are
// required for every goal, and rewrites the deadline as an ISO date.
func (r *updateGoalRequest) normalize() error {
	if r.Title != nil && strings.TrimSpace(*r.Title) == "" {
		return errBlankTitle
	}
	if r.Deadline != nil {
		deadline := models.ParseDate(strings.TrimSpace(*r.Deadline))
		if deadline == nil {
			return errInvalidDeadline
		}
		iso := models.FormatISODate(*deadline)
		r.Deadline = &iso
	}
	return nil
}

// edits lists the draft changes in field order.
func (r updateGoalRequest) edits() [][2]string {
	var edits [][2]string
	if r.Title != nil {
		edits = append(edits, [2]string{models.FieldTitle, *r.Title})
	}
	if r.Description != nil {
		edits = append(edits, [2]string{models.FieldDescription, *r.Description})
	}
	if r.Deadline != nil {
		edits = append(edits, [2]string{models.FieldDeadline, *r.Deadline})
	}
	if r.Status != nil {
		edits = append(edits, [2]string{models.FieldStatus, *r.Status})
	}
	if r.Progress != nil {
		edits = append(edits, [2]string{models.FieldProgress, strconv.Itoa(*r.Progress)})
	}
	return edits
}

// HandleUpdateGoal runs one edit cycle: enter edit mode, apply the
// request to the draft and save the whole draft.
func (h *handlerImpl) HandleUpdateGoal(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	var req updateGoalRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	err = req.normalize()
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("invalid goal update")
		abort(c, newBadRequestError(err.Error()))
		return
	}

	goal, ok := h.loadGoal(c, userID, c.Param("id"))
	if !ok {
		return
	}

	session := goals.NewEditSession(h.logger, h.goals, goal)
	_ = session.EnterEdit()
	for _, edit := range req.edits() {
		err = session.UpdateField(edit[0], edit[1])
		if err != nil {
			_ = session.Cancel()
			abort(c, newBadRequestError(err.Error()))
			return
		}
	}

	err = session.Save(c)
	if err != nil {
		h.abortStoreError(c, err)
		return
	}

	goal, ok = h.loadGoal(c, userID, goal.ID)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newGoalResponse(goal))
}

func (h *handlerImpl) HandleSetGoalStatus(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	status, err := models.ParseStatus(c.Query("status"))
	if err != nil {
		abort(c, newBadRequestError(err.Error()))
		return
	}

	goal, ok := h.loadGoal(c, userID, c.Param("id"))
	if !ok {
		return
	}

	err = goals.NewEditSession(h.logger, h.goals, goal).SetStatus(c, status)
	if err != nil {
		h.abortStoreError(c, err)
		return
	}

	goal, ok = h.loadGoal(c, userID, goal.ID)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newGoalResponse(goal))
}

// HandleDeleteGoal removes a goal only when the request carries
// confirm=true; otherwise it answers 428 and nothing is written.
func (h *handlerImpl) HandleDeleteGoal(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	goal, ok := h.loadGoal(c, userID, c.Param("id"))
	if !ok {
		return
	}

	confirmed := goals.ConfirmFunc(func(context.Context, models.Goal) (bool, error) {
		confirm, err := strconv.ParseBool(c.Query("confirm"))
		return err == nil && confirm, nil
	})
	deleted, err := goals.NewEditSession(h.logger, h.goals, goal).Delete(c, confirmed)
	if err != nil {
		h.abortStoreError(c, err)
		return
	}
	if !deleted {
		abort(c, newPreconditionRequiredError(errConfirmationRequired.Error()))
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlerImpl) loadGoal(c *gin.Context, userID, id string) (models.Goal, bool) {
	doc, err := h.goals.Get(c, userID, id)
	if err != nil {
		if !errors.Is(err, store.ErrGoalNotFound) {
			h.logger.Error().
				Err(err).
				Str("goal_id", id).
				Msg("failed to get goal")
		}
		h.abortStoreError(c, err)
		return models.Goal{}, false
	}
	return goals.FromDocument(h.logger, doc, time.Now()), true
}

func (h *handlerImpl) listGoals(c *gin.Context, userID string) ([]models.Goal, bool) {
	docs, err := h.goals.List(c, userID)
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("user_id", userID).
			Msg("failed to list goals")
		abort(c, newStatusTextError(http.StatusInternalServerError))
		return nil, false
	}

	now := time.Now()
	list := make([]models.Goal, 0, len(docs))
	for _, doc := range docs {
		list = append(list, goals.FromDocument(h.logger, doc, now))
	}
	return list, true
}

func (h *handlerImpl) abortStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrGoalNotFound):
		abort(c, newNotFoundError(store.ErrGoalNotFound.Error()))
	case errors.Is(err, store.ErrInvalidField),
		errors.Is(err, store.ErrMissingOwner),
		errors.Is(err, store.ErrUnknownField),
		errors.Is(err, store.ErrImmutableField):
		abort(c, newBadRequestError(err.Error()))
	default:
		abort(c, newStatusTextError(http.StatusInternalServerError))
	}
}
