package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hunnydu/internal/model"
	"hunnydu/internal/service"
)

type taskHandler struct {
	tasks *service.TaskService
	log   *zap.SugaredLogger
	now   func() time.Time
}

type createTaskRequest struct {
	Name     string   `json:"taskname"`
	Period   string   `json:"period"`
	Assignee uint     `json:"assignee"`
	Subtasks []string `json:"subtasks"`
}

type addSubtaskRequest struct {
	Name string `json:"subtask_name"`
}

func (h *taskHandler) list(c *gin.Context) {
	now, err := clientNow(c, h.now)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	board, err := h.tasks.ListTasks(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"tasks":       newTaskViews(board.Tasks, now),
		"familyTasks": newTaskViews(board.FamilyTasks, now),
	})
}

func (h *taskHandler) get(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	now, err := clientNow(c, h.now)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	task, err := h.tasks.GetTask(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": newTaskView(*task, now)})
}

func (h *taskHandler) create(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, fmt.Errorf("%w: %v", model.ErrInvalidTask, err))
		return
	}
	now, err := clientNow(c, h.now)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	task, err := h.tasks.CreateTask(c.Request.Context(), actorFrom(c), service.TaskInput{
		Name:       req.Name,
		Period:     req.Period,
		AssigneeID: req.Assignee,
		Subtasks:   req.Subtasks,
	}, now)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Task added.", "task": newTaskView(*task, now)})
}

func (h *taskHandler) deleteTask(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if err := h.tasks.DeleteTask(c.Request.Context(), actorFrom(c), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task deleted."})
}

func (h *taskHandler) addSubtask(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	var req addSubtaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, fmt.Errorf("%w: %v", model.ErrInvalidInput, err))
		return
	}
	st, err := h.tasks.AddSubtask(c.Request.Context(), actorFrom(c), id, req.Name)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Subtask created.", "subtask": newSubtaskView(*st)})
}

func (h *taskHandler) deleteSubtask(c *gin.Context) {
	h.mutate(c, "Subtask deleted.", func(actor model.Actor, id uint, now time.Time) (*model.Task, model.Outcome, error) {
		return h.tasks.DeleteSubtask(c.Request.Context(), actor, id, now)
	})
}

func (h *taskHandler) complete(c *gin.Context) {
	h.mutate(c, "Subtask completed.", func(actor model.Actor, id uint, now time.Time) (*model.Task, model.Outcome, error) {
		return h.tasks.CompleteSubtask(c.Request.Context(), actor, id, now)
	})
}

func (h *taskHandler) uncomplete(c *gin.Context) {
	h.mutate(c, "Subtask reopened.", func(actor model.Actor, id uint, _ time.Time) (*model.Task, model.Outcome, error) {
		return h.tasks.UncompleteSubtask(c.Request.Context(), actor, id)
	})
}

func (h *taskHandler) toggle(c *gin.Context) {
	h.mutate(c, "Subtask altered.", func(actor model.Actor, id uint, now time.Time) (*model.Task, model.Outcome, error) {
		return h.tasks.ToggleSubtask(c.Request.Context(), actor, id, now)
	})
}

func (h *taskHandler) mutate(c *gin.Context, message string, op func(model.Actor, uint, time.Time) (*model.Task, model.Outcome, error)) {
	id, err := pathID(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	now, err := clientNow(c, h.now)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	task, out, err := op(actorFrom(c), id, now)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if !out.Changed {
		message = "Nothing to change."
	}
	c.JSON(http.StatusOK, gin.H{
		"message": message,
		"outcome": OutcomeView{Changed: out.Changed, TaskCompleted: out.TaskCompleted},
		"task":    newTaskView(*task, now),
	})
}

func pathID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: bad id %q", model.ErrInvalidInput, c.Param("id"))
	}
	return uint(id), nil
}

// clientNow shifts the server clock by the caller's tzOffset (minutes behind
// UTC, as reported by browsers) so due dates follow the caller's calendar.
func clientNow(c *gin.Context, now func() time.Time) (time.Time, error) {
	utc := now().UTC()
	raw := c.Query("tzOffset")
	if raw == "" {
		return utc, nil
	}
	offset, err := strconv.Atoi(raw)
	if err != nil || !model.ValidTZOffset(offset) {
		return time.Time{}, fmt.Errorf("%w: bad tzOffset %q", model.ErrInvalidInput, raw)
	}
	return utc.Add(-time.Duration(offset) * time.Minute), nil
}
