package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hunnydu/internal/auth"
	"hunnydu/internal/service"
)

// Deps is everything the HTTP layer needs.
type Deps struct {
	Tasks         *service.TaskService
	Families      *service.FamilyService
	Issuer        *auth.Issuer
	InternalToken string
	Log           *zap.SugaredLogger
	// Now defaults to time.Now.
	Now func() time.Time
}

// NewRouter wires middleware and routes onto a gin engine.
func NewRouter(deps Deps) *gin.Engine {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	r := gin.New()
	r.Use(corsMiddleware(), requestLogger(deps.Log), gin.Recovery())

	tasks := &taskHandler{tasks: deps.Tasks, log: deps.Log, now: deps.Now}
	admin := &adminHandler{families: deps.Families, issuer: deps.Issuer, log: deps.Log}

	private := r.Group("/api/v1")
	private.Use(requireToken(deps.Issuer))
	{
		private.GET("/tasks", tasks.list)
		private.POST("/tasks", tasks.create)
		private.GET("/tasks/:id", tasks.get)
		private.DELETE("/tasks/:id", tasks.deleteTask)
		private.POST("/tasks/:id/subtasks", tasks.addSubtask)
		private.DELETE("/subtasks/:id", tasks.deleteSubtask)
		private.POST("/subtasks/:id/complete", tasks.complete)
		private.POST("/subtasks/:id/uncomplete", tasks.uncomplete)
		private.POST("/subtasks/:id/toggle", tasks.toggle)
	}

	internal := r.Group("/internal")
	internal.Use(requireInternal(deps.InternalToken))
	{
		internal.POST("/families", admin.createFamily)
		internal.POST("/users", admin.createUser)
		internal.POST("/users/:id/telegram", admin.linkTelegram)
		internal.POST("/tokens", admin.issueToken)
	}

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	return r
}
