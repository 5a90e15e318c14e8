package job

import (
	"net/http"

	"github.com/fabriqd/fabriq/common"
	"github.com/fabriqd/fabriq/internal/config"
	"github.com/fabriqd/fabriq/internal/dto"
	"github.com/fabriqd/fabriq/middleware"
	"github.com/gin-gonic/gin"
)

type JobHandler struct {
	service JobServiceInterface
}

func NewJobHandler(s JobServiceInterface) *JobHandler {
	return &JobHandler{service: s}
}

var _ JobHandlerInterface = (*JobHandler)(nil)

// Create handles HTTP requests for creating a new job. It validates and
// binds the request body, delegates to the JobService, and returns HTTP 201
// with the created job on success.
func (h *JobHandler) Create(c *gin.Context) {
	var req dto.JobCreateDTO

	if !middleware.Bind(c, &req) {
		c.Abort()
		return
	}

	resp, err := h.service.CreateJob(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// Get handles HTTP requests to fetch a job by its id.
func (h *JobHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(common.Errf(http.StatusBadRequest, "invalid ID"))
		return
	}

	resp, err := h.service.GetJobByID(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// List handles HTTP requests to retrieve all jobs for a given queue.
func (h *JobHandler) List(c *gin.Context) {
	queue := c.Query("queue")
	if queue == "" {
		c.JSON(http.StatusBadRequest, common.APIError{Message: "queue parameter is required"})
		return
	}

	jobs, err := h.service.ListJobs(c.Request.Context(), config.QueueName(queue))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, jobs)
}
