package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// GenerateIDRequest asks for the identifier of a submission key.
type GenerateIDRequest struct {
	SubmissionID string `json:"submission_id" example:"form-2025-000123"`
}

// GenerateIDResponse carries the identifier and whether this call issued it.
type GenerateIDResponse struct {
	MessageID string `json:"message_id" example:"00001FTICLI112025"`
	IsNew     bool   `json:"is_new" example:"true"`
}

// GenerateID godoc
// @ID          generateID
// @Summary     Get or create a message identifier
// @Description Returns the identifier bound to submission_id, issuing the next
// @Description sequence number on first use. Repeated calls return the same value.
// @Tags        Identifiers
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.GenerateIDRequest  true  "Submission key"
// @Success     200   {object}  handlers.GenerateIDResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Empty submission id"
// @Failure     500   {object}  handlers.ErrorResponse  "Allocation failed"
// @Router      /generate-id [post]
func (h *Handlers) GenerateID(c *gin.Context) {
	var req GenerateIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.SubmissionID) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Submission ID cannot be empty")
		return
	}

	id, isNew, err := h.alloc.Allocate(c.Request.Context(), req.SubmissionID)
	if err != nil {
		failService(c, err, ErrCodeAllocationFailed)
		return
	}
	ok(c, http.StatusOK, GenerateIDResponse{MessageID: id, IsNew: isNew})
}
