package api

import (
	"net/http"

	"bookmarket-service/internal/service"

	"github.com/gin-gonic/gin"
)

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) createSubmission(c *gin.Context) {
	var req service.CreateSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.UserID = currentIdentity(c).UserID

	sub, err := h.svc.Submissions.CreateSubmission(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

func (h *Handler) listMySubmissions(c *gin.Context) {
	subs, err := h.svc.Submissions.ListMySubmissions(c.Request.Context(), currentIdentity(c).UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"submissions": subs})
}

func (h *Handler) getSubmission(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	details, err := h.svc.Submissions.GetSubmissionDetails(c.Request.Context(), id, currentIdentity(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

func (h *Handler) customerNegotiate(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req service.CustomerNegotiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.SubmissionID = id
	req.UserID = currentIdentity(c).UserID

	result, err := h.svc.Submissions.CustomerNegotiate(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) listSubmissionsByStatus(c *gin.Context) {
	subs, err := h.svc.Submissions.ListSubmissionsByStatus(c.Request.Context(), c.Query("status"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"submissions": subs})
}

func (h *Handler) adminNegotiate(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req service.AdminNegotiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.SubmissionID = id
	req.AdminUserID = currentIdentity(c).UserID

	result, err := h.svc.Submissions.AdminNegotiate(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *Handler) approveSubmission(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req service.ApproveSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.SubmissionID = id
	req.AdminUserID = currentIdentity(c).UserID

	result, err := h.svc.Submissions.ApproveSubmission(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) rejectSubmission(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	// the reason is optional, so an empty body is fine
	var req rejectRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}

	if err := h.svc.Submissions.RejectSubmission(c.Request.Context(), id, currentIdentity(c).UserID, req.Reason); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"submission_id": id, "status": "REJECTED"})
}
