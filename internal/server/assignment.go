package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	assignmentdomain "github.com/smallbiznis/printfan/internal/assignment/domain"
)

type addAssignmentRequest struct {
	PrinterID  string `json:"printer_id"`
	TargetKind string `json:"target_kind"`
	TargetID   string `json:"target_id"`
	TargetName string `json:"target_name"`
	Priority   int    `json:"priority"`
}

func (s *Server) AddAssignment(c *gin.Context) {
	var req addAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.assignmentSvc.Add(c.Request.Context(), assignmentdomain.AddAssignmentRequest{
		PrinterID:  req.PrinterID,
		TargetKind: assignmentdomain.TargetKind(strings.TrimSpace(req.TargetKind)),
		TargetID:   req.TargetID,
		TargetName: req.TargetName,
		Priority:   req.Priority,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RemoveAssignment(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.assignmentSvc.Remove(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) ListAssignments(c *gin.Context) {
	var query struct {
		TargetKind string `form:"target_kind"`
		TargetID   string `form:"target_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	// Filtered listing answers "who prints this target"; unfiltered is
	// the full table for admin display.
	if query.TargetKind != "" || query.TargetID != "" {
		resp, err := s.assignmentSvc.AssignmentsFor(c.Request.Context(),
			assignmentdomain.TargetKind(strings.TrimSpace(query.TargetKind)), query.TargetID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": resp})
		return
	}

	resp, err := s.assignmentSvc.All(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
