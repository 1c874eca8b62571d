package server

import (
	"net/http"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	dispatchdomain "github.com/smallbiznis/printfan/internal/dispatch/domain"
	orderdomain "github.com/smallbiznis/printfan/internal/order/domain"
)

type dispatchLineRequest struct {
	InstanceID   string   `json:"instance_id"`
	MenuItemID   string   `json:"menu_item_id"`
	CategoryID   string   `json:"category_id"`
	Name         string   `json:"name"`
	Quantity     int      `json:"quantity"`
	Instructions string   `json:"instructions"`
	Modifiers    []string `json:"modifiers"`
}

type dispatchOrderRequest struct {
	Number        string                `json:"number"`
	Label         string                `json:"label"`
	PlacedAt      *time.Time            `json:"placed_at"`
	Lines         []dispatchLineRequest `json:"lines"`
	PrinterFilter []string              `json:"printer_filter"`
}

func (s *Server) DispatchOrder(c *gin.Context) {
	var req dispatchOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if req.Number == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	order := orderdomain.Order{
		Number: req.Number,
		Label:  req.Label,
		Lines:  make([]orderdomain.LineInstance, 0, len(req.Lines)),
	}
	if req.PlacedAt != nil {
		order.PlacedAt = *req.PlacedAt
	}
	for _, line := range req.Lines {
		order.Lines = append(order.Lines, orderdomain.LineInstance{
			InstanceID:   line.InstanceID,
			MenuItemID:   line.MenuItemID,
			CategoryID:   line.CategoryID,
			Name:         line.Name,
			Quantity:     line.Quantity,
			Instructions: line.Instructions,
			Modifiers:    line.Modifiers,
		})
	}

	var opts dispatchdomain.Options
	for _, raw := range req.PrinterFilter {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		opts.PrinterFilter = append(opts.PrinterFilter, id)
	}

	result, err := s.dispatchSvc.Dispatch(c.Request.Context(), order, opts)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": dispatchResultResponse(result)})
}

type outcomeResponse struct {
	PrinterID   string `json:"printer_id"`
	PrinterName string `json:"printer_name,omitempty"`
	Status      string `json:"status"`
	Attempts    int    `json:"attempts"`
	LastError   string `json:"last_error,omitempty"`
	DurationMS  int64  `json:"duration_ms"`
}

type dispatchResponse struct {
	RunID      string                     `json:"run_id"`
	Outcomes   []outcomeResponse          `json:"outcomes"`
	Unassigned []orderdomain.LineInstance `json:"unassigned,omitempty"`
}

func dispatchResultResponse(result dispatchdomain.Result) dispatchResponse {
	resp := dispatchResponse{
		RunID:      result.RunID.String(),
		Outcomes:   make([]outcomeResponse, 0, len(result.Outcomes)),
		Unassigned: result.Unassigned,
	}
	for _, outcome := range result.Outcomes {
		resp.Outcomes = append(resp.Outcomes, outcomeResponse{
			PrinterID:   outcome.PrinterID.String(),
			PrinterName: outcome.PrinterName,
			Status:      string(outcome.Status),
			Attempts:    outcome.Attempts,
			LastError:   outcome.LastError,
			DurationMS:  outcome.Duration.Milliseconds(),
		})
	}
	sort.Slice(resp.Outcomes, func(i, j int) bool {
		return resp.Outcomes[i].PrinterID < resp.Outcomes[j].PrinterID
	})
	return resp
}
