package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	printerdomain "github.com/smallbiznis/printfan/internal/printer/domain"
)

type registerPrinterRequest struct {
	Name      string `json:"name"`
	Address   string `json:"address"`
	Port      int    `json:"port"`
	Transport string `json:"transport"`
	ModelTag  string `json:"model_tag"`
}

func (s *Server) RegisterPrinter(c *gin.Context) {
	var req registerPrinterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.printerSvc.Register(c.Request.Context(), printerdomain.RegisterPrinterRequest{
		Name:      req.Name,
		Address:   req.Address,
		Port:      req.Port,
		Transport: printerdomain.TransportKind(strings.TrimSpace(req.Transport)),
		ModelTag:  req.ModelTag,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updatePrinterRequest struct {
	Name      *string `json:"name"`
	Address   *string `json:"address"`
	Port      *int    `json:"port"`
	Transport *string `json:"transport"`
	ModelTag  *string `json:"model_tag"`
	Active    *bool   `json:"active"`
}

func (s *Server) UpdatePrinter(c *gin.Context) {
	var req updatePrinterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	update := printerdomain.UpdatePrinterRequest{
		ID:       strings.TrimSpace(c.Param("id")),
		Name:     req.Name,
		Address:  req.Address,
		Port:     req.Port,
		ModelTag: req.ModelTag,
		Active:   req.Active,
	}
	if req.Transport != nil {
		kind := printerdomain.TransportKind(strings.TrimSpace(*req.Transport))
		update.Transport = &kind
	}

	resp, err := s.printerSvc.Update(c.Request.Context(), update)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeactivatePrinter(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.printerSvc.Deactivate(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) DeletePrinter(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.printerSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) GetPrinterByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.printerSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListPrinters(c *gin.Context) {
	var query struct {
		ActiveOnly bool `form:"active_only"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.printerSvc.List(c.Request.Context(), query.ActiveOnly)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
