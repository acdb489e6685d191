package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	invoicedomain "github.com/tracklane/tracklane/internal/invoice/domain"
	"github.com/tracklane/tracklane/internal/invoice/export"
)

func (s *Server) PreviewInvoiceDraft(c *gin.Context) {
	var req invoicedomain.DraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid_body", err.Error()))
		return
	}

	draft, err := s.invoiceSvc.PreviewDraft(c.Request.Context(), s.viewerID(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": draft})
}

func (s *Server) FinalizeInvoice(c *gin.Context) {
	var req invoicedomain.FinalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid_body", err.Error()))
		return
	}

	invoice, err := s.invoiceSvc.FinalizeFromDraft(c.Request.Context(), s.viewerID(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": invoice})
}

func (s *Server) ListInvoices(c *gin.Context) {
	projectID, err := queryID(c, "project_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var status *invoicedomain.InvoiceStatus
	if raw := c.Query("status"); raw != "" {
		st := invoicedomain.InvoiceStatus(raw)
		if !st.Valid() {
			AbortWithError(c, invoicedomain.ErrInvalidStatus)
			return
		}
		status = &st
	}

	invoices, err := s.invoiceSvc.List(c.Request.Context(), s.viewerID(c), invoicedomain.ListInvoicesRequest{
		Status:    status,
		ProjectID: projectID,
		Limit:     limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": invoices})
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	invoiceID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	invoice, err := s.invoiceSvc.GetByID(c.Request.Context(), s.viewerID(c), invoiceID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": invoice})
}

func (s *Server) UpdateInvoice(c *gin.Context) {
	invoiceID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req invoicedomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid_body", err.Error()))
		return
	}

	invoice, err := s.invoiceSvc.Update(c.Request.Context(), s.viewerID(c), invoiceID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": invoice})
}

func (s *Server) ListInvoiceTimeEntries(c *gin.Context) {
	invoiceID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	entries, err := s.invoiceSvc.ListTimeEntries(c.Request.Context(), s.viewerID(c), invoiceID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entries})
}

func (s *Server) ExportInvoiceCSV(c *gin.Context) {
	s.exportInvoice(c, "csv", s.invoiceSvc.ExportCSV)
}

func (s *Server) ExportInvoicePDF(c *gin.Context) {
	s.exportInvoice(c, "pdf", s.invoiceSvc.ExportPDF)
}

func (s *Server) exportInvoice(c *gin.Context, format string, fn func(ctx context.Context, viewerID, invoiceID snowflake.ID, timezone string) (export.File, error)) {
	invoiceID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	file, err := fn(c.Request.Context(), s.viewerID(c), invoiceID, c.Query("tz"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.metrics.RecordInvoiceExport(c.Request.Context(), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
