package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/scaffre/billing-service/internal/http/middleware"
	"github.com/scaffre/billing-service/internal/model"
	"github.com/scaffre/billing-service/internal/service"
)

type Handler struct {
	charges  *service.ChargeService
	closures *service.ClosureService
	log      zerolog.Logger
}

func NewHandler(charges *service.ChargeService, closures *service.ClosureService, log zerolog.Logger) *Handler {
	return &Handler{charges: charges, closures: closures, log: log}
}

func (h *Handler) Register(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	protected := router.Group("/")
	protected.Use(authMiddleware, middleware.RequireRoles(model.StaffRoles...))

	protected.GET("/additional-charges", h.listCharges)
	protected.GET("/additional-charges/export", h.exportCharges)
	protected.GET("/additional-charges/:id", h.getCharge)
	protected.GET("/additional-charges/:id/statement", h.chargeStatement)
	protected.PUT("/additional-charges/:id/upload-proof", h.uploadProof)
	protected.PUT("/additional-charges/:id/approve", h.approveCharge)
	protected.PUT("/additional-charges/:id/reject", h.rejectCharge)

	protected.GET("/project-closure-requests", h.listClosures)
	protected.POST("/project-closure-requests", h.createClosure)
	protected.PATCH("/project-closure-requests/:id", h.updateClosure)
}

func (h *Handler) listCharges(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "0"))

	result, err := h.charges.List(c.Request.Context(), service.ListChargesInput{
		Page:     page,
		PageSize: pageSize,
		OrderBy:  c.Query("order_by"),
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	items := make([]chargeResponse, 0, len(result.Items))
	for _, view := range result.Items {
		items = append(items, toChargeResponse(view))
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"items":     items,
			"total":     result.Total,
			"page":      result.Page,
			"page_size": result.PageSize,
		},
	})
}

func (h *Handler) getCharge(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	view, err := h.charges.Get(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": toChargeResponse(*view)})
}

func (h *Handler) uploadProof(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "proof file is required"})
		return
	}
	content, err := file.Open()
	if err != nil {
		h.handleError(c, err)
		return
	}
	defer content.Close()

	view, err := h.charges.UploadProof(c.Request.Context(), service.UploadProofInput{
		ChargeID:    id,
		FileName:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Size:        file.Size,
		Content:     content,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": toChargeResponse(*view)})
}

type approveChargeRequest struct {
	ReferenceID string `json:"reference_id"`
}

func (h *Handler) approveCharge(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req approveChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	view, err := h.charges.Approve(c.Request.Context(), id, req.ReferenceID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": toChargeResponse(*view)})
}

type rejectChargeRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) rejectCharge(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req rejectChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	view, err := h.charges.Reject(c.Request.Context(), id, req.Reason)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": toChargeResponse(*view)})
}

func (h *Handler) exportCharges(c *gin.Context) {
	result, err := h.charges.ExportRegister(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", result.Content)
}

func (h *Handler) chargeStatement(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	result, err := h.charges.Statement(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Data(http.StatusOK, "application/pdf", result.Content)
}

func (h *Handler) listClosures(c *gin.Context) {
	rows, err := h.closures.List(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	items := make([]closureRowResponse, 0, len(rows))
	for _, row := range rows {
		items = append(items, toClosureRowResponse(row))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": items})
}

type createClosureRequest struct {
	AgreementID string `json:"agreement_id" binding:"required"`
}

func (h *Handler) createClosure(c *gin.Context) {
	var req createClosureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}
	agreementID, err := uuid.Parse(strings.TrimSpace(req.AgreementID))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid agreement_id"})
		return
	}

	request, err := h.closures.Create(c.Request.Context(), agreementID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": toClosureResponse(*request)})
}

type updateClosureRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) updateClosure(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req updateClosureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}
	if !strings.EqualFold(strings.TrimSpace(req.Status), "approved") {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "status must be \"approved\""})
		return
	}

	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "missing principal"})
		return
	}

	request, err := h.closures.Approve(c.Request.Context(), id, principal.UserID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": toClosureResponse(*request)})
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
	case errors.Is(err, service.ErrInvalidState), errors.Is(err, service.ErrAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"success": false, "message": err.Error()})
	case errors.Is(err, service.ErrPreconditionFailed):
		c.JSON(http.StatusPreconditionFailed, gin.H{"success": false, "message": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": err.Error()})
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": err.Error()})
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "internal error"})
	}
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid id"})
		return uuid.Nil, false
	}
	return id, true
}

type chargeItemResponse struct {
	ItemName          string  `json:"item_name"`
	ItemType          string  `json:"item_type"`
	Quantity          int     `json:"quantity"`
	UnitPrice         float64 `json:"unit_price"`
	Amount            float64 `json:"amount"`
	RepairDescription *string `json:"repair_description,omitempty"`
}

type chargeResponse struct {
	ID                uuid.UUID            `json:"id"`
	InvoiceNo         string               `json:"invoice_no"`
	DONumber          string               `json:"do_number"`
	CustomerName      string               `json:"customer_name"`
	TotalCharges      float64              `json:"total_charges"`
	Status            model.ChargeStatus   `json:"status"`
	Overdue           bool                 `json:"overdue"`
	DueDate           string               `json:"due_date"`
	ReturnedDate      *string              `json:"returned_date,omitempty"`
	Items             []chargeItemResponse `json:"items"`
	ProofOfPaymentURL *string              `json:"proof_of_payment_url,omitempty"`
	ReferenceID       *string              `json:"reference_id,omitempty"`
	RejectionReason   *string              `json:"rejection_reason,omitempty"`
	ApprovalDate      *time.Time           `json:"approval_date,omitempty"`
	RejectionDate     *time.Time           `json:"rejection_date,omitempty"`
	CreditNotesTotal  float64              `json:"credit_notes_total"`
	Payable           float64              `json:"payable"`
	CreatedAt         time.Time            `json:"created_at"`
}

func toChargeResponse(view model.ChargeView) chargeResponse {
	charge := view.Charge
	items := make([]chargeItemResponse, 0, len(charge.Items))
	for _, item := range charge.Items {
		items = append(items, chargeItemResponse{
			ItemName:          item.ItemName,
			ItemType:          string(item.ItemType),
			Quantity:          item.Quantity,
			UnitPrice:         item.UnitPrice,
			Amount:            item.Amount,
			RepairDescription: item.RepairDescription,
		})
	}

	var returned *string
	if charge.ReturnedDate != nil {
		formatted := charge.ReturnedDate.Format("2006-01-02")
		returned = &formatted
	}

	return chargeResponse{
		ID:                charge.ID,
		InvoiceNo:         charge.InvoiceNo,
		DONumber:          charge.DONumber,
		CustomerName:      charge.CustomerName,
		TotalCharges:      charge.TotalCharges,
		Status:            charge.Status,
		Overdue:           view.Overdue,
		DueDate:           charge.DueDate.Format("2006-01-02"),
		ReturnedDate:      returned,
		Items:             items,
		ProofOfPaymentURL: charge.ProofOfPaymentURL,
		ReferenceID:       charge.ReferenceID,
		RejectionReason:   charge.RejectionReason,
		ApprovalDate:      charge.ApprovalDate,
		RejectionDate:     charge.RejectionDate,
		CreditNotesTotal:  view.CreditNotesTotal,
		Payable:           view.Payable,
		CreatedAt:         charge.CreatedAt,
	}
}

type closureResponse struct {
	ID            uuid.UUID           `json:"id"`
	AgreementID   uuid.UUID           `json:"agreement_id"`
	RequestNumber string              `json:"request_number"`
	RequestDate   time.Time           `json:"request_date"`
	Status        model.ClosureStatus `json:"status"`
	ApprovedBy    *uuid.UUID          `json:"approved_by,omitempty"`
	ApprovedDate  *time.Time          `json:"approved_date,omitempty"`
}

func toClosureResponse(request model.ClosureRequest) closureResponse {
	return closureResponse{
		ID:            request.ID,
		AgreementID:   request.AgreementID,
		RequestNumber: request.RequestNumber,
		RequestDate:   request.RequestDate,
		Status:        request.Status,
		ApprovedBy:    request.ApprovedBy,
		ApprovedDate:  request.ApprovedDate,
	}
}

type closureChecksResponse struct {
	RentalPeriodMet       bool `json:"rental_period_met"`
	ReturnProcessComplete bool `json:"return_process_complete"`
	PaymentsSettled       bool `json:"payments_settled"`
}

type closureRowResponse struct {
	AgreementID     uuid.UUID             `json:"agreement_id"`
	ProjectName     string                `json:"project_name"`
	Hirer           string                `json:"hirer"`
	TermOfHire      string                `json:"term_of_hire"`
	RentalStartDate string                `json:"rental_start_date"`
	Status          model.ClosureStatus   `json:"status"`
	ClosureRequest  *closureResponse      `json:"closure_request,omitempty"`
	Checks          closureChecksResponse `json:"checks"`
}

func toClosureRowResponse(row model.ClosureRow) closureRowResponse {
	resp := closureRowResponse{
		AgreementID:     row.Agreement.ID,
		ProjectName:     row.Agreement.ProjectName,
		Hirer:           row.Agreement.Hirer,
		TermOfHire:      row.Agreement.TermOfHire,
		RentalStartDate: row.Agreement.RentalStartDate.Format("2006-01-02"),
		Status:          row.Status(),
		Checks: closureChecksResponse{
			RentalPeriodMet:       row.Checks.RentalPeriodMet,
			ReturnProcessComplete: row.Checks.ReturnProcessComplete,
			PaymentsSettled:       row.Checks.PaymentsSettled,
		},
	}
	if row.Request != nil {
		request := toClosureResponse(*row.Request)
		resp.ClosureRequest = &request
	}
	return resp
}
