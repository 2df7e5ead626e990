package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/facturio/facturio/internal/application/service"
	"github.com/facturio/facturio/internal/domain/entity"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	clientService    service.ClientService
	invoiceService   service.InvoiceService
	ledgerService    service.LedgerService
	schedulerService service.SchedulerService
	notifierService  service.NotifierService
	logger           Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	clientService service.ClientService,
	invoiceService service.InvoiceService,
	ledgerService service.LedgerService,
	schedulerService service.SchedulerService,
	notifierService service.NotifierService,
	logger Logger,
) *Handlers {
	return &Handlers{
		clientService:    clientService,
		invoiceService:   invoiceService,
		ledgerService:    ledgerService,
		schedulerService: schedulerService,
		notifierService:  notifierService,
		logger:           logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// userID resolves the authenticated account from the X-User-ID header set
// by the gateway in front of this service. Zero means unauthenticated.
func userID(c *gin.Context) (int64, bool) {
	raw := c.GetHeader("X-User-ID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (h *Handlers) requireUser(c *gin.Context) (int64, bool) {
	id, ok := userID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, Response{
			Success: false,
			Error:   "missing or invalid X-User-ID header",
		})
	}
	return id, ok
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid " + name,
		})
		return 0, false
	}
	return id, true
}

// respondError maps domain errors onto HTTP statuses.
func (h *Handlers) respondError(c *gin.Context, err error) {
	switch {
	case entity.IsValidation(err):
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
	case errors.Is(err, entity.ErrNotFound):
		c.JSON(http.StatusNotFound, Response{Success: false, Error: err.Error()})
	case errors.Is(err, entity.ErrConflict):
		c.JSON(http.StatusConflict, Response{Success: false, Error: "conflicting concurrent update, retry"})
	default:
		h.logger.Error("Request failed", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "internal error"})
	}
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// ClientRequest carries client fields for create and update.
type ClientRequest struct {
	Name        string           `json:"name"`
	Address     string           `json:"address"`
	PostalCode  string           `json:"postal_code"`
	City        string           `json:"city"`
	Country     string           `json:"country"`
	VATNumber   string           `json:"vat_number"`
	PaymentTerm string           `json:"payment_term"`
	Contacts    []entity.Contact `json:"contacts"`
}

func (r ClientRequest) toInput() service.ClientInput {
	return service.ClientInput{
		Name:        r.Name,
		Address:     r.Address,
		PostalCode:  r.PostalCode,
		City:        r.City,
		Country:     r.Country,
		VATNumber:   r.VATNumber,
		PaymentTerm: r.PaymentTerm,
		Contacts:    r.Contacts,
	}
}

// CreateClient handles POST /api/clients
func (h *Handlers) CreateClient(c *gin.Context) {
	uid, ok := h.requireUser(c)
	if !ok {
		return
	}
	var req ClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	client, err := h.clientService.Create(c.Request.Context(), uid, req.toInput())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: client})
}

// ListClients handles GET /api/clients
func (h *Handlers) ListClients(c *gin.Context) {
	uid, ok := h.requireUser(c)
	if !ok {
		return
	}
	clients, err := h.clientService.List(c.Request.Context(), uid)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: clients})
}

// GetClient handles GET /api/clients/:id
func (h *Handlers) GetClient(c *gin.Context) {
	uid, ok := h.requireUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	client, err := h.clientService.Get(c.Request.Context(), uid, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: client})
}

// UpdateClient handles PUT /api/clients/:id
func (h *Handlers) UpdateClient(c *gin.Context) {
	uid, ok := h.requireUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req ClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	client, err := h.clientService.Update(c.Request.Context(), uid, id, req.toInput())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: client})
}

// CreateInvoiceRequest carries a manual invoice creation.
type CreateInvoiceRequest struct {
	ClientID  int64             `json:"client_id"`
	LineItems []entity.LineItem `json:"line_items"`
}

// CreateInvoice handles POST /api/invoices
func (h *Handlers) CreateInvoice(c *gin.Context) {
	uid, ok := h.requireUser(c)
	if !ok {
		return
	}
	var req CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	inv, err := h.invoiceService.Create(c.Request.Context(), uid, req.ClientID, req.LineItems)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: inv})
}

// ListInvoices handles GET /api/invoices
func (h *Handlers) ListInvoices(c *gin.Context) {
	uid, ok := h.requireUser(c)
	if !ok {
		return
	}
	invoices, err := h.invoiceService.List(c.Request.Context(), uid)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: invoices})
}

// GetInvoice handles GET /api/invoices/:id
func (h *Handlers) GetInvoice(c *gin.Context) {
	uid, ok := h.requireUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	inv, err := h.invoiceService.Get(c.Request.Context(), uid, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: inv})
}

// UpdateStatusRequest carries a manual status change.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateInvoiceStatus handles PATCH /api/invoices/:id/status
func (h *Handlers) UpdateInvoiceStatus(c *gin.Context) {
	uid, ok := h.requireUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	if err := h.invoiceService.UpdateStatus(c.Request.Context(), uid, id, entity.InvoiceStatus(req.Status)); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true})
}

// PaymentRequest carries a new ledger entry.
type PaymentRequest struct {
	Amount      float64 `json:"amount"`
	PaymentDate string  `json:"payment_date"` // YYYY-MM-DD
	Method      string  `json:"method"`
	Reference   string  `json:"reference"`
	Comment     string  `json:"comment"`
}

// AddPayment handles POST /api/invoices/:id/payments
func (h *Handlers) AddPayment(c *gin.Context) {
	uid, ok := h.requireUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}
	paymentDate, err := time.Parse("2006-01-02", req.PaymentDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "payment_date must be YYYY-MM-DD"})
		return
	}

	inv, err := h.ledgerService.AddPayment(c.Request.Context(), uid, id, entity.Payment{
		Amount:      req.Amount,
		PaymentDate: paymentDate,
		Method:      entity.PaymentMethod(req.Method),
		Reference:   req.Reference,
		Comment:     req.Comment,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: inv})
}

// RemovePayment handles DELETE /api/invoices/:id/payments/:paymentId
func (h *Handlers) RemovePayment(c *gin.Context) {
	uid, ok := h.requireUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	paymentID := c.Param("paymentId")
	if paymentID == "" {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid paymentId"})
		return
	}

	inv, err := h.ledgerService.RemovePayment(c.Request.Context(), uid, id, paymentID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: inv})
}

// TemplateRequest carries a recurring template creation.
type TemplateRequest struct {
	ClientID        int64             `json:"client_id"`
	LineItems       []entity.LineItem `json:"line_items"`
	Frequency       string            `json:"frequency"`
	AmountExclTax   float64           `json:"amount_excl_tax"`
	AmountInclTax   float64           `json:"amount_incl_tax"`
	EmissionDay     int               `json:"emission_day"`
	EmissionMonths  []int             `json:"emission_months"`
	RepetitionLimit int               `json:"repetition_limit"`
}

// CreateTemplate handles POST /api/templates
func (h *Handlers) CreateTemplate(c *gin.Context) {
	uid, ok := h.requireUser(c)
	if !ok {
		return
	}
	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	months := make([]time.Month, len(req.EmissionMonths))
	for i, m := range req.EmissionMonths {
		months[i] = time.Month(m)
	}

	tpl, err := h.schedulerService.CreateTemplate(c.Request.Context(), &entity.RecurringTemplate{
		UserID:          uid,
		ClientID:        req.ClientID,
		LineItems:       req.LineItems,
		Frequency:       entity.Frequency(req.Frequency),
		AmountExclTax:   req.AmountExclTax,
		AmountInclTax:   req.AmountInclTax,
		EmissionDay:     req.EmissionDay,
		EmissionMonths:  months,
		RepetitionLimit: req.RepetitionLimit,
		Active:          true,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: tpl})
}

// ListTemplates handles GET /api/templates
func (h *Handlers) ListTemplates(c *gin.Context) {
	uid, ok := h.requireUser(c)
	if !ok {
		return
	}
	templates, err := h.schedulerService.ListTemplates(c.Request.Context(), uid)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: templates})
}

// GetTemplate handles GET /api/templates/:id
func (h *Handlers) GetTemplate(c *gin.Context) {
	uid, ok := h.requireUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	tpl, err := h.schedulerService.GetTemplate(c.Request.Context(), uid, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: tpl})
}

// SetActiveRequest toggles a template.
type SetActiveRequest struct {
	Active bool `json:"active"`
}

// SetTemplateActive handles PATCH /api/templates/:id/active
func (h *Handlers) SetTemplateActive(c *gin.Context) {
	uid, ok := h.requireUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	if err := h.schedulerService.SetTemplateActive(c.Request.Context(), uid, id, req.Active); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true})
}

// GenerateFromTemplate handles POST /api/templates/:id/generate
func (h *Handlers) GenerateFromTemplate(c *gin.Context) {
	uid, ok := h.requireUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	inv, err := h.schedulerService.Generate(c.Request.Context(), uid, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: inv})
}

// RunScheduler handles POST /api/scheduler/run
func (h *Handlers) RunScheduler(c *gin.Context) {
	uid, ok := h.requireUser(c)
	if !ok {
		return
	}
	invoices, err := h.schedulerService.RunDueScan(c.Request.Context(), uid)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: invoices})
}

// ScanNotifications handles POST /api/notifications/scan
func (h *Handlers) ScanNotifications(c *gin.Context) {
	uid, ok := h.requireUser(c)
	if !ok {
		return
	}
	created, err := h.notifierService.Scan(c.Request.Context(), uid)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{"created": created}})
}

// ListNotifications handles GET /api/notifications
func (h *Handlers) ListNotifications(c *gin.Context) {
	uid, ok := h.requireUser(c)
	if !ok {
		return
	}
	unreadOnly := c.Query("unread") == "true"

	notifications, err := h.notifierService.List(c.Request.Context(), uid, unreadOnly)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: notifications})
}

// MarkNotificationRead handles PATCH /api/notifications/:id/read
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	if _, ok := h.requireUser(c); !ok {
		return
	}
	if err := h.notifierService.MarkRead(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true})
}

// DeleteNotification handles DELETE /api/notifications/:id
func (h *Handlers) DeleteNotification(c *gin.Context) {
	if _, ok := h.requireUser(c); !ok {
		return
	}
	if err := h.notifierService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true})
}
