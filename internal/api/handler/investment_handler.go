package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/investae/investments-api/internal/api/metrics"
	"github.com/investae/investments-api/internal/core/ports"
)

// HeaderIdempotencyKey lets clients retry investment creation safely.
const HeaderIdempotencyKey = "Idempotency-Key"

// InvestmentHandler handles HTTP requests for investments and investors.
type InvestmentHandler struct {
	service ports.InvestmentService
}

func NewInvestmentHandler(service ports.InvestmentService) *InvestmentHandler {
	return &InvestmentHandler{service: service}
}

// Create records an investment for the caller.
//
// @Summary      Create an investment
// @Tags         investments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header    string             false  "Client supplied retry key"
// @Param        body             body      investmentRequest  true   "Investment"
// @Success      201              {object}  investmentResponse
// @Failure      400              {object}  map[string]string
// @Failure      401              {object}  map[string]string
// @Failure      404              {object}  map[string]string
// @Router       /api/investments [post]
func (h *InvestmentHandler) Create(c echo.Context) error {
	var req investmentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	inv, err := h.service.CreateOwn(c.Request().Context(), req.toInput(), c.Request().Header.Get(HeaderIdempotencyKey))
	if err != nil {
		return err
	}
	metrics.InvestmentsCreatedTotal.WithLabelValues(string(inv.Type)).Inc()

	c.Response().Header().Set(echo.HeaderLocation, "/api/investments/"+inv.ID)
	return c.JSON(http.StatusCreated, toInvestmentResponse(inv))
}

// ListMine returns the caller's investments.
//
// @Summary      List my investments
// @Tags         investments
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   investmentResponse
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/investments/mine [get]
func (h *InvestmentHandler) ListMine(c echo.Context) error {
	list, err := h.service.ListOwn(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toInvestmentResponses(list))
}

// ListByOwner returns the investments of one investor.
//
// @Summary      List investments by national ID
// @Tags         investments
// @Produce      json
// @Security     BearerAuth
// @Param        nationalId  path      string  true  "National ID (CPF)"
// @Success      200         {array}   investmentResponse
// @Failure      400         {object}  map[string]string
// @Failure      403         {object}  map[string]string
// @Failure      404         {object}  map[string]string
// @Router       /api/investments/user/{nationalId} [get]
func (h *InvestmentHandler) ListByOwner(c echo.Context) error {
	list, err := h.service.ListByOwner(c.Request().Context(), c.Param("nationalId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toInvestmentResponses(list))
}

// ListAll returns every investment.
//
// @Summary      List all investments
// @Tags         investments
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   investmentResponse
// @Failure      403  {object}  map[string]string
// @Router       /api/investments [get]
func (h *InvestmentHandler) ListAll(c echo.Context) error {
	list, err := h.service.ListAll(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toInvestmentResponses(list))
}

// Update replaces an investment's fields.
//
// @Summary      Update an investment
// @Tags         investments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "Investment ID"
// @Param        body  body      investmentRequest  true  "Investment"
// @Success      200   {object}  investmentResponse
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /api/investments/{id} [put]
func (h *InvestmentHandler) Update(c echo.Context) error {
	var req investmentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	inv, err := h.service.Update(c.Request().Context(), c.Param("id"), req.toInput())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toInvestmentResponse(inv))
}

// Delete removes an investment.
//
// @Summary      Delete an investment
// @Tags         investments
// @Security     BearerAuth
// @Param        id  path  string  true  "Investment ID"
// @Success      204
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/investments/{id} [delete]
func (h *InvestmentHandler) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

type createInvestorRequest struct {
	NationalID string `json:"nationalId" validate:"required"`
}

// CreateInvestor provisions an investor record.
//
// @Summary      Create an investor
// @Tags         investors
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createInvestorRequest  true  "Investor"
// @Success      201   {object}  investorResponse
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Router       /api/investors [post]
func (h *InvestmentHandler) CreateInvestor(c echo.Context) error {
	var req createInvestorRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	inv, err := h.service.CreateInvestor(c.Request().Context(), req.NationalID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toInvestorResponse(inv))
}

// GetInvestor returns one investor record.
//
// @Summary      Get an investor
// @Tags         investors
// @Produce      json
// @Security     BearerAuth
// @Param        nationalId  path      string  true  "National ID (CPF)"
// @Success      200         {object}  investorResponse
// @Failure      403         {object}  map[string]string
// @Failure      404         {object}  map[string]string
// @Router       /api/investors/{nationalId} [get]
func (h *InvestmentHandler) GetInvestor(c echo.Context) error {
	inv, err := h.service.GetInvestor(c.Request().Context(), c.Param("nationalId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toInvestorResponse(inv))
}

// ListInvestors returns every investor record.
//
// @Summary      List investors
// @Tags         investors
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   investorResponse
// @Failure      403  {object}  map[string]string
// @Router       /api/investors [get]
func (h *InvestmentHandler) ListInvestors(c echo.Context) error {
	list, err := h.service.ListInvestors(c.Request().Context())
	if err != nil {
		return err
	}
	out := make([]investorResponse, 0, len(list))
	for _, inv := range list {
		out = append(out, toInvestorResponse(inv))
	}
	return c.JSON(http.StatusOK, out)
}

// DeleteInvestor removes an investor and its investments.
//
// @Summary      Delete an investor
// @Tags         investors
// @Security     BearerAuth
// @Param        nationalId  path  string  true  "National ID (CPF)"
// @Success      204
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/investors/{nationalId} [delete]
func (h *InvestmentHandler) DeleteInvestor(c echo.Context) error {
	if err := h.service.DeleteInvestor(c.Request().Context(), c.Param("nationalId")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ReplaceInvestorInvestments overwrites every investment of one investor.
//
// @Summary      Replace an investor's investments
// @Description  Deletes the investor's current investments and stores the submitted list in their place.
// @Tags         investors
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        nationalId  path      string                     true  "National ID (CPF)"
// @Param        body        body      replaceInvestmentsRequest  true  "Complete list of investments"
// @Success      200         {array}   investmentResponse
// @Failure      400         {object}  map[string]string
// @Failure      401         {object}  map[string]string
// @Failure      403         {object}  map[string]string
// @Failure      404         {object}  map[string]string
// @Router       /api/investors/{nationalId}/investments [put]
func (h *InvestmentHandler) ReplaceInvestorInvestments(c echo.Context) error {
	var req replaceInvestmentsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	list, err := h.service.ReplaceInvestments(c.Request().Context(), c.Param("nationalId"), req.toInputs())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toInvestmentResponses(list))
}
