package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/investae/investments-api/internal/core/domain"
)

// CatalogHandler serves the static reference lists.
type CatalogHandler struct{}

func NewCatalogHandler() *CatalogHandler {
	return &CatalogHandler{}
}

type bankResponse struct {
	Name string `json:"name"`
	Code int    `json:"code"`
}

type investmentTypeResponse struct {
	Code string `json:"code"`
}

// Banks lists the supported banks.
//
// @Summary      List banks
// @Tags         catalog
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   bankResponse
// @Failure      401  {object}  map[string]string
// @Router       /api/banks [get]
func (h *CatalogHandler) Banks(c echo.Context) error {
	out := make([]bankResponse, 0, len(domain.Banks))
	for _, b := range domain.Banks {
		out = append(out, bankResponse{Name: b.Name, Code: b.Code})
	}
	return c.JSON(http.StatusOK, out)
}

// InvestmentTypes lists the supported investment types.
//
// @Summary      List investment types
// @Tags         catalog
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   investmentTypeResponse
// @Failure      401  {object}  map[string]string
// @Router       /api/investment-types [get]
func (h *CatalogHandler) InvestmentTypes(c echo.Context) error {
	out := make([]investmentTypeResponse, 0, len(domain.InvestmentTypes))
	for _, t := range domain.InvestmentTypes {
		out = append(out, investmentTypeResponse{Code: string(t)})
	}
	return c.JSON(http.StatusOK, out)
}
