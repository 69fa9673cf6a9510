package handler

import (
	"time"

	"github.com/investae/investments-api/internal/core/domain"
	"github.com/investae/investments-api/internal/core/ports"
)

const timeLayout = time.RFC3339

type dailyReturnRequest struct {
	Date              string  `json:"date" validate:"required"`
	SharePrice        float64 `json:"sharePrice"`
	DailyRate         float64 `json:"dailyRate"`
	AccumulatedAmount float64 `json:"accumulatedAmount"`
}

type investmentRequest struct {
	BankName          string               `json:"bankName"`
	Name              string               `json:"name" validate:"required"`
	Type              string               `json:"type" validate:"required"`
	InitialAmount     float64              `json:"initialAmount" validate:"gt=0"`
	InitialSharePrice float64              `json:"initialSharePrice" validate:"gte=0"`
	ReturnRate        float64              `json:"returnRate"`
	InitialShares     int                  `json:"initialShares" validate:"gte=0"`
	DailyReturns      []dailyReturnRequest `json:"dailyReturns" validate:"dive"`
}

// replaceInvestmentsRequest is the full portfolio sent to the bulk replace endpoint.
type replaceInvestmentsRequest struct {
	Investments []investmentRequest `json:"investments" validate:"dive"`
}

func (r replaceInvestmentsRequest) toInputs() []ports.InvestmentInput {
	out := make([]ports.InvestmentInput, 0, len(r.Investments))
	for _, item := range r.Investments {
		out = append(out, item.toInput())
	}
	return out
}

type dailyReturnResponse struct {
	Date              string  `json:"date"`
	SharePrice        float64 `json:"sharePrice"`
	DailyRate         float64 `json:"dailyRate"`
	AccumulatedAmount float64 `json:"accumulatedAmount"`
}

type investmentResponse struct {
	ID                string                `json:"id"`
	NationalID        string                `json:"nationalId"`
	BankName          string                `json:"bankName,omitempty"`
	Name              string                `json:"name"`
	Type              string                `json:"type"`
	InitialAmount     float64               `json:"initialAmount"`
	InitialSharePrice float64               `json:"initialSharePrice"`
	ReturnRate        float64               `json:"returnRate"`
	InitialShares     int                   `json:"initialShares"`
	DailyReturns      []dailyReturnResponse `json:"dailyReturns"`
	CreatedAt         string                `json:"createdAt"`
	UpdatedAt         string                `json:"updatedAt"`
}

type investorResponse struct {
	NationalID string `json:"nationalId"`
	CreatedAt  string `json:"createdAt"`
}

func (r investmentRequest) toInput() ports.InvestmentInput {
	returns := make([]ports.DailyReturnInput, 0, len(r.DailyReturns))
	for _, dr := range r.DailyReturns {
		returns = append(returns, ports.DailyReturnInput{
			Date:              dr.Date,
			SharePrice:        dr.SharePrice,
			DailyRate:         dr.DailyRate,
			AccumulatedAmount: dr.AccumulatedAmount,
		})
	}
	return ports.InvestmentInput{
		BankName:          r.BankName,
		Name:              r.Name,
		Type:              r.Type,
		InitialAmount:     r.InitialAmount,
		InitialSharePrice: r.InitialSharePrice,
		ReturnRate:        r.ReturnRate,
		InitialShares:     r.InitialShares,
		DailyReturns:      returns,
	}
}

func toInvestmentResponse(inv *domain.Investment) investmentResponse {
	returns := make([]dailyReturnResponse, 0, len(inv.DailyReturns))
	for _, dr := range inv.DailyReturns {
		returns = append(returns, dailyReturnResponse{
			Date:              dr.Date.Format(ports.DailyReturnDateLayout),
			SharePrice:        dr.SharePrice,
			DailyRate:         dr.DailyRate,
			AccumulatedAmount: dr.AccumulatedAmount,
		})
	}
	return investmentResponse{
		ID:                inv.ID,
		NationalID:        inv.NationalID.String(),
		BankName:          inv.BankName,
		Name:              inv.Name,
		Type:              string(inv.Type),
		InitialAmount:     inv.InitialAmount,
		InitialSharePrice: inv.InitialSharePrice,
		ReturnRate:        inv.ReturnRate,
		InitialShares:     inv.InitialShares,
		DailyReturns:      returns,
		CreatedAt:         inv.CreatedAt.UTC().Format(timeLayout),
		UpdatedAt:         inv.UpdatedAt.UTC().Format(timeLayout),
	}
}

func toInvestmentResponses(list []*domain.Investment) []investmentResponse {
	out := make([]investmentResponse, 0, len(list))
	for _, inv := range list {
		out = append(out, toInvestmentResponse(inv))
	}
	return out
}

func toInvestorResponse(inv *domain.Investor) investorResponse {
	return investorResponse{NationalID: inv.NationalID.String(), CreatedAt: inv.CreatedAt.UTC().Format(timeLayout)}
}
