package domain

import (
	"strings"
	"time"
)

// InvestmentType enumerates the supported asset classes.
type InvestmentType string

const (
	TypeFixedIncome    InvestmentType = "RENDA_FIXA"
	TypeVariableIncome InvestmentType = "RENDA_VARIAVEL"
	TypeTreasury       InvestmentType = "TESOURO_DIRETO"
	TypeCrypto         InvestmentType = "CRIPTOMOEDA"
	TypeRealEstateFund InvestmentType = "FUNDO_IMOBILIARIO"
	TypeCDB            InvestmentType = "CDB"
	TypeLCI            InvestmentType = "LCI"
	TypeLCA            InvestmentType = "LCA"
	TypeOther          InvestmentType = "OUTRO"
)

// InvestmentTypes lists every InvestmentType in catalog order.
var InvestmentTypes = []InvestmentType{
	TypeFixedIncome, TypeVariableIncome, TypeTreasury, TypeCrypto,
	TypeRealEstateFund, TypeCDB, TypeLCI, TypeLCA, TypeOther,
}

// ParseInvestmentType matches case-insensitively against InvestmentTypes.
func ParseInvestmentType(s string) (InvestmentType, error) {
	want := InvestmentType(strings.ToUpper(strings.TrimSpace(s)))
	for _, t := range InvestmentTypes {
		if t == want {
			return t, nil
		}
	}
	return "", NewValidationError("type", "unknown investment type: "+s)
}

// Investor is the portfolio owner record keyed by national ID.
type Investor struct {
	NationalID NationalID `json:"nationalId"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// DailyReturn is one day of observed profitability for an investment.
type DailyReturn struct {
	Date              time.Time `json:"date"`
	SharePrice        float64   `json:"sharePrice"`
	DailyRate         float64   `json:"dailyRate"`
	AccumulatedAmount float64   `json:"accumulatedAmount"`
}

// Investment is a single position held by an investor.
type Investment struct {
	ID                string         `json:"id"`
	NationalID        NationalID     `json:"nationalId"`
	BankName          string         `json:"bankName,omitempty"`
	Name              string         `json:"name"`
	Type              InvestmentType `json:"type"`
	InitialAmount     float64        `json:"initialAmount"`
	InitialSharePrice float64        `json:"initialSharePrice"`
	ReturnRate        float64        `json:"returnRate"`
	InitialShares     int            `json:"initialShares"`
	DailyReturns      []DailyReturn  `json:"dailyReturns"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}
