package domain

// Bank is an entry of the static institution catalog.
type Bank struct {
	Name string `json:"name"`
	Code int    `json:"code"`
}

// Banks is the catalog of supported institutions with their COMPE codes.
var Banks = []Bank{
	{Name: "Nubank", Code: 260},
	{Name: "Itaú", Code: 341},
	{Name: "Bradesco", Code: 237},
	{Name: "Santander", Code: 33},
	{Name: "Caixa Econômica", Code: 104},
	{Name: "Banco do Brasil", Code: 1},
	{Name: "Inter", Code: 77},
	{Name: "BTG Pactual", Code: 208},
	{Name: "XP Investimentos", Code: 348},
	{Name: "C6 Bank", Code: 336},
}
