package domain

// CompanySettings is the issuing company profile used on documents and
// as defaults for new offers
type CompanySettings struct {
	Name           string
	Email          string
	Address        string
	TaxID          string
	IBAN           string
	Phone          string
	LogoURL        string
	DefaultVATRate float64
	ValidityDays   int
}
