// Package draft defines the in-progress application record and its redis
// persistence. The serializable draft and the ephemeral binary attachments
// are separate types so the persistence boundary is structural: attachments
// never reach the store.
package draft

import "strings"

// Owner holds one owner's identity fields. The second owner mirrors the
// primary exactly.
type Owner struct {
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	DateOfBirth      string `json:"dateOfBirth"`
	SSN              string `json:"ssn"`
	Address          string `json:"address"`
	City             string `json:"city"`
	State            string `json:"state"`
	Zip              string `json:"zip"`
	CreditScore      string `json:"creditScore"`
	OwnershipPercent string `json:"ownershipPercent"`
}

// Signature is the captured signing artifact. ImageData is the raster
// drawing as a data URL; the certificate is attached at submission time.
type Signature struct {
	ImageData  string `json:"imageData"`
	TypedName  string `json:"typedName"`
	SignedDate string `json:"signedDate"`
}

// Application is the single mutable record the wizard edits. All fields are
// empty strings until filled.
type Application struct {
	FundingAmount string `json:"fundingAmount"`
	UseOfFunds    string `json:"useOfFunds"`

	LegalName       string `json:"legalName"`
	DBA             string `json:"dba"`
	EIN             string `json:"ein"`
	EntityType      string `json:"entityType"`
	StartDate       string `json:"startDate"`
	YearsInBusiness string `json:"yearsInBusiness"`
	AnnualRevenue   string `json:"annualRevenue"`
	Industry        string `json:"industry"`
	Address         string `json:"address"`
	City            string `json:"city"`
	State           string `json:"state"`
	Zip             string `json:"zip"`

	Owner          Owner `json:"owner"`
	HasSecondOwner bool  `json:"hasSecondOwner"`
	SecondOwner    Owner `json:"secondOwner"`

	Signature Signature `json:"signature"`
}

// Attachment is a selected file held in memory only.
type Attachment struct {
	Filename string
	Data     []byte
}

// Attachments are the ephemeral binary uploads. They live next to the draft
// in wizard state but are never serialized to the store.
type Attachments struct {
	BankStatements *Attachment
	OtherDocuments *Attachment
}

// Meaningful reports whether the draft carries at least one filled-in field,
// which is the bar for offering a resume. Boolean flags don't count.
func Meaningful(app *Application) bool {
	if app == nil {
		return false
	}
	fields := []string{
		app.FundingAmount, app.UseOfFunds,
		app.LegalName, app.DBA, app.EIN, app.EntityType, app.StartDate,
		app.YearsInBusiness, app.AnnualRevenue, app.Industry,
		app.Address, app.City, app.State, app.Zip,
		app.Signature.TypedName, app.Signature.SignedDate,
	}
	fields = append(fields, ownerFields(app.Owner)...)
	fields = append(fields, ownerFields(app.SecondOwner)...)
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return true
		}
	}
	return false
}

func ownerFields(o Owner) []string {
	return []string{
		o.FirstName, o.LastName, o.Email, o.Phone, o.DateOfBirth, o.SSN,
		o.Address, o.City, o.State, o.Zip, o.CreditScore, o.OwnershipPercent,
	}
}
