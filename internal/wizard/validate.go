package wizard

import (
	"strconv"
	"strings"
	"time"

	"funding-apply/internal/draft"
	"funding-apply/internal/format"
)

// gate validates one step of the draft against the given clock.
type gate func(app *draft.Application, now time.Time) ErrorMap

// stepGates is the dispatch table for per-step validation. Steps 5 and 6
// are post-submission views with nothing to validate.
var stepGates = map[Step]gate{
	StepFunding:      validateFunding,
	StepBusiness:     validateBusiness,
	StepOwnership:    validateOwnership,
	StepReview:       validateReview,
	StepConfirmation: validateNothing,
	StepDocuments:    validateNothing,
}

// Validate runs the gate for the given step. An unknown step validates to
// empty, the same as the post-submission steps.
func Validate(step Step, app *draft.Application, now time.Time) ErrorMap {
	g, ok := stepGates[step]
	if !ok {
		return ErrorMap{}
	}
	return g(app, now)
}

// fieldOrder fixes the on-screen ordering of every field id, used to pick
// the first invalid field for focus.
var fieldOrder = []string{
	"fundingAmount", "useOfFunds",
	"legalName", "dba", "ein", "entityType", "startDate",
	"industry", "annualRevenue", "address", "city", "state", "zip",
	"owner.firstName", "owner.lastName", "owner.email", "owner.phone",
	"owner.dateOfBirth", "owner.ssn", "owner.address", "owner.city",
	"owner.state", "owner.zip", "owner.ownershipPercent",
	"secondOwner.firstName", "secondOwner.lastName", "secondOwner.email",
	"secondOwner.phone", "secondOwner.dateOfBirth", "secondOwner.ssn",
	"secondOwner.address", "secondOwner.city", "secondOwner.state",
	"secondOwner.zip", "secondOwner.ownershipPercent",
	"signature.typedName", "signature.signedDate",
	FieldFormLevel,
}

// FirstInvalid returns the earliest offending field id in display order, or
// "" when the map is empty.
func FirstInvalid(errs ErrorMap) string {
	for _, id := range fieldOrder {
		if _, ok := errs[id]; ok {
			return id
		}
	}
	return ""
}

func validateNothing(*draft.Application, time.Time) ErrorMap {
	return ErrorMap{}
}

func validateFunding(app *draft.Application, _ time.Time) ErrorMap {
	errs := ErrorMap{}

	amount, err := strconv.ParseFloat(strings.TrimSpace(app.FundingAmount), 64)
	if err != nil || amount <= 0 {
		errs["fundingAmount"] = "Enter the amount you are requesting"
	}
	if len(strings.TrimSpace(app.UseOfFunds)) < 10 {
		errs["useOfFunds"] = "Tell us a bit more about how you will use the funds"
	}
	return errs
}

func validateBusiness(app *draft.Application, now time.Time) ErrorMap {
	errs := ErrorMap{}

	if !format.IsValidBusinessName(app.LegalName) {
		errs["legalName"] = "Enter your business legal name"
	}
	if !format.IsValidEIN(app.EIN) {
		errs["ein"] = "Enter a valid 9-digit EIN"
	}
	if strings.TrimSpace(app.EntityType) == "" {
		errs["entityType"] = "Select your entity type"
	}
	if ok, reason := format.ValidateBusinessStartDate(app.StartDate, now); !ok {
		errs["startDate"] = reason
	}
	if strings.TrimSpace(app.Industry) == "" {
		errs["industry"] = "Select your industry"
	}
	if revenue, err := strconv.ParseFloat(strings.TrimSpace(app.AnnualRevenue), 64); err != nil || revenue < 0 {
		errs["annualRevenue"] = "Enter your annual revenue"
	}
	if strings.TrimSpace(app.Address) == "" {
		errs["address"] = "Enter your business street address"
	}
	if strings.TrimSpace(app.City) == "" {
		errs["city"] = "Enter your business city"
	}
	if strings.TrimSpace(app.State) == "" {
		errs["state"] = "Select your business state"
	}
	if !format.IsValidZip(app.Zip) {
		errs["zip"] = "Enter a valid ZIP code"
	}
	return errs
}

func validateOwnership(app *draft.Application, now time.Time) ErrorMap {
	errs := ErrorMap{}

	validateOwner(errs, "owner.", app.Owner, now)

	// The sum rule only binds when a second owner exists: a sole owner may
	// hold any stake in (0,100]. It is a relation between fields, so its
	// violation is reported at the form level, not against either input.
	if app.HasSecondOwner {
		validateOwner(errs, "secondOwner.", app.SecondOwner, now)

		first, firstKnown := ownershipValue(app.Owner.OwnershipPercent)
		second, secondKnown := ownershipValue(app.SecondOwner.OwnershipPercent)
		if firstKnown && secondKnown && first+second != 100 {
			errs[FieldFormLevel] = "Combined ownership must equal exactly 100%"
		}
	}
	return errs
}

func validateOwner(errs ErrorMap, prefix string, o draft.Owner, now time.Time) {
	if !format.IsValidPersonName(o.FirstName) {
		errs[prefix+"firstName"] = "Enter a first name"
	}
	if !format.IsValidPersonName(o.LastName) {
		errs[prefix+"lastName"] = "Enter a last name"
	}
	if !format.IsValidEmail(o.Email) {
		errs[prefix+"email"] = "Enter a valid email address"
	}
	if !format.IsValidPhone(o.Phone) {
		errs[prefix+"phone"] = "Enter a 10-digit phone number"
	}
	if ok, reason := format.ValidateDateOfBirth(o.DateOfBirth, now); !ok {
		errs[prefix+"dateOfBirth"] = reason
	}
	if !format.IsValidSSN(o.SSN) {
		errs[prefix+"ssn"] = "Enter a valid 9-digit SSN"
	}
	if strings.TrimSpace(o.Address) == "" {
		errs[prefix+"address"] = "Enter a street address"
	}
	if strings.TrimSpace(o.City) == "" {
		errs[prefix+"city"] = "Enter a city"
	}
	if strings.TrimSpace(o.State) == "" {
		errs[prefix+"state"] = "Select a state"
	}
	if !format.IsValidZip(o.Zip) {
		errs[prefix+"zip"] = "Enter a valid ZIP code"
	}
	if pct, ok := ownershipValue(o.OwnershipPercent); !ok || pct <= 0 || pct > 100 {
		errs[prefix+"ownershipPercent"] = "Enter an ownership percentage between 1 and 100"
	}
}

func ownershipValue(raw string) (float64, bool) {
	pct, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, false
	}
	return pct, true
}

func validateReview(app *draft.Application, _ time.Time) ErrorMap {
	errs := ErrorMap{}

	if strings.TrimSpace(app.Signature.TypedName) == "" && strings.TrimSpace(app.Signature.ImageData) == "" {
		errs["signature.typedName"] = "Sign the application to continue"
	}
	if strings.TrimSpace(app.Signature.SignedDate) == "" {
		errs["signature.signedDate"] = "Enter the signing date"
	}
	return errs
}
