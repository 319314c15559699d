package wizard

import "funding-apply/internal/draft"

// PreviewSeed returns a fully populated sample application so preview mode
// can walk every screen without typing. The record is valid at every gate.
func PreviewSeed() draft.Application {
	return draft.Application{
		FundingAmount: "150000",
		UseOfFunds:    "Purchase a second espresso roaster and expand the packaging line",

		LegalName:       "Blue Ridge Coffee Roasters LLC",
		DBA:             "Blue Ridge Coffee",
		EIN:             "12-3456789",
		EntityType:      "LLC",
		StartDate:       "2015-04-01",
		YearsInBusiness: "11",
		AnnualRevenue:   "820000",
		Industry:        "Food & Beverage",
		Address:         "412 Orchard Lane",
		City:            "Asheville",
		State:           "NC",
		Zip:             "28801",

		Owner: draft.Owner{
			FirstName:        "Dana",
			LastName:         "Whitfield",
			Email:            "dana@blueridgecoffee.com",
			Phone:            "(828) 555-0142",
			DateOfBirth:      "1984-09-12",
			SSN:              "123-45-6789",
			Address:          "88 Maplewood Drive",
			City:             "Asheville",
			State:            "NC",
			Zip:              "28803",
			CreditScore:      "720",
			OwnershipPercent: "60",
		},
		HasSecondOwner: true,
		SecondOwner: draft.Owner{
			FirstName:        "Marcus",
			LastName:         "Whitfield",
			Email:            "marcus@blueridgecoffee.com",
			Phone:            "(828) 555-0178",
			DateOfBirth:      "1981-02-03",
			SSN:              "987-65-4321",
			Address:          "88 Maplewood Drive",
			City:             "Asheville",
			State:            "NC",
			Zip:              "28803",
			CreditScore:      "705",
			OwnershipPercent: "40",
		},

		Signature: draft.Signature{
			TypedName:  "Dana Whitfield",
			SignedDate: "2026-08-29",
		},
	}
}
