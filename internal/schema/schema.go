// Package schema validates inbound draft payloads at the API edge before
// they are bound, so malformed shapes are rejected with field-level detail
// instead of silently zeroing fields.
package schema

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const draftSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"additionalProperties": false,
	"definitions": {
		"owner": {
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"firstName":        {"type": "string"},
				"lastName":         {"type": "string"},
				"email":            {"type": "string"},
				"phone":            {"type": "string"},
				"dateOfBirth":      {"type": "string"},
				"ssn":              {"type": "string"},
				"address":          {"type": "string"},
				"city":             {"type": "string"},
				"state":            {"type": "string"},
				"zip":              {"type": "string"},
				"creditScore":      {"type": "string"},
				"ownershipPercent": {"type": "string"}
			}
		},
		"signature": {
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"imageData":  {"type": "string"},
				"typedName":  {"type": "string"},
				"signedDate": {"type": "string"}
			}
		}
	},
	"properties": {
		"fundingAmount":   {"type": "string"},
		"useOfFunds":      {"type": "string"},
		"legalName":       {"type": "string"},
		"dba":             {"type": "string"},
		"ein":             {"type": "string"},
		"entityType":      {"type": "string"},
		"startDate":       {"type": "string"},
		"yearsInBusiness": {"type": "string"},
		"annualRevenue":   {"type": "string"},
		"industry":        {"type": "string"},
		"address":         {"type": "string"},
		"city":            {"type": "string"},
		"state":           {"type": "string"},
		"zip":             {"type": "string"},
		"owner":           {"$ref": "#/definitions/owner"},
		"hasSecondOwner":  {"type": "boolean"},
		"secondOwner":     {"$ref": "#/definitions/owner"},
		"signature":       {"$ref": "#/definitions/signature"}
	}
}`

var compiled *gojsonschema.Schema

func init() {
	var err error
	compiled, err = gojsonschema.NewSchema(gojsonschema.NewStringLoader(draftSchema))
	if err != nil {
		panic(fmt.Sprintf("draft schema does not compile: %v", err))
	}
}

// ValidateDraft checks a raw draft body against the schema. The returned
// error lists every violation.
func ValidateDraft(raw []byte) error {
	result, err := compiled.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("payload is not valid JSON: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var details []string
	for _, desc := range result.Errors() {
		details = append(details, desc.String())
	}
	return fmt.Errorf("draft payload invalid: %s", strings.Join(details, "; "))
}
