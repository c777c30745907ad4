package snapshot

import (
	"fmt"

	"github.com/casualjim/agentgroup/api"
	"github.com/hamba/avro/v2"
)

const profileSchema = `{
  "type": "record", "name": "Profile", "namespace": "agentgroup.snapshot",
  "fields": [
    {"name": "id", "type": "string"},
    {"name": "name", "type": "string"},
    {"name": "gender", "type": "string"},
    {"name": "age", "type": "double"},
    {"name": "education", "type": "string"},
    {"name": "skill", "type": "string"},
    {"name": "occupation", "type": "string"},
    {"name": "family_consumption", "type": "string"},
    {"name": "consumption", "type": "string"},
    {"name": "personality", "type": "string"},
    {"name": "income", "type": "double"},
    {"name": "currency", "type": "double"},
    {"name": "residence", "type": "string"},
    {"name": "race", "type": "string"},
    {"name": "religion", "type": "string"},
    {"name": "marital_status", "type": "string"}
  ]
}`

const dialogSchema = `{
  "type": "record", "name": "Dialog", "namespace": "agentgroup.snapshot",
  "fields": [
    {"name": "id", "type": "string"},
    {"name": "day", "type": "int"},
    {"name": "t", "type": "double"},
    {"name": "type", "type": "int"},
    {"name": "speaker", "type": "string"},
    {"name": "content", "type": "string"},
    {"name": "created_at", "type": "long"}
  ]
}`

const citizenStatusSchema = `{
  "type": "record", "name": "CitizenStatus", "namespace": "agentgroup.snapshot",
  "fields": [
    {"name": "id", "type": "string"},
    {"name": "day", "type": "int"},
    {"name": "t", "type": "double"},
    {"name": "lng", "type": "double"},
    {"name": "lat", "type": "double"},
    {"name": "parent_id", "type": "long"},
    {"name": "action", "type": "string"},
    {"name": "hungry", "type": "double"},
    {"name": "tired", "type": "double"},
    {"name": "safe", "type": "double"},
    {"name": "social", "type": "double"},
    {"name": "created_at", "type": "long"}
  ]
}`

const institutionStatusSchema = `{
  "type": "record", "name": "InstitutionStatus", "namespace": "agentgroup.snapshot",
  "fields": [
    {"name": "id", "type": "string"},
    {"name": "day", "type": "int"},
    {"name": "t", "type": "double"},
    {"name": "type", "type": "int"},
    {"name": "nominal_gdp", "type": {"type": "array", "items": "double"}},
    {"name": "real_gdp", "type": {"type": "array", "items": "double"}},
    {"name": "unemployment", "type": {"type": "array", "items": "double"}},
    {"name": "wages", "type": {"type": "array", "items": "double"}},
    {"name": "prices", "type": {"type": "array", "items": "double"}},
    {"name": "inventory", "type": "long"},
    {"name": "price", "type": "double"},
    {"name": "interest_rate", "type": "double"},
    {"name": "bracket_cutoffs", "type": {"type": "array", "items": "double"}},
    {"name": "bracket_rates", "type": {"type": "array", "items": "double"}},
    {"name": "employees", "type": {"type": "array", "items": "string"}},
    {"name": "customers", "type": {"type": "array", "items": "string"}},
    {"name": "created_at", "type": "long"}
  ]
}`

// Both variants answer the same survey fields; the record names keep the two logs
// distinguishable when files from different groups are merged.
const surveyFields = `[
    {"name": "id", "type": "string"},
    {"name": "day", "type": "int"},
    {"name": "t", "type": "double"},
    {"name": "survey_id", "type": "string"},
    {"name": "result", "type": "string"},
    {"name": "created_at", "type": "long"}
  ]`

var (
	citizenSurveySchema     = `{"type": "record", "name": "CitizenSurvey", "namespace": "agentgroup.snapshot", "fields": ` + surveyFields + `}`
	institutionSurveySchema = `{"type": "record", "name": "InstitutionSurvey", "namespace": "agentgroup.snapshot", "fields": ` + surveyFields + `}`
)

// Schema returns the Avro schema text of a log for the given variant.
func Schema(kind Kind, variant api.Variant) (string, error) {
	switch kind {
	case KindProfile:
		return profileSchema, nil
	case KindDialog:
		return dialogSchema, nil
	case KindStatus:
		if variant == api.VariantInstitution {
			return institutionStatusSchema, nil
		}
		return citizenStatusSchema, nil
	case KindSurvey:
		if variant == api.VariantInstitution {
			return institutionSurveySchema, nil
		}
		return citizenSurveySchema, nil
	default:
		return "", fmt.Errorf("unknown snapshot kind %q", kind)
	}
}

// ParseSchema parses the Avro schema of a log for the given variant.
func ParseSchema(kind Kind, variant api.Variant) (avro.Schema, error) {
	text, err := Schema(kind, variant)
	if err != nil {
		return nil, err
	}
	return avro.Parse(text)
}
