package snapshot

import (
	"github.com/casualjim/agentgroup/api"
)

// Kind names one of the four logs of a group.
type Kind string

const (
	KindProfile Kind = "profile"
	KindDialog  Kind = "dialog"
	KindStatus  Kind = "status"
	KindSurvey  Kind = "survey"
)

// Kinds lists the logs in creation order.
var Kinds = []Kind{KindProfile, KindDialog, KindStatus, KindSurvey}

// UnknownParentID is recorded when a citizen's position has neither an AOI nor a lane.
const UnknownParentID = -1

// Profile is the static description of a citizen.
type Profile struct {
	ID                string  `avro:"id" json:"id"`
	Name              string  `avro:"name" json:"name"`
	Gender            string  `avro:"gender" json:"gender"`
	Age               float64 `avro:"age" json:"age"`
	Education         string  `avro:"education" json:"education"`
	Skill             string  `avro:"skill" json:"skill"`
	Occupation        string  `avro:"occupation" json:"occupation"`
	FamilyConsumption string  `avro:"family_consumption" json:"family_consumption"`
	Consumption       string  `avro:"consumption" json:"consumption"`
	Personality       string  `avro:"personality" json:"personality"`
	Income            float64 `avro:"income" json:"income"`
	Currency          float64 `avro:"currency" json:"currency"`
	Residence         string  `avro:"residence" json:"residence"`
	Race              string  `avro:"race" json:"race"`
	Religion          string  `avro:"religion" json:"religion"`
	MaritalStatus     string  `avro:"marital_status" json:"marital_status"`
}

// Status is a per-step record of one agent; its concrete type follows the agent variant.
type Status interface {
	AgentID() string
	Variant() api.Variant
}

// CitizenStatus is where a citizen is, how it feels and what it is doing.
type CitizenStatus struct {
	ID        string  `avro:"id" json:"id"`
	Day       int     `avro:"day" json:"day"`
	T         float64 `avro:"t" json:"t"`
	Lng       float64 `avro:"lng" json:"lng"`
	Lat       float64 `avro:"lat" json:"lat"`
	ParentID  int64   `avro:"parent_id" json:"parent_id"`
	Action    string  `avro:"action" json:"action"`
	Hungry    float64 `avro:"hungry" json:"hungry"`
	Tired     float64 `avro:"tired" json:"tired"`
	Safe      float64 `avro:"safe" json:"safe"`
	Social    float64 `avro:"social" json:"social"`
	CreatedAt int64   `avro:"created_at" json:"created_at"`
}

func (s CitizenStatus) AgentID() string    { return s.ID }
func (CitizenStatus) Variant() api.Variant { return api.VariantCitizen }

// InstitutionStatus is the economic state of an institution.
type InstitutionStatus struct {
	ID             string    `avro:"id" json:"id"`
	Day            int       `avro:"day" json:"day"`
	T              float64   `avro:"t" json:"t"`
	Type           int       `avro:"type" json:"type"`
	NominalGDP     []float64 `avro:"nominal_gdp" json:"nominal_gdp"`
	RealGDP        []float64 `avro:"real_gdp" json:"real_gdp"`
	Unemployment   []float64 `avro:"unemployment" json:"unemployment"`
	Wages          []float64 `avro:"wages" json:"wages"`
	Prices         []float64 `avro:"prices" json:"prices"`
	Inventory      int64     `avro:"inventory" json:"inventory"`
	Price          float64   `avro:"price" json:"price"`
	InterestRate   float64   `avro:"interest_rate" json:"interest_rate"`
	BracketCutoffs []float64 `avro:"bracket_cutoffs" json:"bracket_cutoffs"`
	BracketRates   []float64 `avro:"bracket_rates" json:"bracket_rates"`
	Employees      []string  `avro:"employees" json:"employees"`
	Customers      []string  `avro:"customers" json:"customers"`
	CreatedAt      int64     `avro:"created_at" json:"created_at"`
}

func (s InstitutionStatus) AgentID() string    { return s.ID }
func (InstitutionStatus) Variant() api.Variant { return api.VariantInstitution }
