package agentgroup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/casualjim/agentgroup/api"
	"github.com/casualjim/agentgroup/pkg/jsonx"
	"github.com/casualjim/agentgroup/pkg/slogx"
	"github.com/casualjim/agentgroup/snapshot"
	"github.com/tidwall/gjson"
)

// State keys read for status records.
const (
	statePosition    = "position"
	stateNeeds       = "needs"
	stateCurrentStep = "current_step"
)

var institutionStateKeys = []string{
	"type", "nominal_gdp", "real_gdp", "unemployment", "wages", "prices", "inventory",
	"price", "interest_rate", "bracket_cutoffs", "bracket_rates", "employees", "customers",
}

// SaveStatus appends one status record per agent to the status log, as a single batch.
// It does nothing when snapshots are disabled. The simulator clock is read once, so every
// record of a batch carries the same day and time. A state field that cannot be read is
// logged and recorded as missing; it never drops the record or the batch.
func (g *Group) SaveStatus(ctx context.Context) error {
	if g.snapshots == nil {
		return nil
	}
	day, err := g.simulator.Day(ctx)
	if err != nil {
		return fmt.Errorf("failed to read simulator day: %w", err)
	}
	second, err := g.simulator.SecondOfDay(ctx)
	if err != nil {
		return fmt.Errorf("failed to read simulator time of day: %w", err)
	}
	createdAt := time.Now().UnixMilli()

	records := make([]snapshot.Status, 0, len(g.agents))
	for _, agent := range g.agents {
		var rec snapshot.Status
		unlock := g.lockAgent(agent.ID())
		if g.variant == api.VariantInstitution {
			rec = g.institutionStatus(ctx, agent, day, second, createdAt)
		} else {
			rec = g.citizenStatus(ctx, agent, day, second, createdAt)
		}
		unlock()
		records = append(records, rec)
	}
	if err := g.snapshots.AppendStatus(ctx, records); err != nil {
		return fmt.Errorf("failed to append status: %w", err)
	}
	return nil
}

func (g *Group) citizenStatus(ctx context.Context, agent api.Agent, day, second int, createdAt int64) snapshot.CitizenStatus {
	position := g.state(ctx, agent, statePosition)
	needs := g.state(ctx, agent, stateNeeds)
	current := g.state(ctx, agent, stateCurrentStep)

	return snapshot.CitizenStatus{
		ID:        agent.ID(),
		Day:       day,
		T:         float64(second),
		Lng:       position.Get("longlat_position.longitude").Float(),
		Lat:       position.Get("longlat_position.latitude").Float(),
		ParentID:  parentID(position),
		Action:    current.Get("intention").String(),
		Hungry:    needs.Get("hungry").Float(),
		Tired:     needs.Get("tired").Float(),
		Safe:      needs.Get("safe").Float(),
		Social:    needs.Get("social").Float(),
		CreatedAt: createdAt,
	}
}

// parentID is the AOI a citizen is in, else the lane it is on, else UnknownParentID.
func parentID(position gjson.Result) int64 {
	if id := position.Get("aoi_position.aoi_id"); id.Exists() {
		return id.Int()
	}
	if id := position.Get("lane_position.lane_id"); id.Exists() {
		return id.Int()
	}
	return snapshot.UnknownParentID
}

func (g *Group) institutionStatus(ctx context.Context, agent api.Agent, day, second int, createdAt int64) snapshot.InstitutionStatus {
	fields := make(map[string]gjson.Result, len(institutionStateKeys))
	for _, key := range institutionStateKeys {
		fields[key] = g.state(ctx, agent, key)
	}

	return snapshot.InstitutionStatus{
		ID:             agent.ID(),
		Day:            day,
		T:              float64(second),
		Type:           int(fields["type"].Int()),
		NominalGDP:     floats(fields["nominal_gdp"]),
		RealGDP:        floats(fields["real_gdp"]),
		Unemployment:   floats(fields["unemployment"]),
		Wages:          floats(fields["wages"]),
		Prices:         floats(fields["prices"]),
		Inventory:      fields["inventory"].Int(),
		Price:          fields["price"].Float(),
		InterestRate:   fields["interest_rate"].Float(),
		BracketCutoffs: floats(fields["bracket_cutoffs"]),
		BracketRates:   floats(fields["bracket_rates"]),
		Employees:      texts(fields["employees"]),
		Customers:      texts(fields["customers"]),
		CreatedAt:      createdAt,
	}
}

// state reads one field of an agent as JSON. Read and encoding failures are logged and
// yield an empty result, which the extractors turn into zero values.
func (g *Group) state(ctx context.Context, agent api.Agent, key string) gjson.Result {
	v, err := agent.State(ctx, key)
	if err != nil {
		g.logger.WarnContext(ctx, "failed to read agent state, recording it as missing",
			slogx.AgentID(agent.ID()), slog.String("key", key), slogx.Error(err))
		return gjson.Result{}
	}
	res, err := jsonx.Parse(v)
	if err != nil {
		g.logger.WarnContext(ctx, "failed to encode agent state, recording it as missing",
			slogx.AgentID(agent.ID()), slog.String("key", key), slogx.Error(err))
		return gjson.Result{}
	}
	return res
}

// floats reads a numeric series. A single number is a series of one; a missing value is
// an empty series.
func floats(r gjson.Result) []float64 {
	if !r.IsArray() {
		if !r.Exists() || r.Type == gjson.Null {
			return []float64{}
		}
		return []float64{r.Float()}
	}
	items := r.Array()
	out := make([]float64, len(items))
	for i, item := range items {
		out[i] = item.Float()
	}
	return out
}

func texts(r gjson.Result) []string {
	if !r.IsArray() {
		if !r.Exists() || r.Type == gjson.Null {
			return []string{}
		}
		return []string{r.String()}
	}
	items := r.Array()
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.String()
	}
	return out
}
