package agentgroup

import (
	"context"
	"errors"
	"testing"

	"github.com/casualjim/agentgroup/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestSaveStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("does nothing without snapshots", func(t *testing.T) {
		env := newTestEnv(t)
		g := env.newGroup(t, agentsOf(newCitizen("a1")))
		require.NoError(t, g.Initialize(ctx))
		assert.NoError(t, g.SaveStatus(ctx))
	})

	t.Run("records citizens", func(t *testing.T) {
		env := newTestEnv(t).withSnapshots(t)
		env.sim.advance(2*SecondsPerDay + 3600)
		a1 := newCitizen("a1")
		g := env.newGroup(t, agentsOf(a1))
		require.NoError(t, g.Initialize(ctx))

		require.NoError(t, g.SaveStatus(ctx))
		records := readStatus(t, g)
		require.Len(t, records, 1)
		rec := records[0]
		assert.Equal(t, "a1", rec.ID)
		assert.Equal(t, 2, rec.Day)
		assert.InDelta(t, 3600, rec.T, 0)
		assert.InDelta(t, 116.39, rec.Lng, 1e-9)
		assert.InDelta(t, 39.9, rec.Lat, 1e-9)
		assert.Equal(t, int64(500000001), rec.ParentID)
		assert.Equal(t, "work", rec.Action)
		assert.InDelta(t, 0.2, rec.Hungry, 1e-9)
		assert.InDelta(t, 0.5, rec.Tired, 1e-9)
		assert.InDelta(t, 0.9, rec.Safe, 1e-9)
		assert.InDelta(t, 0.4, rec.Social, 1e-9)
		assert.Positive(t, rec.CreatedAt)
	})

	t.Run("falls back to the lane and then to the sentinel", func(t *testing.T) {
		env := newTestEnv(t).withSnapshots(t)
		onLane, lost := newCitizen("on-lane"), newCitizen("lost")
		onLane.state["position"] = map[string]any{
			"longlat_position": map[string]any{"longitude": 1.0, "latitude": 2.0},
			"lane_position":    map[string]any{"lane_id": 42, "s": 13.5},
		}
		lost.state["position"] = map[string]any{
			"longlat_position": map[string]any{"longitude": 1.0, "latitude": 2.0},
		}
		g := env.newGroup(t, agentsOf(onLane, lost))
		require.NoError(t, g.Initialize(ctx))

		require.NoError(t, g.SaveStatus(ctx))
		records := readStatus(t, g)
		require.Len(t, records, 2)
		assert.Equal(t, int64(42), records[0].ParentID)
		assert.Equal(t, int64(snapshot.UnknownParentID), records[1].ParentID)
	})

	t.Run("grows the log by one record per agent per call", func(t *testing.T) {
		env := newTestEnv(t).withSnapshots(t)
		a1, a2, a3 := newCitizen("a1"), newCitizen("a2"), newCitizen("a3")
		g := env.newGroup(t, agentsOf(a1, a2, a3))
		require.NoError(t, g.Initialize(ctx))

		var previous []snapshot.CitizenStatus
		for call := 1; call <= 3; call++ {
			env.sim.advance(60)
			require.NoError(t, g.SaveStatus(ctx))
			records := readStatus(t, g)
			require.Len(t, records, 3*call)
			if previous != nil {
				assert.Equal(t, previous, records[:len(previous)], "earlier records are never rewritten")
			}
			for _, rec := range records[len(previous):] {
				assert.InDelta(t, float64(60*call), rec.T, 0, "one clock reading per batch")
			}
			previous = records
		}
	})

	t.Run("records missing state without dropping the batch", func(t *testing.T) {
		env := newTestEnv(t).withSnapshots(t)
		broken, healthy := newCitizen("a1"), newCitizen("a2")
		broken.stateErrs = map[string]error{
			"needs":    errors.New("no such key: needs"),
			"position": errors.New("no such key: position"),
		}
		g := env.newGroup(t, agentsOf(broken, healthy))

		require.NoError(t, g.Step(ctx))
		records := readStatus(t, g)
		require.Len(t, records, 2)

		assert.Equal(t, "a1", records[0].ID)
		assert.Equal(t, "work", records[0].Action, "readable fields are still recorded")
		assert.Zero(t, records[0].Hungry)
		assert.Zero(t, records[0].Lng)
		assert.Equal(t, int64(snapshot.UnknownParentID), records[0].ParentID)

		assert.Equal(t, "a2", records[1].ID)
		assert.InDelta(t, 0.2, records[1].Hungry, 1e-9)
		assert.Equal(t, int64(500000001), records[1].ParentID)
	})

	t.Run("records institutions with unreadable fields as empty", func(t *testing.T) {
		env := newTestEnv(t).withSnapshots(t)
		bank := newInstitution("bank")
		bank.stateErrs = map[string]error{"nominal_gdp": errors.New("economy service down")}
		g := env.newGroup(t, agentsOf(bank))
		require.NoError(t, g.Initialize(ctx))

		require.NoError(t, g.SaveStatus(ctx))
		records, err := snapshot.ReadAvro[snapshot.InstitutionStatus](snapshot.AvroPath(g.SnapshotDir(), snapshot.KindStatus))
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Empty(t, records[0].NominalGDP)
		assert.Equal(t, []float64{1.2e6}, records[0].RealGDP)
	})

	t.Run("records institutions", func(t *testing.T) {
		env := newTestEnv(t).withSnapshots(t)
		env.sim.advance(SecondsPerDay + 30)
		bank := newInstitution("bank")
		g := env.newGroup(t, agentsOf(bank))
		require.NoError(t, g.Initialize(ctx))

		require.NoError(t, g.SaveStatus(ctx))
		records, err := snapshot.ReadAvro[snapshot.InstitutionStatus](snapshot.AvroPath(g.SnapshotDir(), snapshot.KindStatus))
		require.NoError(t, err)
		require.Len(t, records, 1)
		rec := records[0]
		assert.Equal(t, "bank", rec.ID)
		assert.Equal(t, 1, rec.Day)
		assert.InDelta(t, 30, rec.T, 0)
		assert.Equal(t, 6, rec.Type)
		assert.Equal(t, []float64{1.5e6, 1.6e6}, rec.NominalGDP)
		assert.Equal(t, []float64{1.2e6}, rec.RealGDP)
		assert.Equal(t, []float64{0.05}, rec.Unemployment)
		assert.Empty(t, rec.Wages)
		assert.Equal(t, []float64{9.5}, rec.Prices)
		assert.Equal(t, int64(12), rec.Inventory)
		assert.InDelta(t, 9.5, rec.Price, 0)
		assert.InDelta(t, 0.03, rec.InterestRate, 0)
		assert.Equal(t, []float64{0, 1000}, rec.BracketCutoffs)
		assert.Equal(t, []float64{0.1, 0.2}, rec.BracketRates)
		assert.Equal(t, []string{"a1", "a2"}, rec.Employees)
		assert.Empty(t, rec.Customers)
	})
}

func TestParentID(t *testing.T) {
	tests := []struct {
		name     string
		position string
		want     int64
	}{
		{"aoi wins", `{"aoi_position":{"aoi_id":7},"lane_position":{"lane_id":9}}`, 7},
		{"lane", `{"lane_position":{"lane_id":9}}`, 9},
		{"aoi without id", `{"aoi_position":{},"lane_position":{"lane_id":9}}`, 9},
		{"neither", `{"longlat_position":{}}`, snapshot.UnknownParentID},
		{"null", `null`, snapshot.UnknownParentID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parentID(gjson.Parse(tt.position)))
		})
	}
}
