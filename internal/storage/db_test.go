package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wattwise/internal"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "wattwise.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func samplePlan(i int, tdu string) internal.CanonicalPlan {
	rebate := decimal.NewFromInt(50)
	kwh := 800
	return internal.CanonicalPlan{
		Source:            internal.SourcePowerToChoose,
		Provider:          fmt.Sprintf("Provider %d", i),
		PlanName:          fmt.Sprintf("Plan %d", i),
		TDU:               tdu,
		Rate500:           12,
		Rate1000:          float64(10 + i%5),
		Rate2000:          11,
		WeightedRate:      float64(10+i%5) + 0.25,
		TermMonths:        12,
		RenewablePct:      30,
		CancelFee:         decimal.RequireFromString("150.50"),
		RateType:          internal.RateFixed,
		IsFixed:           true,
		HasRebate:         i%2 == 0,
		RebateAmount:      &rebate,
		HasMinUsageFee:    true,
		MinUsageKWh:       &kwh,
		FinePrintFlags:    []string{"bill credit"},
		IsGotcha:          i%3 == 0,
		Warnings:          []internal.Warning{internal.WarnRebateCredit, internal.WarnMinUsageFee},
		TransparencyScore: 100 - (i%4)*20,
		ProcessedAt:       time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestReplacePlansAndList(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	var plans []internal.CanonicalPlan
	for i := 0; i < 120; i++ {
		tdu := "ONCOR"
		if i%2 == 1 {
			tdu = "CENTPT"
		}
		plans = append(plans, samplePlan(i, tdu))
	}

	res := db.ReplacePlans(ctx, internal.SourcePowerToChoose, plans)
	require.NoError(t, res.Err())
	assert.Equal(t, 120, res.Inserted)
	assert.Zero(t, res.Deleted)

	all, err := db.ListPlans(ctx, PlanQuery{})
	require.NoError(t, err)
	require.Len(t, all, 120)
	for i := 1; i < len(all); i++ {
		prev, cur := all[i-1], all[i]
		ordered := prev.WeightedRate < cur.WeightedRate ||
			(prev.WeightedRate == cur.WeightedRate && prev.TransparencyScore >= cur.TransparencyScore)
		require.True(t, ordered, "row %d out of order", i)
	}

	oncor, err := db.ListPlans(ctx, PlanQuery{TDU: "ONCOR", MinScore: 60, ExcludeGotcha: true, Limit: 5})
	require.NoError(t, err)
	require.NotEmpty(t, oncor)
	assert.LessOrEqual(t, len(oncor), 5)
	for _, p := range oncor {
		assert.Equal(t, "ONCOR", p.TDU)
		assert.GreaterOrEqual(t, p.TransparencyScore, 60)
		assert.False(t, p.IsGotcha)
	}

	res = db.ReplacePlans(ctx, internal.SourcePowerToChoose, plans[:2])
	require.NoError(t, res.Err())
	assert.EqualValues(t, 120, res.Deleted)
	assert.Equal(t, 2, res.Inserted)
	n, err := db.CountPlans(ctx, internal.SourcePowerToChoose)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestPlanRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	want := samplePlan(4, "TNMP")
	want.EnrollURL = "https://example.com/enroll"

	require.NoError(t, db.ReplacePlans(ctx, want.Source, []internal.CanonicalPlan{want}).Err())
	got, err := db.ListPlans(ctx, PlanQuery{})
	require.NoError(t, err)
	require.Len(t, got, 1)

	p := got[0]
	assert.Equal(t, want.Provider, p.Provider)
	assert.Equal(t, "150.5", p.CancelFee.String())
	require.NotNil(t, p.RebateAmount)
	assert.Equal(t, "50", p.RebateAmount.String())
	assert.Nil(t, p.BaseChargeAmount)
	require.NotNil(t, p.MinUsageKWh)
	assert.Equal(t, 800, *p.MinUsageKWh)
	assert.Equal(t, want.Warnings, p.Warnings)
	assert.Equal(t, want.FinePrintFlags, p.FinePrintFlags)
	assert.True(t, p.IsFixed)
	assert.True(t, p.HasRebate)
	assert.Equal(t, want.ProcessedAt, p.ProcessedAt)
	assert.Equal(t, "https://example.com/enroll", p.EnrollURL)
}

func TestReplacePlansReportsBothPhases(t *testing.T) {
	db := openTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := db.ReplacePlans(ctx, internal.SourcePowerToChoose, []internal.CanonicalPlan{samplePlan(1, "ONCOR")})
	assert.Error(t, res.DeleteErr)
	assert.Error(t, res.InsertErr)
	assert.Equal(t, 1, res.Failed)
	assert.Zero(t, res.Inserted)
	assert.Error(t, res.Err())
}

func TestRuns(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	_, err := db.LatestRun(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	first := internal.RunRow{
		ID:        "run-1",
		Source:    internal.SourcePowerToChoose,
		Status:    RunStatusOK,
		Stats:     internal.RunStats{Seen: 10, Accepted: 8, Rejected: map[internal.RejectReason]int{internal.RejectLowRate: 2}},
		Timings:   map[string]float64{"engine_ms": 12.5},
		Published: 8,
		CreatedAt: "2026-03-01T00:00:00.000000000Z",
	}
	second := first
	second.ID = "run-2"
	second.Status = RunStatusRejected
	second.Error = "no records passed validation"
	second.CreatedAt = "2026-03-02T00:00:00.000000000Z"
	require.NoError(t, db.InsertRun(ctx, first))
	require.NoError(t, db.InsertRun(ctx, second))

	latest, err := db.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-2", latest.ID)
	assert.Equal(t, RunStatusRejected, latest.Status)
	assert.Equal(t, 2, latest.Stats.Rejected[internal.RejectLowRate])
	assert.Equal(t, 12.5, latest.Timings["engine_ms"])

	runs, err := db.ListRuns(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestSnapshots(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	snap := internal.SnapshotRow{Source: internal.SourcePowerToChoose, Hash: "abc", RawRef: "/tmp/abc.csv", SizeBytes: 10, FetchedAt: "2026-03-01T00:00:00.000000000Z"}

	fresh, err := db.InsertSnapshot(ctx, snap)
	require.NoError(t, err)
	assert.True(t, fresh)

	snap.FetchedAt = "2026-03-02T00:00:00.000000000Z"
	fresh, err = db.InsertSnapshot(ctx, snap)
	require.NoError(t, err)
	assert.False(t, fresh)

	latest, err := db.LatestSnapshot(ctx, internal.SourcePowerToChoose)
	require.NoError(t, err)
	assert.Equal(t, snap.FetchedAt, latest.FetchedAt)

	_, err = db.GetSnapshot(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMetadataAndMarketData(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	v, err := db.GetMetadata(ctx, "source.last_sync")
	require.NoError(t, err)
	assert.Nil(t, v)
	require.NoError(t, db.SetMetadata(ctx, "source.last_sync", "a"))
	require.NoError(t, db.SetMetadata(ctx, "source.last_sync", "b"))
	v, err = db.GetMetadata(ctx, "source.last_sync")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "b", *v)

	_, _, err = db.LatestMarketData(ctx)
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, db.SaveMarketData(ctx, []byte(`{"status":"normal"}`)))
	require.NoError(t, db.SaveMarketData(ctx, []byte(`{"status":"high"}`)))
	payload, updated, err := db.LatestMarketData(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"high"}`, string(payload))
	assert.NotEmpty(t, updated)
}

func TestRebind(t *testing.T) {
	pg := &DB{driver: DriverPostgres}
	assert.Equal(t, "SELECT * FROM plans WHERE tdu = $1 AND transparency_score >= $2", pg.rebind("SELECT * FROM plans WHERE tdu = ? AND transparency_score >= ?"))
	lite := &DB{driver: DriverSQLite}
	assert.Equal(t, "a = ?", lite.rebind("a = ?"))
}

func TestOpenWithUnknownDriver(t *testing.T) {
	_, err := OpenWith(Options{Driver: "mysql"})
	require.Error(t, err)
}
