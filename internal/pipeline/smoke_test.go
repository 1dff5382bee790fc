package pipeline

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wattwise/internal"
	"wattwise/internal/metrics"
	"wattwise/internal/storage"
)

func newTestService(t *testing.T, filterExpr string) (*ProcessingService, *storage.DB) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	filter, err := NewPublishFilter(filterExpr)
	require.NoError(t, err)
	engine := NewEngine(DefaultSettings(), WithClock(func() time.Time { return fixedNow }))
	return NewProcessingService(db, engine, filter, metrics.NewRegistry()), db
}

func TestSmokeCSVToXLSX(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t, "")

	res, err := svc.ProcessFile(ctx, "", filepath.Join("testdata", "plans_sample.csv"))
	require.NoError(t, err)
	assert.Equal(t, storage.RunStatusOK, res.Status)
	assert.Equal(t, 8, res.Stats.Seen)
	assert.Equal(t, 5, res.Stats.Accepted)
	assert.Equal(t, 1, res.Stats.Rejected[internal.RejectLowRate])
	assert.Equal(t, 1, res.Stats.Rejected[internal.RejectDuplicate])
	assert.Equal(t, 1, res.Stats.Rejected[internal.RejectShortTerm])
	assert.Equal(t, 5, res.Replace.Inserted)

	stored, err := db.ListPlans(ctx, storage.PlanQuery{})
	require.NoError(t, err)
	require.Len(t, stored, 5)
	assert.Equal(t, "Acme Power", stored[0].Provider)

	byName := map[string]internal.CanonicalPlan{}
	for _, p := range stored {
		byName[p.PlanName] = p
	}
	credit := byName["Credit Saver 12"]
	assert.Equal(t, "AEP_TCC", credit.TDU)
	assert.True(t, credit.HasRebate)
	assert.True(t, credit.IsNewCustomer)
	assert.Equal(t, "https://bright.example/enroll", credit.EnrollURL)
	assert.Equal(t, "https://www.txu.com/enrollment", byName["Simple Rate 24"].EnrollURL)
	prepaid := byName["Pay As You Go 6"]
	assert.True(t, prepaid.IsPrepaid)
	assert.Equal(t, internal.RateVariable, prepaid.RateType)
	owl := byName["Free Nights 12"]
	assert.Equal(t, "LPL", owl.TDU)
	assert.True(t, owl.HasBaseCharge)
	assert.True(t, owl.HasPassThrough)
	assert.True(t, owl.HasWarning(internal.WarnHighCancelFee))

	latest, err := db.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, res.RunID, latest.ID)
	assert.Equal(t, 5, latest.Published)

	out := filepath.Join(t.TempDir(), "plans.xlsx")
	n, err := svc.ExportSnapshot(ctx, out, storage.PlanQuery{TDU: "ONCOR"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestFailedRunKeepsPreviousSnapshot(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t, "")

	_, err := svc.ProcessFile(ctx, InputCSV, filepath.Join("testdata", "plans_sample.csv"))
	require.NoError(t, err)

	bad := []internal.RawRecord{{"[RepCompany]": "X", "[Product]": "Y", "[TduCompanyName]": "Oncor", "[kwh1000]": "1.2"}}
	res, err := svc.ProcessRecords(ctx, bad)
	require.ErrorIs(t, err, ErrNoneAccepted)
	assert.Equal(t, storage.RunStatusRejected, res.Status)

	n, err := db.CountPlans(ctx, internal.SourcePowerToChoose)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	latest, err := db.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, storage.RunStatusRejected, latest.Status)
	assert.Contains(t, latest.Error, "no records passed validation")

	_, err = svc.ProcessRecords(ctx, nil)
	require.ErrorIs(t, err, ErrNoRecords)
}

func TestPublishFilterLimitsSnapshot(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t, `rate_type == "fixed" && !is_prepaid && !is_tou`)

	res, err := svc.ProcessFile(ctx, InputCSV, filepath.Join("testdata", "plans_sample.csv"))
	require.NoError(t, err)
	assert.Equal(t, 5, res.Stats.Accepted)
	assert.Equal(t, 3, res.Published)

	stored, err := db.ListPlans(ctx, storage.PlanQuery{})
	require.NoError(t, err)
	for _, p := range stored {
		assert.False(t, p.IsPrepaid)
		assert.False(t, p.IsTOU)
	}
}
