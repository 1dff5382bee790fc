package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"wattwise/internal"
)

const insertBatchSize = 50

// ReplaceResult reports the delete and insert phases of a snapshot swap
// separately, so a failed delete with a good insert (or the reverse) is
// visible to the caller.
type ReplaceResult struct {
	Deleted   int64
	Inserted  int
	Failed    int
	DeleteErr error
	InsertErr error
}

func (r ReplaceResult) Err() error {
	return errors.Join(r.DeleteErr, r.InsertErr)
}

const planColumns = `source, id_key, provider, plan_name, tdu,
  rate_500, rate_1000, rate_2000, weighted_rate,
  term_months, renewable_pct, cancel_fee, rate_type,
  is_prepaid, is_tou, is_fixed, is_new_customer, is_promotion,
  fees_details, special_terms, promo_desc,
  has_rebate, rebate_amount, has_base_charge, base_charge_amount,
  has_min_usage_fee, min_usage_kwh, has_pass_through, has_usage_fees_credits, fine_print_flags,
  rate_spread, is_gotcha, warnings, transparency_score,
  efl_url, enroll_url, terms_url, website, enroll_phone, processed_at`

const planColumnCount = 40

// ReplacePlans swaps the stored snapshot for source with plans. Rows are
// inserted in batches of 50; a failing batch is rolled back and counted while
// the remaining batches still go in.
func (d *DB) ReplacePlans(ctx context.Context, source string, plans []internal.CanonicalPlan) ReplaceResult {
	var res ReplaceResult

	deleted, err := d.conn.ExecContext(ctx, d.rebind(`DELETE FROM plans WHERE source = ?`), source)
	if err != nil {
		res.DeleteErr = fmt.Errorf("delete plans: %w", err)
	} else if n, err := deleted.RowsAffected(); err == nil {
		res.Deleted = n
	}

	var insertErrs []error
	for start := 0; start < len(plans); start += insertBatchSize {
		end := min(start+insertBatchSize, len(plans))
		batch := plans[start:end]
		if err := d.insertPlanBatch(ctx, source, batch); err != nil {
			res.Failed += len(batch)
			insertErrs = append(insertErrs, fmt.Errorf("insert batch %d-%d: %w", start, end-1, err))
			continue
		}
		res.Inserted += len(batch)
	}
	res.InsertErr = errors.Join(insertErrs...)
	return res
}

func (d *DB) insertPlanBatch(ctx context.Context, source string, batch []internal.CanonicalPlan) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", planColumnCount), ", ")
	stmt, err := tx.PrepareContext(ctx, d.rebind(`INSERT INTO plans (`+planColumns+`) VALUES (`+placeholders+`)`))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range batch {
		if _, err := stmt.ExecContext(ctx, planArgs(source, p)...); err != nil {
			return fmt.Errorf("plan %q/%q: %w", p.Provider, p.PlanName, err)
		}
	}
	return tx.Commit()
}

func planArgs(source string, p internal.CanonicalPlan) []any {
	flags, _ := json.Marshal(nonNilStrings(p.FinePrintFlags))
	warnings, _ := json.Marshal(nonNilWarnings(p.Warnings))

	var minUsage any
	if p.MinUsageKWh != nil {
		minUsage = *p.MinUsageKWh
	}

	return []any{
		source, p.IDKey, p.Provider, p.PlanName, p.TDU,
		p.Rate500, p.Rate1000, p.Rate2000, p.WeightedRate,
		p.TermMonths, p.RenewablePct, p.CancelFee.String(), string(p.RateType),
		boolInt(p.IsPrepaid), boolInt(p.IsTOU), boolInt(p.IsFixed), boolInt(p.IsNewCustomer), boolInt(p.IsPromotion),
		p.FeesDetails, p.SpecialTerms, p.PromoDesc,
		boolInt(p.HasRebate), decimalArg(p.RebateAmount), boolInt(p.HasBaseCharge), decimalArg(p.BaseChargeAmount),
		boolInt(p.HasMinUsageFee), minUsage, boolInt(p.HasPassThrough), boolInt(p.HasUsageFeesCredits), string(flags),
		p.RateSpread, boolInt(p.IsGotcha), string(warnings), p.TransparencyScore,
		p.EFLURL, p.EnrollURL, p.TermsURL, p.Website, p.EnrollPhone, p.ProcessedAt.UTC().Format(timeLayout),
	}
}

// PlanQuery filters ListPlans. Zero values mean no filter; Limit 0 means all.
type PlanQuery struct {
	Source        string
	TDU           string
	MinScore      int
	ExcludeGotcha bool
	Limit         int
}

// ListPlans returns stored plans cheapest first, then most transparent.
func (d *DB) ListPlans(ctx context.Context, q PlanQuery) ([]internal.CanonicalPlan, error) {
	var (
		where []string
		args  []any
	)
	if q.Source != "" {
		where = append(where, "source = ?")
		args = append(args, q.Source)
	}
	if q.TDU != "" {
		where = append(where, "tdu = ?")
		args = append(args, q.TDU)
	}
	if q.MinScore > 0 {
		where = append(where, "transparency_score >= ?")
		args = append(args, q.MinScore)
	}
	if q.ExcludeGotcha {
		where = append(where, "is_gotcha = 0")
	}

	query := `SELECT ` + planColumns + ` FROM plans`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY weighted_rate ASC, transparency_score DESC, provider ASC, plan_name ASC`
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	rows, err := d.conn.QueryContext(ctx, d.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []internal.CanonicalPlan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (d *DB) CountPlans(ctx context.Context, source string) (int, error) {
	var n int
	err := d.conn.QueryRowContext(ctx, d.rebind(`SELECT COUNT(*) FROM plans WHERE source = ?`), source).Scan(&n)
	return n, err
}

func scanPlan(rows *sql.Rows) (internal.CanonicalPlan, error) {
	var (
		p                                                   internal.CanonicalPlan
		rateType, cancelFee, flagsJSON, warningsJSON, stamp string
		prepaid, tou, fixed, newCustomer, promotion         int
		rebate, base, minUsage, pass, usageCredits, gotcha  int
		rebateAmount, baseAmount                            sql.NullString
		minUsageKWh                                         sql.NullInt64
	)
	if err := rows.Scan(
		&p.Source, &p.IDKey, &p.Provider, &p.PlanName, &p.TDU,
		&p.Rate500, &p.Rate1000, &p.Rate2000, &p.WeightedRate,
		&p.TermMonths, &p.RenewablePct, &cancelFee, &rateType,
		&prepaid, &tou, &fixed, &newCustomer, &promotion,
		&p.FeesDetails, &p.SpecialTerms, &p.PromoDesc,
		&rebate, &rebateAmount, &base, &baseAmount,
		&minUsage, &minUsageKWh, &pass, &usageCredits, &flagsJSON,
		&p.RateSpread, &gotcha, &warningsJSON, &p.TransparencyScore,
		&p.EFLURL, &p.EnrollURL, &p.TermsURL, &p.Website, &p.EnrollPhone, &stamp,
	); err != nil {
		return internal.CanonicalPlan{}, err
	}

	p.RateType = internal.RateType(rateType)
	p.CancelFee, _ = decimal.NewFromString(cancelFee)
	p.IsPrepaid, p.IsTOU, p.IsFixed = prepaid == 1, tou == 1, fixed == 1
	p.IsNewCustomer, p.IsPromotion = newCustomer == 1, promotion == 1
	p.HasRebate, p.HasBaseCharge, p.HasMinUsageFee = rebate == 1, base == 1, minUsage == 1
	p.HasPassThrough, p.HasUsageFeesCredits, p.IsGotcha = pass == 1, usageCredits == 1, gotcha == 1
	p.RebateAmount = decimalFromNull(rebateAmount)
	p.BaseChargeAmount = decimalFromNull(baseAmount)
	if minUsageKWh.Valid {
		n := int(minUsageKWh.Int64)
		p.MinUsageKWh = &n
	}
	p.FinePrintFlags = []string{}
	_ = json.Unmarshal([]byte(flagsJSON), &p.FinePrintFlags)
	p.Warnings = []internal.Warning{}
	_ = json.Unmarshal([]byte(warningsJSON), &p.Warnings)
	if ts, err := time.Parse(timeLayout, stamp); err == nil {
		p.ProcessedAt = ts
	}
	return p, nil
}

func decimalArg(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func decimalFromNull(s sql.NullString) *decimal.Decimal {
	if !s.Valid {
		return nil
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return nil
	}
	return &d
}

func nonNilStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func nonNilWarnings(in []internal.Warning) []internal.Warning {
	if in == nil {
		return []internal.Warning{}
	}
	return in
}
