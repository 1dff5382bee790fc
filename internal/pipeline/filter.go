package pipeline

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"wattwise/internal"
)

// PublishFilter decides which scored plans go into the published snapshot.
// The expression sees one plan at a time, e.g.
//
//	rate_type == "fixed" && !is_prepaid && !is_tou
//
// An empty expression publishes everything.
type PublishFilter struct {
	expr    string
	program cel.Program
}

func NewPublishFilter(expr string) (*PublishFilter, error) {
	f := &PublishFilter{expr: expr}
	if expr == "" {
		return f, nil
	}

	env, err := cel.NewEnv(
		cel.Variable("provider", cel.StringType),
		cel.Variable("plan_name", cel.StringType),
		cel.Variable("tdu", cel.StringType),
		cel.Variable("rate_500", cel.DoubleType),
		cel.Variable("rate_1000", cel.DoubleType),
		cel.Variable("rate_2000", cel.DoubleType),
		cel.Variable("weighted_rate", cel.DoubleType),
		cel.Variable("rate_spread", cel.DoubleType),
		cel.Variable("term_months", cel.IntType),
		cel.Variable("renewable_pct", cel.IntType),
		cel.Variable("cancel_fee", cel.DoubleType),
		cel.Variable("rate_type", cel.StringType),
		cel.Variable("is_prepaid", cel.BoolType),
		cel.Variable("is_tou", cel.BoolType),
		cel.Variable("is_fixed", cel.BoolType),
		cel.Variable("is_new_customer", cel.BoolType),
		cel.Variable("is_promotion", cel.BoolType),
		cel.Variable("is_gotcha", cel.BoolType),
		cel.Variable("transparency_score", cel.IntType),
		cel.Variable("warnings", cel.ListType(cel.StringType)),
	)
	if err != nil {
		return nil, fmt.Errorf("create filter environment: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile publish filter: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(types.BoolType) {
		return nil, fmt.Errorf("publish filter must be boolean, got %s", ast.OutputType())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build publish filter: %w", err)
	}
	f.program = prg
	return f, nil
}

func (f *PublishFilter) Expression() string {
	if f == nil {
		return ""
	}
	return f.expr
}

// Apply keeps the plans the expression accepts, in order.
func (f *PublishFilter) Apply(plans []internal.CanonicalPlan) ([]internal.CanonicalPlan, error) {
	if f == nil || f.program == nil {
		return plans, nil
	}
	out := make([]internal.CanonicalPlan, 0, len(plans))
	for _, p := range plans {
		val, _, err := f.program.Eval(planActivation(p))
		if err != nil {
			return nil, fmt.Errorf("evaluate publish filter for %q/%q: %w", p.Provider, p.PlanName, err)
		}
		if keep, ok := val.(types.Bool); ok && bool(keep) {
			out = append(out, p)
		}
	}
	return out, nil
}

func planActivation(p internal.CanonicalPlan) map[string]any {
	warnings := make([]string, len(p.Warnings))
	for i, w := range p.Warnings {
		warnings[i] = string(w)
	}
	return map[string]any{
		"provider":           p.Provider,
		"plan_name":          p.PlanName,
		"tdu":                p.TDU,
		"rate_500":           p.Rate500,
		"rate_1000":          p.Rate1000,
		"rate_2000":          p.Rate2000,
		"weighted_rate":      p.WeightedRate,
		"rate_spread":        p.RateSpread,
		"term_months":        int64(p.TermMonths),
		"renewable_pct":      int64(p.RenewablePct),
		"cancel_fee":         p.CancelFee.InexactFloat64(),
		"rate_type":          string(p.RateType),
		"is_prepaid":         p.IsPrepaid,
		"is_tou":             p.IsTOU,
		"is_fixed":           p.IsFixed,
		"is_new_customer":    p.IsNewCustomer,
		"is_promotion":       p.IsPromotion,
		"is_gotcha":          p.IsGotcha,
		"transparency_score": int64(p.TransparencyScore),
		"warnings":           warnings,
	}
}
