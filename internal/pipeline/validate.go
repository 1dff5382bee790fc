package pipeline

import "wattwise/internal"

// RunContext holds everything one run accumulates: the dedup set and the
// counters. It is owned by a single run and never shared.
type RunContext struct {
	seen  map[internal.Identity]struct{}
	stats internal.RunStats
}

func NewRunContext() *RunContext {
	return &RunContext{
		seen: make(map[internal.Identity]struct{}),
		stats: internal.RunStats{
			Rejected: make(map[internal.RejectReason]int),
		},
	}
}

func (rc *RunContext) markSeen() { rc.stats.Seen++ }

func (rc *RunContext) markAccepted() { rc.stats.Accepted++ }

func (rc *RunContext) reject(reason internal.RejectReason) { rc.stats.Rejected[reason]++ }

// remember records rec's identity so later copies in the run are duplicates.
func (rc *RunContext) remember(rec NormalizedRecord) {
	rc.seen[recordIdentity(rec)] = struct{}{}
}

// Stats returns a copy of the counters so far.
func (rc *RunContext) Stats() internal.RunStats {
	out := internal.RunStats{
		Seen:     rc.stats.Seen,
		Accepted: rc.stats.Accepted,
		Rejected: make(map[internal.RejectReason]int, len(rc.stats.Rejected)),
	}
	for reason, n := range rc.stats.Rejected {
		out.Rejected[reason] = n
	}
	return out
}

// Validate applies the ordered admission checks. The first failing check
// decides the reason and is counted on rc. The identity is not recorded here:
// callers call rc.remember once the plan has been built.
func Validate(rec NormalizedRecord, s Settings, rc *RunContext) (internal.RejectReason, bool) {
	reason, ok := checkRecord(rec, s, rc)
	if !ok {
		rc.reject(reason)
		return reason, false
	}
	return "", true
}

func checkRecord(rec NormalizedRecord, s Settings, rc *RunContext) (internal.RejectReason, bool) {
	if rec.Provider == "" || rec.PlanName == "" {
		return internal.RejectNoData, false
	}
	if rec.Rate1000 == nil {
		return internal.RejectNoData, false
	}
	rate := *rec.Rate1000
	if rate < s.MinRate {
		return internal.RejectLowRate, false
	}
	if rate > s.MaxRate {
		return internal.RejectHighRate, false
	}
	if rec.TermMonths < s.MinTerm {
		return internal.RejectShortTerm, false
	}
	if rec.RawTDU == "" {
		return internal.RejectNoData, false
	}
	if _, dup := rc.seen[recordIdentity(rec)]; dup {
		return internal.RejectDuplicate, false
	}
	return "", true
}

func recordIdentity(rec NormalizedRecord) internal.Identity {
	id := internal.Identity{Provider: rec.Provider, PlanName: rec.PlanName, TDU: rec.TDU}
	if rec.Rate1000 != nil {
		id.Rate1000 = *rec.Rate1000
	}
	return id
}
