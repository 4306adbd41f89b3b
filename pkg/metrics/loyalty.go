package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// LoyaltyMetrics records ledger and reward activity.
type LoyaltyMetrics struct {
	entries            *prometheus.CounterVec
	points             *prometheus.CounterVec
	redemptionRejects  prometheus.Counter
	duplicateGrants    prometheus.Counter
	referralsQualified prometheus.Counter
}

// NewLoyaltyMetrics registers the loyalty metrics on the provided registerer.
func NewLoyaltyMetrics(reg prometheus.Registerer) *LoyaltyMetrics {
	if reg == nil {
		return &LoyaltyMetrics{}
	}
	entries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_entries_total",
		Help: "Ledger entries appended, by kind and source.",
	}, []string{"kind", "source"})
	points := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_points_total",
		Help: "Points moved through the ledger, by kind and source.",
	}, []string{"kind", "source"})
	redemptionRejects := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_redemption_rejects_total",
		Help: "Redemptions rejected for insufficient balance.",
	})
	duplicateGrants := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_duplicate_grants_total",
		Help: "Purchase grants absorbed by the order uniqueness index.",
	})
	referralsQualified := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "referrals_qualified_total",
		Help: "Referral relationships that reached qualified.",
	})
	reg.MustRegister(entries, points, redemptionRejects, duplicateGrants, referralsQualified)
	return &LoyaltyMetrics{
		entries:            entries,
		points:             points,
		redemptionRejects:  redemptionRejects,
		duplicateGrants:    duplicateGrants,
		referralsQualified: referralsQualified,
	}
}

// ObserveEntry records an appended ledger entry and the points it moved.
func (m *LoyaltyMetrics) ObserveEntry(kind, source string, amount int64) {
	if m == nil || m.entries == nil {
		return
	}
	m.entries.WithLabelValues(normalizeLabel(kind), normalizeLabel(source)).Inc()
	m.points.WithLabelValues(normalizeLabel(kind), normalizeLabel(source)).Add(float64(amount))
}

// IncRedemptionReject increments the insufficient-balance reject counter.
func (m *LoyaltyMetrics) IncRedemptionReject() {
	if m == nil || m.redemptionRejects == nil {
		return
	}
	m.redemptionRejects.Inc()
}

// IncDuplicateGrant increments the duplicate purchase grant counter.
func (m *LoyaltyMetrics) IncDuplicateGrant() {
	if m == nil || m.duplicateGrants == nil {
		return
	}
	m.duplicateGrants.Inc()
}

// IncReferralQualified increments the qualified referral counter.
func (m *LoyaltyMetrics) IncReferralQualified() {
	if m == nil || m.referralsQualified == nil {
		return
	}
	m.referralsQualified.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
