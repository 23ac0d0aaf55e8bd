package reference

import (
	"github.com/opensource-finance/ticpe/internal/domain"
)

// DefaultRules returns the eligibility gates followed by the advisory rules.
// Gates are evaluated in order and the first failing one gives the reason.
// Advisory rules emit their message in order when they hold.
func DefaultRules() []domain.RuleConfig {
	return []domain.RuleConfig{
		// Gates
		{
			ID:         "gate-sector",
			Kind:       domain.RuleKindGate,
			Expression: `sector in eligible_sectors`,
			Message:    "❌ Secteur d'activité non éligible à la TICPE",
			Enabled:    true,
		},
		{
			ID:         "gate-professional-vehicles",
			Kind:       domain.RuleKindGate,
			Expression: `professional_vehicles`,
			Message:    "❌ Aucun véhicule professionnel déclaré",
			Enabled:    true,
		},
		{
			ID:         "gate-min-consumption",
			Kind:       domain.RuleKindGate,
			Expression: `consumption_liters >= min_consumption`,
			Message:    "❌ Consommation carburant insuffisante (< {min_consumption} litres/an)",
			Enabled:    true,
		},

		// Recommendations
		{
			ID:         "rec-eligible",
			Kind:       domain.RuleKindRecommendation,
			Expression: `final_amount > 0.0`,
			Message:    "🎯 ÉLIGIBILITÉ CONFIRMÉE ! Gain potentiel de {amount}€",
			Enabled:    true,
		},
		{
			ID:         "rec-benchmark-below",
			Kind:       domain.RuleKindRecommendation,
			Expression: `has_benchmark && benchmark_performance == 'below'`,
			Message:    "⚠️ Votre estimation ({amount}€) est inférieure à la moyenne du secteur ({benchmark}€)",
			Enabled:    true,
		},
		{
			ID:         "rec-benchmark-audit",
			Kind:       domain.RuleKindRecommendation,
			Expression: `has_benchmark && benchmark_performance == 'below'`,
			Message:    "💡 Un audit approfondi pourrait révéler des opportunités supplémentaires",
			Enabled:    true,
		},
		{
			ID:         "rec-benchmark-above",
			Kind:       domain.RuleKindRecommendation,
			Expression: `has_benchmark && benchmark_performance == 'above'`,
			Message:    "✅ Votre estimation est supérieure à la moyenne du secteur (+{percent}%)",
			Enabled:    true,
		},
		{
			ID:         "rec-maturity-high",
			Kind:       domain.RuleKindRecommendation,
			Expression: `maturity_score >= 80.0`,
			Message:    "✅ Maturité administrative élevée - Récupération optimale possible",
			Enabled:    true,
		},
		{
			ID:         "rec-maturity-medium",
			Kind:       domain.RuleKindRecommendation,
			Expression: `maturity_score >= 60.0 && maturity_score < 80.0`,
			Message:    "⚠️ Maturité administrative moyenne - Amélioration possible",
			Enabled:    true,
		},
		{
			ID:         "rec-maturity-low",
			Kind:       domain.RuleKindRecommendation,
			Expression: `maturity_score >= 40.0 && maturity_score < 60.0`,
			Message:    "🔧 Maturité administrative faible - Accompagnement nécessaire",
			Enabled:    true,
		},
		{
			ID:         "rec-maturity-insufficient",
			Kind:       domain.RuleKindRecommendation,
			Expression: `maturity_score < 40.0`,
			Message:    "❌ Maturité administrative insuffisante - Formation requise",
			Enabled:    true,
		},
		{
			ID:         "rec-fuel-cards",
			Kind:       domain.RuleKindRecommendation,
			Expression: `fuel_cards != '` + domain.CardsAllStations + `'`,
			Message:    "💳 Misez sur les cartes carburant professionnelles pour une traçabilité optimale",
			Enabled:    true,
		},
		{
			ID:         "rec-nominative-invoices",
			Kind:       domain.RuleKindRecommendation,
			Expression: `nominative_invoices != '` + domain.NominativeAlways + `'`,
			Message:    "📄 Améliorez la conservation des factures nominatives avec numéro d'immatriculation",
			Enabled:    true,
		},
		{
			ID:         "rec-declarations",
			Kind:       domain.RuleKindRecommendation,
			Expression: `declarations != '` + domain.DeclarationsRegular + `'`,
			Message:    "📋 Mettez en place des déclarations TICPE régulières",
			Enabled:    true,
		},
		{
			ID:         "rec-timeline-large",
			Kind:       domain.RuleKindRecommendation,
			Expression: `timeline_total > 50000.0`,
			Message:    "💰 Récupération importante - Audit approfondi recommandé",
			Enabled:    true,
		},
		{
			ID:         "rec-timeline-small",
			Kind:       domain.RuleKindRecommendation,
			Expression: `timeline_total < 10000.0`,
			Message:    "🔍 Récupération modeste - Vérifiez l'optimisation",
			Enabled:    true,
		},
		{
			ID:         "rec-follow-up",
			Kind:       domain.RuleKindRecommendation,
			Expression: `true`,
			Message:    "🔄 Suivi et récupération année suivante inclus dans notre accompagnement",
			Enabled:    true,
		},

		// Risks
		{
			ID:         "risk-maturity",
			Kind:       domain.RuleKindRisk,
			Expression: `maturity_score < 40.0`,
			Message:    "⚠️ Maturité administrative insuffisante",
			Enabled:    true,
		},
		{
			ID:         "risk-limited-usage",
			Kind:       domain.RuleKindRisk,
			Expression: `usage_known && usage_percent < 80.0`,
			Message:    "⚠️ Usage professionnel limité",
			Enabled:    true,
		},
		{
			ID:         "risk-missing-invoices",
			Kind:       domain.RuleKindRisk,
			Expression: `fuel_invoices.contains('Non')`,
			Message:    "⚠️ Absence de factures carburant",
			Enabled:    true,
		},
		{
			ID:   "risk-low-recovery-sector",
			Kind: domain.RuleKindRisk,
			Expression: `sector in ['` + string(domain.SectorConstruction) + `', '` +
				string(domain.SectorAgriculture) + `']`,
			Message: "⚠️ Secteur à faible performance de récupération",
			Enabled: true,
		},
	}
}
