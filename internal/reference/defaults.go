package reference

import (
	"github.com/opensource-finance/ticpe/internal/domain"
)

// DefaultVersion identifies the embedded dataset.
const DefaultVersion = "2024.1"

// Default returns the canonical dataset. Rates are in €/1000 L; the 2022 and
// 2023 rows are scaled from 2024 by the published year-on-year ratios.
func Default() *Dataset {
	return &Dataset{
		ReferenceTables: domain.ReferenceTables{
			Version: DefaultVersion,
			Year:    2024,
			Lookup: domain.LookupDefaults{
				FuelRate:                  61.07,
				DieselWeight:              0.7,
				OtherFuelWeight:           0.3,
				VehicleCoefficient:        0.8,
				UnknownVehicleCoefficient: 0.8,
			},
			Sectors: []domain.SectorRow{
				{Sector: domain.SectorFreightTransport, Performance: 95, DefaultFuel: domain.FuelDiesel},
				{Sector: domain.SectorPassengerTransport, Performance: 90, DefaultFuel: domain.FuelDiesel},
				{Sector: domain.SectorTaxi, Performance: 75, DefaultFuel: domain.FuelDiesel},
				{Sector: domain.SectorConstruction, Performance: 70, DefaultFuel: domain.FuelOffRoad},
				{Sector: domain.SectorAgriculture, Performance: 60, DefaultFuel: domain.FuelOffRoad},
			},
			FuelRates: []domain.FuelRateRow{
				{FuelType: domain.FuelDiesel, Year: 2024, Rate: 61.07},
				{FuelType: domain.FuelDiesel, Year: 2023, Rate: 60.38},
				{FuelType: domain.FuelDiesel, Year: 2022, Rate: 59.69},
				{FuelType: domain.FuelOffRoad, Year: 2024, Rate: 61.07},
				{FuelType: domain.FuelOffRoad, Year: 2023, Rate: 60.26},
				{FuelType: domain.FuelOffRoad, Year: 2022, Rate: 59.44},
				{FuelType: domain.FuelPetrol, Year: 2024, Rate: 68.29},
				{FuelType: domain.FuelPetrol, Year: 2023, Rate: 67.38},
				{FuelType: domain.FuelPetrol, Year: 2022, Rate: 66.47},
				{FuelType: domain.FuelLPG, Year: 2024, Rate: 15.42},
				{FuelType: domain.FuelLPG, Year: 2023, Rate: 15.23},
				{FuelType: domain.FuelLPG, Year: 2022, Rate: 15.03},
				{FuelType: domain.FuelElectricity, Year: 2024, Rate: 0},
				{FuelType: domain.FuelElectricity, Year: 2023, Rate: 0},
				{FuelType: domain.FuelElectricity, Year: 2022, Rate: 0},
			},
			VehicleTypes: []domain.VehicleTypeRow{
				{VehicleType: domain.VehicleHeavyTruck, Coefficient: 1.0},
				{VehicleType: domain.VehicleMediumTruck, Coefficient: 0.8},
				{VehicleType: domain.VehicleLightUtility, Coefficient: 0.6},
				{VehicleType: domain.VehicleConstruction, Coefficient: 1.2},
				{VehicleType: domain.VehicleTractor, Coefficient: 0.9},
				{VehicleType: domain.VehicleService, Coefficient: 0.7},
				{VehicleType: domain.VehicleCompanyCar, Coefficient: 0.5},
			},
			Benchmarks: []domain.BenchmarkRow{
				{Sector: domain.SectorFreightTransport, VehicleCountMin: 4, VehicleCountMax: 10, AverageRecovery: 9000, MinRecovery: 7000, MaxRecovery: 12000, SampleSize: 150, ConfidenceLevel: 0.95},
				{Sector: domain.SectorPassengerTransport, VehicleCountMin: 1, VehicleCountMax: 3, AverageRecovery: 8500, MinRecovery: 6000, MaxRecovery: 11000, SampleSize: 100, ConfidenceLevel: 0.90},
				{Sector: domain.SectorTaxi, VehicleCountMin: 1, VehicleCountMax: 3, AverageRecovery: 1300, MinRecovery: 1000, MaxRecovery: 1800, SampleSize: 200, ConfidenceLevel: 0.90},
				{Sector: domain.SectorConstruction, VehicleCountMin: 11, VehicleCountMax: 25, AverageRecovery: 12000, MinRecovery: 8000, MaxRecovery: 18000, SampleSize: 60, ConfidenceLevel: 0.80},
				{Sector: domain.SectorAgriculture, VehicleCountMin: 4, VehicleCountMax: 10, AverageRecovery: 7500, MinRecovery: 5000, MaxRecovery: 10000, SampleSize: 80, ConfidenceLevel: 0.85},
			},
			MaturityRules: []domain.ScoringRule{
				{Indicator: domain.IndicatorFuelCards, Tiers: []domain.ScoringTier{
					{Answer: domain.CardsAllStations, Points: 20},
					{Answer: domain.CardsPartial, Points: 10},
				}},
				{Indicator: domain.IndicatorNominativeInvoices, Tiers: []domain.ScoringTier{
					{Answer: domain.NominativeAlways, Points: 20},
					{Answer: domain.NominativeSome, Points: 10},
				}},
				{Indicator: domain.IndicatorCompanyRegistration, Tiers: []domain.ScoringTier{
					{Answer: domain.Registration100, Points: 15},
					{Answer: domain.RegistrationMost, Points: 10},
				}},
				{Indicator: domain.IndicatorDeclarations, Tiers: []domain.ScoringTier{
					{Answer: domain.DeclarationsRegular, Points: 25},
					{Answer: domain.DeclarationsOccasional, Points: 15},
				}},
				{Indicator: domain.IndicatorFuelInvoices, Tiers: []domain.ScoringTier{
					{Answer: domain.Invoices3Years, Points: 20},
					{Answer: domain.Invoices2Years, Points: 15},
					{Answer: domain.Invoices1Year, Points: 10},
					{Answer: domain.InvoicesPartial, Points: 5},
				}},
			},
		},
		Policy: defaultPolicy(),
		Rules:  DefaultRules(),
	}
}

func defaultPolicy() Policy {
	return Policy{
		Sectors: []SectorPolicy{
			{Sector: domain.SectorFreightTransport, Eligible: true, Points: 30, DefaultLiters: 25000},
			{Sector: domain.SectorPassengerTransport, Eligible: true, Points: 30, DefaultLiters: 20000},
			{Sector: domain.SectorTaxi, Eligible: true, Points: 25, DefaultLiters: 8000},
			{Sector: domain.SectorConstruction, Eligible: true, Points: 20, DefaultLiters: 15000},
			{Sector: domain.SectorAgriculture, Eligible: true, Points: 15, DefaultLiters: 12000},
		},
		ProfessionalVehiclePoints: 25,
		VehiclePoints: []VehiclePoints{
			{VehicleType: domain.VehicleHeavyTruck, Points: 20},
			{VehicleType: domain.VehicleMediumTruck, Points: 15},
			{VehicleType: domain.VehicleConstruction, Points: 15},
			{VehicleType: domain.VehicleTractor, Points: 15},
			{VehicleType: domain.VehicleLightUtility, Points: 10},
		},
		VehiclePointsCap: 20,
		ConsumptionBands: []ConsumptionBand{
			{Label: domain.ConsumptionUnder5k, Liters: 3000},
			{Label: domain.Consumption5kTo15k, Liters: 10000},
			{Label: domain.Consumption15kTo50k, Liters: 32500},
			{Label: domain.ConsumptionOver50k, Liters: 75000},
		},
		ConsumptionPoints: []Threshold{
			{Above: 50000, Points: 15},
			{Above: 15000, Points: 10},
			{Above: 5000, Points: 5},
		},
		CompleteInvoicesKeyword: "complètes",
		CompleteInvoicesPoints:  10,
		ScoreCap:                100,

		MinConsumption: 1000,
		LitersPerKm:    0.08,
		DefaultLiters:  10000,
		FleetBands: []CountBand{
			{Label: domain.FleetBand1To3, Value: 2},
			{Label: domain.FleetBand4To10, Value: 7},
			{Label: domain.FleetBand11To25, Value: 18},
			{Label: domain.FleetBandOver25, Value: 30},
		},
		TurnoverBands: []CountBand{
			{Label: domain.TurnoverUnder100k, Value: 50000},
			{Label: domain.Turnover100kTo500k, Value: 300000},
			{Label: domain.Turnover500kTo1M, Value: 750000},
			{Label: domain.Turnover1MTo5M, Value: 3000000},
			{Label: domain.TurnoverOver5M, Value: 7500000},
		},

		UsageScenarios: []UsageScenario{
			{Label: domain.Usage100, MinPercent: 100, MaxPercent: 100, Coefficient: 1.0},
			{Label: domain.Usage80To99, MinPercent: 80, MaxPercent: 99, Coefficient: 0.9},
			{Label: domain.Usage60To79, MinPercent: 60, MaxPercent: 79, Coefficient: 0.7},
			{Label: domain.UsageUnder60, MinPercent: 0, MaxPercent: 59, Coefficient: 0.0},
		},
		DefaultUsageCoefficient: 0.8,
		ProfileMultipliers: []Multiplier{
			{Indicator: domain.IndicatorFuelInvoices, Answer: domain.Invoices3Years, Factor: 1.2},
			{Indicator: domain.IndicatorFuelInvoices, Answer: domain.Invoices2Years, Factor: 1.1},
			{Indicator: domain.IndicatorFuelInvoices, Answer: domain.InvoicesPartial, Factor: 0.8},
			{Indicator: domain.IndicatorFuelCards, Answer: domain.CardsAllStations, Factor: 1.1},
			{Indicator: domain.IndicatorFuelCards, Answer: domain.CardsNone, Factor: 0.9},
			{Indicator: domain.IndicatorNominativeInvoices, Answer: domain.NominativeAlways, Factor: 1.1},
			{Indicator: domain.IndicatorNominativeInvoices, Answer: domain.NominativeNone, Factor: 0.8},
			{Indicator: domain.IndicatorCompanyRegistration, Answer: domain.Registration100, Factor: 1.0},
			{Indicator: domain.IndicatorCompanyRegistration, Answer: domain.RegistrationNone, Factor: 0.7},
			{Indicator: domain.IndicatorDeclarations, Answer: domain.DeclarationsRegular, Factor: 0.9},
			{Indicator: domain.IndicatorDeclarations, Answer: domain.DeclarationsNone, Factor: 1.2},
		},
		FleetCorrections: []RangeFactor{
			{Min: 26, Max: 0, Factor: 1.1},
			{Min: 11, Max: 25, Factor: 1.05},
			{Min: 1, Max: 2, Factor: 0.9},
		},
		TurnoverCorrections: []RangeFactor{
			{Min: 5000001, Max: 0, Factor: 1.1},
			{Min: 1, Max: 99999, Factor: 0.9},
		},
		SizeCorrectionMin: 0.9,
		SizeCorrectionMax: 1.1,
		MinRecovery:       500,
		MaxRecovery:       100000,

		MaturityIndicators: []string{
			domain.IndicatorFuelCards,
			domain.IndicatorNominativeInvoices,
			domain.IndicatorCompanyRegistration,
			domain.IndicatorDeclarations,
			domain.IndicatorFuelInvoices,
		},
		MaturityCap: 100,

		DefaultVehicleCount:   1,
		BelowBenchmarkPercent: -20,

		Timeline: TimelinePolicy{
			CurrentFactor:      1.0,
			PreviousFactor:     0.95,
			TwoBackFactor:      0.90,
			NextFactor:         1.0,
			FullRecoveryFactor: 0.9,
			InvoiceFactors: []InvoiceFactor{
				{Answer: domain.Invoices3Years, Previous: 1.0, TwoBack: 1.0},
				{Answer: domain.Invoices2Years, Previous: 1.0, TwoBack: 0.7},
				{Answer: domain.Invoices1Year, Previous: 0.8, TwoBack: 0.5},
				{Answer: domain.InvoicesPartial, Previous: 0.6, TwoBack: 0.3},
			},
		},
		Confidence: ConfidencePolicy{
			MaturityWeight:            40,
			ConsumptionPoints:         15,
			FuelTypePoints:            15,
			StrongBenchmarkPoints:     30,
			WeakBenchmarkPoints:       15,
			StrongBenchmarkConfidence: 0.8,
			High:                      70,
			Medium:                    40,
		},
	}
}
