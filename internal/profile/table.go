package profile

import (
	"github.com/opensource-finance/ticpe/internal/domain"
)

// Field names a profile attribute the keyword table can set.
type Field string

const (
	FieldSector               Field = "secteur"
	FieldProfessionalVehicles Field = "vehiculesProfessionnels"
	FieldFleet                Field = "nombreVehicules"
	FieldVehicleTypes         Field = "typesVehicules"
	FieldConsumption          Field = "consommationCarburant"
	FieldKilometers           Field = "kilometrageAnnuel"
	FieldFuelTypes            Field = "typesCarburant"
	FieldFuelInvoices         Field = "facturesCarburant"
	FieldUsage                Field = "usageProfessionnel"
	FieldFuelCards            Field = "cartesCarburant"
	FieldNominativeInvoices   Field = "facturesNominatives"
	FieldRegistration         Field = "immatriculationSociete"
	FieldDeclarations         Field = "declarationsTicpe"
	FieldTurnover             Field = "chiffreAffaires"
)

// tagField reports whether the field accumulates tags instead of holding one value.
func tagField(f Field) bool {
	return f == FieldVehicleTypes || f == FieldFuelTypes
}

// Keyword is one row of the extraction table. A row matches a response text
// when it contains every All keyword, at least one Any keyword (if any are
// given) and none of the Not keywords. Exact rows match only a text equal to
// Exact. Scoped rows apply only to a response whose question ID targets Field.
type Keyword struct {
	Field  Field
	All    []string
	Any    []string
	Not    []string
	Exact  string
	Scoped bool
	Value  string
}

// Questions maps structured question IDs to the field they answer.
var Questions = map[string]Field{
	"secteur_activite":         FieldSector,
	"vehicules_professionnels": FieldProfessionalVehicles,
	"nombre_vehicules":         FieldFleet,
	"types_vehicules":          FieldVehicleTypes,
	"consommation_carburant":   FieldConsumption,
	"kilometrage_annuel":       FieldKilometers,
	"types_carburant":          FieldFuelTypes,
	"factures_carburant":       FieldFuelInvoices,
	"usage_professionnel":      FieldUsage,
	"cartes_carburant":         FieldFuelCards,
	"factures_nominatives":     FieldNominativeInvoices,
	"immatriculation_societe":  FieldRegistration,
	"declarations_ticpe":       FieldDeclarations,
	"chiffre_affaires":         FieldTurnover,
}

// DefaultTable returns the keyword table. Rows of a scalar field form a chain
// evaluated in order; tag rows are independent.
func DefaultTable() []Keyword {
	return []Keyword{
		// Sector
		{Field: FieldSector, All: []string{"Transport", "voyageurs"}, Not: []string{"marchandises", "Logistique"}, Value: string(domain.SectorPassengerTransport)},
		{Field: FieldSector, Any: []string{"Transport", "Logistique"}, Value: string(domain.SectorFreightTransport)},
		{Field: FieldSector, Any: []string{"BTP", "Travaux"}, Value: string(domain.SectorConstruction)},
		{Field: FieldSector, Any: []string{"Taxi", "VTC"}, Value: string(domain.SectorTaxi)},
		{Field: FieldSector, Any: []string{"Agricole", "agricole"}, Value: string(domain.SectorAgriculture)},

		// Professional vehicles
		{Field: FieldProfessionalVehicles, All: []string{"Oui"}, Any: []string{"véhicule", "professionnel"}, Value: "true"},
		{Field: FieldProfessionalVehicles, All: []string{"Oui"}, Scoped: true, Value: "true"},

		// Fleet size
		{Field: FieldFleet, Any: []string{"Plus de 25 véhicules", "Plus de 25"}, Not: []string{"Plus de 25 000"}, Value: domain.FleetBandOver25},
		{Field: FieldFleet, Any: []string{"11 à 25"}, Value: domain.FleetBand11To25},
		{Field: FieldFleet, Any: []string{"4 à 10"}, Value: domain.FleetBand4To10},
		{Field: FieldFleet, Any: []string{"1 à 3"}, Value: domain.FleetBand1To3},

		// Vehicle types
		{Field: FieldVehicleTypes, All: []string{"Camion", "7,5 tonnes"}, Not: []string{"3,5 à 7,5"}, Value: string(domain.VehicleHeavyTruck)},
		{Field: FieldVehicleTypes, All: []string{"Camion", "3,5 à 7,5"}, Value: string(domain.VehicleMediumTruck)},
		{Field: FieldVehicleTypes, Any: []string{"utilitaire", "Utilitaire"}, Value: string(domain.VehicleLightUtility)},
		{Field: FieldVehicleTypes, Any: []string{"engin", "Engin"}, Value: string(domain.VehicleConstruction)},
		{Field: FieldVehicleTypes, Any: []string{"Tracteur", "tracteur"}, Value: string(domain.VehicleTractor)},
		{Field: FieldVehicleTypes, Any: []string{"de service"}, Value: string(domain.VehicleService)},
		{Field: FieldVehicleTypes, Any: []string{"de fonction"}, Value: string(domain.VehicleCompanyCar)},

		// Consumption
		{Field: FieldConsumption, Any: []string{"Plus de 50 000"}, Value: domain.ConsumptionOver50k},
		{Field: FieldConsumption, Any: []string{"15 000 à 50 000"}, Value: domain.Consumption15kTo50k},
		{Field: FieldConsumption, Any: []string{"5 000 à 15 000"}, Value: domain.Consumption5kTo15k},
		{Field: FieldConsumption, Any: []string{"Moins de 5 000"}, Value: domain.ConsumptionUnder5k},

		// Fuel types
		{Field: FieldFuelTypes, Any: []string{"Gazole professionnel"}, Value: string(domain.FuelDiesel)},
		{Field: FieldFuelTypes, All: []string{"Gazole"}, Not: []string{"Non Routier", "GNR"}, Value: string(domain.FuelDiesel)},
		{Field: FieldFuelTypes, Any: []string{"GNR", "Non Routier"}, Value: string(domain.FuelOffRoad)},
		{Field: FieldFuelTypes, Any: []string{"Essence"}, Value: string(domain.FuelPetrol)},
		{Field: FieldFuelTypes, Any: []string{"GPL"}, Value: string(domain.FuelLPG)},
		{Field: FieldFuelTypes, Any: []string{"Électricité", "électrique", "Électrique"}, Value: string(domain.FuelElectricity)},

		// Fuel invoices
		{Field: FieldFuelInvoices, Any: []string{"3 dernières années complètes"}, Value: domain.Invoices3Years},
		{Field: FieldFuelInvoices, Any: []string{"2 dernières années"}, Value: domain.Invoices2Years},
		{Field: FieldFuelInvoices, Any: []string{"1 dernière année"}, Value: domain.Invoices1Year},
		{Field: FieldFuelInvoices, Any: []string{"Partiellement"}, Value: domain.InvoicesPartial},
		{Field: FieldFuelInvoices, Exact: "Non", Scoped: true, Value: domain.InvoicesNone},

		// Professional use
		{Field: FieldUsage, Any: []string{"100% professionnel"}, Value: domain.Usage100},
		{Field: FieldUsage, Any: []string{"80-99%"}, Value: domain.Usage80To99},
		{Field: FieldUsage, Any: []string{"60-79%"}, Value: domain.Usage60To79},
		{Field: FieldUsage, Any: []string{"Moins de 60%"}, Value: domain.UsageUnder60},

		// Fuel cards
		{Field: FieldFuelCards, Any: []string{"toutes les stations"}, Value: domain.CardsAllStations},
		{Field: FieldFuelCards, Any: []string{"partiellement"}, Value: domain.CardsPartial},
		{Field: FieldFuelCards, Exact: "Non", Scoped: true, Value: domain.CardsNone},

		// Nominative invoices
		{Field: FieldNominativeInvoices, Any: []string{"systématiquement"}, Value: domain.NominativeAlways},
		{Field: FieldNominativeInvoices, Any: []string{"partiellement"}, Value: domain.NominativeSome},
		{Field: FieldNominativeInvoices, Exact: "Non", Scoped: true, Value: domain.NominativeNone},

		// Company registration
		{Field: FieldRegistration, Any: []string{"100%"}, Not: []string{"professionnel"}, Value: domain.Registration100},
		{Field: FieldRegistration, Any: []string{"majoritairement"}, Value: domain.RegistrationMost},
		{Field: FieldRegistration, Exact: "Non", Scoped: true, Value: domain.RegistrationNone},

		// TICPE declarations
		{Field: FieldDeclarations, Any: []string{"régulièrement"}, Value: domain.DeclarationsRegular},
		{Field: FieldDeclarations, Any: []string{"occasionnellement"}, Value: domain.DeclarationsOccasional},
		{Field: FieldDeclarations, Exact: "Non", Scoped: true, Value: domain.DeclarationsNone},

		// Turnover
		{Field: FieldTurnover, Any: []string{"Plus de 5 000 000"}, Value: domain.TurnoverOver5M},
		{Field: FieldTurnover, Any: []string{"1 000 000€ - 5 000 000€"}, Value: domain.Turnover1MTo5M},
		{Field: FieldTurnover, Any: []string{"500 000€ - 1 000 000€"}, Value: domain.Turnover500kTo1M},
		{Field: FieldTurnover, Any: []string{"100 000€ - 500 000€"}, Value: domain.Turnover100kTo500k},
		{Field: FieldTurnover, Any: []string{"Moins de 100 000"}, Value: domain.TurnoverUnder100k},
	}
}
