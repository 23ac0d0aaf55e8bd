package domain

// Response is a single questionnaire answer.
// Value holds whatever the questionnaire produced: a string, a list of strings,
// an object whose values carry the answer, a number or a boolean.
type Response struct {
	QuestionID string `json:"question_id"`
	Value      any    `json:"response_value"`
}

// Sector is an activity sector label as used in the questionnaire.
type Sector string

const (
	SectorFreightTransport   Sector = "Transport routier de marchandises"
	SectorPassengerTransport Sector = "Transport routier de voyageurs"
	SectorTaxi               Sector = "Taxi / VTC"
	SectorConstruction       Sector = "BTP / Travaux publics"
	SectorAgriculture        Sector = "Secteur Agricole"
)

// VehicleType is a vehicle category tag.
type VehicleType string

const (
	VehicleHeavyTruck   VehicleType = "Camions de plus de 7,5 tonnes"
	VehicleMediumTruck  VehicleType = "Camions de 3,5 à 7,5 tonnes"
	VehicleLightUtility VehicleType = "Véhicules utilitaires légers"
	VehicleConstruction VehicleType = "Engins de chantier"
	VehicleTractor      VehicleType = "Tracteurs agricoles"
	VehicleService      VehicleType = "Véhicules de service"
	VehicleCompanyCar   VehicleType = "Véhicules de fonction"
)

// FuelType is a fuel category tag.
type FuelType string

const (
	FuelDiesel      FuelType = "Gazole professionnel"
	FuelOffRoad     FuelType = "Gazole Non Routier (GNR)"
	FuelPetrol      FuelType = "Essence"
	FuelLPG         FuelType = "GPL"
	FuelElectricity FuelType = "Électricité"
)

// Band labels produced by the profile extractor.
const (
	FleetBand1To3   = "1 à 3 véhicules"
	FleetBand4To10  = "4 à 10 véhicules"
	FleetBand11To25 = "11 à 25 véhicules"
	FleetBandOver25 = "Plus de 25 véhicules"

	ConsumptionUnder5k  = "Moins de 5 000 litres"
	Consumption5kTo15k  = "5 000 à 15 000 litres"
	Consumption15kTo50k = "15 000 à 50 000 litres"
	ConsumptionOver50k  = "Plus de 50 000 litres"

	Invoices3Years  = "Oui, 3 dernières années complètes"
	Invoices2Years  = "Oui, 2 dernières années"
	Invoices1Year   = "Oui, 1 dernière année"
	InvoicesPartial = "Partiellement"
	InvoicesNone    = "Non"

	Usage100     = "100% professionnel"
	Usage80To99  = "80-99% professionnel"
	Usage60To79  = "60-79% professionnel"
	UsageUnder60 = "Moins de 60% professionnel"

	CardsAllStations = "Oui, toutes les stations"
	CardsPartial     = "Oui, partiellement"
	CardsNone        = "Non"

	NominativeAlways = "Oui, systématiquement"
	NominativeSome   = "Oui, partiellement"
	NominativeNone   = "Non"

	Registration100  = "Oui, 100%"
	RegistrationMost = "Oui, majoritairement"
	RegistrationNone = "Non"

	DeclarationsRegular    = "Oui, régulièrement"
	DeclarationsOccasional = "Oui, occasionnellement"
	DeclarationsNone       = "Non"

	TurnoverUnder100k  = "Moins de 100 000€"
	Turnover100kTo500k = "100 000€ - 500 000€"
	Turnover500kTo1M   = "500 000€ - 1 000 000€"
	Turnover1MTo5M     = "1 000 000€ - 5 000 000€"
	TurnoverOver5M     = "Plus de 5 000 000€"
)

// Profile is the normalized view of a questionnaire session.
// Every field is optional; the zero value means "not detected".
type Profile struct {
	Sector               Sector        `json:"secteur,omitempty" yaml:"secteur,omitempty"`
	ProfessionalVehicles bool          `json:"vehiculesProfessionnels" yaml:"vehiculesProfessionnels"`
	FleetBand            string        `json:"nombreVehicules,omitempty" yaml:"nombreVehicules,omitempty"`
	FleetCount           int           `json:"nombreVehiculesDeclare,omitempty" yaml:"nombreVehiculesDeclare,omitempty"`
	VehicleTypes         []VehicleType `json:"typesVehicules,omitempty" yaml:"typesVehicules,omitempty"`
	ConsumptionBand      string        `json:"consommationCarburant,omitempty" yaml:"consommationCarburant,omitempty"`
	ConsumptionLiters    float64       `json:"consommationLitres,omitempty" yaml:"consommationLitres,omitempty"`
	ConsumptionDeclared  bool          `json:"consommationDeclaree,omitempty" yaml:"consommationDeclaree,omitempty"`
	AnnualKilometers     float64       `json:"kilometrageAnnuel,omitempty" yaml:"kilometrageAnnuel,omitempty"`
	FuelTypes            []FuelType    `json:"typesCarburant,omitempty" yaml:"typesCarburant,omitempty"`
	FuelInvoices         string        `json:"facturesCarburant,omitempty" yaml:"facturesCarburant,omitempty"`
	UsageBand            string        `json:"usageProfessionnel,omitempty" yaml:"usageProfessionnel,omitempty"`
	UsagePercent         float64       `json:"usagePourcentage,omitempty" yaml:"usagePourcentage,omitempty"`
	UsageDeclared        bool          `json:"usageDeclare,omitempty" yaml:"usageDeclare,omitempty"`
	FuelCards            string        `json:"cartesCarburant,omitempty" yaml:"cartesCarburant,omitempty"`
	NominativeInvoices   string        `json:"facturesNominatives,omitempty" yaml:"facturesNominatives,omitempty"`
	CompanyRegistration  string        `json:"immatriculationSociete,omitempty" yaml:"immatriculationSociete,omitempty"`
	TICPEDeclarations    string        `json:"declarationsTicpe,omitempty" yaml:"declarationsTicpe,omitempty"`
	TurnoverBand         string        `json:"chiffreAffaires,omitempty" yaml:"chiffreAffaires,omitempty"`
	Turnover             float64       `json:"chiffreAffairesMontant,omitempty" yaml:"chiffreAffairesMontant,omitempty"`
}

// HasVehicleType reports whether the tag was detected.
func (p *Profile) HasVehicleType(t VehicleType) bool {
	for _, v := range p.VehicleTypes {
		if v == t {
			return true
		}
	}
	return false
}

// HasFuelType reports whether the tag was detected.
func (p *Profile) HasFuelType(t FuelType) bool {
	for _, f := range p.FuelTypes {
		if f == t {
			return true
		}
	}
	return false
}

// ConsumptionKnown reports whether the client gave a consumption figure or band.
func (p *Profile) ConsumptionKnown() bool {
	return p.ConsumptionDeclared || p.ConsumptionBand != ""
}

// UsageKnown reports whether the professional-use share was answered.
func (p *Profile) UsageKnown() bool {
	return p.UsageDeclared || p.UsageBand != ""
}

// Clone returns a deep copy so stages never share slices.
func (p *Profile) Clone() *Profile {
	c := *p
	c.VehicleTypes = append([]VehicleType(nil), p.VehicleTypes...)
	c.FuelTypes = append([]FuelType(nil), p.FuelTypes...)
	return &c
}
