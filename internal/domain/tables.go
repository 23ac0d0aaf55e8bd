package domain

// ReferenceTables is one version of the reference data read by the engine.
// Rows are keyed by Version when stored, so several versions may coexist.
type ReferenceTables struct {
	Version       string           `json:"version" yaml:"version"`
	Year          int              `json:"year" yaml:"year"`
	Lookup        LookupDefaults   `json:"lookup" yaml:"lookup"`
	Sectors       []SectorRow      `json:"sectors" yaml:"sectors"`
	FuelRates     []FuelRateRow    `json:"fuelRates" yaml:"fuelRates"`
	VehicleTypes  []VehicleTypeRow `json:"vehicleTypes" yaml:"vehicleTypes"`
	Benchmarks    []BenchmarkRow   `json:"benchmarks" yaml:"benchmarks"`
	MaturityRules []ScoringRule    `json:"maturityRules" yaml:"maturityRules"`
}

// LookupDefaults are the fallbacks and weights applied by the lookups.
type LookupDefaults struct {
	// FuelRate applies when neither fuels nor a sector default fuel resolve (€/1000 L).
	FuelRate float64 `json:"fuelRate" yaml:"fuelRate"`

	// DieselWeight and OtherFuelWeight weight the fuel-rate average.
	DieselWeight    float64 `json:"dieselWeight" yaml:"dieselWeight"`
	OtherFuelWeight float64 `json:"otherFuelWeight" yaml:"otherFuelWeight"`

	// VehicleCoefficient applies when no vehicle tag was detected.
	VehicleCoefficient float64 `json:"vehicleCoefficient" yaml:"vehicleCoefficient"`

	// UnknownVehicleCoefficient applies to a tag absent from the table.
	UnknownVehicleCoefficient float64 `json:"unknownVehicleCoefficient" yaml:"unknownVehicleCoefficient"`
}
