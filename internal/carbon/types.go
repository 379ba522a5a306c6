// Package carbon converts farming practice adoption into CO2 savings and carbon credits.
//
// The calculation is pure: identical practices always produce identical results,
// no I/O is performed and no input is rejected. Callers that want to refuse
// negative quantities call Practices.Validate before calculating.
package carbon

import "fmt"

// Practice names used in detail maps and validation errors.
const (
	PracticeTreesPlanted           = "treesPlanted"
	PracticeOrganicFertilizerAcres = "organicFertilizerAcres"
	PracticeSolarPumps             = "solarPumps"
	PracticeNoTillAcres            = "noTillAcres"
	PracticeCoverCropAcres         = "coverCropAcres"
	PracticeCowsReduced            = "cowsReduced"
	PracticeRainwaterHarvesting    = "rainwaterHarvesting"
	PracticeElectricPumps          = "electricPumps"
)

// Practices holds a farmer's practice adoption inputs.
type Practices struct {
	TreesPlanted           float64 `json:"treesPlanted"           yaml:"treesPlanted"`
	OrganicFertilizerAcres float64 `json:"organicFertilizerAcres" yaml:"organicFertilizerAcres"`
	SolarPumps             float64 `json:"solarPumps"             yaml:"solarPumps"`
	NoTillAcres            float64 `json:"noTillAcres"            yaml:"noTillAcres"`
	CoverCropAcres         float64 `json:"coverCropAcres"         yaml:"coverCropAcres"`
	CowsReduced            float64 `json:"cowsReduced"            yaml:"cowsReduced"`
	RainwaterHarvesting    bool    `json:"rainwaterHarvesting"    yaml:"rainwaterHarvesting"`
	ElectricPumps          float64 `json:"electricPumps"          yaml:"electricPumps"`
}

// Map returns the practices as a name -> quantity map.
// Rainwater harvesting is reported as 1 when adopted and 0 otherwise.
func (p Practices) Map() map[string]float64 {
	rainwater := 0.0
	if p.RainwaterHarvesting {
		rainwater = 1
	}
	return map[string]float64{
		PracticeTreesPlanted:           p.TreesPlanted,
		PracticeOrganicFertilizerAcres: p.OrganicFertilizerAcres,
		PracticeSolarPumps:             p.SolarPumps,
		PracticeNoTillAcres:            p.NoTillAcres,
		PracticeCoverCropAcres:         p.CoverCropAcres,
		PracticeCowsReduced:            p.CowsReduced,
		PracticeRainwaterHarvesting:    rainwater,
		PracticeElectricPumps:          p.ElectricPumps,
	}
}

// Validate reports the first practice with a negative quantity.
// The returned error matches ErrNegativeQuantity.
func (p Practices) Validate() error {
	checks := []struct {
		name  string
		value float64
	}{
		{PracticeTreesPlanted, p.TreesPlanted},
		{PracticeOrganicFertilizerAcres, p.OrganicFertilizerAcres},
		{PracticeSolarPumps, p.SolarPumps},
		{PracticeNoTillAcres, p.NoTillAcres},
		{PracticeCoverCropAcres, p.CoverCropAcres},
		{PracticeCowsReduced, p.CowsReduced},
		{PracticeElectricPumps, p.ElectricPumps},
	}
	for _, c := range checks {
		if c.value < 0 {
			return fmt.Errorf("%w: %s = %g", ErrNegativeQuantity, c.name, c.value)
		}
	}
	return nil
}

// Breakdown holds each practice's CO2 contribution in kilograms.
type Breakdown struct {
	TreesCO2        float64 `json:"treesCO2"`
	OrganicFertCO2  float64 `json:"organicFertCO2"`
	SolarPumpCO2    float64 `json:"solarPumpCO2"`
	NoTillCO2       float64 `json:"noTillCO2"`
	CoverCropCO2    float64 `json:"coverCropCO2"`
	CowReductionCO2 float64 `json:"cowReductionCO2"`
	RainwaterCO2    float64 `json:"rainwaterCO2"`
	ElectricPumpCO2 float64 `json:"electricPumpCO2"`
}

// Total returns the sum of all contributions.
func (b Breakdown) Total() float64 {
	return b.TreesCO2 +
		b.OrganicFertCO2 +
		b.SolarPumpCO2 +
		b.NoTillCO2 +
		b.CoverCropCO2 +
		b.CowReductionCO2 +
		b.RainwaterCO2 +
		b.ElectricPumpCO2
}

// Result is the outcome of a calculation.
type Result struct {
	// TotalCO2 is the CO2 saved in kilograms.
	TotalCO2 float64 `json:"totalCO2"`

	// Credits is TotalCO2 expressed in carbon credits.
	Credits float64 `json:"credits"`

	// Breakdown holds the per-practice contributions.
	Breakdown Breakdown `json:"details"`
}
