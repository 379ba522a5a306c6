package carbon

import "math"

// Calculate computes per-practice CO2 savings, their total, and the resulting credits.
//
// Quantities are used as given: negative or fractional values flow straight
// into the weighted sum.
func Calculate(p Practices) Result {
	b := Breakdown{
		TreesCO2:        p.TreesPlanted * TreeFactor,
		OrganicFertCO2:  p.OrganicFertilizerAcres * OrganicFertilizerFactor,
		SolarPumpCO2:    p.SolarPumps * SolarPumpFactor,
		NoTillCO2:       p.NoTillAcres * NoTillFactor,
		CoverCropCO2:    p.CoverCropAcres * CoverCropFactor,
		CowReductionCO2: p.CowsReduced * CowReductionFactor,
		ElectricPumpCO2: p.ElectricPumps * ElectricPumpFactor,
	}
	if p.RainwaterHarvesting {
		b.RainwaterCO2 = RainwaterHarvestingFlat
	}

	total := b.Total()
	return Result{
		TotalCO2:  total,
		Credits:   Credits(total),
		Breakdown: b,
	}
}

// Credits converts kilograms of CO2 into carbon credits.
func Credits(co2Kg float64) float64 {
	return co2Kg / CreditRate
}

// Score rates a single calculation's CO2 savings on a 50-90 scale.
func Score(co2Kg float64) int {
	switch {
	case co2Kg > scoreHighThresholdKg:
		return scoreHigh
	case co2Kg > scoreMediumThresholdKg:
		return scoreMedium
	case co2Kg > scoreLowThresholdKg:
		return scoreLow
	default:
		return scoreDefault
	}
}

// TreesEquivalent returns the number of planted trees that would save the same CO2.
func TreesEquivalent(co2Kg float64) int64 {
	return int64(math.Round(co2Kg / TreeFactor))
}

// CarsEquivalent returns how many cars' yearly emissions the CO2 savings offset.
func CarsEquivalent(co2Kg float64) float64 {
	return co2Kg / CarEmissionsKgPerYear
}
