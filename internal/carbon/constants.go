package carbon

// Per-unit CO2 savings in kilograms per year.
//
// Each practice contributes quantity * factor to the total, except
// rainwater harvesting, which is a flat contribution when adopted.
const (
	// TreeFactor is kg CO2 absorbed per tree planted.
	TreeFactor = 21.0

	// OrganicFertilizerFactor is kg CO2 saved per acre moved to organic fertilizer.
	OrganicFertilizerFactor = 110.0

	// SolarPumpFactor is kg CO2 saved per solar irrigation pump.
	SolarPumpFactor = 1500.0

	// NoTillFactor is kg CO2 saved per acre of no-till farming.
	NoTillFactor = 300.0

	// CoverCropFactor is kg CO2 saved per acre of cover cropping.
	CoverCropFactor = 250.0

	// CowReductionFactor is kg CO2 saved per cow removed from the herd.
	CowReductionFactor = 1200.0

	// RainwaterHarvestingFlat is the flat kg CO2 saved by a rainwater harvesting system.
	RainwaterHarvestingFlat = 200.0

	// ElectricPumpFactor is kg CO2 saved per electric pump replacing diesel.
	ElectricPumpFactor = 1000.0
)

// CreditRate is the number of kilograms of CO2 that make up one carbon credit.
const CreditRate = 1000.0

// Carbon score bands applied to a single calculation's CO2 savings.
const (
	scoreHighThresholdKg   = 5000.0
	scoreMediumThresholdKg = 2000.0
	scoreLowThresholdKg    = 1000.0

	scoreHigh    = 90
	scoreMedium  = 75
	scoreLow     = 60
	scoreDefault = 50
)

// Impact statement constants.
const (
	// CarEmissionsKgPerYear is the average car's yearly CO2 emissions.
	CarEmissionsKgPerYear = 2000.0

	// minCarsForStatement is the smallest car equivalent worth mentioning.
	minCarsForStatement = 0.1
)
