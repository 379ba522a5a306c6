package carbon

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// printer formats numbers with English thousand separators.
//
//nolint:gochecknoglobals // Global printer is idiomatic for x/text/message usage.
var printer = message.NewPrinter(language.English)

// FormatNumber formats an integer with thousand separators.
// Example: FormatNumber(18248) returns "18,248".
func FormatNumber(n int64) string {
	return printer.Sprintf("%d", n)
}

// FormatFloat formats a float with the given precision and thousand separators.
// Example: FormatFloat(1234.567, 2) returns "1,234.57".
func FormatFloat(f float64, precision int) string {
	formatted := strconv.FormatFloat(f, 'f', precision, 64)
	intPart, fracPart, hasFrac := strings.Cut(formatted, ".")

	n, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return formatted
	}
	grouped := FormatNumber(n)
	if intPart == "-0" {
		grouped = "-0"
	}
	if !hasFrac {
		return grouped
	}
	return grouped + "." + fracPart
}

// ImpactStatements describes CO2 savings in relatable terms.
//
// A tree statement is included when the savings round to at least one tree,
// and a car statement when they offset more than a tenth of a car's yearly
// emissions (measured after rounding to one decimal).
func ImpactStatements(co2Kg float64) []string {
	var statements []string

	if trees := TreesEquivalent(co2Kg); trees > 0 {
		statements = append(statements,
			fmt.Sprintf("Equivalent to %s trees planted", FormatNumber(trees)))
	}

	cars := math.Round(CarsEquivalent(co2Kg)*10) / 10
	if cars > minCarsForStatement {
		statements = append(statements,
			fmt.Sprintf("Like removing %s cars from the road for a year", FormatFloat(cars, 1)))
	}

	return statements
}
