package sensor

import "math"

// HeatIndex returns the "real feel" temperature in Celsius for the
// given air temperature (Celsius) and relative humidity (percent),
// using the Rothfusz regression with Celsius coefficients. The result
// is rounded to one decimal place.
//
// The regression is only valid in warm conditions; below 27°C the air
// temperature is returned unchanged.
func HeatIndex(tempC, humidity float64) float64 {
	t := tempC
	rh := humidity

	if t < 27 {
		return math.Round(t*10) / 10
	}

	hi := -8.784695 +
		1.61139411*t +
		2.338549*rh -
		0.14611605*t*rh -
		0.012308094*t*t -
		0.016424828*rh*rh +
		0.002211732*t*t*rh +
		0.00072546*t*rh*rh -
		0.000003582*t*t*rh*rh

	return math.Round(hi*10) / 10
}

// GasLabel classifies a raw gas sensor value into a human-readable
// label. Thresholds match the sensor's calibration bands.
func GasLabel(value float64) string {
	switch {
	case value <= 100:
		return "Fresh Air"
	case value <= 300:
		return "LPG"
	case value <= 500:
		return "Methane"
	case value <= 700:
		return "Smoke"
	default:
		return "High Gas"
	}
}
