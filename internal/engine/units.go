package engine

// Unit conversions shared by the engine and its callers. All are pure.

// LitresToKWh converts a heating-oil volume to energy using the configured
// factor (typically 10.35 kWh per litre of kerosene).
func LitresToKWh(litres, kwhPerLitre float64) float64 {
	return litres * kwhPerLitre
}

// PercentToLitres converts a fill percentage to litres for a tank of the
// given capacity.
func PercentToLitres(percent, capacityLitres float64) float64 {
	return percent / 100 * capacityLitres
}

// LitresToPercent converts litres to a fill percentage. Returns 0 for a
// zero-capacity tank rather than dividing by zero.
func LitresToPercent(litres, capacityLitres float64) float64 {
	if capacityLitres <= 0 {
		return 0
	}
	return litres / capacityLitres * 100
}
