package weather

import (
	"fmt"

	"github.com/i474232898/weather-report/internal/common"
)

const (
	heatwaveThreshold  = 35.0
	coldSnapThreshold  = -10.0
	highWindThreshold  = 50.0
	heavyRainPrecipPct = 80
)

var alertIcons = map[AlertType]string{
	AlertHeatwave:     "🔥",
	AlertColdSnap:     "❄️",
	AlertHighWind:     "💨",
	AlertHeavyRain:    "🌧️",
	AlertSnow:         "⛄",
	AlertThunderstorm: "⛈️",
}

func newAlert(t AlertType, msg string) Alert {
	return Alert{Type: t, Icon: alertIcons[t], Message: msg}
}

// DetectAlerts derives hazard alerts from current conditions.
// Rules are independent; output follows the order heatwave, coldsnap,
// highwind, heavyrain, snow, thunderstorm.
func DetectAlerts(temp, windSpeed float64, condition string, precipProb int) []Alert {
	alerts := []Alert{}

	if temp >= heatwaveThreshold {
		alerts = append(alerts, newAlert(AlertHeatwave, fmt.Sprintf("Extreme heat warning: %v°C", temp)))
	}
	if temp <= coldSnapThreshold {
		alerts = append(alerts, newAlert(AlertColdSnap, fmt.Sprintf("Extreme cold warning: %v°C", temp)))
	}
	if windSpeed >= highWindThreshold {
		alerts = append(alerts, newAlert(AlertHighWind, fmt.Sprintf("High wind warning: %v km/h", windSpeed)))
	}
	if common.ContainsAnyFold(condition, "heavy rain") ||
		(common.ContainsAnyFold(condition, "rain") && precipProb >= heavyRainPrecipPct) {
		alerts = append(alerts, newAlert(AlertHeavyRain, "Heavy rainfall expected"))
	}
	if common.ContainsAnyFold(condition, "snow", "blizzard") {
		alerts = append(alerts, newAlert(AlertSnow, "Snow expected"))
	}
	if common.ContainsAnyFold(condition, "thunder", "storm") {
		alerts = append(alerts, newAlert(AlertThunderstorm, "Thunderstorm warning"))
	}

	return alerts
}

type aqiInfo struct {
	category string
	color    string
}

var aqiTable = map[int]aqiInfo{
	1: {"Good", "#10b981"},
	2: {"Moderate", "#f59e0b"},
	3: {"Unhealthy for Sensitive", "#f97316"},
	4: {"Unhealthy", "#ef4444"},
	5: {"Very Unhealthy", "#9333ea"},
	6: {"Hazardous", "#7f1d1d"},
}

// AQICategory returns the display category and color for a US EPA index.
// Indexes outside 1-6 are reported as Unknown.
func AQICategory(index int) (category, color string) {
	if info, ok := aqiTable[index]; ok {
		return info.category, info.color
	}
	return "Unknown", "#6b7280"
}
