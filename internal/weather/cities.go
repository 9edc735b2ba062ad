package weather

// DefaultCities is the city list used when none is configured.
var DefaultCities = []string{
	"Tokyo", "Delhi", "Shanghai", "Sao Paulo", "Mexico City",
	"Cairo", "Mumbai", "Beijing", "Dhaka", "Osaka",
	"New York", "Karachi", "Buenos Aires", "Chongqing", "Istanbul",
	"Kolkata", "Manila", "Lagos", "Rio de Janeiro", "Tianjin",
	"Kinshasa", "Guangzhou", "Los Angeles", "Moscow", "Shenzhen",
	"Lahore", "Bangalore", "Paris", "Bogota", "Jakarta",
	"Chennai", "Lima", "Bangkok", "Seoul", "Nagoya",
	"Hyderabad", "London", "Tehran", "Chicago", "Chengdu",
	"Nanjing", "Wuhan", "Ho Chi Minh City", "Luanda", "Ahmedabad",
	"Kuala Lumpur", "Xi'an", "Hong Kong", "Dongguan", "Hangzhou",
}

var cityTimezones = map[string]string{
	"Tokyo":            "Asia/Tokyo",
	"Delhi":            "Asia/Kolkata",
	"Shanghai":         "Asia/Shanghai",
	"Sao Paulo":        "America/Sao_Paulo",
	"Mexico City":      "America/Mexico_City",
	"Cairo":            "Africa/Cairo",
	"Mumbai":           "Asia/Kolkata",
	"Beijing":          "Asia/Shanghai",
	"Dhaka":            "Asia/Dhaka",
	"Osaka":            "Asia/Tokyo",
	"New York":         "America/New_York",
	"Karachi":          "Asia/Karachi",
	"Buenos Aires":     "America/Argentina/Buenos_Aires",
	"Chongqing":        "Asia/Shanghai",
	"Istanbul":         "Europe/Istanbul",
	"Kolkata":          "Asia/Kolkata",
	"Manila":           "Asia/Manila",
	"Lagos":            "Africa/Lagos",
	"Rio de Janeiro":   "America/Sao_Paulo",
	"Tianjin":          "Asia/Shanghai",
	"Kinshasa":         "Africa/Kinshasa",
	"Guangzhou":        "Asia/Shanghai",
	"Los Angeles":      "America/Los_Angeles",
	"Moscow":           "Europe/Moscow",
	"Shenzhen":         "Asia/Shanghai",
	"Lahore":           "Asia/Karachi",
	"Bangalore":        "Asia/Kolkata",
	"Paris":            "Europe/Paris",
	"Bogota":           "America/Bogota",
	"Jakarta":          "Asia/Jakarta",
	"Chennai":          "Asia/Kolkata",
	"Lima":             "America/Lima",
	"Bangkok":          "Asia/Bangkok",
	"Seoul":            "Asia/Seoul",
	"Nagoya":           "Asia/Tokyo",
	"Hyderabad":        "Asia/Kolkata",
	"London":           "Europe/London",
	"Tehran":           "Asia/Tehran",
	"Chicago":          "America/Chicago",
	"Chengdu":          "Asia/Shanghai",
	"Nanjing":          "Asia/Shanghai",
	"Wuhan":            "Asia/Shanghai",
	"Ho Chi Minh City": "Asia/Ho_Chi_Minh",
	"Luanda":           "Africa/Luanda",
	"Ahmedabad":        "Asia/Kolkata",
	"Kuala Lumpur":     "Asia/Kuala_Lumpur",
	"Xi'an":            "Asia/Shanghai",
	"Hong Kong":        "Asia/Hong_Kong",
	"Dongguan":         "Asia/Shanghai",
	"Hangzhou":         "Asia/Shanghai",
}

// CityTimezone returns the IANA zone for a city. Unknown cities fall back to
// the provider-reported zone, then to UTC.
func CityTimezone(city, providerZone string) string {
	if tz, ok := cityTimezones[city]; ok {
		return tz
	}
	if providerZone != "" {
		return providerZone
	}
	return "UTC"
}
