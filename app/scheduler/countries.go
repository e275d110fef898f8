// Package scheduler runs the background maintenance jobs: call record
// retention, auth artifact cleanup and the daily talkgroup directory
// refresh from the external CSV source.
package scheduler

import (
	"strings"

	"github.com/ea7klk/bm-stats/utils"
)

// countryInfo describes one country for directory purposes.
type countryInfo struct {
	Name      string
	Continent string
}

// countryTable maps ISO 3166-1 alpha-2 codes to country name and
// continent. The worldwide pseudo-country maps to the Global continent.
var countryTable = map[string]countryInfo{
	"WW": {utils.WorldwideCountry, utils.GlobalContinent},

	// Europe
	"AL": {"Albania", "Europe"},
	"AT": {"Austria", "Europe"},
	"BA": {"Bosnia and Herzegovina", "Europe"},
	"BE": {"Belgium", "Europe"},
	"BG": {"Bulgaria", "Europe"},
	"CH": {"Switzerland", "Europe"},
	"CY": {"Cyprus", "Europe"},
	"CZ": {"Czech Republic", "Europe"},
	"DE": {"Germany", "Europe"},
	"DK": {"Denmark", "Europe"},
	"EE": {"Estonia", "Europe"},
	"ES": {"Spain", "Europe"},
	"FI": {"Finland", "Europe"},
	"FR": {"France", "Europe"},
	"GB": {"United Kingdom", "Europe"},
	"GR": {"Greece", "Europe"},
	"HR": {"Croatia", "Europe"},
	"HU": {"Hungary", "Europe"},
	"IE": {"Ireland", "Europe"},
	"IS": {"Iceland", "Europe"},
	"IT": {"Italy", "Europe"},
	"LT": {"Lithuania", "Europe"},
	"LU": {"Luxembourg", "Europe"},
	"LV": {"Latvia", "Europe"},
	"MD": {"Moldova", "Europe"},
	"ME": {"Montenegro", "Europe"},
	"MK": {"North Macedonia", "Europe"},
	"MT": {"Malta", "Europe"},
	"NL": {"Netherlands", "Europe"},
	"NO": {"Norway", "Europe"},
	"PL": {"Poland", "Europe"},
	"PT": {"Portugal", "Europe"},
	"RO": {"Romania", "Europe"},
	"RS": {"Serbia", "Europe"},
	"RU": {"Russia", "Europe"},
	"SE": {"Sweden", "Europe"},
	"SI": {"Slovenia", "Europe"},
	"SK": {"Slovakia", "Europe"},
	"UA": {"Ukraine", "Europe"},

	// North America
	"CA": {"Canada", "North America"},
	"CR": {"Costa Rica", "North America"},
	"CU": {"Cuba", "North America"},
	"DO": {"Dominican Republic", "North America"},
	"GT": {"Guatemala", "North America"},
	"MX": {"Mexico", "North America"},
	"PA": {"Panama", "North America"},
	"US": {"United States", "North America"},

	// South America
	"AR": {"Argentina", "South America"},
	"BO": {"Bolivia", "South America"},
	"BR": {"Brazil", "South America"},
	"CL": {"Chile", "South America"},
	"CO": {"Colombia", "South America"},
	"EC": {"Ecuador", "South America"},
	"PE": {"Peru", "South America"},
	"PY": {"Paraguay", "South America"},
	"UY": {"Uruguay", "South America"},
	"VE": {"Venezuela", "South America"},

	// Asia
	"AE": {"United Arab Emirates", "Asia"},
	"CN": {"China", "Asia"},
	"ID": {"Indonesia", "Asia"},
	"IL": {"Israel", "Asia"},
	"IN": {"India", "Asia"},
	"JP": {"Japan", "Asia"},
	"KR": {"South Korea", "Asia"},
	"MY": {"Malaysia", "Asia"},
	"PH": {"Philippines", "Asia"},
	"QA": {"Qatar", "Asia"},
	"SA": {"Saudi Arabia", "Asia"},
	"SG": {"Singapore", "Asia"},
	"TH": {"Thailand", "Asia"},
	"TR": {"Turkey", "Asia"},
	"TW": {"Taiwan", "Asia"},
	"VN": {"Vietnam", "Asia"},

	// Africa
	"DZ": {"Algeria", "Africa"},
	"EG": {"Egypt", "Africa"},
	"KE": {"Kenya", "Africa"},
	"MA": {"Morocco", "Africa"},
	"NG": {"Nigeria", "Africa"},
	"TN": {"Tunisia", "Africa"},
	"ZA": {"South Africa", "Africa"},

	// Oceania
	"AU": {"Australia", "Oceania"},
	"NZ": {"New Zealand", "Oceania"},
}

// countryNameIndex maps lowercase country names back to their codes, for
// CSV sources that carry full names instead of codes.
var countryNameIndex = func() map[string]string {
	idx := make(map[string]string, len(countryTable))
	for code, info := range countryTable {
		idx[strings.ToLower(info.Name)] = code
	}
	return idx
}()

// lookupCountry resolves a CSV country value (alpha-2 code or full name)
// to its code, name and continent. Unknown countries keep the raw value
// as both code and name, with no continent.
func lookupCountry(raw string) (code, name string, continent *string) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", "", nil
	}

	candidate := strings.ToUpper(value)
	if len(value) != 2 {
		if c, ok := countryNameIndex[strings.ToLower(value)]; ok {
			candidate = c
		}
	}

	if info, ok := countryTable[candidate]; ok {
		return candidate, info.Name, &info.Continent
	}

	return value, value, nil
}
