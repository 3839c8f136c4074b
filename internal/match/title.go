package match

import (
	"regexp"
	"strings"
)

// languageFlags maps provider title language codes to display glyphs.
var languageFlags = map[string]string{
	"FR": "🇫🇷",
	"EN": "🇬🇧",
	"ES": "🇪🇸",
	"DE": "🇩🇪",
	"IT": "🇮🇹",
	"PT": "🇵🇹",
	"RU": "🇷🇺",
	"JP": "🇯🇵",
	"KR": "🇰🇷",
	"CN": "🇨🇳",

	"US": "🇺🇸",
	"AU": "🇦🇺",
	"CA": "🇨🇦",
	"BR": "🇧🇷",
	"MX": "🇲🇽",
	"BE": "🇧🇪",
	"CH": "🇨🇭",

	"BG": "🇧🇬",
	"CZ": "🇨🇿",
	"DK": "🇩🇰",
	"EE": "🇪🇪",
	"FI": "🇫🇮",
	"GR": "🇬🇷",
	"HR": "🇭🇷",
	"HU": "🇭🇺",
	"IE": "🇮🇪",
	"IS": "🇮🇸",
	"LT": "🇱🇹",
	"LV": "🇱🇻",
	"NL": "🇳🇱",
	"NO": "🇳🇴",
	"PL": "🇵🇱",
	"RO": "🇷🇴",
	"SE": "🇸🇪",
	"SK": "🇸🇰",
	"SI": "🇸🇮",

	"TH": "🇹🇭",
	"VN": "🇻🇳",
	"ID": "🇮🇩",
	"MY": "🇲🇾",
	"PH": "🇵🇭",
	"KH": "🇰🇭",
	"MM": "🇲🇲",

	"AR": "🇸🇦",
	"HE": "🇮🇱",
	"FA": "🇮🇷",
	"TR": "🇹🇷",

	"ZA": "🇿🇦",
	"NG": "🇳🇬",
	"EG": "🇪🇬",
	"ET": "🇪🇹",
	"KE": "🇰🇪",

	"HI": "🇮🇳",
	"TA": "🇮🇳",
	"TE": "🇮🇳",
	"BN": "🇮🇳",
	"GU": "🇮🇳",
	"ML": "🇮🇳",
	"MR": "🇮🇳",

	"LAT":    "🌍",
	"MULTI":  "🌐",
	"VOSTFR": "🇫🇷🔤",
	"VO":     "🔤",
	"VOST":   "🌐🔤",
	"OTHER":  "❓",
}

// titlePatterns is checked in order; the first pattern whose captured code
// is a known language wins.
var titlePatterns = []*regexp.Regexp{
	// Leading two-letter code with a delimiter ("FR - Channel", "EN.News").
	regexp.MustCompile(`(?i)^([A-Z]{2})(?:\s*[-.]|\s+|\s*$)`),
	// Trailing bracketed code ("Movie (FR)", "Show [DE]").
	regexp.MustCompile(`(?i)[([]\s*([A-Z]{2})\s*[)\]]$`),
	// Trailing release token ("Movie VOSTFR", "Film (MULTI)").
	regexp.MustCompile(`(?i)[\s([](VOSTFR|VF|VO|MULTI)[\s)\]]?$`),
}

// DecorateTitle replaces a recognised language marker in title with its
// glyph. Titles without a known marker come back unchanged.
func DecorateTitle(title string) string {
	for _, re := range titlePatterns {
		m := re.FindStringSubmatchIndex(title)
		if m == nil {
			continue
		}
		code := strings.ToUpper(title[m[2]:m[3]])
		flag, ok := languageFlags[code]
		if !ok {
			continue
		}
		return title[:m[0]] + flag + " " + title[m[1]:]
	}
	return title
}
