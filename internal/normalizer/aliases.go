package normalizer

// DefaultCountrySuffixes are stripped from team cells that carry the
// organisation's country next to its name.
var DefaultCountrySuffixes = []string{
	"United States", "Brazil", "Canada", "Mexico", "Argentina",
	"Chile", "Colombia", "Peru", "Uruguay", "Paraguay",
	"Venezuela", "Ecuador", "Bolivia", "Guyana", "Suriname",
}

// DefaultAliases maps spellings seen on standings pages to the display name
// used everywhere else.
var DefaultAliases = map[string]string{
	"LEVIATÁN":          "Leviatán",
	"Leviatan":          "Leviatán",
	"LEV":               "Leviatán",
	"VISA KRÜ":          "KRÜ",
	"Visa KRU":          "KRÜ",
	"KRU":               "KRÜ",
	"KRÜ Esports":       "KRÜ",
	"KRU Esports":       "KRÜ",
	"2GAME":             "2Game Esports",
	"2Game":             "2Game Esports",
	"G2":                "G2 Esports",
	"C9":                "Cloud9",
	"Cloud 9":           "Cloud9",
	"100T":              "100 Thieves",
	"EG":                "Evil Geniuses",
	"SEN":               "Sentinels",
	"SR":                "Shopify Rebellion",
	"FUR":               "FURIA",
	"FURIA Esports":     "FURIA",
	"NRG Esports":       "NRG",
	"MIBR Esports":      "MIBR",
	"LOUD Esports":      "LOUD",
	"Sentinels Esports": "Sentinels",
}
