// Package dwd reads Deutscher Wetterdienst (DWD) open-data products.
//
// # Raw Formats
//
// Observation products are semicolon-separated text files with a header
// row, whitespace-padded cells, Latin-1 encoding, and a trailing "eor"
// column. The daily climate product (produkt_klima_tag_*.txt) carries one
// row per day; the ten-minute air-temperature product
// (produkt_zehn_now_tu_*.txt) carries one row per ten minutes. -999 is the
// DWD sentinel for a missing value.
//
// Daily columns used here, mapped onto CF short names:
//
//	TMK → tas     daily mean temperature
//	TNK → tasmin  daily minimum temperature
//	TXK → tasmax  daily maximum temperature
//	UPM → hurs    daily mean relative humidity
//
// Ten-minute columns: TT_10 → tas, RF_10 → hurs.
//
// Station catalogues (*_Beschreibung_Stationen.txt) are fixed-width Latin-1
// text: one header line, one separator line of dashes, then one station per
// line with columns sliced by character position.
//
// # Station IDs
//
// DWD station ids appear zero-padded in archive names and unpadded in some
// catalogues. Everything in this package normalizes ids to the padded
// five-digit form so product- and catalogue-derived ids always compare
// equal.
package dwd

import (
	"strings"

	"github.com/halbgrad/climate-anomaly-service/internal/domain"
)

// missingSentinel is DWD's marker for an unmeasured value.
const missingSentinel = -999

// dailyColumns maps DWD daily-product column names to metric keys.
var dailyColumns = map[string]domain.MetricKey{
	"TMK": domain.MetricTas,
	"TNK": domain.MetricTasmin,
	"TXK": domain.MetricTasmax,
	"UPM": domain.MetricHurs,
}

// tenMinuteColumns maps ten-minute-product column names to metric keys.
var tenMinuteColumns = map[string]domain.MetricKey{
	"TT_10": domain.MetricTas,
	"RF_10": domain.MetricHurs,
}

// NormalizeStationID converts any DWD station id spelling to the padded
// five-digit form: "44" and "00044" both become "00044". Ids longer than
// five digits are returned trimmed but unpadded.
func NormalizeStationID(id string) string {
	id = strings.TrimSpace(id)
	id = strings.TrimLeft(id, "0")
	if id == "" {
		return ""
	}
	for len(id) < 5 {
		id = "0" + id
	}
	return id
}
