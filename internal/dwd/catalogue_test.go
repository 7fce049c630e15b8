package dwd

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

// catalogueLine builds one fixed-width station description line with the
// column widths of the real catalogue files.
func catalogueLine(id, elev, lat, lon, name, state string) string {
	return fmt.Sprintf("%-6s%-28s%4s%12s%11s %-40s%s", id, "19690101 20240822", elev, lat, lon, name, state)
}

// encodeLatin1 turns a UTF-8 fixture into the Latin-1 bytes the real files
// carry.
func encodeLatin1(t *testing.T, s string) string {
	t.Helper()
	encoded, err := charmap.ISO8859_1.NewEncoder().String(s)
	require.NoError(t, err)
	return encoded
}

func TestParseStationDescriptions(t *testing.T) {
	t.Run("parses stations in file order", func(t *testing.T) {
		fixture := strings.Join([]string{
			"Stations_id von_datum bis_datum Stationshoehe geoBreite geoLaenge Stationsname Bundesland",
			"----------- --------- --------- ------------- --------- --------- ------------ ----------",
			catalogueLine("00044", "44", "52.9336", "8.2370", "Großenkneten", "Niedersachsen"),
			catalogueLine("00433", "48", "52.4675", "13.4021", "Berlin-Tempelhof", "Berlin"),
		}, "\n")

		stations, err := ParseStationDescriptions(strings.NewReader(encodeLatin1(t, fixture)))
		require.NoError(t, err)
		require.Len(t, stations, 2)

		assert.Equal(t, "00044", stations[0].ID)
		assert.Equal(t, "Großenkneten", stations[0].Name)
		assert.Equal(t, 52.9336, stations[0].Lat)
		assert.Equal(t, 8.2370, stations[0].Lon)
		assert.Equal(t, 44.0, stations[0].Elevation)

		assert.Equal(t, "00433", stations[1].ID)
		assert.Equal(t, "Berlin-Tempelhof", stations[1].Name)
	})

	t.Run("skips short and unparsable lines", func(t *testing.T) {
		fixture := strings.Join([]string{
			"header",
			"------",
			"00017 broken",
			catalogueLine("00020", "432", "not-a-lat", "11.0000", "Kaputt", "Bayern"),
			catalogueLine("00091", "300", "49.9694", "9.9114", "Würzburg", "Bayern"),
		}, "\n")

		stations, err := ParseStationDescriptions(strings.NewReader(encodeLatin1(t, fixture)))
		require.NoError(t, err)
		require.Len(t, stations, 1)
		assert.Equal(t, "00091", stations[0].ID)
		assert.Equal(t, "Würzburg", stations[0].Name)
	})

	t.Run("empty catalogue", func(t *testing.T) {
		stations, err := ParseStationDescriptions(strings.NewReader("header\n------\n"))
		require.NoError(t, err)
		assert.Empty(t, stations)
	})
}
