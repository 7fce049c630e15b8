package dwd

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/halbgrad/climate-anomaly-service/internal/domain"
)

// Character offsets of the fields in a station description line. The
// catalogue is fixed-width, so positions are counted in characters after
// Latin-1 decoding, not bytes.
const (
	catIDEnd        = 6
	catElevStart    = 34
	catElevEnd      = 38
	catLatStart     = 38
	catLatEnd       = 50
	catLonStart     = 50
	catLonEnd       = 61
	catNameStart    = 61
	catNameEnd      = 102
	catHeaderLines  = 2
	catMinLineWidth = catNameStart + 1
)

// ParseStationDescriptions reads a fixed-width DWD station catalogue
// (*_Beschreibung_Stationen.txt) into stations, preserving file order.
// Lines too short to carry a name or with unparsable coordinates are
// skipped.
func ParseStationDescriptions(r io.Reader) ([]domain.Station, error) {
	scanner := bufio.NewScanner(charmap.ISO8859_1.NewDecoder().Reader(r))

	var stations []domain.Station
	line := 0
	for scanner.Scan() {
		line++
		if line <= catHeaderLines {
			continue
		}
		text := []rune(scanner.Text())
		if len(text) < catMinLineWidth {
			continue
		}

		lat, err := strconv.ParseFloat(field(text, catLatStart, catLatEnd), 64)
		if err != nil {
			continue
		}
		lon, err := strconv.ParseFloat(field(text, catLonStart, catLonEnd), 64)
		if err != nil {
			continue
		}

		station := domain.Station{
			ID:   NormalizeStationID(field(text, 0, catIDEnd)),
			Name: field(text, catNameStart, catNameEnd),
			Lat:  lat,
			Lon:  lon,
		}
		if elev, err := strconv.ParseFloat(field(text, catElevStart, catElevEnd), 64); err == nil {
			station.Elevation = elev
		}
		stations = append(stations, station)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read station catalogue: %w", err)
	}
	return stations, nil
}

// field slices a fixed-width column out of a decoded line, clamping the end
// to the line length.
func field(line []rune, start, end int) string {
	if start >= len(line) {
		return ""
	}
	if end > len(line) {
		end = len(line)
	}
	return strings.TrimSpace(string(line[start:end]))
}
