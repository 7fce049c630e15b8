package colormap

import (
	"fmt"
	"sort"
)

// mustHex is for building the static scheme tables; it panics on a bad
// literal, which can only happen at init.
func mustHex(s string) RGB {
	c, err := ParseHex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// BlueWhiteRed is the anomaly gradient: cold anomalies in blue, zero
// anchored at pure white, warm anomalies in red. Thresholds are °C
// deviations from the baseline mean.
var BlueWhiteRed = Scheme{
	Name: "BlueWhiteRed",
	Stops: []ColorStop{
		{Threshold: -10, Color: mustHex("#13437D")},
		{Threshold: -7.5, Color: mustHex("#2C6CAE")},
		{Threshold: -5, Color: mustHex("#5D99C9")},
		{Threshold: -2.5, Color: mustHex("#A6CBE3")},
		{Threshold: 0, Color: mustHex("#FFFFFF")},
		{Threshold: 2.5, Color: mustHex("#F5B7A0")},
		{Threshold: 5, Color: mustHex("#E8765F")},
		{Threshold: 7.5, Color: mustHex("#C93639")},
		{Threshold: 10, Color: mustHex("#9B1A28")},
	},
}

// Temperature colors absolute air temperatures in °C.
var Temperature = Scheme{
	Name: "Temperature",
	Stops: []ColorStop{
		{Threshold: -10, Color: mustHex("#3B4CC0")},
		{Threshold: 0, Color: mustHex("#8DB0FE")},
		{Threshold: 10, Color: mustHex("#DDDDDD")},
		{Threshold: 20, Color: mustHex("#F49A7B")},
		{Threshold: 30, Color: mustHex("#B40426")},
		{Threshold: 40, Color: mustHex("#7A0117")},
	},
}

// Humidity colors relative humidity percentages.
var Humidity = Scheme{
	Name: "Humidity",
	Stops: []ColorStop{
		{Threshold: 0, Color: mustHex("#F7FBFF")},
		{Threshold: 25, Color: mustHex("#C6DBEF")},
		{Threshold: 50, Color: mustHex("#6BAED6")},
		{Threshold: 75, Color: mustHex("#2171B5")},
		{Threshold: 100, Color: mustHex("#08306B")},
	},
}

var schemes = map[string]Scheme{
	BlueWhiteRed.Name: BlueWhiteRed,
	Temperature.Name:  Temperature,
	Humidity.Name:     Humidity,
}

// ByName resolves a registered scheme.
func ByName(name string) (Scheme, error) {
	s, ok := schemes[name]
	if !ok {
		return Scheme{}, fmt.Errorf("%w: %q (known: %v)", ErrUnknownScheme, name, SchemeNames())
	}
	return s, nil
}

// SchemeNames lists the registered scheme names, sorted.
func SchemeNames() []string {
	names := make([]string, 0, len(schemes))
	for name := range schemes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
