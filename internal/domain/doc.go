// Package domain models localized flood risk: weather snapshots, crowd-sourced
// user reports, and the weighted scoring that reduces them to a risk level.
//
// # Providers
//
// Two kinds of provider feed the engine:
//
//	openweather (numeric):  explicit temperature, humidity, wind, pressure,
//	                        visibility and rain accumulation fields.
//	nws (narrative):        National Weather Service forecast periods, where
//	                        most signals only exist as prose, e.g.
//	                        "Showers likely. Chance of precipitation is 80%.
//	                        New rainfall amounts between 1 and 2 inches possible."
//
// Every snapshot carries its [Origin]; scoring never guesses which provider
// produced it.
//
// # Narrative Conventions
//
// NWS periods report temperature in Fahrenheit and wind as an mph phrase
// ("10 to 20 mph", "5 mph"). Humidity and rainfall are read out of the
// detailed forecast text by [ExtractHumidity] and [ExtractRainfallMm]:
//
//	"80%"        -> humidity 80 (first percentage wins)
//	"2.5 inches" -> 63.5 mm
//	"rain" + 40% -> random estimate in [0, 2) mm
//
// Defaults (75% humidity, 0 mm, 5 m/s) stand in when nothing matches.
//
// # Report Collections
//
// The report store holds two loosely-typed collections:
//
//	userReports:  {"status":"danger","severity":"high","lat":..,"lng":..,"timestamp":"..."}
//	mapLocations: {"point":-6,"lat":..,"lng":..,"timestamp":"...","description":"..."}
//
// Map marks encode status and severity in a signed point value: positive is
// safe, zero or negative is danger, and |point| grades severity
// (>=8 critical, >=5 high, >=3 medium, else low).
//
// # Scoring
//
// Numeric and narrative snapshots are scored with separate rule sets and
// separate threshold tables (see [Score] and [Classify]):
//
//	numeric:   Critical >= 60, High >= 40, Medium >= 20
//	narrative: Critical >= 80, High >= 60, Medium >= 35
//
// Community influence is added once on both paths. Collapsing the two
// tables changes classification outcomes.
package domain
