package sun

import (
	"math"
	"time"
)

// civilTwilightEnd computes the evening civil-twilight crossing (sun at
// 6deg below the horizon, zenith 96deg) for the given UTC calendar date
// and coordinates, using the standard NOAA sunrise/sunset equation
// generalized to an arbitrary zenith angle.
//
// go-sunrise (the library used for sunrise/sunset elsewhere in this
// package) only exposes the standard 0.833deg-below-horizon crossing; it
// has no parameter for a different depression angle, so civil twilight
// is computed directly here rather than through the library.
func civilTwilightEnd(date time.Time, lat, lon float64) (time.Time, bool) {
	const zenith = 96.0 // civil twilight: sun 6 degrees below horizon

	n := date.YearDay()
	lngHour := lon / 15.0

	t := float64(n) + (18.0-lngHour)/24.0

	m := (0.9856 * t) - 3.289

	l := m + 1.916*sinDeg(m) + 0.020*sinDeg(2*m) + 282.634
	l = normalize360(l)

	ra := atanDeg(0.91764 * tanDeg(l))
	ra = normalize360(ra)

	lQuadrant := math.Floor(l/90.0) * 90.0
	raQuadrant := math.Floor(ra/90.0) * 90.0
	ra += lQuadrant - raQuadrant
	ra /= 15.0

	sinDec := 0.39782 * sinDeg(l)
	cosDec := math.Cos(math.Asin(sinDec))

	cosH := (cosDeg(zenith) - sinDec*sinDeg(lat)) / (cosDec * cosDeg(lat))
	if cosH > 1 || cosH < -1 {
		// sun never reaches this depression angle on this date at this
		// latitude (polar day/night) — caller must fall back.
		return time.Time{}, false
	}

	h := 360.0 - acosDeg(cosH)
	h /= 15.0

	localT := normalize24(h + ra - (0.06571 * t) - 6.622)

	// Hours after midnight UTC of date, not wrapped to 0-24, so an evening
	// west of Greenwich lands on the following UTC day, as go-sunrise's
	// sunset does.
	ut := localT - lngHour

	midnight := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return midnight.Add(time.Duration(ut * float64(time.Hour))).Truncate(time.Second), true
}

func sinDeg(deg float64) float64  { return math.Sin(deg * math.Pi / 180) }
func cosDeg(deg float64) float64  { return math.Cos(deg * math.Pi / 180) }
func tanDeg(deg float64) float64  { return math.Tan(deg * math.Pi / 180) }
func atanDeg(x float64) float64   { return math.Atan(x) * 180 / math.Pi }
func acosDeg(x float64) float64   { return math.Acos(x) * 180 / math.Pi }

func normalize360(v float64) float64 {
	for v < 0 {
		v += 360
	}
	for v >= 360 {
		v -= 360
	}
	return v
}

func normalize24(v float64) float64 {
	for v < 0 {
		v += 24
	}
	for v >= 24 {
		v -= 24
	}
	return v
}
