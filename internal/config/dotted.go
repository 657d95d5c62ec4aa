package config

import "fmt"

// ToDottedMap flattens cfg into the dotted-key/JSON-value shape the HTTP
// config surface (GET /config) exposes to callers.
func ToDottedMap(cfg AppConfig) map[string]any {
	m := map[string]any{
		"location.timezone":                cfg.Location.Timezone,
		"location.lat":                     cfg.Location.Lat,
		"location.lon":                     cfg.Location.Lon,
		"scenes.good_afternoon_time":       cfg.Scenes.GoodAfternoonTime,
		"scenes.good_evening_offset_minutes": cfg.Scenes.GoodEveningOffsetMinutes,
		"scenes.good_night_timing":         string(cfg.Scenes.GoodNightTiming),
		"wake_up.enabled":                  cfg.WakeUp.Enabled,
		"wake_up.time":                     cfg.WakeUp.Time,
		"wake_up.good_morning_delay_minutes": cfg.WakeUp.GoodMorningDelayMinutes,
		"home_away.status":                 string(cfg.HomeAway.Status),
		"home_away.away_periods":           cfg.HomeAway.AwayPeriods,
		"music.enabled_for_morning":        cfg.Music.EnabledForMorning,
		"music.enabled_for_evening":        cfg.Music.EnabledForEvening,
	}
	if cfg.WakeUp.LastTriggered != nil {
		m["wake_up.last_triggered"] = cfg.WakeUp.LastTriggered
	} else {
		m["wake_up.last_triggered"] = nil
	}
	return m
}

// ApplyDotted validates and applies a single dotted-key update onto cfg.
// wake_up.last_triggered is orchestrator-owned and rejected with ErrReadOnly.
func ApplyDotted(cfg *AppConfig, key string, value any) error {
	switch key {
	case "location.timezone":
		s, ok := value.(string)
		if !ok {
			return &ErrInvalidValue{Key: key, Reason: "expected string"}
		}
		cfg.Location.Timezone = s

	case "location.lat":
		f, ok := asFloat(value)
		if !ok {
			return &ErrInvalidValue{Key: key, Reason: "expected number"}
		}
		cfg.Location.Lat = f

	case "location.lon":
		f, ok := asFloat(value)
		if !ok {
			return &ErrInvalidValue{Key: key, Reason: "expected number"}
		}
		cfg.Location.Lon = f

	case "scenes.good_afternoon_time":
		s, ok := value.(string)
		if !ok {
			return &ErrInvalidValue{Key: key, Reason: "expected HH:MM string"}
		}
		cfg.Scenes.GoodAfternoonTime = s

	case "scenes.good_evening_offset_minutes":
		f, ok := asFloat(value)
		if !ok {
			return &ErrInvalidValue{Key: key, Reason: "expected integer minutes"}
		}
		cfg.Scenes.GoodEveningOffsetMinutes = int(f)

	case "scenes.good_night_timing":
		s, ok := value.(string)
		if !ok {
			return &ErrInvalidValue{Key: key, Reason: "expected string"}
		}
		timing := GoodNightTiming(s)
		if timing != GoodNightCivilTwilightEnd && timing != GoodNightSunsetPlusOffset {
			return &ErrInvalidValue{Key: key, Reason: "must be civil_twilight_end or sunset_plus_offset"}
		}
		cfg.Scenes.GoodNightTiming = timing

	case "wake_up.enabled":
		b, ok := value.(bool)
		if !ok {
			return &ErrInvalidValue{Key: key, Reason: "expected bool"}
		}
		cfg.WakeUp.Enabled = b

	case "wake_up.time":
		s, ok := value.(string)
		if !ok {
			return &ErrInvalidValue{Key: key, Reason: "expected HH:MM string"}
		}
		cfg.WakeUp.Time = s

	case "wake_up.good_morning_delay_minutes":
		f, ok := asFloat(value)
		if !ok {
			return &ErrInvalidValue{Key: key, Reason: "expected integer minutes"}
		}
		cfg.WakeUp.GoodMorningDelayMinutes = int(f)

	case "wake_up.last_triggered":
		return ErrReadOnly

	case "home_away.status":
		s, ok := value.(string)
		if !ok {
			return &ErrInvalidValue{Key: key, Reason: "expected string"}
		}
		status := HomeAwayStatus(s)
		if status != StatusHome && status != StatusAway {
			return &ErrInvalidValue{Key: key, Reason: "must be home or away"}
		}
		cfg.HomeAway.Status = status

	case "home_away.away_periods":
		periods, ok := value.([]AwayPeriod)
		if !ok {
			items, isList := value.([]any)
			if !isList {
				return &ErrInvalidValue{Key: key, Reason: "expected array of {start,end}"}
			}
			periods = make([]AwayPeriod, 0, len(items))
			for _, item := range items {
				obj, isObj := item.(map[string]any)
				start, okStart := obj["start"].(string)
				end, okEnd := obj["end"].(string)
				if !isObj || !okStart || !okEnd {
					return &ErrInvalidValue{Key: key, Reason: "expected array of {start,end}"}
				}
				periods = append(periods, AwayPeriod{Start: start, End: end})
			}
		}
		cfg.HomeAway.AwayPeriods = periods

	case "music.enabled_for_morning":
		b, ok := value.(bool)
		if !ok {
			return &ErrInvalidValue{Key: key, Reason: "expected bool"}
		}
		cfg.Music.EnabledForMorning = b

	case "music.enabled_for_evening":
		b, ok := value.(bool)
		if !ok {
			return &ErrInvalidValue{Key: key, Reason: "expected bool"}
		}
		cfg.Music.EnabledForEvening = b

	default:
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return nil
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
