// Package config holds the appliance configuration: location, scene
// timing, wake-up, home/away, and music settings. AppConfig is both the
// in-memory view every component reads and, via its yaml/json tags, the
// shape persisted to disk and served over the dotted-key HTTP surface.
package config

import "time"

// GoodNightTiming selects how good_night is scheduled.
type GoodNightTiming string

const (
	GoodNightCivilTwilightEnd GoodNightTiming = "civil_twilight_end"
	GoodNightSunsetPlusOffset GoodNightTiming = "sunset_plus_offset"
)

// HomeAwayStatus is the coarse occupancy state gating scheduled scenes.
type HomeAwayStatus string

const (
	StatusHome HomeAwayStatus = "home"
	StatusAway HomeAwayStatus = "away"
)

// AwayPeriod is an inclusive date range (YYYY-MM-DD) during which the
// away gate suppresses scheduled (not manual) scene execution.
type AwayPeriod struct {
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
}

// LocationConfig pins the appliance to an IANA timezone and coordinates
// used for sunrise/sunset/civil-twilight computation.
type LocationConfig struct {
	Timezone string  `json:"timezone" yaml:"timezone"`
	Lat      float64 `json:"lat" yaml:"lat"`
	Lon      float64 `json:"lon" yaml:"lon"`
}

// SceneTimingConfig configures the fixed/sun-relative trigger times for
// the three daily scenes.
type SceneTimingConfig struct {
	GoodAfternoonTime        string          `json:"good_afternoon_time" yaml:"good_afternoon_time"`
	GoodEveningOffsetMinutes int             `json:"good_evening_offset_minutes" yaml:"good_evening_offset_minutes"`
	GoodNightTiming          GoodNightTiming `json:"good_night_timing" yaml:"good_night_timing"`
}

// WakeUpConfig configures the single-shot wake-up alarm.
type WakeUpConfig struct {
	Enabled                 bool       `json:"enabled" yaml:"enabled"`
	Time                    string     `json:"time" yaml:"time"`
	GoodMorningDelayMinutes int        `json:"good_morning_delay_minutes" yaml:"good_morning_delay_minutes"`
	LastTriggered           *time.Time `json:"last_triggered,omitempty" yaml:"last_triggered,omitempty"`
}

// HomeAwayConfig configures the away gate.
type HomeAwayConfig struct {
	Status      HomeAwayStatus `json:"status" yaml:"status"`
	AwayPeriods []AwayPeriod   `json:"away_periods" yaml:"away_periods"`
}

// MusicConfig gates whether the wake-up orchestrator requests audio start.
type MusicConfig struct {
	EnabledForMorning bool `json:"enabled_for_morning" yaml:"enabled_for_morning"`
	EnabledForEvening bool `json:"enabled_for_evening" yaml:"enabled_for_evening"`
}

// AudioConfig configures the background music player and its Bluetooth
// sink collaborator.
type AudioConfig struct {
	PlayerCommand        string   `json:"player_command" yaml:"player_command"`
	PlayerArgs           []string `json:"player_args" yaml:"player_args"`
	StatusFilePath       string   `json:"status_file_path" yaml:"status_file_path"`
	ControlFIFOPath      string   `json:"control_fifo_path" yaml:"control_fifo_path"`
	LockFilePath         string   `json:"lock_file_path" yaml:"lock_file_path"`
	BluetoothAdapterPath string   `json:"bluetooth_adapter_path" yaml:"bluetooth_adapter_path"`
	BluetoothDeviceAddr  string   `json:"bluetooth_device_address" yaml:"bluetooth_device_address"`
}

// AppConfig is the full typed configuration document.
type AppConfig struct {
	Location  LocationConfig    `json:"location" yaml:"location"`
	Scenes    SceneTimingConfig `json:"scenes" yaml:"scenes"`
	WakeUp    WakeUpConfig      `json:"wake_up" yaml:"wake_up"`
	HomeAway  HomeAwayConfig    `json:"home_away" yaml:"home_away"`
	Music     MusicConfig       `json:"music" yaml:"music"`
	Audio     AudioConfig       `json:"audio" yaml:"audio"`
	LogLevel  string            `json:"log_level" yaml:"log_level"`
}

// Default returns the configuration defaults described in spec.md §4.6's
// schedule table (good_afternoon 14:30, good_evening offset -60, wake-up
// disabled).
func Default() AppConfig {
	return AppConfig{
		Location: LocationConfig{Timezone: "UTC"},
		Scenes: SceneTimingConfig{
			GoodAfternoonTime:        "14:30",
			GoodEveningOffsetMinutes: -60,
			GoodNightTiming:          GoodNightCivilTwilightEnd,
		},
		WakeUp: WakeUpConfig{
			Enabled:                 false,
			Time:                    "07:30",
			GoodMorningDelayMinutes: 15,
		},
		HomeAway: HomeAwayConfig{Status: StatusHome},
		Music:    MusicConfig{EnabledForMorning: true, EnabledForEvening: false},
		Audio: AudioConfig{
			PlayerCommand:        "mpd",
			StatusFilePath:       "/run/shadecored/audio-status.json",
			ControlFIFOPath:      "/run/shadecored/audio-control.fifo",
			LockFilePath:         "/run/shadecored/audio-player.lock",
			BluetoothAdapterPath: "/org/bluez/hci0",
		},
		LogLevel: "info",
	}
}
