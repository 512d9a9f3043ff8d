package schedule

import "slices"

// Preset is a named, commonly used schedule.
type Preset struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Schedule    string `json:"schedule" yaml:"schedule"`
}

var presets = []Preset{
	{ID: "every-minute", Name: "Every minute", Description: "Runs once every minute", Schedule: "* * * * *"},
	{ID: "every-5-minutes", Name: "Every 5 minutes", Description: "Runs every five minutes", Schedule: "*/5 * * * *"},
	{ID: "every-10-minutes", Name: "Every 10 minutes", Description: "Runs every ten minutes", Schedule: "*/10 * * * *"},
	{ID: "every-15-minutes", Name: "Every 15 minutes", Description: "Runs every quarter hour", Schedule: "*/15 * * * *"},
	{ID: "every-30-minutes", Name: "Every 30 minutes", Description: "Runs every half hour", Schedule: "*/30 * * * *"},
	{ID: "hourly", Name: "Hourly", Description: "Runs at the start of every hour", Schedule: "0 * * * *"},
	{ID: "every-2-hours", Name: "Every 2 hours", Description: "Runs every two hours on the hour", Schedule: "0 */2 * * *"},
	{ID: "every-6-hours", Name: "Every 6 hours", Description: "Runs four times a day", Schedule: "0 */6 * * *"},
	{ID: "daily-midnight", Name: "Daily at midnight", Description: "Runs every day at 00:00", Schedule: "0 0 * * *"},
	{ID: "daily-morning", Name: "Daily at 9 AM", Description: "Runs every day at 09:00", Schedule: "0 9 * * *"},
	{ID: "daily-evening", Name: "Daily at 6 PM", Description: "Runs every day at 18:00", Schedule: "0 18 * * *"},
	{ID: "weekly-sunday", Name: "Weekly on Sunday", Description: "Runs every Sunday at midnight", Schedule: "0 0 * * 0"},
	{ID: "weekly-monday", Name: "Weekly on Monday morning", Description: "Runs every Monday at 09:00", Schedule: "0 9 * * 1"},
	{ID: "monthly", Name: "Monthly", Description: "Runs on the 1st of every month at midnight", Schedule: "0 0 1 * *"},
	{ID: "weekdays-morning", Name: "Weekdays at 9 AM", Description: "Runs Monday through Friday at 09:00", Schedule: "0 9 * * 1-5"},
}

// Presets returns the preset catalog in display order.
func Presets() []Preset {
	return slices.Clone(presets)
}

// PresetByID looks up a preset by its ID.
func PresetByID(id string) (Preset, bool) {
	i := slices.IndexFunc(presets, func(p Preset) bool { return p.ID == id })
	if i < 0 {
		return Preset{}, false
	}
	return presets[i], true
}
