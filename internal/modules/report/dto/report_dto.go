package dto

// LeaderboardEntry is one ranked row. Position is 1-based; ordering is total
// descending with ties broken by ascending user id so pagination is stable.
type LeaderboardEntry struct {
	Position int    `json:"position"`
	UserID   string `json:"user_id"`
	Total    int    `json:"total"`
}

// ChannelBreakdown is one channel's contribution to a weekly total.
type ChannelBreakdown struct {
	ChannelID string `json:"channel_id"`
	Name      string `json:"name"`
	Points    int    `json:"points"`
}

// WeeklySummary is the personal report: attendance, points, breakdown and
// achievement tiles for the week containing the reference date. Rendering
// (text, image cards) belongs to the consumer.
type WeeklySummary struct {
	UserID          string             `json:"user_id"`
	WeekKey         string             `json:"week_key"`
	WeekStart       string             `json:"week_start"`
	WeekEnd         string             `json:"week_end"`
	AttendanceCount int                `json:"attendance_count"`
	Total           int                `json:"total"`
	Breakdown       []ChannelBreakdown `json:"breakdown"`
	RemainingToBest int                `json:"remaining_to_best"`
	WeekTiles       []bool             `json:"week_tiles"`
	MonthTiles      []bool             `json:"month_tiles"`
}
