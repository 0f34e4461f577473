package transfer

// ScheduleResult is the response of the auto-schedule endpoint.
type ScheduleResult struct {
	Message   string `json:"message"`
	Scheduled int    `json:"scheduled"`
}

// SweepResult aggregates one publish sweep over all ready posts.
type SweepResult struct {
	Published int      `json:"published"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors"`
}

type SettingsUpdate struct {
	AutoPublish          bool     `json:"auto_publish"`
	PostingHours         []int64  `json:"posting_hours"`
	RestrictedCategories []string `json:"restricted_categories"`
}
