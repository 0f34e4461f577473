package transfer

type PostCreation struct {
	Caption     string `json:"caption"`
	Category    string `json:"category"`
	ScheduledAt string `json:"scheduled_at"` // optional, 2006-01-02T15:04
}

type CaptionResult struct {
	Caption  string   `json:"caption"`
	Hashtags []string `json:"hashtags"`
}
