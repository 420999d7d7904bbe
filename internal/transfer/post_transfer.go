package transfer

type PostCreation struct {
	Content        string   `json:"content"`
	Platforms      []string `json:"platforms"`
	MediaURLs      []string `json:"media_urls"`
	LinkURL        string   `json:"link_url"`
	Location       string   `json:"location"`
	ScheduledFor   string   `json:"scheduled_for"`
	IsRecurring    bool     `json:"is_recurring"`
	RecurrenceRule string   `json:"recurrence_rule"`
	Draft          bool     `json:"draft"`
}

type PublishNow struct {
	PostID    int64    `json:"post_id"`
	Content   string   `json:"content"`
	Platforms []string `json:"platforms"`
	MediaURLs []string `json:"media_urls"`
	LinkURL   string   `json:"link_url"`
}

type PlatformFailure struct {
	Platform string `json:"platform"`
	Error    string `json:"error"`
}

// FanoutResponse enumerates per-platform outcomes separately from the
// post's own status: partial failure is an expected steady state.
type FanoutResponse struct {
	PlatformPostIDs map[string]string `json:"platform_post_ids"`
	Failed          []PlatformFailure `json:"failed"`
}

type ScanResponse struct {
	Processed int    `json:"processed"`
	Message   string `json:"message"`
}
