package tasks

// TaskRow is a task joined with a summary of its most recent pull request
// link. PR fields are zero when the task has no link.
type TaskRow struct {
	Task
	PRRepo    string `json:"pr_repo,omitempty"`
	PRNumber  int    `json:"pr_number,omitempty"`
	PRTitle   string `json:"pr_title,omitempty"`
	PRBody    string `json:"pr_body,omitempty"`
	LinkCount int    `json:"link_count"`
}

func (r TaskRow) HasPR() bool {
	return r.PRNumber > 0
}

type GroupCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}
