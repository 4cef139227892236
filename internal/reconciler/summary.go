package reconciler

import "fmt"

func summarize(c *Changes) string {
	if c.IsEmpty() && len(c.Skipped) == 0 {
		return "no changes"
	}

	msg := fmt.Sprintf("%d new, %d modified, %d deleted, %d renamed, %d skipped",
		len(c.New), len(c.Modified), len(c.Deleted), len(c.Renamed), len(c.Skipped))

	if c.LimitWarning {
		msg += " (plan image limit reached)"
	}

	return msg
}
