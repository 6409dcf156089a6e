package notify

import (
	"fmt"
	"strings"
)

// modeLabel renders the cluster mode line.
func modeLabel(m Mode) string {
	if m == ModeNew {
		return "New cluster"
	}
	return "Existing cluster"
}

// orDash substitutes "-" for empty values.
func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// FormatMessage renders evt as labelled lines. bold wraps each label, e.g.
// "**" for Discord or "*" for Slack.
func FormatMessage(evt Event, bold string) string {
	sub := "-"
	if evt.Subreddit != "" {
		sub = "r/" + evt.Subreddit
	}
	lines := []string{
		bold + "New Opportunity Post Found" + bold,
		fmt.Sprintf("%sMode:%s %s", bold, bold, modeLabel(evt.Mode)),
		fmt.Sprintf("%sCluster ID:%s %s", bold, bold, orDash(evt.ClusterID)),
		fmt.Sprintf("%sSubreddit:%s %s", bold, bold, sub),
		fmt.Sprintf("%sTitle:%s %s", bold, bold, orDash(evt.Title)),
		fmt.Sprintf("%sPain point:%s %s", bold, bold, orDash(evt.PainPoint)),
		fmt.Sprintf("%sProposed solution:%s %s", bold, bold, orDash(evt.Solution)),
		fmt.Sprintf("%sLink:%s %s", bold, bold, orDash(evt.Link)),
	}
	return strings.Join(lines, "\n")
}

// truncate cuts s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

