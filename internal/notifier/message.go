package notifier

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/good-yellow-bee/alertd/internal/alerting"
)

// FormatMessage renders the shared markdown-ish text used by every channel.
func FormatMessage(ev alerting.Event) string {
	a := ev.Alert

	emoji := "\U0001F6A8" // rotating light
	if ev.Action == alerting.ActionResolved {
		emoji = "✅" // check mark
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s **ALERT %s**\n", emoji, strings.ToUpper(string(ev.Action)))
	fmt.Fprintf(&b, "**Rule:** %s\n", a.RuleName)
	fmt.Fprintf(&b, "**Severity:** %s\n", strings.ToUpper(string(a.Severity)))
	fmt.Fprintf(&b, "**Message:** %s\n", a.Message)
	fmt.Fprintf(&b, "**Time:** %s", formatTime(eventTime(ev)))

	if len(a.Tags) > 0 {
		keys := make([]string, 0, len(a.Tags))
		for k := range a.Tags {
			keys = append(keys, k)
		}
		slices.Sort(keys)

		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ":" + a.Tags[k]
		}
		fmt.Fprintf(&b, "\n**Tags:** %s", strings.Join(parts, ", "))
	}
	return b.String()
}

// eventTime is when the transition happened, falling back to the alert time.
func eventTime(ev alerting.Event) time.Time {
	if !ev.Time.IsZero() {
		return ev.Time
	}
	return ev.Alert.Timestamp
}

func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

func upperSeverity(s alerting.Severity) string {
	return strings.ToUpper(string(s))
}
