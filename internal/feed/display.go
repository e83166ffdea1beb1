package feed

import (
	"fmt"
	"strings"
	"time"
)

// AnonymousName is shown for authors without a profile or display name
const AnonymousName = "Anonymous"

// DisplayName returns the author's name or AnonymousName
func DisplayName(p *ProfileSummary) string {
	if p == nil || strings.TrimSpace(p.DisplayName) == "" {
		return AnonymousName
	}
	return strings.TrimSpace(p.DisplayName)
}

// Initials returns up to two upper-case initials of the author's name, "?"
// when there is none
func Initials(p *ProfileSummary) string {
	if p == nil {
		return "?"
	}
	var initials []rune
	for _, word := range strings.Fields(p.DisplayName) {
		initials = append(initials, []rune(word)[0])
		if len(initials) == 2 {
			break
		}
	}
	if len(initials) == 0 {
		return "?"
	}
	return strings.ToUpper(string(initials))
}

// RelativeTime renders t relative to now the way the feed shows post times
func RelativeTime(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Hour:
		return "Just now"
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d/time.Hour))
	case d < 48*time.Hour:
		return "Yesterday"
	default:
		return t.Format("Jan 2, 2006")
	}
}
