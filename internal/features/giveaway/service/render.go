package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/open-builders/giveaway-bot/internal/features/giveaway/models"
)

// AnnouncementHeader opens every giveaway message.
const AnnouncementHeader = EntryMarker + "   **GIVEAWAY**   " + EntryMarker

// FormatDuration renders d as "1 day, 2 hours, 5 seconds", dropping zero parts.
func FormatDuration(d time.Duration) string {
	total := int64(d.Round(time.Second) / time.Second)
	if total <= 0 {
		return "0 seconds"
	}
	units := []struct {
		name string
		size int64
	}{
		{"day", 86400},
		{"hour", 3600},
		{"minute", 60},
		{"second", 1},
	}
	parts := make([]string, 0, len(units))
	for _, u := range units {
		n := total / u.size
		total %= u.size
		if n == 0 {
			continue
		}
		name := u.name
		if n != 1 {
			name += "s"
		}
		parts = append(parts, fmt.Sprintf("%d %s", n, name))
	}
	return strings.Join(parts, ", ")
}

func prizeLine(prize string) string {
	if prize == "" {
		return ""
	}
	return "**" + prize + "**\n"
}

// StatusMessage is the periodically refreshed announcement body.
func StatusMessage(g *models.Giveaway, now time.Time) string {
	return fmt.Sprintf("%s\n%sReact with %s to enter!\nTime remaining: %s\nWinners: %d",
		AnnouncementHeader, prizeLine(g.Prize), EntryMarker, FormatDuration(g.Remaining(now)), g.WinnerCount)
}

func mentions(ids []string) string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = "<@" + id + ">"
	}
	return strings.Join(out, ", ")
}

// ResultMessage replaces the announcement body once the giveaway is over.
func ResultMessage(g *models.Giveaway, winners []string) string {
	if len(winners) == 0 {
		return fmt.Sprintf("%s\n%sCould not determine a winner!", AnnouncementHeader, prizeLine(g.Prize))
	}
	return fmt.Sprintf("%s\n%sWinners: %s", AnnouncementHeader, prizeLine(g.Prize), mentions(winners))
}

// WinnersAnnouncement is posted in the channel next to the ended giveaway.
func WinnersAnnouncement(prize string, winners []string) string {
	if len(winners) == 0 {
		return "A winner could not be determined: there were no valid entrants."
	}
	if prize == "" {
		return fmt.Sprintf("Congratulations %s! You won!", mentions(winners))
	}
	return fmt.Sprintf("Congratulations %s! You won the **%s**!", mentions(winners), prize)
}
