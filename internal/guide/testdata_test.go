package guide

import (
	"fmt"
	"strings"
	"time"
)

// sampleChannels builds channel XML for the given ids
func sampleChannels(ids ...string) string {
	var b strings.Builder
	for _, id := range ids {
		fmt.Fprintf(&b, `<channel id="%s"><display-name>%s Name</display-name></channel>`, id, id)
	}
	return b.String()
}

// sampleProgramme builds a programme element
func sampleProgramme(channel string, start, stop time.Time, title, desc string) string {
	return fmt.Sprintf(`<programme start="%s" stop="%s" channel="%s"><title>%s</title><desc>%s</desc></programme>`,
		FormatTime(start), FormatTime(stop), channel, title, desc)
}

// sampleDocument wraps elements in a tv root
func sampleDocument(elements ...string) string {
	return `<?xml version="1.0" encoding="UTF-8"?><tv generator-info-name="test">` + strings.Join(elements, "") + `</tv>`
}

func at(hour, minute int) time.Time {
	return time.Date(2025, 3, 14, hour, minute, 0, 0, time.UTC)
}
