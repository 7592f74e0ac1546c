// Package guide models an XMLTV electronic programme guide and answers
// per-channel timeline queries over it.
package guide

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"
)

// document mirrors the subset of the XMLTV schema the service consumes
type document struct {
	XMLName    xml.Name       `xml:"tv"`
	Channels   []xmlChannel   `xml:"channel"`
	Programmes []xmlProgramme `xml:"programme"`
}

type xmlChannel struct {
	ID           string    `xml:"id,attr"`
	DisplayNames []xmlText `xml:"display-name"`
}

type xmlProgramme struct {
	Start   string    `xml:"start,attr"`
	Stop    string    `xml:"stop,attr"`
	Channel string    `xml:"channel,attr"`
	Titles  []xmlText `xml:"title"`
	Descs   []xmlText `xml:"desc"`
}

type xmlText struct {
	Lang  string `xml:"lang,attr,omitempty"`
	Value string `xml:",chardata"`
}

func firstText(texts []xmlText) string {
	for _, t := range texts {
		if v := strings.TrimSpace(t.Value); v != "" {
			return v
		}
	}
	return ""
}

// dateLayouts are the accepted XMLTV date precisions, most specific first
var dateLayouts = []string{
	"20060102150405",
	"200601021504",
	"2006010215",
	"20060102",
}

// ParseTime parses an XMLTV timestamp such as "20250101103000 +0100".
// A missing zone offset is interpreted as UTC. The result is always in UTC.
func ParseTime(value string) (time.Time, error) {
	fields := strings.Fields(value)
	if len(fields) == 0 || len(fields) > 2 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTime, value)
	}

	var (
		t   time.Time
		err error
	)
	for _, layout := range dateLayouts {
		if len(fields[0]) != len(layout) {
			continue
		}
		t, err = time.ParseInLocation(layout, fields[0], time.UTC)
		break
	}
	if err != nil || t.IsZero() {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTime, value)
	}

	if len(fields) == 1 {
		return t, nil
	}

	offset, err := parseZoneOffset(fields[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTime, value)
	}
	return t.Add(-offset).UTC(), nil
}

// parseZoneOffset parses "+0100", "-05:30", "Z", "UTC" or "GMT"
func parseZoneOffset(zone string) (time.Duration, error) {
	switch strings.ToUpper(zone) {
	case "Z", "UTC", "GMT":
		return 0, nil
	}

	zone = strings.ReplaceAll(zone, ":", "")
	if len(zone) != 5 || (zone[0] != '+' && zone[0] != '-') {
		return 0, ErrInvalidTime
	}
	ref, err := time.Parse("-0700", zone)
	if err != nil {
		return 0, err
	}
	_, seconds := ref.Zone()
	return time.Duration(seconds) * time.Second, nil
}

// FormatTime renders t in the XMLTV "YYYYMMDDhhmmss +zzzz" form
func FormatTime(t time.Time) string {
	return t.Format("20060102150405 -0700")
}
