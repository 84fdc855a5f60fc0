package xiaohongshu

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

const webDomain = "https://www.xiaohongshu.com"

var (
	noteIDPattern    = regexp.MustCompile(`/explore/([^/?&#]+)`)
	creatorIDPattern = regexp.MustCompile(`/user/profile/([^/?&#]+)`)
)

// ParseNoteID extracts the platform note id from an explore URL,
// returning "" when the URL does not point at a note.
func ParseNoteID(noteURL string) string {
	if m := noteIDPattern.FindStringSubmatch(noteURL); m != nil {
		return m[1]
	}
	return ""
}

// ParseCreatorID extracts the creator id from a profile URL,
// returning "" when the URL does not point at a profile.
func ParseCreatorID(profileURL string) string {
	if m := creatorIDPattern.FindStringSubmatch(profileURL); m != nil {
		return m[1]
	}
	return ""
}

// NoteURL builds the canonical explore URL for a note id.
func NoteURL(noteID string) string {
	return fmt.Sprintf("%s/explore/%s", webDomain, noteID)
}

// ProfileURL builds the canonical profile URL for a creator id.
func ProfileURL(creatorID string) string {
	return fmt.Sprintf("%s/user/profile/%s", webDomain, creatorID)
}

// NoteURLWithToken builds a detail URL carrying the access token the
// detail endpoint requires.
func NoteURLWithToken(noteID, xsecToken, xsecSource string) string {
	if xsecSource == "" {
		xsecSource = "pc_search"
	}
	return fmt.Sprintf("%s/explore/%s?xsec_token=%s&xsec_source=%s",
		webDomain, noteID, url.QueryEscape(xsecToken), url.QueryEscape(xsecSource))
}

// ParseNoteURL splits a note URL into id and token parts. Missing
// query parameters come back empty.
func ParseNoteURL(noteURL string) (noteID, xsecToken, xsecSource string) {
	noteID = ParseNoteID(noteURL)
	if noteID == "" {
		return "", "", ""
	}
	xsecSource = "pc_search"
	if idx := strings.Index(noteURL, "?"); idx >= 0 {
		if values, err := url.ParseQuery(noteURL[idx+1:]); err == nil {
			xsecToken = values.Get("xsec_token")
			if s := values.Get("xsec_source"); s != "" {
				xsecSource = s
			}
		}
	}
	return noteID, xsecToken, xsecSource
}

// ParseCount converts the platform's popularity strings to a number.
// A "万" suffix means ×10,000, so "1.2万" is 12000. Unparsable input
// yields 0.
func ParseCount(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if rest, ok := strings.CutSuffix(s, "万"); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(rest), 64)
		if err != nil {
			return 0
		}
		return int(f * 10000)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int(f)
}
