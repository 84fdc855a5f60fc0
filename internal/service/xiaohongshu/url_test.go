package xiaohongshu

import "testing"

func TestParseCount(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"0", 0},
		{"123", 123},
		{"1234", 1234},
		{"1.2万", 12000},
		{"10万", 100000},
		{"0.5万", 5000},
		{"3.75万", 37500},
		{" 42 ", 42},
		{"赞", 0},
		{"abc万", 0},
		{"-", 0},
	}

	for _, tt := range tests {
		if got := ParseCount(tt.in); got != tt.want {
			t.Errorf("ParseCount(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseNoteID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.xiaohongshu.com/explore/6123abc", "6123abc"},
		{"https://www.xiaohongshu.com/explore/6123abc?xsec_token=tok", "6123abc"},
		{"https://www.xiaohongshu.com/user/profile/u1", ""},
		{"not a url", ""},
	}

	for _, tt := range tests {
		if got := ParseNoteID(tt.in); got != tt.want {
			t.Errorf("ParseNoteID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseCreatorID(t *testing.T) {
	if got := ParseCreatorID("https://www.xiaohongshu.com/user/profile/5f1a2b3c?tab=note"); got != "5f1a2b3c" {
		t.Errorf("ParseCreatorID = %q, want %q", got, "5f1a2b3c")
	}
	if got := ParseCreatorID("https://www.xiaohongshu.com/explore/6123abc"); got != "" {
		t.Errorf("ParseCreatorID on a note URL = %q, want empty", got)
	}
}

func TestNoteURLWithToken(t *testing.T) {
	got := NoteURLWithToken("6123abc", "tok=/x", "")
	want := "https://www.xiaohongshu.com/explore/6123abc?xsec_token=tok%3D%2Fx&xsec_source=pc_search"
	if got != want {
		t.Errorf("NoteURLWithToken = %q, want %q", got, want)
	}

	id, token, source := ParseNoteURL(got)
	if id != "6123abc" || token != "tok=/x" || source != "pc_search" {
		t.Errorf("ParseNoteURL roundtrip = (%q, %q, %q)", id, token, source)
	}
}

func TestParseNoteURLWithoutToken(t *testing.T) {
	id, token, source := ParseNoteURL(NoteURL("6123abc"))
	if id != "6123abc" || token != "" || source != "pc_search" {
		t.Errorf("ParseNoteURL = (%q, %q, %q), want id only", id, token, source)
	}

	id, token, source = ParseNoteURL("https://example.com/other")
	if id != "" || token != "" || source != "" {
		t.Errorf("ParseNoteURL on non-note URL = (%q, %q, %q), want empty", id, token, source)
	}
}
