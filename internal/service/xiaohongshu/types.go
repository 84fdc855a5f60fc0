package xiaohongshu

// Typed views of the collection API payloads. The upstream responses
// are loosely structured; every optional field stays optional here and
// is validated where it is consumed.

type (
	UserPostsResponse struct {
		Code int            `json:"code"`
		Msg  string         `json:"msg"`
		Data *UserPostsData `json:"data"`
	}

	UserPostsData struct {
		Notes   []NoteSummary `json:"notes"`
		HasMore bool          `json:"has_more"`
		Cursor  string        `json:"cursor"`
	}

	NoteSummary struct {
		NoteID       string        `json:"note_id"`
		Type         string        `json:"type"`
		Title        string        `json:"title"`
		Cover        string        `json:"cover"`
		InteractInfo *InteractInfo `json:"interact_info"`
	}

	InteractInfo struct {
		Liked      *bool  `json:"liked"`
		LikedCount string `json:"liked_count"`
		Sticky     *bool  `json:"sticky"`
	}
)

// LikeCount returns the parsed liked_count of a feed item, 0 when absent.
func (n NoteSummary) LikeCount() int {
	if n.InteractInfo == nil {
		return 0
	}
	return ParseCount(n.InteractInfo.LikedCount)
}

type (
	NoteDetailResponse struct {
		Code int         `json:"code"`
		Msg  string      `json:"msg"`
		Data *NoteDetail `json:"data"`
	}

	NoteDetail struct {
		NoteID      string      `json:"note_id"`
		Title       string      `json:"title"`
		Desc        string      `json:"desc"`
		URL         string      `json:"url"`
		VideoLink   string      `json:"video_link"`
		AudioLink   string      `json:"audio_link"`
		Cover       []string    `json:"cover"`
		Author      string      `json:"author"`
		AuthorID    string      `json:"author_id"`
		Likes       string      `json:"likes"`
		Comments    string      `json:"comments"`
		Shares      string      `json:"shares"`
		Collections string      `json:"collections"`
		Tags        []string    `json:"tags"`
		ReleaseTime string      `json:"release_time"`
		Images      []NoteImage `json:"images"`
	}

	NoteImage struct {
		URL string `json:"url"`
	}
)

// SortType orders search results.
type SortType string

const (
	SortGeneral   SortType = "general"
	SortLikesDesc SortType = "likes_desc"
	SortTimeDesc  SortType = "time_desc"
	SortTimeAsc   SortType = "time_asc"
)

// TypeFilter restricts search results to one content type.
type TypeFilter int

const (
	FilterAll   TypeFilter = 0
	FilterVideo TypeFilter = 1
	FilterImage TypeFilter = 2
)

type (
	SearchRequest struct {
		Keyword  string
		Page     int
		PageSize int
		Sort     SortType
		NoteType TypeFilter
		Cookie   string
	}

	searchResponse struct {
		Success bool        `json:"success"`
		Msg     string      `json:"msg"`
		Data    *SearchData `json:"data"`
	}

	SearchData struct {
		Items   []SearchItem `json:"items"`
		HasMore bool         `json:"has_more"`
	}

	SearchItem struct {
		ID         string    `json:"id"`
		XsecToken  string    `json:"xsec_token"`
		XsecSource string    `json:"xsec_source"`
		NoteCard   *NoteCard `json:"note_card"`
	}

	NoteCard struct {
		ID           string        `json:"id"`
		Type         string        `json:"type"`
		DisplayTitle string        `json:"display_title"`
		Desc         string        `json:"desc"`
		User         *CardUser     `json:"user"`
		InteractInfo *InteractInfo `json:"interact_info"`
	}

	CardUser struct {
		UserID   string `json:"user_id"`
		Nickname string `json:"nickname"`
	}
)
