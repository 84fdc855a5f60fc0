package xiaohongshu

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
)

// ErrNoMatch is returned when every resolution strategy was exhausted
// without finding a token-bearing result.
var ErrNoMatch = errors.New("no token-bearing note matched the search")

// Searcher is the slice of the gateway the resolver needs.
type Searcher interface {
	Search(ctx context.Context, req SearchRequest) ([]SearchItem, error)
}

// TokenQuery describes one resolution attempt: the note whose access
// token went missing, plus search bounds.
type TokenQuery struct {
	NoteID   string
	Title    string
	UserID   string
	Cookie   string
	MaxPages int
	PageSize int
	Sort     SortType
	NoteType TypeFilter

	// FallbackMaxPages bounds the last-resort unfiltered search; it is
	// deliberately much larger than MaxPages.
	FallbackMaxPages int
}

// TokenMatch is a plausible search hit carrying an access token. The
// original note id is preserved; FoundID records what the search
// actually returned. Identity is heuristic, not proven.
type TokenMatch struct {
	NoteID     string
	FoundID    string
	XsecToken  string
	XsecSource string
	Title      string
	UserID     string
}

// Strategy attempts one way of recovering a token for a note.
type Strategy interface {
	Name() string
	Resolve(ctx context.Context, q TokenQuery) (*TokenMatch, error)
}

// Resolver repairs broken note references by trying an ordered list of
// search strategies until one yields a token-bearing match.
type Resolver struct {
	logger     *zap.Logger
	strategies []Strategy
}

func NewResolver(searcher Searcher, logger *zap.Logger) *Resolver {
	return &Resolver{
		logger: logger,
		strategies: []Strategy{
			&exactTitleStrategy{searcher: searcher},
			&keywordSplitStrategy{inner: &exactTitleStrategy{searcher: searcher}},
			&popularitySortStrategy{inner: &exactTitleStrategy{searcher: searcher}},
			&firstValidStrategy{searcher: searcher},
		},
	}
}

// Resolve tries each strategy in order and returns the first match.
// Strategy errors are logged and do not stop the chain; ErrNoMatch is
// returned once every strategy has been exhausted.
func (r *Resolver) Resolve(ctx context.Context, q TokenQuery) (*TokenMatch, error) {
	for _, strategy := range r.strategies {
		match, err := strategy.Resolve(ctx, q)
		if err != nil {
			r.logger.Warn("Resolution strategy failed",
				zap.String("strategy", strategy.Name()),
				zap.String("note_id", q.NoteID),
				zap.Error(err))
			continue
		}
		if match != nil {
			r.logger.Info("Resolved note token",
				zap.String("strategy", strategy.Name()),
				zap.String("note_id", q.NoteID),
				zap.String("found_id", match.FoundID))
			return match, nil
		}
	}
	return nil, ErrNoMatch
}

// searchAllPages paginates a keyword search. It stops on an empty
// page, on a page shorter than the requested size, or once maxPages is
// reached. A page error ends the pagination with whatever was
// accumulated so far.
func searchAllPages(ctx context.Context, searcher Searcher, req SearchRequest, maxPages int) ([]SearchItem, error) {
	if maxPages <= 0 {
		maxPages = 10
	}
	if req.PageSize <= 0 {
		req.PageSize = 20
	}

	var all []SearchItem
	for page := 1; page <= maxPages; page++ {
		req.Page = page
		items, err := searcher.Search(ctx, req)
		if err != nil {
			if len(all) == 0 {
				return nil, err
			}
			return all, nil
		}
		if len(items) == 0 {
			break
		}
		all = append(all, items...)
		if len(items) < req.PageSize {
			break
		}
	}
	return all, nil
}

// matchFromItem validates one search hit against the query. Items
// without a card or token never match; a user id constraint, when
// present, must hold.
func matchFromItem(q TokenQuery, item SearchItem) *TokenMatch {
	if item.NoteCard == nil || item.XsecToken == "" {
		return nil
	}
	cardUserID := ""
	if item.NoteCard.User != nil {
		cardUserID = item.NoteCard.User.UserID
	}
	if q.UserID != "" && cardUserID != q.UserID {
		return nil
	}
	source := item.XsecSource
	if source == "" {
		source = "pc_search"
	}
	return &TokenMatch{
		NoteID:     q.NoteID,
		FoundID:    item.NoteCard.ID,
		XsecToken:  item.XsecToken,
		XsecSource: source,
		Title:      item.NoteCard.DisplayTitle,
		UserID:     cardUserID,
	}
}

// selectMatch picks from a result set: an item whose id equals the
// known note id wins; otherwise the first item passing the user id and
// token checks is taken.
func selectMatch(q TokenQuery, items []SearchItem) *TokenMatch {
	for _, item := range items {
		if item.NoteCard != nil && item.NoteCard.ID == q.NoteID {
			if m := matchFromItem(q, item); m != nil {
				return m
			}
		}
	}
	for _, item := range items {
		if m := matchFromItem(q, item); m != nil {
			return m
		}
	}
	return nil
}

// exactTitleStrategy searches the full title as one keyword.
type exactTitleStrategy struct {
	searcher Searcher
}

func (s *exactTitleStrategy) Name() string { return "exact-title" }

func (s *exactTitleStrategy) Resolve(ctx context.Context, q TokenQuery) (*TokenMatch, error) {
	if q.Title == "" {
		return nil, nil
	}
	items, err := searchAllPages(ctx, s.searcher, SearchRequest{
		Keyword:  q.Title,
		PageSize: q.PageSize,
		Sort:     q.Sort,
		NoteType: q.NoteType,
		Cookie:   q.Cookie,
	}, q.MaxPages)
	if err != nil {
		return nil, err
	}
	return selectMatch(q, items), nil
}

// keywordSplitStrategy tokenizes the title and retries the exact
// search per keyword, stopping at the first success.
type keywordSplitStrategy struct {
	inner *exactTitleStrategy
}

func (s *keywordSplitStrategy) Name() string { return "keyword-split" }

func (s *keywordSplitStrategy) Resolve(ctx context.Context, q TokenQuery) (*TokenMatch, error) {
	keywords := SplitKeywords(q.Title)
	if len(keywords) == 0 {
		return nil, nil
	}
	for _, keyword := range keywords {
		sub := q
		sub.Title = keyword
		match, err := s.inner.Resolve(ctx, sub)
		if err != nil {
			return nil, err
		}
		if match != nil {
			return match, nil
		}
	}
	return nil, nil
}

// popularitySortStrategy repeats the exact search ordered by likes to
// surface a differently-ranked candidate set.
type popularitySortStrategy struct {
	inner *exactTitleStrategy
}

func (s *popularitySortStrategy) Name() string { return "popularity-sort" }

func (s *popularitySortStrategy) Resolve(ctx context.Context, q TokenQuery) (*TokenMatch, error) {
	sub := q
	sub.Sort = SortLikesDesc
	return s.inner.Resolve(ctx, sub)
}

// firstValidStrategy is the last resort: an unfiltered deep search
// where the first token-bearing item wins, regardless of id or owner.
type firstValidStrategy struct {
	searcher Searcher
}

func (s *firstValidStrategy) Name() string { return "first-valid" }

func (s *firstValidStrategy) Resolve(ctx context.Context, q TokenQuery) (*TokenMatch, error) {
	if q.Title == "" {
		return nil, nil
	}
	maxPages := q.FallbackMaxPages
	if maxPages <= 0 {
		maxPages = 200
	}
	items, err := searchAllPages(ctx, s.searcher, SearchRequest{
		Keyword:  q.Title,
		PageSize: q.PageSize,
		Cookie:   q.Cookie,
	}, maxPages)
	if err != nil {
		return nil, err
	}
	unconstrained := q
	unconstrained.UserID = ""
	for _, item := range items {
		if m := matchFromItem(unconstrained, item); m != nil {
			return m, nil
		}
	}
	return nil, nil
}

// SplitKeywords breaks a title into search keywords: whitespace-split
// words longer than one rune. Titles shorter than three runes yield
// nothing.
func SplitKeywords(title string) []string {
	if len([]rune(title)) < 3 {
		return nil
	}
	var keywords []string
	for _, word := range strings.Fields(title) {
		if len([]rune(word)) > 1 {
			keywords = append(keywords, word)
		}
	}
	return keywords
}
