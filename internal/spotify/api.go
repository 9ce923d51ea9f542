package spotify

import (
	"context"
	"net/url"
	"sort"
	"strconv"
)

// TimeRange selects the affinity window for top items.
type TimeRange string

const (
	TimeRangeShort  TimeRange = "short_term"
	TimeRangeMedium TimeRange = "medium_term"
	TimeRangeLong   TimeRange = "long_term"
)

// Image is a cover or avatar rendition.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// Profile is the current user's Spotify profile.
type Profile struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	Email       string  `json:"email"`
	Country     string  `json:"country"`
	Product     string  `json:"product"`
	Images      []Image `json:"images"`
}

// Artist is a simplified artist object.
type Artist struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Genres     []string `json:"genres"`
	Popularity int      `json:"popularity"`
	Images     []Image  `json:"images"`
}

// Album is a simplified album object.
type Album struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Images []Image `json:"images"`
}

// Track is a simplified track object.
type Track struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	DurationMS int      `json:"duration_ms"`
	PreviewURL *string  `json:"preview_url"`
	Artists    []Artist `json:"artists"`
	Album      Album    `json:"album"`
}

// Genre is a genre with the number of top artists tagged with it.
type Genre struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type paging[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// Profile returns the user's Spotify profile.
func (c *Client) Profile(ctx context.Context, userID int64) (*Profile, error) {
	var p Profile
	if err := c.GetJSON(ctx, userID, c.baseURL+"/me", &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// TopArtists returns the user's top artists.
func (c *Client) TopArtists(ctx context.Context, userID int64, tr TimeRange, limit int) ([]Artist, error) {
	var page paging[Artist]
	if err := c.GetJSON(ctx, userID, c.topURL("artists", tr, limit), &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}

// TopTracks returns the user's top tracks.
func (c *Client) TopTracks(ctx context.Context, userID int64, tr TimeRange, limit int) ([]Track, error) {
	var page paging[Track]
	if err := c.GetJSON(ctx, userID, c.topURL("tracks", tr, limit), &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}

// genreSampleSize is how many top artists TopGenres ranks genres over; the
// largest page the top items endpoint serves.
const genreSampleSize = 50

// TopGenres ranks genres across the user's top artists, most frequent first.
// Ties are ordered by name. At most limit genres are returned.
func (c *Client) TopGenres(ctx context.Context, userID int64, tr TimeRange, limit int) ([]Genre, error) {
	artists, err := c.TopArtists(ctx, userID, tr, genreSampleSize)
	if err != nil {
		return nil, err
	}
	genres := rankGenres(artists)
	if limit > 0 && len(genres) > limit {
		genres = genres[:limit]
	}
	return genres, nil
}

func rankGenres(artists []Artist) []Genre {
	counts := make(map[string]int)
	for _, a := range artists {
		for _, g := range a.Genres {
			counts[g]++
		}
	}

	genres := make([]Genre, 0, len(counts))
	for name, n := range counts {
		genres = append(genres, Genre{Name: name, Count: n})
	}
	sort.Slice(genres, func(i, j int) bool {
		if genres[i].Count != genres[j].Count {
			return genres[i].Count > genres[j].Count
		}
		return genres[i].Name < genres[j].Name
	})
	return genres
}

func (c *Client) topURL(kind string, tr TimeRange, limit int) string {
	q := url.Values{}
	if tr != "" {
		q.Set("time_range", string(tr))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	u := c.baseURL + "/me/top/" + kind
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}
