package douyin

import (
	"net/url"
	"strconv"
	"time"

	"dyscraper/pkg/models"
	"dyscraper/pkg/naming"

	"github.com/tidwall/gjson"
)

// Aweme is one post from an aweme list response.
type Aweme struct {
	ID         string
	Desc       string
	Author     string
	CreateTime int64
	DurationMS int64
	PlayURLs   []string
}

// PlayURL picks the first play address, falling back to the first bit-rate
// variant.
func (a Aweme) PlayURL() string {
	if len(a.PlayURLs) == 0 {
		return ""
	}
	return a.PlayURLs[0]
}

// Created returns the post time, or the zero time when unknown.
func (a Aweme) Created() time.Time {
	if a.CreateTime <= 0 {
		return time.Time{}
	}
	return time.Unix(a.CreateTime, 0)
}

// AwemePage is a decoded aweme list response.
type AwemePage struct {
	Items     []Aweme
	HasMore   bool
	MaxCursor int64
}

// ParseAwemeList decodes body. ok is false when body is not JSON or has no
// aweme_list key.
func ParseAwemeList(body []byte) (page *AwemePage, ok bool) {
	if !gjson.ValidBytes(body) {
		return nil, false
	}
	list := gjson.GetBytes(body, "aweme_list")
	if !list.Exists() {
		return nil, false
	}

	page = &AwemePage{
		HasMore:   gjson.GetBytes(body, "has_more").Bool(),
		MaxCursor: gjson.GetBytes(body, "max_cursor").Int(),
	}
	list.ForEach(func(_, item gjson.Result) bool {
		page.Items = append(page.Items, parseAweme(item))
		return true
	})
	return page, true
}

func parseAweme(item gjson.Result) Aweme {
	a := Aweme{
		ID:         item.Get("aweme_id").String(),
		Desc:       item.Get("desc").String(),
		Author:     item.Get("author.nickname").String(),
		CreateTime: item.Get("create_time").Int(),
		DurationMS: item.Get("video.duration").Int(),
	}
	if a.ID == "" {
		a.ID = naming.UnknownID
	}
	if !item.Get("desc").Exists() {
		a.Desc = naming.UntitledDesc
	}

	a.PlayURLs = stringList(item.Get("video.play_addr.url_list"))
	if len(a.PlayURLs) == 0 {
		a.PlayURLs = stringList(item.Get("video.bit_rate.0.play_addr.url_list"))
	}
	return a
}

func stringList(r gjson.Result) []string {
	var out []string
	r.ForEach(func(_, v gjson.Result) bool {
		if s := v.String(); s != "" {
			out = append(out, s)
		}
		return true
	})
	return out
}

// Candidates turns aweme items into download candidates. Items without a
// play URL are returned separately so callers can count them.
func (p *AwemePage) Candidates(maxNameRunes int) (found []models.Candidate, skipped []Aweme) {
	for i, a := range p.Items {
		u := a.PlayURL()
		if u == "" {
			skipped = append(skipped, a)
			continue
		}
		found = append(found, models.Candidate{
			ID:       a.ID,
			Title:    a.Desc,
			URL:      u,
			Index:    i + 1,
			Filename: naming.ForAweme(a.ID, a.Desc, maxNameRunes),
			Source:   models.SourceAPI,

			Author:     a.Author,
			CreatedAt:  a.Created(),
			DurationMS: a.DurationMS,
		})
	}
	return found, skipped
}

// NextPageURL rewrites apiURL to request the page after cursor.
func NextPageURL(apiURL string, cursor int64) (string, error) {
	u, err := url.Parse(apiURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("max_cursor", strconv.FormatInt(cursor, 10))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
