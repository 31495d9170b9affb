package douyin

import (
	"fmt"
	"strings"

	"dyscraper/pkg/naming"

	"github.com/PuerkitoBio/goquery"
)

// ListItem is one top-level <li> of the profile's post list.
type ListItem struct {
	Index int // 1-based
	Title string
}

func parse(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	return doc, nil
}

// ExtractVideoPageURLs returns the absolute href of every anchor in html,
// first occurrence order, without duplicates.
func ExtractVideoPageURLs(html string) ([]string, error) {
	doc, err := parse(html)
	if err != nil {
		return nil, err
	}

	var urls []string
	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		abs := AbsoluteURL(href)
		if abs == "" || strings.HasPrefix(href, "javascript:") || seen[abs] {
			return
		}
		seen[abs] = true
		urls = append(urls, abs)
	})
	return urls, nil
}

// ListItems returns the top-level list items of the container html with
// the first non-empty text found in a <p>, then a <span>, then any element
// whose class mentions "title".
func ListItems(html string) ([]ListItem, error) {
	doc, err := parse(html)
	if err != nil {
		return nil, err
	}

	var items []ListItem
	doc.Find("li").Each(func(_ int, li *goquery.Selection) {
		if li.ParentsFiltered("li").Length() > 0 {
			return
		}
		items = append(items, ListItem{
			Index: len(items) + 1,
			Title: itemTitle(li),
		})
	})
	return items, nil
}

func itemTitle(li *goquery.Selection) string {
	for _, sel := range []string{"p", "span", `[class*="title"]`} {
		var title string
		li.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			title = naming.CleanText(s.Text())
			return title == ""
		})
		if title != "" {
			return title
		}
	}
	return ""
}

// VideoSources returns the src of every <video> and <video><source> in
// html, resolved to absolute URLs. blob: sources are skipped since they
// cannot be fetched outside the page.
func VideoSources(html string) ([]string, error) {
	doc, err := parse(html)
	if err != nil {
		return nil, err
	}

	var out []string
	seen := make(map[string]bool)
	add := func(src string) {
		src = strings.TrimSpace(src)
		if src == "" || strings.HasPrefix(src, "blob:") || strings.HasPrefix(src, "data:") {
			return
		}
		abs := AbsoluteURL(src)
		if !seen[abs] {
			seen[abs] = true
			out = append(out, abs)
		}
	}

	doc.Find("video").Each(func(_ int, v *goquery.Selection) {
		if src, ok := v.Attr("src"); ok {
			add(src)
		}
		v.Find("source[src]").Each(func(_ int, s *goquery.Selection) {
			src, _ := s.Attr("src")
			add(src)
		})
	})
	return out, nil
}
