// Package scraper harvests the videos of a Douyin profile and downloads them.
//
// A run opens the profile in a browser session, applies cookies, closes
// the login panel and scrolls the post list so the page requests more
// posts. One of three harvest strategies then produces candidates:
//
//   - api: the aweme list response captured while the page loaded is
//     decoded and every post with a play address becomes a candidate
//   - page: every video page linked from the profile is opened in turn and
//     the media requests it makes are downloaded; only the largest file of
//     each page is kept by default
//   - hover: each list item is hovered so the page starts its preview, and
//     the first preview request is downloaded under the item's title
//
// Candidates already recorded in the profile's run history are skipped,
// the rest go through a worker pool that respects the configured delay
// and request budget. Each run ends with a metadata.json next to the
// videos and a one-line summary:
//
//	s, err := scraper.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	summary, err := s.Run(ctx, profileURL, config.ModeAPI)
//	fmt.Println(summary.Summary())
//
// FetchDirect skips the browser and downloads from an aweme list URL that
// was captured elsewhere.
package scraper
