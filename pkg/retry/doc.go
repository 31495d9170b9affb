// Package retry retries flaky network calls with backoff.
//
// Typed errors from dyscraper/pkg/errors decide retryability: network,
// rate-limit and server errors are retried, everything else is returned
// immediately. Rate-limit errors wait three times the normal backoff.
//
//	cfg := retry.FromSettings(appCfg.Retry, log)
//	page, err := retry.DoWithResult(ctx, func(ctx context.Context) (*douyin.AwemePage, error) {
//		return client.FetchAwemeList(ctx, apiURL)
//	}, cfg)
package retry
