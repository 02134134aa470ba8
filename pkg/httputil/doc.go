// Package httputil fetches remote datasets.
//
// # Overview
//
//   - [Fetch]: GET a URL with a size limit, classifying failures
//   - [Retry]: Automatic retry with exponential backoff
//
// # Retry
//
// [Fetch] marks transient failures as [RetryableError]:
//
//   - Network errors
//   - 5xx server errors
//   - 429 rate limit responses
//
// Other failures (4xx, oversized bodies) are returned as-is and stop [Retry]
// immediately:
//
//	var data []byte
//	err := httputil.Retry(ctx, 3, time.Second, func() (err error) {
//	    data, err = httputil.Fetch(ctx, client, url, httputil.DefaultMaxBytes)
//	    return err
//	})
//
// [FetchWithRetry] bundles exactly that with the default settings.
//
// # Configuration
//
// Default settings are suitable for most use cases:
//
//   - Max attempts: 3
//   - Base backoff: 1 second
//   - Max body size: 8 MiB
//   - Request timeout: 30 seconds
package httputil
