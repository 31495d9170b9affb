// Package ratelimit paces video downloads.
//
// The default limiter combines a fixed pause between consecutive downloads
// (Interval) with a requests-per-minute cap (SlidingWindow). Both honour
// context cancellation, so Ctrl-C interrupts a pending wait.
package ratelimit
