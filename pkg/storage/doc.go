// Package storage manages the output directory of a scrape.
//
// Manager indexes the videos already on disk so a rerun skips them, hands
// out filenames that do not clash within one run, and writes each download
// to a .part file that is renamed into place only when the body is
// complete. Empty bodies and failed transfers leave nothing behind.
//
// KeepLargest implements the page-mode cleanup: when one video page yields
// several renditions, only the biggest file is kept.
package storage
