package domain

import "errors"

var (
	// ErrStaleElement is reported by a browser session when a located element
	// no longer matches live page content.
	ErrStaleElement = errors.New("stale element")

	// ErrWaitTimeout is reported when a waited-for element never became visible.
	ErrWaitTimeout = errors.New("wait timeout")

	// ErrUnparsed marks a completion whose labeled fields could not be read.
	ErrUnparsed = errors.New("structured output not parsed")

	// ErrEmptyCompletion marks a provider response without any text.
	ErrEmptyCompletion = errors.New("empty completion")

	// ErrUnavailable marks a page that could not yield an article (paywall,
	// render timeout, missing content). It is terminal for the item only.
	ErrUnavailable = errors.New("article unavailable")

	// ErrUnknownLayout is returned for a source tag that names no page layout.
	ErrUnknownLayout = errors.New("unknown layout")
)
