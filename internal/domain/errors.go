package domain

import "errors"

// Recoverable conditions, converted to "no result" for a unit of work.
var (
	ErrFetch          = errors.New("fetch failed")
	ErrNoDownloadLink = errors.New("no download link")
	ErrDownload       = errors.New("download failed")
	ErrGeneration     = errors.New("generation failed")
)

// Caller-visible conditions.
var (
	ErrMissingURL       = errors.New("no url provided")
	ErrProcessingFailed = errors.New("processing failed")
	ErrNoImages         = errors.New("no images available")
)
