package crawler

import (
	"net/url"
	"strings"
)

const (
	searchPath       = "/readingroom/search/site"
	defaultStartDate = "1900-01-01"
	defaultEndDate   = "2100-01-01"
	// midnight UTC, pre-escaped
	timeSuffix = "T00%3A00%3A00Z"
)

// BuildSearchURL renders the reading-room search URL for a keyword and a
// creation-date window. Missing dates default to a range wide enough to match
// everything; the date filter is always present.
func BuildSearchURL(baseURL, keyword, startDate, endDate string) string {
	start := strings.TrimSpace(startDate)
	if start == "" {
		start = defaultStartDate
	}
	end := strings.TrimSpace(endDate)
	if end == "" {
		end = defaultEndDate
	}

	path := searchPath
	if kw := strings.TrimSpace(keyword); kw != "" {
		path += "/" + url.PathEscape(kw)
	}

	filter := "f%5B0%5D=ds_created%3A%5B" +
		url.QueryEscape(start) + timeSuffix +
		"%20TO%20" +
		url.QueryEscape(end) + timeSuffix +
		"%5D"

	return strings.TrimSuffix(baseURL, "/") + path + "?" + filter
}
