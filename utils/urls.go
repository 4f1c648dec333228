// forumindex/utils/urls.go
package utils

import (
	"net/url"
	"strconv"
	"strings"

	"forumindex/models"
)

// URLBuilder produces the links attached to index rows. The paths mirror the
// routes registered in handlers.SetupRouter.
type URLBuilder struct {
	BaseURL  string
	FeedType string
}

func NewURLBuilder(baseURL, feedType string) URLBuilder {
	return URLBuilder{BaseURL: strings.TrimSuffix(baseURL, "/"), FeedType: feedType}
}

// Build returns the link of the given kind for forumID. The mark-read link takes
// the forum to return to as its only parameter.
func (b URLBuilder) Build(kind models.URLKind, forumID int64, params ...string) string {
	id := strconv.FormatInt(forumID, 10)
	switch kind {
	case models.URLIndex:
		if forumID == 0 {
			return b.BaseURL + "/"
		}
		return b.BaseURL + "/index/" + id
	case models.URLList:
		return b.BaseURL + "/list/" + id
	case models.URLMarkRead:
		u := b.BaseURL + "/index/" + id + "/markread"
		if len(params) > 0 {
			u += "/" + url.PathEscape(params[0])
		}
		return u
	case models.URLFeed:
		u := b.BaseURL + "/feed/" + id
		if b.FeedType != "" {
			u += "?" + url.Values{"type": {b.FeedType}}.Encode()
		}
		return u
	case models.URLUnlock:
		return b.BaseURL + "/forum/" + id + "/unlock"
	}
	return b.BaseURL + "/"
}
