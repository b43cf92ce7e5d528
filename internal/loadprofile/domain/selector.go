package loadprofile

import "strings"

// DefaultKeyword selects substation (GI) feeder columns.
const DefaultKeyword = "gi"

const incomingQualifier = "inc"

// SeriesSelector decides which wide-matrix columns are feeders.
//
// A column name is lower-cased and split on commas. Without a qualifier the keyword must
// appear in the name. With a qualifier the keyword must appear in the first segment and
// the second segment must not mark an incoming channel.
type SeriesSelector struct {
	keyword string
}

// NewSeriesSelector builds a selector; an empty keyword falls back to DefaultKeyword.
func NewSeriesSelector(keyword string) SeriesSelector {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		keyword = DefaultKeyword
	}
	return SeriesSelector{keyword: keyword}
}

// Keyword returns the normalized keyword.
func (s SeriesSelector) Keyword() string {
	if s.keyword == "" {
		return DefaultKeyword
	}
	return s.keyword
}

// Match reports whether the column is included.
func (s SeriesSelector) Match(column string) bool {
	parts := strings.Split(strings.ToLower(column), ",")
	keyword := s.Keyword()
	if len(parts) == 1 {
		return strings.Contains(parts[0], keyword)
	}
	return strings.Contains(parts[0], keyword) && !strings.Contains(parts[1], incomingQualifier)
}
