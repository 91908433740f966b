package models

import "strings"

// Result is a single retrieved document. URL is the identity used for deduplication.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Response is what a retrieval call yields.
type Response struct {
	Results []Result `json:"results"`
	Images  []string `json:"images"`
}

// FocusMode restricts the source domains a query targets.
type FocusMode string

const (
	FocusWeb      FocusMode = "web"
	FocusAcademic FocusMode = "academic"
	FocusWriting  FocusMode = "writing"
	FocusVideo    FocusMode = "video"
	FocusSocial   FocusMode = "social"
)

// ParseFocusMode returns web for unknown values.
func ParseFocusMode(s string) FocusMode {
	switch FocusMode(strings.ToLower(strings.TrimSpace(s))) {
	case FocusAcademic:
		return FocusAcademic
	case FocusWriting:
		return FocusWriting
	case FocusVideo:
		return FocusVideo
	case FocusSocial:
		return FocusSocial
	default:
		return FocusWeb
	}
}

// SiteFilter is the query suffix that scopes a search to the mode's domains.
func (m FocusMode) SiteFilter() string {
	switch m {
	case FocusSocial:
		return "site:reddit.com OR site:twitter.com"
	case FocusAcademic:
		return "site:arxiv.org OR site:scholar.google.com"
	case FocusVideo:
		return "site:youtube.com"
	case FocusWeb, FocusWriting:
		return ""
	}
	return ""
}
