package tracker

import "strings"

// IsForbidden reports whether an observed activity matches any block rule.
// Matching is case-insensitive throughout. App rules match the process name
// exactly; url rules match as a substring of the url or the window title,
// and additionally as a bare domain (scheme and www stripped, truncated at
// the first path separator) against the title. An empty rule set forbids
// nothing.
func IsForbidden(process, title, url string, appRules, urlRules []string) bool {
	process = strings.ToLower(process)
	title = strings.ToLower(title)
	url = strings.ToLower(url)

	for _, app := range appRules {
		if process == strings.ToLower(strings.TrimSpace(app)) && process != "" {
			return true
		}
	}

	for _, keyword := range urlRules {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword == "" {
			continue
		}
		if url != "" && strings.Contains(url, keyword) {
			return true
		}
		if title != "" && strings.Contains(title, keyword) {
			return true
		}
		if domain := BareDomain(keyword); domain != "" && title != "" && strings.Contains(title, domain) {
			return true
		}
	}

	return false
}

// BareDomain reduces a url keyword to its bare domain: a leading http:// or
// https:// scheme and a leading www. are stripped, and anything from the
// first path separator on is dropped. A keyword that is already a bare
// domain comes back unchanged.
func BareDomain(keyword string) string {
	domain := strings.TrimPrefix(keyword, "https://")
	domain = strings.TrimPrefix(domain, "http://")
	domain = strings.TrimPrefix(domain, "www.")
	if i := strings.IndexByte(domain, '/'); i >= 0 {
		domain = domain[:i]
	}
	return domain
}
