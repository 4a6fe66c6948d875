package logger

import (
	"net/url"
	"sort"
	"strings"
)

const redacted = "[REDACTED]"

// sensitiveParams are query keys whose values never reach the access log
var sensitiveParams = []string{"password", "token", "secret", "code", "signature", "email", "auth"}

// SanitizedEmail masks an email address for logging. The first character
// of the local part and the top-level domain survive:
// "post.malone@gmail.com" -> "p**********@*****.com".
func SanitizedEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" || strings.Contains(domain, "@") {
		return "[invalid-email]"
	}

	masked := local[:1] + strings.Repeat("*", len(local)-1)

	if dot := strings.LastIndex(domain, "."); dot > 0 {
		labels := strings.Split(domain[:dot], ".")
		for i, label := range labels {
			labels[i] = strings.Repeat("*", len(label))
		}
		domain = strings.Join(labels, ".") + domain[dot:]
	}

	return masked + "@" + domain
}

// RedactQuery returns rawQuery with the values of credential-bearing
// parameters replaced. Unparseable queries are redacted whole.
func RedactQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}

	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return redacted
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		if isSensitiveParam(key) {
			parts = append(parts, url.QueryEscape(key)+"="+redacted)
			continue
		}
		for _, v := range values[key] {
			parts = append(parts, url.QueryEscape(key)+"="+url.QueryEscape(v))
		}
	}
	return strings.Join(parts, "&")
}

func isSensitiveParam(key string) bool {
	key = strings.ToLower(key)
	for _, param := range sensitiveParams {
		if strings.Contains(key, param) {
			return true
		}
	}
	return false
}
