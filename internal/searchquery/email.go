package searchquery

import "strings"

const (
	maxEmailLocal  = 64
	maxEmailDomain = 253
	maxEmailLabel  = 63

	// emailPunct is the punctuation allowed inside a kept e-mail token.
	emailPunct = "._%+-@"
)

// IsEmail reports whether s is a syntactically valid e-mail address of the
// dot-atom form. The local part is limited to letters, digits and "._%+-";
// the wider RFC 5322 atext set contains tsquery operators such as '|' and
// '!'. Quoted local parts and IP-literal domains are rejected.
func IsEmail(s string) bool {
	at := strings.IndexByte(s, '@')
	if at <= 0 || at == len(s)-1 || strings.IndexByte(s[at+1:], '@') >= 0 {
		return false
	}
	local, domain := s[:at], s[at+1:]
	return validLocal(local) && validDomain(domain)
}

func validLocal(local string) bool {
	if len(local) > maxEmailLocal {
		return false
	}
	for _, atom := range strings.Split(local, ".") {
		if atom == "" {
			return false
		}
		for i := 0; i < len(atom); i++ {
			if !isLocalByte(atom[i]) {
				return false
			}
		}
	}
	return true
}

func isLocalByte(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte(emailPunct, c) >= 0
}

func validDomain(domain string) bool {
	if len(domain) > maxEmailDomain {
		return false
	}
	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return false
	}
	for _, label := range labels {
		if label == "" || len(label) > maxEmailLabel {
			return false
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for i := 0; i < len(label); i++ {
			c := label[i]
			if !('a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9' || c == '-') {
				return false
			}
		}
	}
	tld := labels[len(labels)-1]
	if len(tld) < 2 {
		return false
	}
	for i := 0; i < len(tld); i++ {
		c := tld[i]
		if !('a' <= c && c <= 'z' || 'A' <= c && c <= 'Z') {
			return false
		}
	}
	return true
}
