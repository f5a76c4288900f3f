package backend

import "strings"

// referralObjectClass and referralAttribute are the RFC 3296 markers that
// identify a referral entry: an objectClass of "referral" carrying one or
// more LDAP URLs in "ref".
const (
	referralObjectClass = "referral"
	referralAttribute   = "ref"
)

// Referral describes a referral entry found on a target DN's ancestor
// chain: DN is the referral entry's own DN, URLs are its raw ref values.
type Referral struct {
	DN   string
	URLs []string
}

// FindReferralAncestor walks dn's ancestor chain, innermost first, looking
// for an entry whose objectClass includes "referral". It returns the
// referral found and true, or (nil, false) if none of dn's ancestors (or dn
// itself) is a referral.
func (b *ObaBackend) FindReferralAncestor(dn string) (*Referral, bool) {
	normalizedDN := normalizeDN(dn)
	for candidate := normalizedDN; candidate != ""; candidate = parentDN(candidate) {
		se, err := b.store.get(candidate)
		if err != nil {
			continue
		}
		entry := storeToBackendEntry(se)
		if !isReferralEntry(entry) {
			continue
		}
		urls := entry.GetAttribute(referralAttribute)
		if len(urls) == 0 {
			continue
		}
		return &Referral{DN: candidate, URLs: append([]string(nil), urls...)}, true
	}
	return nil, false
}

// isReferralEntry reports whether entry carries the referral objectClass.
func isReferralEntry(entry *Entry) bool {
	for _, oc := range getObjectClasses(entry) {
		if strings.EqualFold(oc, referralObjectClass) {
			return true
		}
	}
	return false
}

// CheckReferral reports whether an operation against targetDN must be
// redirected to a referral: it returns the rewritten URLs and true when an
// ancestor (or targetDN itself) is a referral entry, or (nil, false)
// otherwise. Callers should skip this check entirely when the request
// carries the ManageDsaIT control.
func (b *ObaBackend) CheckReferral(targetDN string) ([]string, bool) {
	ref, ok := b.FindReferralAncestor(targetDN)
	if !ok {
		return nil, false
	}
	return RewriteReferralURLs(normalizeDN(targetDN), ref.DN, ref.URLs), true
}

// RewriteReferralURLs implements §4.10.1's referral rewriting algorithm.
// targetDN is the operation's original target, referralDN is the DN of the
// referral entry found on (or above) it. When targetDN equals referralDN,
// or targetDN does not lie beneath referralDN, urls are returned unchanged.
// Otherwise each URL's DN component is rewritten to
// (retained-RDNs ++ url's own DN), where retained-RDNs is the portion of
// targetDN's RDN sequence that lies below referralDN.
func RewriteReferralURLs(targetDN, referralDN string, urls []string) []string {
	targetDN = normalizeDN(targetDN)
	referralDN = normalizeDN(referralDN)

	if targetDN == referralDN {
		return urls
	}
	suffix := strings.TrimSuffix(targetDN, ","+referralDN)
	if suffix == targetDN || suffix == "" {
		// targetDN does not lie strictly beneath referralDN.
		return urls
	}

	rewritten := make([]string, len(urls))
	for i, u := range urls {
		rewritten[i] = rewriteLDAPURLDN(u, suffix)
	}
	return rewritten
}

// rewriteLDAPURLDN parses an LDAP URL (RFC 4516) and prepends retainedRDNs
// to its DN component, leaving scheme, host, attrs, scope, and filter
// untouched. Non-LDAP-URL strings are returned unchanged.
func rewriteLDAPURLDN(url string, retainedRDNs string) string {
	const scheme = "ldap://"
	rest := url
	prefix := ""
	if strings.HasPrefix(strings.ToLower(url), scheme) {
		prefix = url[:len(scheme)]
		rest = url[len(scheme):]
	} else if strings.HasPrefix(strings.ToLower(url), "ldaps://") {
		prefix = url[:len("ldaps://")]
		rest = url[len("ldaps://"):]
	} else {
		return url
	}

	slash := strings.Index(rest, "/")
	if slash == -1 {
		// No DN component to rewrite; just append one.
		return prefix + rest + "/" + retainedRDNs
	}

	hostPart := rest[:slash]
	tail := rest[slash+1:]

	question := strings.Index(tail, "?")
	var dn, rest2 string
	if question == -1 {
		dn = tail
	} else {
		dn = tail[:question]
		rest2 = tail[question:]
	}

	newDN := dn
	if dn == "" {
		newDN = retainedRDNs
	} else {
		newDN = retainedRDNs + "," + dn
	}

	return prefix + hostPart + "/" + newDN + rest2
}
