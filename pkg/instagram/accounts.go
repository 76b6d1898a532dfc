package instagram

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"
)

// MaxAccountLength is the longest account identifier kept after cleaning.
const MaxAccountLength = 50

var (
	ErrEmptyAccount    = errors.New("empty account")
	ErrCommentLine     = errors.New("comment line")
	ErrReservedSegment = errors.New("reserved path segment")
	ErrForeignHost     = errors.New("url does not belong to the service")
	ErrNoAccountInURL  = errors.New("url has no account segment")
)

// ReservedSegments are first path segments that name site routes rather than
// accounts.
var ReservedSegments = map[string]bool{
	"p":         true,
	"reel":      true,
	"tv":        true,
	"explore":   true,
	"accounts":  true,
	"about":     true,
	"privacy":   true,
	"legal":     true,
	"developer": true,
}

var (
	disallowedChars = regexp.MustCompile(`[^a-zA-Z0-9._]`)
	schemePrefix    = regexp.MustCompile(`(?i)^(https?:)?//`)
	httpPrefix      = regexp.MustCompile(`(?i)^https?:`)
)

// Normalizer turns raw handles and profile URLs into account identifiers.
type Normalizer struct {
	// Domains are the hosts (and their subdomains) accepted in URL input
	Domains []string
}

// DefaultNormalizer accepts URLs on Domain only.
var DefaultNormalizer = Normalizer{Domains: []string{Domain}}

// NormalizeAccount normalizes raw with DefaultNormalizer.
func NormalizeAccount(raw string) (string, error) {
	return DefaultNormalizer.Normalize(raw)
}

// Normalize returns the account identifier for raw. Leading "@" characters
// are dropped; URL input must be on one of the accepted domains and yields its
// first path segment. The result keeps only [A-Za-z0-9._], is at most
// MaxAccountLength long and is never a reserved segment. Normalizing a
// normalized identifier returns it unchanged.
func (n Normalizer) Normalize(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", ErrEmptyAccount
	}
	if strings.HasPrefix(s, "#") {
		return "", ErrCommentLine
	}
	s = strings.TrimLeft(s, "@")

	candidate := s
	if n.looksLikeURL(s) {
		segment, err := n.firstSegment(s)
		if err != nil {
			return "", err
		}
		candidate = segment
	}

	cleaned := disallowedChars.ReplaceAllString(candidate, "")
	if len(cleaned) > MaxAccountLength {
		cleaned = cleaned[:MaxAccountLength]
	}
	if cleaned == "" {
		return "", ErrEmptyAccount
	}
	if ReservedSegments[strings.ToLower(cleaned)] {
		return "", fmt.Errorf("%w: %s", ErrReservedSegment, cleaned)
	}
	return cleaned, nil
}

func (n Normalizer) looksLikeURL(s string) bool {
	if schemePrefix.MatchString(s) {
		return true
	}
	lower := strings.ToLower(s)
	for _, d := range n.Domains {
		d = strings.ToLower(d)
		if strings.HasPrefix(lower, d+"/") || strings.HasPrefix(lower, "www."+d+"/") {
			return true
		}
	}
	return false
}

func (n Normalizer) firstSegment(s string) (string, error) {
	if !httpPrefix.MatchString(s) {
		s = "https://" + strings.TrimPrefix(s, "//")
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid account url: %w", err)
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if !n.acceptsHost(host) {
		return "", fmt.Errorf("%w: %s", ErrForeignHost, host)
	}

	for _, part := range strings.Split(u.Path, "/") {
		if part == "" {
			continue
		}
		if ReservedSegments[strings.ToLower(part)] {
			return "", fmt.Errorf("%w: %s", ErrReservedSegment, part)
		}
		return part, nil
	}
	return "", ErrNoAccountInURL
}

func (n Normalizer) acceptsHost(host string) bool {
	for _, d := range n.Domains {
		d = strings.ToLower(d)
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// AccountList is the outcome of parsing an account list.
type AccountList struct {
	// Accounts are the normalized identifiers in first-seen order
	Accounts []string
	// Ignored are non-comment lines that did not yield an account
	Ignored []string
}

// ParseAccountList reads one entry per line. Blank lines and lines starting
// with "#" are skipped, and duplicates (before or after normalization) are
// dropped keeping the first occurrence.
func (n Normalizer) ParseAccountList(r io.Reader) (*AccountList, error) {
	list := &AccountList{}
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		account, err := n.Normalize(line)
		if err != nil {
			list.Ignored = append(list.Ignored, line)
			continue
		}
		if seen[account] {
			continue
		}
		seen[account] = true
		list.Accounts = append(list.Accounts, account)
	}
	if err := scanner.Err(); err != nil {
		return list, fmt.Errorf("failed to read account list: %w", err)
	}
	return list, nil
}
