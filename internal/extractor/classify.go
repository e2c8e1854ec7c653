package extractor

import "strings"

// Order matters: a throttled request can also print "not available".
var diagnosticPatterns = []struct {
	kind    Kind
	needles []string
}{
	{KindRateLimited, []string{"http error 429", "too many requests", "rate limit", "rate-limit"}},
	{KindAgeRestricted, []string{"sign in to confirm your age", "age-restricted", "age restricted", "inappropriate for some users"}},
	{KindScheduledLive, []string{"premieres in", "live event will begin", "this live event", "scheduled to start"}},
	{KindUnavailable, []string{"video unavailable", "private video", "has been removed", "http error 404", "is not available", "no longer available"}},
}

// Classify inspects diagnostic text from a failed invocation.
func Classify(diagnostic string) Kind {
	lower := strings.ToLower(diagnostic)
	for _, p := range diagnosticPatterns {
		for _, needle := range p.needles {
			if strings.Contains(lower, needle) {
				return p.kind
			}
		}
	}
	return KindGeneric
}
