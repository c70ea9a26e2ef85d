package fetcher

import "math/rand/v2"

// defaultUserAgents is rotated per request attempt. A small pool of common
// browser strings is enough; the registries key off IP, not UA fingerprints.
var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
}

// RandomUserAgent picks a user agent from the pool.
func RandomUserAgent() string {
	return defaultUserAgents[rand.IntN(len(defaultUserAgents))]
}

// pickProxy returns a random index into the proxy pool. Selection is blind:
// there is no per-proxy failure tracking or circuit breaking, so a dead
// proxy keeps being sampled at the same rate as a healthy one. Known gap,
// preserved deliberately.
func pickProxy(n int) int {
	return rand.IntN(n)
}
