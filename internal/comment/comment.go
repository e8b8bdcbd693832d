// Package comment renders an envelope as a PR comment. The template is
// fixed: identical findings always render the identical comment, and a
// hidden fingerprint marker lets the posting side skip updates that
// would only churn cosmetics.
package comment

import (
	"fmt"
	"strings"

	"arcsight/cas"
	"arcsight/envelope"
)

// Marker prefixes the machine-readable fingerprint embedded in every
// rendered comment.
const Marker = "<!-- arcsight:fingerprint:"

// Fingerprint hashes the finding set of an envelope: each cycle's
// canonical form and root cause, in emission order. Confidence, stats,
// and signatures do not participate, so re-analysis that reaches the
// same findings fingerprints identically.
func Fingerprint(env *envelope.Envelope) string {
	var b strings.Builder
	for _, c := range env.Core.Cycles {
		fmt.Fprintf(&b, "%s|%s|%s|%d\n", c.Canonical, c.RootCause.From, c.RootCause.To, c.RootCause.Line)
	}
	return cas.Blake3HashHex([]byte(b.String()))
}

// ExtractFingerprint pulls the fingerprint out of a previously rendered
// comment body. Returns "" when no marker is present.
func ExtractFingerprint(body string) string {
	start := strings.Index(body, Marker)
	if start < 0 {
		return ""
	}
	rest := body[start+len(Marker):]
	end := strings.Index(rest, " -->")
	if end < 0 {
		return ""
	}
	return rest[:end]
}

// Render produces the comment body for an envelope. Only envelopes with
// at least one cycle should be rendered; silent and error envelopes
// produce no comment at all.
func Render(env *envelope.Envelope) string {
	var b strings.Builder

	b.WriteString(Marker)
	b.WriteString(Fingerprint(env))
	b.WriteString(" -->\n")

	if len(env.Core.Cycles) == 1 {
		b.WriteString("### Dependency cycle introduced by this PR\n\n")
	} else {
		fmt.Fprintf(&b, "### %d dependency cycles introduced by this PR\n\n", len(env.Core.Cycles))
	}

	for _, c := range env.Core.Cycles {
		fmt.Fprintf(&b, "- `%s`\n", c.Canonical)
		fmt.Fprintf(&b, "  - root cause: `%s` imports `%s` (line %d)\n",
			c.RootCause.From, c.RootCause.To, c.RootCause.Line)
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "Confidence: %.4f. ", env.Core.Confidence)
	b.WriteString("Breaking the root-cause import resolves the cycle.\n")

	return b.String()
}

// ShouldUpdate reports whether a rendered comment needs replacing: yes
// when the previous body is missing or carries a different fingerprint.
func ShouldUpdate(previousBody string, env *envelope.Envelope) bool {
	return ExtractFingerprint(previousBody) != Fingerprint(env)
}
