// Package secfilter inspects inbound plaintext — room messages and
// decrypted DMs — for credential-shaped secrets and prompt-injection
// phrasing before the content reaches the agent. It only detects and
// annotates; it never redacts, and acting on a finding is the caller's
// decision. The rule set leans toward false positives: an unflagged
// leaked credential costs far more than a spurious warning.
package secfilter

import (
	"fmt"
	"iter"
	"regexp"
)

// Kind classifies a finding.
type Kind int

const (
	// CredentialLike matches token, API key and password shapes.
	CredentialLike Kind = iota
	// InjectionLike matches imperative instructions embedded in content
	// from an untrusted peer.
	InjectionLike
)

func (k Kind) String() string {
	switch k {
	case CredentialLike:
		return "credential"
	case InjectionLike:
		return "injection"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Finding is one flagged span of the scanned text.
type Finding struct {
	Kind  Kind
	Rule  string
	Match string
	Start int
	End   int
}

type rule struct {
	kind Kind
	name string
	re   *regexp.Regexp
}

var defaultRules = []rule{
	// Credential shapes.
	{CredentialLike, "aws-access-key", regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`)},
	{CredentialLike, "github-token", regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{36,}\b`)},
	{CredentialLike, "slack-token", regexp.MustCompile(`\bxox[baprs]-[A-Za-z0-9-]{10,}\b`)},
	{CredentialLike, "jwt", regexp.MustCompile(`\beyJ[A-Za-z0-9_-]{8,}\.[A-Za-z0-9_-]{8,}\.[A-Za-z0-9_-]{8,}\b`)},
	{CredentialLike, "bearer-token", regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9._~+/=-]{16,}`)},
	{CredentialLike, "private-key-block", regexp.MustCompile(`-----BEGIN (?:[A-Z]+ )?PRIVATE KEY-----`)},
	{CredentialLike, "secret-assignment", regexp.MustCompile(`(?i)\b(?:api[_-]?key|access[_-]?key|secret|token|passwd|password|credential)s?\b\s*[:=]\s*['"]?[^\s'"]{8,}`)},
	{CredentialLike, "long-hex", regexp.MustCompile(`\b[0-9a-fA-F]{40,}\b`)},

	// Prompt-injection phrasing.
	{InjectionLike, "ignore-instructions", regexp.MustCompile(`(?i)\bignore\s+(?:all\s+|any\s+)?(?:previous|prior|above|earlier)\s+(?:instructions|messages|directions|context)`)},
	{InjectionLike, "disregard-instructions", regexp.MustCompile(`(?i)\bdisregard\s+(?:your|all|any|previous|prior|the)\b`)},
	{InjectionLike, "system-prompt", regexp.MustCompile(`(?i)\bsystem\s+prompt\b`)},
	{InjectionLike, "role-override", regexp.MustCompile(`(?i)\byou\s+are\s+now\b|\bpretend\s+(?:to\s+be|you\s+are)\b|\bact\s+as\s+(?:if|though|a|an)\b`)},
	{InjectionLike, "new-instructions", regexp.MustCompile(`(?i)\bnew\s+instructions?\s*:`)},
	{InjectionLike, "concealment", regexp.MustCompile(`(?i)\bdo\s+not\s+(?:tell|inform|alert)\s+(?:the\s+)?(?:user|human|operator|anyone)\b`)},
	{InjectionLike, "exfiltration-request", regexp.MustCompile(`(?i)\b(?:send|give|show|reveal|forward|exfiltrate)\b[^.\n]{0,60}\b(?:key|token|secret|password|credential)s?\b`)},
	{InjectionLike, "fake-markup", regexp.MustCompile(`(?i)</?(?:system|assistant|instructions?|admin)>`)},
}

// Filter scans text against a fixed rule table.
type Filter struct {
	rules []rule
}

// New returns a filter with the default rule set.
func New() *Filter {
	return &Filter{rules: defaultRules}
}

// Scan returns a lazy, restartable sequence of findings in rule order.
// Ranging over the result again rescans from the start.
func (f *Filter) Scan(text string) iter.Seq[Finding] {
	return func(yield func(Finding) bool) {
		for _, r := range f.rules {
			for _, loc := range r.re.FindAllStringIndex(text, -1) {
				finding := Finding{
					Kind:  r.kind,
					Rule:  r.name,
					Match: text[loc[0]:loc[1]],
					Start: loc[0],
					End:   loc[1],
				}
				if !yield(finding) {
					return
				}
			}
		}
	}
}

// ScanAll collects every finding into a slice.
func (f *Filter) ScanAll(text string) []Finding {
	var findings []Finding
	for finding := range f.Scan(text) {
		findings = append(findings, finding)
	}
	return findings
}
