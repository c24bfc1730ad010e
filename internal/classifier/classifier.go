// Package classifier implements the Domain Classifier: host and IP
// categorization into internal/external/shadow-AI/sanctioned-SaaS/
// personal, plus the privacy-mode capture gate.
//
// Grounded on original_source/pkg/data/ai_domains.py (the AI_DOMAINS
// catalogue and is_ai_domain exact/suffix-match algorithm) and
// original_source/pkg/data/corporate_assets.py (CORPORATE_CIDRS,
// CORPORATE_SAAS_DOMAINS, PERSONAL_DOMAINS, is_corporate_traffic,
// should_capture). Both sets are carried over close to verbatim since
// the categories themselves are the classification surface.
package classifier

import (
	"net"
	"strings"
)

// aiDomains lists hostnames of generative-AI services, organized into
// the same categories as the original catalogue.
var aiDomains = map[string]bool{
	// Major LLM providers
	"openai.com": true, "api.openai.com": true, "chatgpt.com": true, "oaistatic.com": true, "oaiusercontent.com": true,
	"anthropic.com": true, "claude.ai": true, "api.anthropic.com": true,
	"huggingface.co": true, "hf.co": true, "api-inference.huggingface.co": true,
	"cohere.ai": true, "api.cohere.ai": true,
	"mistral.ai": true, "api.mistral.ai": true, "console.mistral.ai": true,
	"ai21.com": true, "studio.ai21.com": true,
	"perplexity.ai": true, "pplx.ai": true,

	// Google AI
	"gemini.google.com": true, "bard.google.com": true, "generativelanguage.googleapis.com": true,
	"ai.google.dev": true, "vertexai.google.com": true, "notebooklm.google.com": true,

	// Microsoft / GitHub Copilot
	"githubcopilot.com": true, "copilot-proxy.githubusercontent.com": true, "copilot.microsoft.com": true,
	"designer.microsoft.com": true,

	// Image & video generation
	"midjourney.com": true, "stability.ai": true, "stable-diffusion.com": true, "clipdrop.co": true,
	"runwayml.com": true, "app.runwayml.com": true,
	"leonardo.ai": true, "app.leonardo.ai": true,
	"pika.art": true, "sora.com": true,

	// Code assistants
	"tabnine.com": true, "api.tabnine.com": true,
	"codeium.com": true,
	"sourcelink.ai": true, "mutable.ai": true,
	"cursor.sh": true, "cursor.com": true,

	// Audio & speech
	"elevenlabs.io": true, "api.elevenlabs.io": true,
	"suno.ai": true, "app.suno.ai": true,
	"udio.com": true,
	"speechify.com": true,
	"murf.ai": true,

	// Agent platforms & tools
	"langchain.com": true, "smith.langchain.com": true,
	"crewai.com": true,
	"autogen.microsoft.com": true,

	// Other / shadow infrastructure
	"replicate.com": true, "api.replicate.com": true,
	"modal.com": true,
	"together.xyz": true, "api.together.xyz": true,
	"fireworks.ai": true,
	"groq.com": true, "api.groq.com": true,
	"deepseeks.com": true, "chat.deepseek.com": true,
}

// corporateSaaSDomains are sanctioned services always monitored, even
// under privacy mode, because they handle corporate data.
var corporateSaaSDomains = map[string]bool{
	"slack.com": true, "notion.so": true, "github.com": true, "gitlab.com": true,
	"jira.atlassian.com": true, "confluence.atlassian.com": true,
	"docs.google.com": true, "drive.google.com": true, "mail.google.com": true, "calendar.google.com": true,
	"zoom.us": true, "teams.microsoft.com": true, "office365.com": true,
}

// personalDomains are explicitly excluded from monitoring under privacy mode.
var personalDomains = map[string]bool{
	"netflix.com": true, "youtube.com": true, "spotify.com": true, "instagram.com": true,
	"facebook.com": true, "twitter.com": true, "tiktok.com": true, "reddit.com": true,
	"amazon.com": true, "ebay.com": true, "bankofamerica.com": true, "chase.com": true,
	"paypal.com": true, "venmo.com": true,
}

// privateBlocks are the RFC1918 ranges treated as "internal".
var privateBlocks = mustParseCIDRs(
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
)

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	out := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic("classifier: invalid built-in CIDR " + c)
		}
		out = append(out, n)
	}
	return out
}

// Classifier categorizes hosts and IPs observed in flow traffic.
// StrictPrivacyDefault flips IsCorporateTraffic's fallback for unknown
// external destinations from "monitor" (false default) to "drop"
// (true), per spec.md §9's open question on is_corporate_traffic's
// default.
type Classifier struct {
	StrictPrivacyDefault bool
}

// New returns a Classifier using the monitor-by-default fallback.
func New() *Classifier {
	return &Classifier{}
}

// IsAIDomain reports whether host (or its parent/grandparent domain)
// is a known generative-AI service, so "cdn.openai.com" collapses to
// the "openai.com" entry.
func IsAIDomain(host string) bool {
	if host == "" {
		return false
	}
	host = strings.ToLower(strings.TrimSpace(host))
	if aiDomains[host] {
		return true
	}
	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		if aiDomains[strings.Join(parts[len(parts)-2:], ".")] {
			return true
		}
	}
	if len(parts) >= 3 {
		if aiDomains[strings.Join(parts[len(parts)-3:], ".")] {
			return true
		}
	}
	return false
}

// IsInternal reports whether ip falls inside an RFC1918 private range.
func IsInternal(ip string) bool {
	addr := net.ParseIP(ip)
	if addr == nil {
		return false
	}
	for _, b := range privateBlocks {
		if b.Contains(addr) {
			return true
		}
	}
	return false
}

// domainSetContains reports whether host (or any substring match
// against set, mirroring the original's "any(x in host for x in set)"
// check) falls in the given domain set.
func domainSetContains(set map[string]bool, host string) bool {
	if host == "" {
		return false
	}
	host = strings.ToLower(host)
	for d := range set {
		if strings.Contains(host, d) {
			return true
		}
	}
	return false
}

// IsCorporateTraffic decides whether a destination counts as
// "corporate" traffic that privacy mode should keep. Private IPs are
// always corporate; a personal-domain hit is never corporate; a
// sanctioned-SaaS hit always is; everything else falls back to the
// classifier's configured default (monitor, unless
// StrictPrivacyDefault is set).
func (c *Classifier) IsCorporateTraffic(dstIP string, metadata map[string]string) bool {
	if IsInternal(dstIP) {
		return true
	}

	host := ""
	if metadata != nil {
		host = metadata["host"]
		if host == "" {
			host = metadata["sni"]
		}
	}
	if domainSetContains(personalDomains, host) {
		return false
	}
	if domainSetContains(corporateSaaSDomains, host) {
		return true
	}
	return !c.StrictPrivacyDefault
}

// ShouldCapture is the master pipeline gate: when privacyMode is
// false, everything is captured; when true, only corporate traffic is.
func (c *Classifier) ShouldCapture(privacyMode bool, dstIP string, metadata map[string]string) bool {
	if !privacyMode {
		return true
	}
	return c.IsCorporateTraffic(dstIP, metadata)
}
