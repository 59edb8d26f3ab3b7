package authstore

import "os"

// envCandidate is one possible environment variable source for a
// provider's credential, tagged with which Credential field it fills.
type envCandidate struct {
	envVar  string
	isOAuth bool
}

// providerEnvVars maps a normalized provider id to its ordered list of
// candidate environment variables, OAuth tokens preferred over API keys
// where both are defined. google-vertex is intentionally absent: it
// authenticates via external credential providers (ADC), not env vars.
var providerEnvVars = map[string][]envCandidate{
	"openai":         {{envVar: "OPENAI_API_KEY"}},
	"anthropic":      {{envVar: "ANTHROPIC_OAUTH_TOKEN", isOAuth: true}, {envVar: "ANTHROPIC_API_KEY"}},
	"gemini":         {{envVar: "GEMINI_API_KEY"}},
	"groq":           {{envVar: "GROQ_API_KEY"}},
	"cerebras":       {{envVar: "CEREBRAS_API_KEY"}},
	"xai":            {{envVar: "XAI_API_KEY"}},
	"openrouter":     {{envVar: "OPENROUTER_API_KEY"}},
	"moonshot":       {{envVar: "MOONSHOT_API_KEY"}},
	"mistral":        {{envVar: "MISTRAL_API_KEY"}},
	"ollama":         {{envVar: "OLLAMA_API_KEY"}},
	"chutes":         {{envVar: "CHUTES_OAUTH_TOKEN", isOAuth: true}, {envVar: "CHUTES_API_KEY"}},
	"zai":            {{envVar: "ZAI_OAUTH_TOKEN", isOAuth: true}, {envVar: "ZAI_API_KEY"}},
	"opencode":       {{envVar: "OPENCODE_OAUTH_TOKEN", isOAuth: true}, {envVar: "OPENCODE_API_KEY"}},
	"qwen-portal":    {{envVar: "QWEN_PORTAL_OAUTH_TOKEN", isOAuth: true}, {envVar: "QWEN_PORTAL_API_KEY"}},
	"minimax-portal": {{envVar: "MINIMAX_PORTAL_OAUTH_TOKEN", isOAuth: true}, {envVar: "MINIMAX_PORTAL_API_KEY"}},
	"kimi-coding":    {{envVar: "KIMI_CODING_OAUTH_TOKEN", isOAuth: true}, {envVar: "KIMI_CODING_API_KEY"}},
	"github-copilot": {{envVar: "COPILOT_GITHUB_TOKEN", isOAuth: true}, {envVar: "GH_TOKEN", isOAuth: true}, {envVar: "GITHUB_TOKEN", isOAuth: true}},
}

// knownProviders is the stable iteration order for autosync, matching the
// provider order the env var list is documented in.
var knownProviders = []string{
	"openai", "anthropic", "gemini", "groq", "cerebras", "xai", "openrouter",
	"moonshot", "mistral", "ollama", "chutes", "zai", "opencode",
	"qwen-portal", "minimax-portal", "kimi-coding", "github-copilot",
}

// resolveEnvCredential returns the first candidate env var that is set for
// provider, preferring OAuth candidates, or false if none are set.
func resolveEnvCredential(provider string) (Credential, bool) {
	for _, cand := range providerEnvVars[provider] {
		value := os.Getenv(cand.envVar)
		if value == "" {
			continue
		}
		if cand.isOAuth {
			return Credential{Type: CredentialToken, Provider: provider, Token: value}, true
		}
		return Credential{Type: CredentialAPIKey, Provider: provider, Key: value}, true
	}
	return Credential{}, false
}

// AutosyncEnvCredentials implements the fail-closed env-import rule: for
// each known provider, a profile is added only when (a) the provider
// currently has zero profiles, (b) a credential is resolvable from the
// environment, and (c) the reserved "<provider>:env" id is not already
// present. Existing profiles are never overwritten. A single provider
// failing to resolve never prevents the others from being evaluated, and
// the whole update is applied atomically (or not at all) by the
// underlying Store.Update lock protocol.
func AutosyncEnvCredentials(store *Store) (added []string, err error) {
	_, updateErr := store.Update(func(profiles map[string]Credential) map[string]Credential {
		next := make(map[string]Credential, len(profiles))
		for k, v := range profiles {
			next[k] = v
		}

		for _, provider := range knownProviders {
			if len(ProfilesForProvider(next, provider)) > 0 {
				continue
			}

			envID := EnvProfileID(provider)
			if _, exists := next[envID]; exists {
				continue
			}

			cred, ok := resolveEnvCredential(provider)
			if !ok {
				continue
			}

			next[envID] = cred
			added = append(added, envID)
		}

		return next
	})

	if updateErr != nil {
		return nil, updateErr
	}
	return added, nil
}
