package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
)

const ctxAuthKey = "daneel.auth_key"

// Keys holds the closed set of known injection keys, loaded from
// environment secrets rather than a config file so they never land in a
// checked-in YAML file. Unset keys are simply never valid; a deployment
// that only trusts one kin configures only that one.
type Keys struct {
	grok   []byte
	claude []byte
}

// KeysFromEnv loads GROK_INJECT_KEY and CLAUDE_INJECT_KEY, each a
// base64-encoded HMAC secret. A key whose env var is unset or not valid
// base64 is left nil and will never validate.
func KeysFromEnv() *Keys {
	return &Keys{
		grok:   decodeEnvKey("GROK_INJECT_KEY"),
		claude: decodeEnvKey("CLAUDE_INJECT_KEY"),
	}
}

func decodeEnvKey(name string) []byte {
	raw, ok := os.LookupEnv(name)
	if !ok {
		return nil
	}
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil
	}
	return decoded
}

// Validate checks a Bearer token of the form "<key_id>:<base64 signature>"
// against the known keys and returns the authenticated identity on success.
func (k *Keys) Validate(token string) (AuthenticatedKey, bool) {
	parts := strings.SplitN(token, ":", 2)
	if len(parts) != 2 {
		return AuthenticatedKey{}, false
	}
	keyID, sigPart := parts[0], parts[1]

	providedSig, err := base64.StdEncoding.DecodeString(sigPart)
	if err != nil {
		return AuthenticatedKey{}, false
	}

	var secret []byte
	var holder string
	switch keyID {
	case "GROK":
		secret, holder = k.grok, "Grok (xAI)"
	case "CLAUDE":
		secret, holder = k.claude, "Claude (Anthropic)"
	default:
		return AuthenticatedKey{}, false
	}
	if secret == nil {
		return AuthenticatedKey{}, false
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(keyID))
	expected := mac.Sum(nil)

	if !hmac.Equal(expected, providedSig) {
		return AuthenticatedKey{}, false
	}
	return AuthenticatedKey{KeyID: keyID, Holder: holder}, true
}

// GenerateToken builds a signed Bearer token for keyID under secret, the
// counterpart operation to Validate. Used by the keygen CLI subcommand.
func GenerateToken(keyID string, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(keyID))
	sig := mac.Sum(nil)
	return keyID + ":" + base64.StdEncoding.EncodeToString(sig)
}

func extractBearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	return strings.CutPrefix(header, "Bearer ")
}

// RequireAuth is gin middleware guarding the protected routes: it validates
// the Bearer token and, on success, stashes the AuthenticatedKey in the
// request context for handlers to read via authenticatedKey.
func RequireAuth(keys *Keys) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := extractBearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		auth, ok := keys.Validate(token)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid bearer token"})
			return
		}

		c.Set(ctxAuthKey, auth)
		c.Next()
	}
}

func authenticatedKey(c *gin.Context) (AuthenticatedKey, bool) {
	v, ok := c.Get(ctxAuthKey)
	if !ok {
		return AuthenticatedKey{}, false
	}
	auth, ok := v.(AuthenticatedKey)
	return auth, ok
}
