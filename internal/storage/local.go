package storage

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// LocalGateway mints HMAC-signed URLs against a local object server. It is
// the fallback when no bucket is configured, same role as the memory queue:
// local development and tests only.
type LocalGateway struct {
	baseURL string
	secret  []byte
}

func NewLocalGateway(baseURL, secret string) *LocalGateway {
	if baseURL == "" {
		baseURL = "http://localhost:9000/docai"
	}
	if secret == "" {
		secret = "docai-local-signing"
	}
	return &LocalGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  []byte(secret),
	}
}

func (g *LocalGateway) IssueUploadURL(_ context.Context, key, contentType string, ttl time.Duration) (string, error) {
	return g.sign("PUT", key, contentType, ttl), nil
}

func (g *LocalGateway) IssueDownloadURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	return g.sign("GET", key, "", ttl), nil
}

func (g *LocalGateway) sign(method, key, contentType string, ttl time.Duration) string {
	expires := time.Now().Add(ttl).Unix()

	mac := hmac.New(sha256.New, g.secret)
	fmt.Fprintf(mac, "%s\n%s\n%s\n%d", method, key, contentType, expires)
	signature := hex.EncodeToString(mac.Sum(nil))

	values := url.Values{}
	values.Set("expires", strconv.FormatInt(expires, 10))
	values.Set("signature", signature)
	if contentType != "" {
		values.Set("content_type", contentType)
	}
	return g.baseURL + "/" + key + "?" + values.Encode()
}
