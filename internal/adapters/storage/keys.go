package storage

import (
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"
)

// QuestionsPrefix is the root of every question image key.
const QuestionsPrefix = "questions/"

const (
	defaultExtension = "jpg"
	maxExtensionLen  = 10
)

// OwnerPrefix returns the key namespace of an owner: "questions/<owner>/".
func OwnerPrefix(owner uuid.UUID) string {
	return QuestionsPrefix + owner.String() + "/"
}

// ObjectKey builds "questions/<owner>/<uuid>.<ext>" for filename.
func ObjectKey(owner uuid.UUID, filename string) string {
	return OwnerPrefix(owner) + uuid.NewString() + "." + Extension(filename)
}

// Extension returns the lower-cased extension of filename when it is purely
// alphanumeric and at most 10 characters, and "jpg" otherwise.
func Extension(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 || idx == len(filename)-1 {
		return defaultExtension
	}
	ext := strings.ToLower(filename[idx+1:])
	if len(ext) > maxExtensionLen {
		return defaultExtension
	}
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return defaultExtension
		}
	}
	return ext
}

// OwnsKey reports whether key lives in owner's namespace. Keys with path
// traversal segments never match.
func OwnsKey(owner uuid.UUID, key string) bool {
	if strings.Contains(key, "..") || strings.Contains(key, "//") {
		return false
	}
	prefix := OwnerPrefix(owner)
	return strings.HasPrefix(key, prefix) && len(key) > len(prefix)
}

// OwnerOfKey extracts the owner id from a question image key.
func OwnerOfKey(key string) (uuid.UUID, bool) {
	rest, ok := strings.CutPrefix(key, QuestionsPrefix)
	if !ok {
		return uuid.Nil, false
	}
	ownerPart, _, found := strings.Cut(rest, "/")
	if !found {
		return uuid.Nil, false
	}
	owner, err := uuid.Parse(ownerPart)
	if err != nil {
		return uuid.Nil, false
	}
	return owner, true
}

// PublicURL joins the public base URL and key.
func PublicURL(baseURL, key string) string {
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(key, "/")
}

// KeyFromPublicURL reverses PublicURL. It returns false when rawURL does not
// live under baseURL.
func KeyFromPublicURL(baseURL, rawURL string) (string, bool) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || base.Host == "" {
		return "", false
	}
	target, err := url.Parse(rawURL)
	if err != nil || !strings.EqualFold(target.Scheme, base.Scheme) || !strings.EqualFold(target.Host, base.Host) {
		return "", false
	}

	basePath := strings.TrimRight(base.Path, "/") + "/"
	if !strings.HasPrefix(target.Path, basePath) {
		return "", false
	}
	key := path.Clean(strings.TrimPrefix(target.Path, basePath))
	if key == "." || strings.HasPrefix(key, "..") {
		return "", false
	}
	return key, true
}

// PublicBaseConfig provides what is needed to derive public object URLs.
type PublicBaseConfig interface {
	GetStoragePublicURL() string
	GetMinIOEndpoint() string
	GetMinIOUseSSL() bool
	GetMinioBucketQuestions() string
}

// PublicBase returns the configured public URL, or the path-style bucket
// URL of the MinIO endpoint.
func PublicBase(cfg PublicBaseConfig) string {
	if base := strings.TrimRight(cfg.GetStoragePublicURL(), "/"); base != "" {
		return base
	}
	scheme := "http"
	if cfg.GetMinIOUseSSL() {
		scheme = "https"
	}
	return scheme + "://" + cfg.GetMinIOEndpoint() + "/" + cfg.GetMinioBucketQuestions()
}
