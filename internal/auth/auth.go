package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"path"
	"slices"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"dirserve/internal/config"
)

func HasAuth(cfg config.Config) bool {
	return len(cfg.Users) > 0
}

// Authenticate checks an Authorization header value.
// - If cfg.Users is empty: everyone is anonymous and ok.
// - Else:
//   - no header: anonymous, ok only when cfg.AuthOptional is set
//   - header present: must be valid Basic credentials
func Authenticate(cfg config.Config, header string) (user string, ok bool) {
	if !HasAuth(cfg) {
		return "", true
	}
	if strings.TrimSpace(header) == "" {
		return "", cfg.AuthOptional
	}
	u, p, ok := parseBasicAuth(header)
	if !ok {
		return "", false
	}
	rec, ok := cfg.Users[u]
	if !ok {
		return "", false
	}
	if err := bcrypt.CompareHashAndPassword([]byte(rec.Bcrypt), []byte(p)); err != nil {
		return "", false
	}
	return u, true
}

// HashPassword returns a bcrypt hash suitable for config.User.Bcrypt.
func HashPassword(password string, cost int) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func parseBasicAuth(v string) (user, pass string, ok bool) {
	enc, ok := strings.CutPrefix(v, "Basic ")
	if !ok {
		return "", "", false
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(enc))
	if err != nil {
		return "", "", false
	}
	user, pass, ok = strings.Cut(string(raw), ":")
	if !ok || user == "" || strings.ContainsRune(user+pass, 0) {
		return "", "", false
	}
	return user, pass, true
}

// CanRead evaluates read ACLs for a slash path below the root. The first ACL
// whose path is a prefix of reqPath decides; with none matching, any
// authenticated user may read. Without auth configured everything is
// readable.
func CanRead(cfg config.Config, user string, reqPath string) bool {
	if !HasAuth(cfg) {
		return true
	}
	p := path.Clean("/" + reqPath)
	for _, a := range cfg.ACLs {
		if covers(path.Clean("/"+a.Path), p) {
			return slices.ContainsFunc(a.Read, func(name string) bool {
				return grants(name, user)
			})
		}
	}
	return user != ""
}

// covers reports whether the cleaned ACL path prefix applies to p.
func covers(prefix, p string) bool {
	return prefix == "/" || p == prefix || strings.HasPrefix(p, prefix+"/")
}

// grants reports whether one ACL entry admits user. "*" admits anonymous
// readers too.
func grants(name, user string) bool {
	name = strings.TrimSpace(name)
	if name == "*" {
		return true
	}
	return name != "" && user != "" && subtle.ConstantTimeCompare([]byte(name), []byte(user)) == 1
}
