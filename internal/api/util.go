package api

import (
	"encoding/json"
	"math/rand"
	"regexp"
	"strconv"
	"strings"

	"github.com/Noquela/duat-server/internal/constants"
	"github.com/Noquela/duat-server/internal/game"

	"github.com/gin-gonic/gin"
)

const codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// generateJoinCode creates a short alphanumeric code for joining sessions.
func generateJoinCode() string {
	b := make([]byte, constants.JoinCodeLength)
	for i := range b {
		b[i] = codeCharset[rand.Intn(len(codeCharset))]
	}
	return string(b)
}

var joinCodeRegex = regexp.MustCompile("^[A-Z0-9]{8}$")

func normalizeJoinCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// parseSessionID reads the numeric session ID from the route path.
func parseSessionID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("sessionID"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// sessionEmail returns the authenticated user's email from the request
// context, or the empty string when the request carries no session.
func sessionEmail(c *gin.Context) string {
	if v, ok := c.Get("userEmail"); ok {
		if s, _ := v.(string); s != "" {
			return s
		}
	}
	return ""
}

// findParticipantByEmail locates the caller's participant row inside a
// session. The email is the identity minted by the auth cookie; the
// participant carries the UUID used as the scheduler actor ID.
func findParticipantByEmail(s *game.Session, email string) *game.Participant {
	for i := range s.Participants {
		if s.Participants[i].PlayerEmail == email {
			return &s.Participants[i]
		}
	}
	return nil
}

// normalizeTimestamps recursively renames GORM timestamp keys from CamelCase
// (CreatedAt, UpdatedAt, DeletedAt) to snake_case keys (created_at, updated_at, deleted_at)
// so frontend clients consistently receive snake_case timestamps.
func normalizeTimestamps(v interface{}) interface{} {
	switch vv := v.(type) {
	case map[string]interface{}:
		for k, val := range vv {
			vv[k] = normalizeTimestamps(val)
		}
		if val, ok := vv["CreatedAt"]; ok {
			vv["created_at"] = val
			delete(vv, "CreatedAt")
		}
		if val, ok := vv["UpdatedAt"]; ok {
			vv["updated_at"] = val
			delete(vv, "UpdatedAt")
		}
		if val, ok := vv["DeletedAt"]; ok {
			vv["deleted_at"] = val
			delete(vv, "DeletedAt")
		}
		return vv
	case []interface{}:
		for i := range vv {
			vv[i] = normalizeTimestamps(vv[i])
		}
		return vv
	default:
		return v
	}
}

// MarshalIntoSnakeTimestamps marshals the given value into JSON, then decodes
// into an interface{} and normalizes timestamp keys to snake_case. It is used
// to produce API responses with consistent snake_case timestamp keys.
func MarshalIntoSnakeTimestamps(v interface{}) (interface{}, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return normalizeTimestamps(out), nil
}

// MarshalForContext behaves like MarshalIntoSnakeTimestamps but also
// redacts email fields that do not belong to the authenticated session
// user (if any). It inspects the gin.Context for a "userEmail" key and
// replaces any email-like values that don't match that value with an
// empty string so other users' emails are never exposed.
func MarshalForContext(c *gin.Context, v interface{}) (interface{}, error) {
	out, err := MarshalIntoSnakeTimestamps(v)
	if err != nil {
		return nil, err
	}
	currentEmail := ""
	if c != nil {
		currentEmail = sessionEmail(c)
	}
	redactEmails(out, currentEmail)
	return out, nil
}

// redactEmails walks a marshalled JSON structure (decoded into
// map[string]interface{} / []interface{}) and removes any field whose
// key contains "email" (case-insensitive) unless its value equals
// currentEmail. Removal deletes the key entirely so the JSON shape does
// not include email fields for other users.
func redactEmails(v interface{}, currentEmail string) {
	switch vv := v.(type) {
	case map[string]interface{}:
		for k, val := range vv {
			lower := strings.ToLower(k)
			if strings.Contains(lower, "email") {
				if s, ok := val.(string); ok {
					if currentEmail != "" && s == currentEmail {
						// keep the field when it matches the session user
						continue
					}
				}
				// Delete any email fields that don't belong to the session user
				delete(vv, k)
				continue
			}
			// Recurse into nested structures
			redactEmails(val, currentEmail)
		}
	case []interface{}:
		for i := range vv {
			redactEmails(vv[i], currentEmail)
		}
	default:
		// primitives: nothing to do
	}
}
