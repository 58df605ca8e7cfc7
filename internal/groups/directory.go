package groups

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/clienthunter/leadwatch/internal/api"
	"github.com/clienthunter/leadwatch/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	basePath = "/telegram"

	// MaxCollectLimit is the most messages one collection run may fetch
	MaxCollectLimit = 1000
)

// AddGroupError reports a rejected group link. Link is the input as typed.
type AddGroupError struct {
	Link string
	Err  error
}

func (e *AddGroupError) Error() string {
	return fmt.Sprintf("failed to add group %q: %v", e.Link, e.Err)
}

func (e *AddGroupError) Unwrap() error {
	return e.Err
}

// Directory reads and registers messaging groups
type Directory struct {
	client *api.Client
}

// NewDirectory creates a group directory client
func NewDirectory(client *api.Client) *Directory {
	return &Directory{client: client}
}

// ListGroups returns every tracked group
func (d *Directory) ListGroups(ctx context.Context) ([]models.MessagingGroup, error) {
	return api.FetchRaw[[]models.MessagingGroup](ctx, d.client, api.Request{
		Op:     "groups.list",
		Method: http.MethodGet,
		Path:   basePath + "/groups",
	})
}

// GetGroup returns one group. A missing group matches api.ErrNotFound.
func (d *Directory) GetGroup(ctx context.Context, id string) (models.MessagingGroup, error) {
	return api.FetchRaw[models.MessagingGroup](ctx, d.client, api.Request{
		Op:     "groups.get",
		Method: http.MethodGet,
		Path:   basePath + api.PathEscape("groups", id),
	})
}

// GetGroupMessages returns up to limit recent messages. A non-positive limit
// leaves the server default.
func (d *Directory) GetGroupMessages(ctx context.Context, id string, limit int) ([]models.GroupMessage, error) {
	var query url.Values
	if limit > 0 {
		query = url.Values{"limit": {strconv.Itoa(limit)}}
	}
	return api.FetchRaw[[]models.GroupMessage](ctx, d.client, api.Request{
		Op:     "groups.messages",
		Method: http.MethodGet,
		Path:   basePath + api.PathEscape("groups", id, "messages"),
		Query:  query,
	})
}

// GetGroupModerators returns the moderator accounts of a group
func (d *Directory) GetGroupModerators(ctx context.Context, id string) ([]models.GroupModerator, error) {
	return api.FetchRaw[[]models.GroupModerator](ctx, d.client, api.Request{
		Op:     "groups.moderators",
		Method: http.MethodGet,
		Path:   basePath + api.PathEscape("groups", id, "moderators"),
	})
}

// Collect asks the server to pull up to limit recent messages of a group from
// Telegram into its store and returns the collection summary as sent. A zero
// limit leaves the server default.
func (d *Directory) Collect(ctx context.Context, id string, limit int) (json.RawMessage, error) {
	verr := validateGroup(id)
	if limit < 0 || limit > MaxCollectLimit {
		verr.Add("limit", fmt.Sprintf("must be between 1 and %d", MaxCollectLimit))
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	var query url.Values
	if limit > 0 {
		query = url.Values{"limit": {strconv.Itoa(limit)}}
	}
	summary, err := api.Fetch[json.RawMessage](ctx, d.client, api.Request{
		Op:     "groups.collect",
		Method: http.MethodPost,
		Path:   basePath + api.PathEscape("groups", id, "collect"),
		Query:  query,
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"group_id": id,
		"limit":    limit,
	}).Info("Group data collected")
	return summary, nil
}

// AddGroup registers a group by link. The call is idempotent: a group that
// is already tracked is reported as success.
func (d *Directory) AddGroup(ctx context.Context, link string, moderators []string) (models.AddGroupResult, error) {
	trimmed := strings.TrimSpace(link)
	if trimmed == "" {
		return models.AddGroupResult{}, api.NewValidationError("group_link", "is required")
	}

	query := url.Values{"group_link": {trimmed}}
	if mods := normalizeUsernames(moderators); len(mods) > 0 {
		query.Set("moderators", strings.Join(mods, ","))
	}

	const op = "groups.add"
	body, err := d.client.Do(ctx, api.Request{
		Op:       op,
		Method:   http.MethodGet,
		Path:     basePath + "/groups_add",
		Query:    query,
		Fallback: api.AddGroupFailureMessage,
	})
	if err != nil {
		return models.AddGroupResult{}, &AddGroupError{Link: link, Err: err}
	}

	var result models.AddGroupResult
	if err := json.Unmarshal(body, &result); err != nil {
		return models.AddGroupResult{}, &AddGroupError{
			Link: link,
			Err:  &api.DecodeError{Op: op, Reason: "invalid JSON body", Err: err},
		}
	}

	if !result.Status.Succeeded() {
		msg := result.Message
		if msg == "" {
			msg = api.AddGroupFailureMessage
		}
		return result, &AddGroupError{
			Link: link,
			Err:  &api.RequestFailedError{Op: op, StatusCode: http.StatusOK, Message: msg},
		}
	}

	logrus.WithFields(logrus.Fields{
		"group_link": trimmed,
		"group_id":   result.GroupID,
		"status":     result.Status,
	}).Info("Messaging group registered")

	return result, nil
}

// AddModerator adds username to the moderators of a group
func (d *Directory) AddModerator(ctx context.Context, groupID, username string) (string, error) {
	return d.moderator(ctx, "groups.add_moderator", http.MethodPost, groupID, username)
}

// RemoveModerator removes username from the moderators of a group
func (d *Directory) RemoveModerator(ctx context.Context, groupID, username string) (string, error) {
	return d.moderator(ctx, "groups.remove_moderator", http.MethodDelete, groupID, username)
}

func (d *Directory) moderator(ctx context.Context, op, method, groupID, username string) (string, error) {
	name := normalizeUsername(username)
	if name == "" {
		return "", api.NewValidationError("username", "is required")
	}

	return api.Ack(ctx, d.client, api.Request{
		Op:     op,
		Method: method,
		Path:   basePath + api.PathEscape("groups", groupID, "moderators", name),
	})
}

func normalizeUsername(u string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(u), "@"))
}

func normalizeUsernames(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, u := range in {
		u = normalizeUsername(u)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}
