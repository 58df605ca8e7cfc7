package groups

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/clienthunter/leadwatch/internal/api"
	"github.com/clienthunter/leadwatch/internal/metrics"
	"github.com/clienthunter/leadwatch/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultDaysBack = 7
	MaxDaysBack     = 30

	// DefaultPostGroupID is used when post links are analysed without a group
	DefaultPostGroupID = "default"

	maxHistoryLimit = 100
)

var postLinkPattern = regexp.MustCompile(`^https?://t\.me/(c/\d+|[A-Za-z0-9_]+)/\d+$`)

// ValidatePostLinks trims links and drops blank entries. Every remaining entry
// must be a public (t.me/<name>/<id>) or private (t.me/c/<chat>/<id>) post
// link and at least one must remain. Offending entries are marked by their
// original index as post_links[i].
func ValidatePostLinks(links []string) ([]string, error) {
	verr := &api.ValidationError{}
	valid := make([]string, 0, len(links))

	for i, link := range links {
		link = strings.TrimSpace(link)
		if link == "" {
			continue
		}
		if !postLinkPattern.MatchString(link) {
			verr.Add(fmt.Sprintf("post_links[%d]", i), "must look like https://t.me/channel/123 or https://t.me/c/123456/789")
			continue
		}
		valid = append(valid, link)
	}

	if len(valid) == 0 && verr.Empty() {
		verr.Add("post_links", "at least one post link is required")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return valid, nil
}

// HistoryFilter narrows AnalysisHistory. Zero values are not sent.
type HistoryFilter struct {
	Limit int
	From  time.Time
	To    time.Time
}

// historyEnvelope is the {status, results} shape of the history endpoint
type historyEnvelope struct {
	Status  string                  `json:"status"`
	Results []models.AnalysisReport `json:"results"`
	Message string                  `json:"message"`
}

// Analyzer runs AI analyses of messaging groups. Results are never cached.
// Identical requests issued while one is in flight share its result.
type Analyzer struct {
	client *api.Client
	flight singleflight.Group
}

// NewAnalyzer creates an analysis client
func NewAnalyzer(client *api.Client) *Analyzer {
	return &Analyzer{client: client}
}

// AnalyzeModerators scores moderator performance in a group
func (a *Analyzer) AnalyzeModerators(ctx context.Context, groupID string, req models.ModeratorRequest) (models.ModeratorAnalysis, error) {
	verr := validateGroup(groupID)
	req.Prompt = validatePrompt(verr, req.Prompt)
	req.DaysBack = validateDaysBack(verr, req.DaysBack)
	req.Moderators = normalizeUsernames(req.Moderators)
	if err := verr.OrNil(); err != nil {
		return models.ModeratorAnalysis{}, err
	}

	return analyze[models.ModeratorAnalysis](ctx, a, models.KindModerators, groupID, "analyze", req)
}

// AnalyzeCommunity measures community sentiment over the last DaysBack days
func (a *Analyzer) AnalyzeCommunity(ctx context.Context, groupID string, req models.CommunityRequest) (models.CommunityAnalysis, error) {
	verr := validateGroup(groupID)
	req.Prompt = validatePrompt(verr, req.Prompt)
	req.DaysBack = validateDaysBack(verr, req.DaysBack)
	if err := verr.OrNil(); err != nil {
		return models.CommunityAnalysis{}, err
	}

	return analyze[models.CommunityAnalysis](ctx, a, models.KindCommunity, groupID, "analyze-community", req)
}

// AnalyzePostComments measures sentiment in the comments of specific posts
func (a *Analyzer) AnalyzePostComments(ctx context.Context, req models.PostCommentRequest) (models.PostCommentAnalysis, error) {
	req.GroupID = strings.TrimSpace(req.GroupID)
	if req.GroupID == "" {
		req.GroupID = DefaultPostGroupID
	}

	verr := &api.ValidationError{}
	req.Prompt = validatePrompt(verr, req.Prompt)
	links, err := ValidatePostLinks(req.PostLinks)
	var linkErr *api.ValidationError
	if errors.As(err, &linkErr) {
		for field, msg := range linkErr.Fields {
			verr.Add(field, msg)
		}
	}
	if err := verr.OrNil(); err != nil {
		return models.PostCommentAnalysis{}, err
	}
	req.PostLinks = links

	return analyze[models.PostCommentAnalysis](ctx, a, models.KindPostComments, req.GroupID, "analyze-posts", req)
}

// LatestAnalysis returns the results of the most recent stored analysis. It
// matches api.ErrNotFound when the group has none.
func (a *Analyzer) LatestAnalysis(ctx context.Context, groupID string) (json.RawMessage, error) {
	if err := validateGroup(groupID).OrNil(); err != nil {
		return nil, err
	}
	return api.FetchResult[json.RawMessage](ctx, a.client, api.Request{
		Op:     "groups.latest_analysis",
		Method: http.MethodGet,
		Path:   basePath + api.PathEscape("groups", groupID, "analytics"),
	})
}

// AnalysisHistory lists stored analyses newest first. A group without
// history yields an empty list.
func (a *Analyzer) AnalysisHistory(ctx context.Context, groupID string, filter HistoryFilter) ([]models.AnalysisReport, error) {
	verr := validateGroup(groupID)
	if filter.Limit < 0 || filter.Limit > maxHistoryLimit {
		verr.Add("limit", fmt.Sprintf("must be between 1 and %d", maxHistoryLimit))
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.From.After(filter.To) {
		verr.Add("from_date", "must not be after to_date")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	query := url.Values{}
	if filter.Limit > 0 {
		query.Set("limit", strconv.Itoa(filter.Limit))
	}
	if !filter.From.IsZero() {
		query.Set("from_date", filter.From.Format(time.RFC3339))
	}
	if !filter.To.IsZero() {
		query.Set("to_date", filter.To.Format(time.RFC3339))
	}

	const op = "groups.history"
	env, err := api.FetchRaw[historyEnvelope](ctx, a.client, api.Request{
		Op:     op,
		Method: http.MethodGet,
		Path:   basePath + api.PathEscape("groups", groupID, "history"),
		Query:  query,
	})
	if err != nil {
		return nil, err
	}

	switch env.Status {
	case "success":
		return env.Results, nil
	case "not_found":
		return []models.AnalysisReport{}, nil
	case "":
		return nil, &api.DecodeError{Op: op, Reason: "missing status"}
	default:
		msg := env.Message
		if msg == "" {
			msg = api.DefaultFailureMessage
		}
		return nil, &api.RequestFailedError{Op: op, StatusCode: http.StatusOK, Message: msg}
	}
}

// analyze posts body to /groups/{groupID}/{endpoint}, joining an identical
// request that is already in flight. The shared call is detached from every
// caller's cancellation and bounded by the client timeout; each caller stops
// waiting when its own ctx is done.
func analyze[T any](ctx context.Context, a *Analyzer, kind models.AnalysisKind, groupID, endpoint string, body interface{}) (T, error) {
	var zero T

	payload, err := json.Marshal(body)
	if err != nil {
		return zero, fmt.Errorf("failed to encode %s request: %w", kind, err)
	}
	key := string(kind) + "\x00" + groupID + "\x00" + string(payload)
	shared := context.WithoutCancel(ctx)

	ch := a.flight.DoChan(key, func() (interface{}, error) {
		logrus.WithFields(logrus.Fields{
			"kind":     kind,
			"group_id": groupID,
		}).Info("Starting group analysis")

		return api.FetchResult[T](shared, a.client, api.Request{
			Op:       "groups.analyze_" + string(kind),
			Method:   http.MethodPost,
			Path:     basePath + api.PathEscape("groups", groupID, endpoint),
			Body:     payload,
			Fallback: api.AnalysisFailureMessage,
		})
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Shared {
			metrics.AnalysisDeduplicated.WithLabelValues(string(kind)).Inc()
		}
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

func validateGroup(groupID string) *api.ValidationError {
	verr := &api.ValidationError{}
	if strings.TrimSpace(groupID) == "" {
		verr.Add("group_id", "is required")
	}
	return verr
}

func validatePrompt(verr *api.ValidationError, prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		verr.Add("prompt", "is required")
	}
	return prompt
}

func validateDaysBack(verr *api.ValidationError, days int) int {
	if days == 0 {
		return DefaultDaysBack
	}
	if days < 1 || days > MaxDaysBack {
		verr.Add("days_back", fmt.Sprintf("must be between 1 and %d", MaxDaysBack))
	}
	return days
}
