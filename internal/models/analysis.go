package models

import (
	"encoding/json"
	"time"
)

// AnalysisKind names the three analysis endpoints
type AnalysisKind string

const (
	KindModerators   AnalysisKind = "moderators"
	KindCommunity    AnalysisKind = "community_sentiment"
	KindPostComments AnalysisKind = "posts_comments"
)

// ModeratorRequest is the body of POST /telegram/groups/{id}/analyze
type ModeratorRequest struct {
	Prompt     string   `json:"prompt"`
	Moderators []string `json:"moderators"` // empty means all moderators
	DaysBack   int      `json:"days_back"`
}

// CommunityRequest is the body of POST /telegram/groups/{id}/analyze-community
type CommunityRequest struct {
	Prompt   string `json:"prompt"`
	DaysBack int    `json:"days_back"`
}

// PostCommentRequest is the body of POST /telegram/groups/{id}/analyze-posts
type PostCommentRequest struct {
	GroupID   string   `json:"-"`
	Prompt    string   `json:"prompt"`
	PostLinks []string `json:"post_links"`
}

// ResponseTime is measured in minutes
type ResponseTime struct {
	Avg float64 `json:"avg"`
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// ModeratorScore is a single moderator's 0-100 rating
type ModeratorScore struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// ModeratorAnalysis is the result of a moderator-performance analysis
type ModeratorAnalysis struct {
	Summary struct {
		OverallAssessment string  `json:"overall_assessment"`
		SentimentScore    float64 `json:"sentiment_score,omitempty"`
		SatisfactionScore float64 `json:"satisfaction_score,omitempty"`
	} `json:"summary"`
	ModeratorPerformance []ModeratorScore `json:"moderator_performance"`
	ModeratorMetrics     struct {
		ResponseTime ResponseTime `json:"response_time"`
	} `json:"moderator_metrics"`
	Recommendations    []string `json:"recommendations"`
	KeyTopics          []string `json:"key_topics,omitempty"`
	Prompt             string   `json:"prompt,omitempty"`
	AnalyzedModerators []string `json:"analyzed_moderators,omitempty"`
	MessagesAnalyzed   int      `json:"messages_analyzed,omitempty"`
	Timestamp          string   `json:"timestamp,omitempty"`
}

// SentimentSummary is the headline of a sentiment analysis
type SentimentSummary struct {
	OverallMood       string  `json:"overall_mood"`
	SatisfactionScore float64 `json:"satisfaction_score"`
	ComplaintLevel    string  `json:"complaint_level"`
}

// RelatedMessage is an excerpt supporting an issue
type RelatedMessage struct {
	Text     string `json:"text"`
	Date     string `json:"date"`
	Author   string `json:"author,omitempty"`
	PostLink string `json:"post_link,omitempty"`
}

// Issue is a ranked complaint extracted from the chat
type Issue struct {
	Category        string           `json:"category"`
	Issue           string           `json:"issue"`
	Frequency       int              `json:"frequency"`
	RelatedMessages []RelatedMessage `json:"related_messages,omitempty"`
}

// CommunityAnalysis is the result of a community-sentiment analysis
type CommunityAnalysis struct {
	SentimentSummary       SentimentSummary   `json:"sentiment_summary"`
	ServiceQuality         map[string]float64 `json:"service_quality"`
	MainIssues             []Issue            `json:"main_issues"`
	UrgentIssues           []string           `json:"urgent_issues"`
	ImprovementSuggestions []string           `json:"improvement_suggestions"`
	KeyTopics              []string           `json:"key_topics"`
	MessagesAnalyzed       int                `json:"messages_analyzed"`
	DaysAnalyzed           int                `json:"days_analyzed"`
	Timestamp              string             `json:"timestamp"`
	Prompt                 string             `json:"prompt"`
}

// PostReactions tallies comment sentiment
type PostReactions struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

// UnmarshalJSON also accepts the Russian keys the analysis backend emits
func (r *PostReactions) UnmarshalJSON(data []byte) error {
	var raw map[string]int
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	pick := func(keys ...string) int {
		for _, k := range keys {
			if v, ok := raw[k]; ok {
				return v
			}
		}
		return 0
	}
	r.Positive = pick("positive", "положительные")
	r.Neutral = pick("neutral", "нейтральные")
	r.Negative = pick("negative", "негативные")
	return nil
}

// PostCommentAnalysis is the result of a post-comment sentiment analysis
type PostCommentAnalysis struct {
	CommunityAnalysis
	PostReactions    PostReactions `json:"post_reactions"`
	PostLinks        []string      `json:"post_links"`
	PostsAnalyzed    int           `json:"posts_analyzed"`
	CommentsAnalyzed int           `json:"comments_analyzed"`
}

// AnalysisReport is a stored analysis as returned by the history endpoint
type AnalysisReport struct {
	ID                 FlexID          `json:"id"`
	CreatedAt          time.Time       `json:"created_at"`
	Type               string          `json:"type"`
	Prompt             string          `json:"prompt"`
	AnalyzedModerators []string        `json:"analyzed_moderators,omitempty"`
	Results            json.RawMessage `json:"results"`
}
