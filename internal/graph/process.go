package graph

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kawamura/memgraph/internal/model"
)

// ProcessMessageResult はprocess_user_messageの結果。
type ProcessMessageResult struct {
	Status        string `json:"status"` // stored | skipped
	Reason        string `json:"reason,omitempty"`
	UserEntity    string `json:"user_entity,omitempty"`
	MessageEntity string `json:"message_entity,omitempty"`
}

// RecommendationsResult はget_job_recommendationsの結果。
type RecommendationsResult struct {
	Status          string   `json:"status"` // ok | error
	Type            string   `json:"type"`
	Observations    []string `json:"observations"`
	Recommendations []string `json:"recommendations"`
	Message         string   `json:"message,omitempty"`
}

// recommendationKeywords は推薦タイプごとの観測選別キーワード。
var recommendationKeywords = map[string][]string{
	"resume":    {"简历", "resume", "经验", "experience", "学历", "education", "背景", "background"},
	"interview": {"面试", "interview", "职位", "position", "公司", "company", "岗位"},
	"skills":    {"技能", "skill", "能力", "专业", "profession", "行业", "industry"},
}

// recommendationAdvice は推薦タイプごとの定型アドバイス。
var recommendationAdvice = map[string][]string{
	"resume": {
		"Quantify the achievements behind each experience entry.",
		"Tailor the resume summary to the target position.",
	},
	"interview": {
		"Prepare STAR-format stories for behavioral questions.",
		"Research the company and the role before the interview.",
	},
	"skills": {
		"List the skills that appear in target job postings first.",
		"Back each listed skill with a concrete project.",
	},
	"general": {
		"Keep sharing job search updates so stored facts stay current.",
	},
}

// ProcessUserMessage は自由形式のメッセージを保存する。
// 関連性フィルタを通らないメッセージは保存せずskippedとして報告する。
// 保存時はユーザーエンティティを用意し、メッセージエンティティを作成して
// sent関係で結び、メッセージ本文をユーザーの観測にも追記する（重複は追記しない）。
func (s *Service) ProcessUserMessage(ctx context.Context, userID, message string) (*ProcessMessageResult, error) {
	text := s.sanitizer.Sanitize(message)
	if text == "" {
		return &ProcessMessageResult{Status: "skipped", Reason: "empty message"}, nil
	}
	if !s.filter.IsRelevant(text) {
		return &ProcessMessageResult{Status: "skipped", Reason: "irrelevant"}, nil
	}

	userEntityName := userEntityName(userID)
	var messageEntityName string

	err := s.parts.Update(ctx, userID, func(g model.Graph) error {
		userEntity, ok := g[userEntityName]
		if !ok {
			userEntity = model.NewEntity("user")
			g[userEntityName] = userEntity
		}

		// 同一秒内の衝突はタイムスタンプを繰り上げて回避する
		ts := s.now()
		for {
			messageEntityName = fmt.Sprintf("message:%s:%d", userID, ts)
			if _, exists := g[messageEntityName]; !exists {
				break
			}
			ts++
		}

		messageEntity := model.NewEntity("message")
		messageEntity.AddObservation(text)
		g[messageEntityName] = messageEntity

		userEntity.Relations.Add(model.Relation{To: messageEntityName, Type: "sent"})
		userEntity.AddObservation(text)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &ProcessMessageResult{
		Status:        "stored",
		UserEntity:    userEntityName,
		MessageEntity: messageEntityName,
	}, nil
}

// GetJobRecommendations はユーザーエンティティの観測から推薦タイプに応じた
// 観測を選び、定型アドバイスと合わせて返す。
// 未知のタイプはgeneralとして扱う。ユーザーエンティティが無い場合は
// エラーステータスの結果を返す（致命的エラーにしない）。
func (s *Service) GetJobRecommendations(ctx context.Context, userID, recType string) (*RecommendationsResult, error) {
	if _, ok := recommendationAdvice[recType]; !ok {
		recType = "general"
	}

	result := &RecommendationsResult{
		Status:          "ok",
		Type:            recType,
		Observations:    []string{},
		Recommendations: []string{},
	}

	err := s.parts.View(ctx, userID, func(g model.Graph) error {
		userEntity, ok := g[userEntityName(userID)]
		if !ok {
			result.Status = "error"
			result.Message = "no stored facts for this user yet"
			return nil
		}

		keywords := recommendationKeywords[recType]
		for _, obs := range userEntity.Observations {
			if recType == "general" || containsAnyKeyword(obs, keywords) {
				result.Observations = append(result.Observations, obs)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Status == "ok" {
		result.Recommendations = append(result.Recommendations, recommendationAdvice[recType]...)
	}
	return result, nil
}

// userEntityName はユーザーIDに対応するエンティティ名を返す。
func userEntityName(userID string) string {
	return "user:" + userID
}

func containsAnyKeyword(text string, keywords []string) bool {
	lowered := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lowered, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func unixNow() int64 {
	return time.Now().Unix()
}
