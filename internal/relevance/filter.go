// Package relevance は保存対象テキストの関連性判定を提供する。
//
// 判定は固定キーワードリストに対するケースフォールド済み部分一致であり、
// 自然言語理解は行わない。将来分類器に置き換えられるよう、
// 判定はPredicateインターフェースの背後に置く。
package relevance

import "strings"

// Predicate はテキストの関連性判定のインターフェース。
type Predicate interface {
	// IsRelevant はテキストが保存に値するかどうかを返す。純粋関数。
	IsRelevant(text string) bool
}

// defaultKeywords は求職ドメインのキーワードリスト。中国語と英語の対訳を含む。
var defaultKeywords = []string{
	"求职", "简历", "面试", "招聘", "职位", "工作", "就业", "职业", "薪资", "薪水",
	"技能", "能力", "经验", "学历", "背景", "专业", "行业", "公司", "岗位", "职责",
	"job", "resume", "interview", "recruitment", "position", "work", "employment",
	"career", "salary", "skill", "experience", "education", "background",
	"profession", "industry", "company", "role", "responsibility",
}

// KeywordFilter はキーワード包含による関連性フィルタ。
// テキストを小文字に畳み込み、いずれかのキーワードを含めば関連ありと判定する。
type KeywordFilter struct {
	keywords []string
}

// NewKeywordFilter は指定キーワードのKeywordFilterを生成する。
func NewKeywordFilter(keywords []string) *KeywordFilter {
	lowered := make([]string, len(keywords))
	for i, kw := range keywords {
		lowered[i] = strings.ToLower(kw)
	}
	return &KeywordFilter{keywords: lowered}
}

// NewDefaultFilter は求職ドメインの既定キーワードリストを持つフィルタを生成する。
func NewDefaultFilter() *KeywordFilter {
	return NewKeywordFilter(defaultKeywords)
}

// IsRelevant はテキストがいずれかのキーワードを含むかどうかを返す。
func (f *KeywordFilter) IsRelevant(text string) bool {
	lowered := strings.ToLower(text)
	for _, kw := range f.keywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

// compile-time interface check
var _ Predicate = (*KeywordFilter)(nil)
