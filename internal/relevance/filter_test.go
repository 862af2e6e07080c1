package relevance

import "testing"

func TestKeywordFilter_IsRelevant(t *testing.T) {
	filter := NewDefaultFilter()

	tests := []struct {
		name string
		text string
		want bool
	}{
		{
			name: "english keyword",
			text: "I am looking for a backend job",
			want: true,
		},
		{
			name: "english keyword case insensitive",
			text: "Updated my RESUME yesterday",
			want: true,
		},
		{
			name: "chinese keyword",
			text: "我下周有一场面试",
			want: true,
		},
		{
			name: "chinese salary keyword",
			text: "期望薪资是多少",
			want: true,
		},
		{
			name: "irrelevant text",
			text: "the weather is nice today",
			want: false,
		},
		{
			name: "empty text",
			text: "",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := filter.IsRelevant(tt.text); got != tt.want {
				t.Errorf("IsRelevant(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestKeywordFilter_CustomKeywords(t *testing.T) {
	filter := NewKeywordFilter([]string{"Coffee"})

	if !filter.IsRelevant("morning coffee ritual") {
		t.Error("custom keyword should match case-insensitively")
	}
	if filter.IsRelevant("looking for a job") {
		t.Error("default keywords should not apply to a custom filter")
	}
}
