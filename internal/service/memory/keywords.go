package memory

import "strings"

// Closed keyword sets driving the scoring corrections and the extraction
// filters. They are deliberately plain data so tuning them never touches
// orchestration logic. Matching is substring containment unless noted.

// Scoring correction markers, matched against reasoning and/or content.
var (
	// user fragments
	intensityMarkers  = []string{"强烈", "超级", "特别", "极其", "完美"}
	depthMarkers      = []string{"童年", "从小", "经历", "深层", "秘密", "信任"}
	preferenceMarkers = []string{"最喜欢", "最爱", "讨厌", "一定要"}
	genericMarkers    = []string{"通用", "客观", "知识", "不涉及用户"}

	// assistant fragments
	commitmentMarkers = []string{"承诺", "一直", "保证", "无论如何", "永远"}
	adviceMarkers     = []string{"建议", "试试", "可以尝试", "解决方案"}
	supportMarkers    = []string{"理解", "陪伴", "不是一个人", "一直在", "支持"}
)

// Extraction filter sets.
var (
	questionMarkers = []string{"吗", "呢", "？", "?", "什么", "怎么", "为什么", "如何"}

	firstPersonMarkers = []string{
		"我喜欢", "我是", "我叫", "我的", "我最", "我觉得",
		"我想", "我有", "我在", "我会", "我从", "我今天",
	}

	identityMarkers = []string{"我叫", "我的职业", "我是", "我今年", "我住在", "我来自"}

	referenceMarkers = []string{"你说过", "你说的", "你之前说", "你答应过", "你上次说", "还记得你说"}

	// Exact-match set; a reply that is nothing but one of these carries no
	// memory value regardless of what the model scored it.
	fillerAcks = map[string]struct{}{
		"好的":    {},
		"好":     {},
		"嗯":     {},
		"嗯嗯":    {},
		"没问题":   {},
		"我明白了":  {},
		"收到":    {},
		"好的没问题": {},
	}
)

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// IsQuestion reports whether the content reads as a question rather than a
// statement. Questions are never stored as memories.
func IsQuestion(content string) bool {
	return containsAny(content, questionMarkers)
}

// HasFirstPerson reports whether a user statement actually talks about the
// user. Third-person trivia is filtered out before storage.
func HasFirstPerson(content string) bool {
	return containsAny(content, firstPersonMarkers)
}

// IsIdentityInfo reports whether the content states identity facts (name,
// occupation, age, location).
func IsIdentityInfo(content string) bool {
	return containsAny(content, identityMarkers)
}

// IsReference reports whether the user is referring back to something the
// assistant said earlier.
func IsReference(content string) bool {
	return containsAny(content, referenceMarkers)
}

// IsFillerAck reports whether the content is a bare confirmation phrase.
// Matching is exact after trimming surrounding whitespace and trailing
// punctuation, so "好的。" still counts but "好的，我会记住这件事" does not.
func IsFillerAck(content string) bool {
	trimmed := strings.TrimSpace(content)
	trimmed = strings.TrimRight(trimmed, "。！!～~ ")
	_, ok := fillerAcks[trimmed]
	return ok
}
