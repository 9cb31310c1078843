package glm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/peachbot/peachbot/internal/core"
)

// Low temperature keeps the extraction scoring stable across runs.
const extractTemperature = 0.1

const extractSystemPrompt = `你是一个专业的陪伴型对话记忆分析助手。你的任务是：从对话中提取能够帮助 AI 更好地了解用户、建立情感连接的重要记忆。需要同时提取 user 和 assistant 的内容，但使用不同的评分标准。

## User (用户) 的评分标准 (1-10分)
- 情感强度 (0-3分)：强烈情感（超级、特别、极其）3分；明确情感2分；轻微情感1分
- 个性化程度 (0-3分)：童年经历、个人故事3分；明确个人偏好2分；一般个人信息1分
- 亲密度/关系 (0-2分)：表达信任、依赖2分；分享个人感受1分
- 偏好明确性 (0-2分)：明确喜好/厌恶（最爱、讨厌、一定要）2分
规则：明确喜好/厌恶至少5分；童年/深层经历至少7分；对AI的信任/情感至少7分。

## Assistant (AI) 的评分标准 (1-10分)
- 承诺重要性 (0-4分)：重要承诺（我会一直陪着你、我保证、无论如何）4分
- 建议价值 (0-3分)：深度建议（具体步骤、解决方案）3分
- 情感支持强度 (0-3分)：深度情感支持（理解你的感受、你不是一个人）3分
规则：重要承诺至少6分；深度建议至少5分；深度情感支持至少6分；普通回复（好的、没问题、我明白了）给1-2分。

## 提取规则
1. 每个片段必须包含 "speaker" 字段，值为 "user" 或 "assistant"
2. 只提取陈述句，不提取问题、寒暄、确认（如"好的"、"嗯嗯"）
3. User 侧重：个人信息、偏好、经历、情感表达
4. Assistant 侧重：承诺、建议、情感支持

请返回纯JSON，不要任何其他文字。`

const extractUserPromptFormat = `请从以下对话中提取重要的记忆片段，并为每个片段评分。

对话内容:
%s

请返回JSON格式（每个片段必须包含 speaker 字段）:
{
  "fragments": [
    {
      "content": "记忆内容原文或摘要",
      "speaker": "user 或 assistant",
      "type": "preference/event/fact/relationship",
      "sentiment": "positive/neutral/negative",
      "importance_score": 7,
      "reasoning": "简短说明为什么给这个分数"
    }
  ]
}`

// Extract runs one model call over the whole transcript and returns every
// candidate fragment it produced. Fragments come back raw; validation and
// scoring corrections happen downstream.
func (c *Client) Extract(ctx context.Context, transcript string) ([]core.RawFragment, error) {
	payload := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": extractSystemPrompt},
			{"role": "user", "content": fmt.Sprintf(extractUserPromptFormat, transcript)},
		},
		"temperature": extractTemperature,
	}

	data, err := c.doRequest(ctx, "/chat/completions", payload)
	if err != nil {
		return nil, err
	}

	content, err := parseChatResponse(data)
	if err != nil {
		return nil, err
	}

	return parseFragments(content)
}

// parseFragments tolerates the usual model quirks: markdown code fences, a
// {"fragments": [...]} wrapper, or a bare JSON array.
func parseFragments(content string) ([]core.RawFragment, error) {
	cleaned := stripCodeFence(content)

	var wrapper struct {
		Fragments []core.RawFragment `json:"fragments"`
	}
	if err := json.Unmarshal([]byte(cleaned), &wrapper); err == nil && wrapper.Fragments != nil {
		return wrapper.Fragments, nil
	}

	var list []core.RawFragment
	if err := json.Unmarshal([]byte(cleaned), &list); err == nil {
		return list, nil
	}

	return nil, fmt.Errorf("no fragments found in response: %s", truncate(content, 200))
}

func stripCodeFence(content string) string {
	cleaned := strings.TrimSpace(content)
	if !strings.HasPrefix(cleaned, "```") {
		return cleaned
	}

	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimPrefix(cleaned, "json")
	if idx := strings.LastIndex(cleaned, "```"); idx >= 0 {
		cleaned = cleaned[:idx]
	}
	return strings.TrimSpace(cleaned)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
