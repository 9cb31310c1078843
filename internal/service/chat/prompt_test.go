package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/peachbot/peachbot/internal/core"
	"github.com/peachbot/peachbot/internal/service/memory"
)

func scoredMemory(content string, speaker core.Speaker, importance int) memory.Scored {
	return memory.Scored{
		Fragment: core.Fragment{
			Content:    content,
			Speaker:    speaker,
			Type:       core.TypeFact,
			Sentiment:  core.SentimentNeutral,
			Importance: importance,
		},
		Score: 0.9,
	}
}

func TestRenderMemoryBlocks_Partition(t *testing.T) {
	scored := []memory.Scored{
		scoredMemory("我最喜欢吃北京烤鸭", core.SpeakerUser, 7),
		scoredMemory("我会一直陪着你", core.SpeakerAssistant, 6),
		scoredMemory("我是程序员", core.SpeakerUser, 5),
	}

	userBlock, assistantBlock := renderMemoryBlocks(scored, tokenCounter{}, 0)
	assert.Equal(t, 2, strings.Count(userBlock, "- "))
	assert.Contains(t, userBlock, "我最喜欢吃北京烤鸭")
	assert.Contains(t, assistantBlock, "我会一直陪着你")
	assert.NotContains(t, assistantBlock, "我是程序员")
}

func TestRenderMemoryBlocks_BudgetStopsUntruncatedLines(t *testing.T) {
	scored := []memory.Scored{
		scoredMemory("第一条重要的记忆内容", core.SpeakerUser, 7),
		scoredMemory("第二条重要的记忆内容", core.SpeakerUser, 6),
	}

	counter := tokenCounter{}
	firstLineCost := counter.count("- 第一条重要的记忆内容 (重要性: 7/10, 类型: fact, 情感: neutral)")

	userBlock, _ := renderMemoryBlocks(scored, counter, firstLineCost)
	assert.Contains(t, userBlock, "第一条重要的记忆内容")
	assert.NotContains(t, userBlock, "第二条重要的记忆内容")
}

func TestBuildUserPrompt_EmptyMemories(t *testing.T) {
	prompt := buildUserPrompt("你好", nil, tokenCounter{}, 1000)
	assert.Contains(t, prompt, firstConversationMarker)
	assert.NotContains(t, prompt, "你说过的话")
	assert.Contains(t, prompt, "用户说：你好")
}

func TestSerializeTranscript(t *testing.T) {
	turns := []core.Turn{
		{Role: core.RoleUser, Content: "你好"},
		{Role: core.RoleAssistant, Content: "你好呀"},
	}
	assert.Equal(t, "user: 你好\nassistant: 你好呀", serializeTranscript(turns))
}
