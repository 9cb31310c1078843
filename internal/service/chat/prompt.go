package chat

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/peachbot/peachbot/internal/core"
	"github.com/peachbot/peachbot/internal/service/memory"
)

const firstConversationMarker = "（这是我们的第一次对话，还没有关于你的记忆）"

// tokenCounter bounds the injected memory block. A nil encoder falls back to
// a rough rune estimate so prompt building never depends on the BPE files.
type tokenCounter struct {
	encoder *tiktoken.Tiktoken
}

func newTokenCounter() tokenCounter {
	// Fetches the cl100k_base dictionary on first use and caches it.
	encoder, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return tokenCounter{}
	}
	return tokenCounter{encoder: encoder}
}

func (t tokenCounter) count(s string) int {
	if t.encoder == nil {
		return len([]rune(s))
	}
	return len(t.encoder.Encode(s, nil, nil))
}

// renderMemoryBlocks partitions ranked memories by speaker and renders each
// side as a labeled bullet list, stopping once the token budget is spent.
func renderMemoryBlocks(scored []memory.Scored, counter tokenCounter, budget int) (userBlock, assistantBlock string) {
	var userLines, assistantLines []string
	spent := 0

	for _, s := range scored {
		frag := s.Fragment
		line := fmt.Sprintf("- %s (重要性: %d/10, 类型: %s, 情感: %s)",
			frag.Content, frag.Importance, frag.Type, frag.Sentiment)

		cost := counter.count(line)
		if budget > 0 && spent+cost > budget {
			break
		}
		spent += cost

		if frag.Speaker == core.SpeakerAssistant {
			assistantLines = append(assistantLines, line)
		} else {
			userLines = append(userLines, line)
		}
	}
	return strings.Join(userLines, "\n"), strings.Join(assistantLines, "\n")
}

// buildUserPrompt assembles the memory-augmented prompt for one turn.
func buildUserPrompt(message string, scored []memory.Scored, counter tokenCounter, budget int) string {
	userBlock, assistantBlock := renderMemoryBlocks(scored, counter, budget)

	var b strings.Builder
	b.WriteString("## 关于用户的重要记忆\n\n")
	b.WriteString("以下是用户说过的重要内容，请在回复中体现你的理解：\n\n")
	if userBlock == "" && assistantBlock == "" {
		b.WriteString(firstConversationMarker)
		b.WriteString("\n")
	} else if userBlock == "" {
		b.WriteString("（暂无）\n")
	} else {
		b.WriteString(userBlock)
		b.WriteString("\n")
	}

	if assistantBlock != "" {
		b.WriteString("\n## 你说过的话\n\n")
		b.WriteString("以下是你之前作出的承诺和给过的支持，请务必信守：\n\n")
		b.WriteString(assistantBlock)
		b.WriteString("\n")
	}

	b.WriteString(`
## 对话原则

1. 情感连接优先：关注用户的情感状态，给予温暖和支持
2. 个性化回复：根据记忆中的信息，提供个性化的回应
3. 自然对话：像朋友一样自然交流，不要刻意提及记忆
4. 尊重边界：对于敏感话题保持尊重和谨慎
5. 中文表达：使用自然、温暖的中文表达

## 当前对话

用户说：`)
	b.WriteString(message)
	b.WriteString("\n\n请基于记忆和对话原则，给出温暖、贴心的回复：")
	return b.String()
}

// serializeTranscript renders buffered turns as role-prefixed lines for the
// extraction capability.
func serializeTranscript(turns []core.Turn) string {
	lines := make([]string, 0, len(turns))
	for _, turn := range turns {
		lines = append(lines, fmt.Sprintf("%s: %s", turn.Role, turn.Content))
	}
	return strings.Join(lines, "\n")
}
