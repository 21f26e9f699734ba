package diary

import (
	"fmt"
	"strings"

	"github.com/cognicore/diary/pkg/diary/taxonomy"
)

const promptHeader = `You are an expert psychologist who analyzes Korean journal entries. Read the entry for its overall meaning and the writer's emotions and intentions rather than matching single words.

Classify the entry in two tiers. Pick exactly one primary category (대분류) and one subcategory (소분류) that belongs to it:
`

const promptRules = `
Subcategory notes:
- "꿈" is for sleep dreams only ("꿈을 꿨다", "꿈에서", "꿈속에서"). Hopes and ambitions go under 목표.
- "감정" is for emotional states, "회고" for looking back on the past.
- "계획" is for future intentions, "도전" for new challenges and experiments.

Keywords: return 3 to 5 pure nouns (명사). Strip particles (조사) and verb or adjective endings, e.g. "동생이랑" -> "동생", "문신을" -> "문신". Never return time words (오늘, 어제, 내일), intensity words (그냥, 정말) or inflected verbs. Emotion verbs become their noun form ("행복했다" -> "행복").

emotionScore is a number from -1.0 (very negative) to 1.0 (very positive); use fine steps such as 0.2 or -0.4.

interpretation is written in Korean: at least five sentences of warm, empathetic psychological insight. For dreams, interpret each symbol (people, places, objects, actions) and connect it to the writer's current state.

Output format:
{
  "primaryCategory": "<대분류>",
  "subCategory": "<소분류>",
  "keywords": ["<명사>", ...],
  "sentiment": "긍정" | "중립" | "부정",
  "emotionScore": <number>,
  "interpretation": "<Korean text>"
}

Example:
Entry: "오늘 동생이랑 문신할 곳 찾다가 허탕쳤다"
{"primaryCategory": "관계", "subCategory": "가족", "keywords": ["동생", "문신"], "sentiment": "중립", "emotionScore": -0.1, "interpretation": "동생과 함께 시간을 보내며 문신 가게를 찾아다녔지만 원하는 곳을 찾지 못했네요. ..."}

Example:
Entry: "오늘 헬스장에서 3km 뛰었다"
{"primaryCategory": "습관", "subCategory": "운동", "keywords": ["헬스장", "러닝"], "sentiment": "긍정", "emotionScore": 0.6, "interpretation": "오늘 헬스장에서 3km를 완주하셨군요! ..."}
`

const promptFooter = "\n**Output ONLY valid JSON. No explanations, just the JSON object.**"

// BuildPrompt assembles the analysis request: instructions, the category
// table, optional learning hints, then the entry itself.
func BuildPrompt(hints, entry string) string {
	var b strings.Builder
	b.WriteString(promptHeader)
	for _, p := range taxonomy.Primaries() {
		subs := taxonomy.Subs(p)
		names := make([]string, len(subs))
		for i, s := range subs {
			names[i] = fmt.Sprintf("%q", string(s))
		}
		fmt.Fprintf(&b, "- %q: %s\n", string(p), strings.Join(names, ", "))
	}
	b.WriteString(promptRules)
	if hints = strings.TrimSpace(hints); hints != "" {
		b.WriteString("\n")
		b.WriteString(hints)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nJournal Entry: %s\n", entry)
	b.WriteString(promptFooter)
	return b.String()
}
