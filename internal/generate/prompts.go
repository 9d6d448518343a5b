package generate

import (
	"fmt"
	"strings"

	"github.com/sells-group/voicebot-cli/internal/model"
)

const promptWriterSystem = "You are a world-class expert at writing system prompts for AI voice agents."

const greetingWriterSystem = "You are an expert at writing friendly opening lines for voice agents."

func systemPromptRequest(p model.Persona, corpus string) string {
	lang := model.LanguageName(p.Language)

	var b strings.Builder
	b.WriteString("Write a concise, effective system prompt for a voice agent following these guidelines.\n\n")
	fmt.Fprintf(&b, "1. Role: %s\n", p.Role)
	fmt.Fprintf(&b, "2. Tone: %s\n", p.Tone)
	fmt.Fprintf(&b, "3. Language: %s\n", lang)
	b.WriteString("4. Knowledge base: the agent must answer ONLY from the text below and must never invent information.\n")
	b.WriteString("5. Missing knowledge: if the answer is not in the text, the agent clearly and politely says it does not have that information.\n")
	b.WriteString("6. Brevity: answers are short and on topic and never discuss competitors.\n")
	fmt.Fprintf(&b, "7. The agent always replies in %s.\n", lang)
	b.WriteString("8. Coverage: make the prompt as complete as possible, covering every product and the company's full offer.\n")
	b.WriteString("9. Invent a fitting name for the agent based on the website.\n\n")
	b.WriteString("Knowledge base:\n---\n")
	b.WriteString(corpus)
	b.WriteString("\n---\n\n")
	fmt.Fprintf(&b, "Now write the agent's system prompt in %s. It is the agent's internal instruction. ", lang)
	fmt.Fprintf(&b, "Begin with the %s equivalent of \"You are a helpful assistant...\".", lang)
	return b.String()
}

func greetingRequest(p model.Persona, corpus string) string {
	lang := model.LanguageName(p.Language)

	var b strings.Builder
	b.WriteString("Write a short, friendly first message that a voice agent says when a conversation starts.\n\n")
	fmt.Fprintf(&b, "1. Agent role: %s\n", p.Role)
	fmt.Fprintf(&b, "2. Tone: %s\n", p.Tone)
	fmt.Fprintf(&b, "3. Language: %s\n", lang)
	b.WriteString("4. Length: at most 2-3 sentences.\n")
	b.WriteString("5. Goal: greet the user and briefly explain how the agent can help.\n")
	fmt.Fprintf(&b, "6. Base it on the website content: %s...\n\n", corpus)
	fmt.Fprintf(&b, "Reply with the message only, in %s. ", lang)
	b.WriteString("Do not use markdown or special characters, plain text only.")
	return b.String()
}
