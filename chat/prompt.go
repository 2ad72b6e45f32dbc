package chat

import (
	"strings"

	"recruit_sandbox/generator"
)

// DefaultThinkingBudget is the chat-side budget, lower than generation.
const DefaultThinkingBudget = 16000

// BuildChatPrompt 构造聊天的系统提示词：嵌入当前笔记，并规定修订格式。
func BuildChatPrompt(notes string, history []Turn, userText string) generator.Prompt {
	var ctx string
	if strings.TrimSpace(notes) != "" {
		ctx = "CURRENT NOTES IN THE SANDBOX:\n\"\"\"\n" + notes + "\n\"\"\""
	} else {
		ctx = "There are no notes in the sandbox yet."
	}

	var sb strings.Builder
	sb.WriteString("You are an AI recruiting specialist. Your job is to help the user refine their hiring requirements.\n\n")
	sb.WriteString("Answering rules:\n")
	sb.WriteString("1. Answer conversationally and clearly, using several lines and bullet points so it is easy to read.\n")
	sb.WriteString("2. If the user asks to change, add to, remove from or edit the hiring content:\n")
	sb.WriteString("   a. Briefly explain what you are going to change.\n")
	sb.WriteString("   b. Then write out the COMPLETE new hiring notes including those changes, not a diff.\n")
	sb.WriteString("   c. Wrap the new notes exactly once in: " + OpenDelimiter + "...the new notes here..." + CloseDelimiter + "\n\n")
	sb.WriteString("Your goal is a fuller, more detailed set of notes, so that when it goes back into the sandbox the AI produces the best possible job description and interview questions.\n\n")
	sb.WriteString("Current context:\n")
	sb.WriteString(ctx)

	msgs := make([]generator.Message, 0, len(history))
	for _, t := range history {
		role := generator.RoleUser
		if t.Role == RoleAssistant {
			role = generator.RoleAssistant
		}
		msgs = append(msgs, generator.Message{Role: role, Content: t.Text})
	}

	return generator.Prompt{
		System:  sb.String(),
		User:    userText,
		History: msgs,
	}
}
