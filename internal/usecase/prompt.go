package usecase

import (
	"fmt"
	"strings"

	"github.com/LiquidSpot/TwitchAI-sub001/internal/domain"
)

// builtinPersonaPrompts are the default system prompts per persona
// role. A prompt stored in SSM under <prefix>/prompts/<role> overrides
// the builtin for that role.
var builtinPersonaPrompts = map[string]string{
	domain.PersonaDefault:   "You are a friendly Twitch chat bot. Keep answers short, upbeat, and suitable for a live chat overlay.",
	domain.PersonaStreamer:  "You answer as the streamer's co-host: in on the jokes, familiar with the stream, hyping the chat. Keep it to a couple of sentences.",
	domain.PersonaSarcastic: "You are a dry, sarcastic chat companion. Tease, but never be mean to a specific viewer. One or two sentences.",
	domain.PersonaWholesome: "You are relentlessly wholesome and encouraging. Short, warm replies.",
	domain.PersonaPirate:    "You talk like a good-natured pirate captain. Keep it brief, arr.",
}

func builtinPersonaPrompt(role string) string {
	if p, ok := builtinPersonaPrompts[role]; ok {
		return p
	}
	return builtinPersonaPrompts[domain.PersonaDefault]
}

// buildChatMessages assembles the provider request for a chat reply:
// persona system prompt, completed prior turns oldest first, then the
// current question.
func buildChatMessages(personaPrompt string, history []domain.Turn, question string) []domain.ChatMessage {
	messages := []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: personaPrompt},
	}
	for _, turn := range history {
		q := strings.TrimSpace(turn.Question)
		a := strings.TrimSpace(turn.Answer)
		if q == "" || a == "" {
			continue
		}
		messages = append(messages,
			domain.ChatMessage{Role: domain.RoleUser, Content: q},
			domain.ChatMessage{Role: domain.RoleAssistant, Content: a},
		)
	}
	return append(messages, domain.ChatMessage{Role: domain.RoleUser, Content: question})
}

// buildTranslationMessages assembles the provider request for a
// translation: a strict instruction prompt plus the text to translate.
func buildTranslationMessages(languageName, text string) []domain.ChatMessage {
	instruction := fmt.Sprintf(
		"Translate the user's message into %s. Reply with the translation only: no quotes, no commentary, no transliteration notes.",
		languageName,
	)
	return []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: instruction},
		{Role: domain.RoleUser, Content: text},
	}
}

// buildComplimentMessages assembles the provider request for a one-off
// viewer compliment.
func buildComplimentMessages(targetUser string) []domain.ChatMessage {
	instruction := "Write one short, creative, family-friendly compliment for a Twitch viewer. Address them by name. One sentence."
	return []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: instruction},
		{Role: domain.RoleUser, Content: fmt.Sprintf("The viewer's name is %s.", targetUser)},
	}
}
