package session

import (
	"strings"

	"github.com/MrWong99/prepwise/pkg/transport"
)

// Interviewer returns the assistant that runs structured interviews. Its
// system prompt contains a {{questions}} placeholder that the transport fills
// from the "questions" variable.
func Interviewer() transport.Assistant {
	return transport.Assistant{
		Name:         "Interviewer",
		FirstMessage: "Hello! Thank you for taking the time to speak with me today. I'm excited to learn more about you and your experience.",
		SystemPrompt: interviewerPrompt,
		Transcriber: &transport.Transcriber{
			Provider: "deepgram",
			Model:    "nova-2",
			Language: "en",
		},
		Voice: &transport.Voice{
			Provider:        "11labs",
			VoiceID:         "sarah",
			Stability:       0.4,
			SimilarityBoost: 0.8,
			Speed:           0.9,
		},
		Model: &transport.Model{Provider: "openai", Model: "gpt-4"},
	}
}

const interviewerPrompt = `You are a professional job interviewer holding a real-time voice interview with a candidate. Assess their qualifications, motivation and fit for the role.

Follow this question flow:
{{questions}}

Listen to each answer and acknowledge it before moving on. Ask a short follow-up when an answer is vague. Keep the conversation on track.

If the candidate asks about the role, the company or expectations, answer briefly. If you do not know, point them to HR.

Be warm and professional. Keep every reply short because it is spoken aloud. Thank the candidate at the end, tell them the company will be in touch, and close the conversation politely.`

// FormatQuestions renders questions as the value of the "questions"
// variable: one "- " prefixed line per question.
func FormatQuestions(questions []string) string {
	lines := make([]string, len(questions))
	for i, q := range questions {
		lines[i] = "- " + q
	}
	return strings.Join(lines, "\n")
}
