package questiongen

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are a teacher writing a comprehension check for a learner who just watched a short educational video.

Rules:
- Ask exactly one open question that can be answered in two or three sentences.
- The question must be answerable from the video alone.
- Tie the question to the learner's interests when it fits naturally.
- Match the vocabulary to the learner's age and education level.
- Prefer "why" and "how" over recall of isolated facts.
- List the concepts a good answer should mention, taken from the expected concepts when given.
- Do not repeat any question from the "already asked" list.`

// buildUserMessage constructs the user message from Input and Config limits.
func buildUserMessage(input Input, cfg Config) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Video: %s\n", input.Topic)
	if input.SourceMaterial != "" {
		fmt.Fprintf(&b, "Description: %s\n", input.SourceMaterial)
	}
	if input.AudienceLevel != "" {
		fmt.Fprintf(&b, "Audience: %s\n", input.AudienceLevel)
	}
	if len(input.ExpectedConcepts) > 0 {
		fmt.Fprintf(&b, "Expected concepts: %s\n", strings.Join(input.ExpectedConcepts, ", "))
	} else {
		b.WriteString("Expected concepts: general understanding\n")
	}

	b.WriteString("\nLearner:\n")
	b.WriteString(buildLearner(input.Learner))

	b.WriteString("\n\nAlready asked for this content:\n")
	b.WriteString(buildDedup(input.PriorQuestions, cfg.MaxPriorQuestions))

	return b.String()
}

func buildLearner(l Learner) string {
	var parts []string
	if l.Name != "" {
		parts = append(parts, "Name: "+l.Name)
	}
	if l.Age > 0 {
		parts = append(parts, fmt.Sprintf("Age: %d", l.Age))
	}
	if l.EducationLevel != "" {
		parts = append(parts, "Education level: "+l.EducationLevel)
	}
	if len(l.Interests) > 0 {
		parts = append(parts, "Interests: "+strings.Join(l.Interests, ", "))
	}
	if len(parts) == 0 {
		return "Unknown"
	}
	return strings.Join(parts, "\n")
}
