package pipeline

import (
	"fmt"
	"strings"
)

// Prompt templates for every generation call the pipeline makes. Kept in one
// place so wording changes never hide inside orchestration logic.

func subtopicPlanPrompt(question string, max int) string {
	return fmt.Sprintf(
		"Break the research question below into at most %d focused subtopics, one per line, no numbering or commentary.\n\nQuestion: %s",
		max, question,
	)
}

func proposeQuestionPrompt(recent []string) string {
	var b strings.Builder
	b.WriteString("Propose one new research question worth investigating. Reply with the question only.")
	if len(recent) > 0 {
		b.WriteString("\nDo not repeat any of these:\n")
		for _, q := range recent {
			fmt.Fprintf(&b, "- %s\n", q)
		}
	}
	return b.String()
}

func refineQuestionPrompt(question string) string {
	return fmt.Sprintf(
		"Rewrite the following research question to be specific and searchable. Reply with the rewritten question only.\n\nQuestion: %s",
		question,
	)
}

func discoverSourcesPrompt(subtopic string, max int) string {
	return fmt.Sprintf(
		"List up to %d real, publicly accessible web pages likely to contain evidence about the topic below. Reply with full https URLs only, one per line.\n\nTopic: %s",
		max, subtopic,
	)
}

func summarizePrompt(subtopic, document string) string {
	return fmt.Sprintf(
		"Summarize the document below strictly as it relates to: %s\nWrite a dense factual paragraph. If the document says nothing relevant, reply with the single word: irrelevant.\n\nDocument:\n%s",
		subtopic, document,
	)
}

func directAnswerPrompt(subtopic string) string {
	return fmt.Sprintf(
		"No source document is available. From general knowledge, write a dense factual paragraph about: %s",
		subtopic,
	)
}

func sufficiencyPrompt(subtopic, summary string) string {
	return fmt.Sprintf(
		"Does the summary below sufficiently address the topic %q? Answer with exactly yes or no.\n\nSummary:\n%s",
		subtopic, summary,
	)
}

func synthesisPrompt(question string, summaries []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a coherent research report answering: %s\n\nUse only the findings below.\n", question)
	for i, s := range summaries {
		fmt.Fprintf(&b, "\nFinding %d:\n%s\n", i+1, s)
	}
	return b.String()
}

func validationPrompt(question, report string) string {
	return fmt.Sprintf(
		"Does the report below fully answer the question %q? Answer with exactly yes or no, then one sentence naming anything missing.\n\nReport:\n%s",
		question, report,
	)
}

// insufficiencyMarker is appended to a subtopic summary when every attempt
// failed its sufficiency check.
func insufficiencyMarker(subtopic string) string {
	return fmt.Sprintf("[Warning: findings for %q may be incomplete and need manual review]", subtopic)
}
