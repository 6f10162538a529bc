package workflow

import (
	"fmt"

	"codebase-consultant/internal/llm"
)

const explanationSurveyPrompt = `You are a principal engineer with expertise in code architecture and system design.

Analyze the codebase to identify all components relevant to the user's query.

Your response should include:
1. Key files and modules related to the query
2. Main architectural patterns or design approaches used
3. Important concepts or abstractions
4. Data flow and control flow overview
5. Dependencies and relationships between components
6. Any non-obvious implementation details

Focus on providing a complete picture of the relevant system.`

const explanationDetailPrompt = `You are a principal engineer providing technical documentation and mentorship.

Using the codebase report and your previous analysis, create a comprehensive technical explanation.

Your response MUST include:
1. High-level overview of the system/component in question
2. Detailed walkthrough of how the code works
3. Specific file references with line-by-line explanations where helpful
4. Code snippets highlighting key implementation details
5. Explanation of design decisions and trade-offs
6. Common pitfalls or gotchas developers should know
7. How different components interact with each other
8. Suggestions for where to look for specific functionality

Make your explanation clear, well-structured, and educational. Use markdown formatting with code blocks.`

type codeExplanation struct{}

func (codeExplanation) Name() string {
	return "code_explanation"
}

func (codeExplanation) Phase1(input string, report Report) llm.Instruction {
	return llm.Instruction{
		System: explanationSurveyPrompt,
		User:   fmt.Sprintf("Codebase Report:\n%s\n\nQuery: %s", reportBlock(report), input),
	}
}

func (codeExplanation) Phase2(input string, report Report, analysis string) llm.Instruction {
	return llm.Instruction{
		System: explanationDetailPrompt,
		User: fmt.Sprintf("Codebase Report:\n%s\n\nOriginal Query: %s\n\nKey Components Identified:\n%s\n\nNow provide a comprehensive technical explanation with code examples and clear structure.",
			reportBlock(report), input, analysis),
	}
}
