package workflow

import (
	"fmt"

	"codebase-consultant/internal/llm"
)

const featureAnalysisPrompt = `You are a senior software architect with expertise in modern software design patterns and best practices.

Analyze the provided codebase report and create a high-level implementation plan for the requested feature.

Your response should include:
1. Architecture overview - how this feature fits into the existing system
2. Key components/modules that will be affected or created
3. High-level approach and design decisions
4. Potential challenges and considerations
5. Sequential implementation steps at a high level

Focus on architectural clarity and maintainability.`

const featurePlanPrompt = `You are a senior software engineer creating a detailed implementation guide.

Using the codebase report, feature request, and high-level plan, generate a comprehensive, actionable implementation plan.

Your response MUST include:
1. Specific file paths that need to be created or modified
2. Detailed code snippets for key changes (not pseudocode - actual implementable code)
3. Dependencies or packages that need to be added
4. Database schema changes (if applicable)
5. API endpoint specifications (if applicable)
6. Testing strategy and test cases
7. Step-by-step implementation order with clear explanations
8. Edge cases and error handling considerations

Format your response in clear sections with markdown. Be specific and thorough.`

type featurePlanning struct{}

func (featurePlanning) Name() string {
	return "feature_planning"
}

func (featurePlanning) Phase1(input string, report Report) llm.Instruction {
	return llm.Instruction{
		System: featureAnalysisPrompt,
		User:   fmt.Sprintf("Codebase Report:\n%s\n\nFeature Request: %s", reportBlock(report), input),
	}
}

func (featurePlanning) Phase2(input string, report Report, analysis string) llm.Instruction {
	return llm.Instruction{
		System: featurePlanPrompt,
		User: fmt.Sprintf("Codebase Report:\n%s\n\nOriginal Feature Request: %s\n\nHigh-Level Plan:\n%s\n\nNow provide the detailed implementation plan with specific file paths, code snippets, and clear instructions/explanations.",
			reportBlock(report), input, analysis),
	}
}
