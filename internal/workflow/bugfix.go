package workflow

import (
	"fmt"

	"codebase-consultant/internal/llm"
)

const bugFixAnalysisPrompt = `You are a senior software developer specializing in debugging and root cause analysis.

Analyze the provided codebase and bug description to identify the root cause.

Your response should include:
1. Root cause analysis - what is causing the bug?
2. Affected components and files
3. Why the current implementation is failing
4. Impact assessment - what else might be affected?
5. Proposed approach to fix the bug
6. Potential side effects or risks of the fix

Be thorough in your analysis and consider edge cases.`

const bugFixPlanPrompt = `You are a senior software engineer implementing bug fixes.

Using the codebase report, bug description, and root cause analysis, create a detailed remediation plan.

Your response MUST include:
1. Exact file paths that need to be modified
2. Specific code changes with before/after snippets
3. Why each change fixes the identified issue
4. Additional validation or defensive checks to add
5. Test cases to verify the fix and prevent regression
6. Step-by-step implementation instructions
7. Rollback plan if something goes wrong

Format your response in clear sections with markdown. Provide actual code, not pseudocode.`

type bugFixPlanning struct{}

func (bugFixPlanning) Name() string {
	return "bug_fix_planning"
}

func (bugFixPlanning) Phase1(input string, report Report) llm.Instruction {
	return llm.Instruction{
		System: bugFixAnalysisPrompt,
		User:   fmt.Sprintf("Codebase Report:\n%s\n\nBug Description: %s", reportBlock(report), input),
	}
}

func (bugFixPlanning) Phase2(input string, report Report, analysis string) llm.Instruction {
	return llm.Instruction{
		System: bugFixPlanPrompt,
		User: fmt.Sprintf("Codebase Report:\n%s\n\nBug Description: %s\n\nRoot Cause Analysis:\n%s\n\nNow provide the detailed fix implementation plan with specific file paths and code changes.",
			reportBlock(report), input, analysis),
	}
}
