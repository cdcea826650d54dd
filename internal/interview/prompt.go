package interview

import (
	"fmt"
	"strings"
)

const promptTemplate = `Prepare questions for a job interview.
The job role is %s.
The job experience level is %s.
The tech stack used in the job is: %s.
The focus between behavioural and technical questions should lean towards: %s.
The amount of questions required is: %d.
Please return only the questions, without any additional text.
The questions are going to be read by a voice assistant so do not use "/" or "*" or any other special characters which might break the voice assistant.
Return the questions formatted like this:
["Question 1", "Question 2", "Question 3"]`

// Prompt renders the generation prompt for req.
func Prompt(req Request) string {
	return fmt.Sprintf(promptTemplate,
		req.Role, req.Level, strings.Join(req.TechStack, ", "), req.Type, req.Amount)
}
