// Package utterance infers interview parameters from what a candidate said
// during a call: role, seniority, interview type and tech stack.
package utterance

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/MrWong99/prepwise/internal/interview"
	"github.com/MrWong99/prepwise/internal/techstack"
	"github.com/MrWong99/prepwise/internal/transcript"
)

// Defaults used when nothing in the conversation matches.
const (
	DefaultRole  = "Software Developer"
	DefaultLevel = "Mid-level"
	DefaultType  = "technical"
)

// DefaultTechStack is used when no technology was mentioned.
var DefaultTechStack = []string{"javascript", "nodejs"}

// group is an ordered keyword set mapped to a single result. Groups are
// checked in order and the first one with a match wins.
type group struct {
	result string
	re     *regexp.Regexp
}

func newGroup(result string, keywords ...string) group {
	quoted := make([]string, len(keywords))
	for i, k := range keywords {
		quoted[i] = regexp.QuoteMeta(k)
	}
	return group{result: result, re: regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)}
}

var (
	roleGroups = []group{
		newGroup("Frontend Developer", "frontend", "front-end", "front end", "ui developer", "react developer"),
		newGroup("Backend Developer", "backend", "back-end", "back end", "server-side", "api developer"),
		newGroup("Full Stack Developer", "fullstack", "full-stack", "full stack"),
		newGroup("DevOps Engineer", "devops", "dev ops", "site reliability", "sre", "platform engineer", "cloud engineer"),
		newGroup("Data Scientist", "data scientist", "data science", "data analyst"),
		newGroup("Machine Learning Engineer", "machine learning", "ml engineer", "ai engineer", "deep learning"),
		newGroup("Mobile Developer", "mobile", "ios", "android", "react native", "flutter"),
	}
	levelGroups = []group{
		newGroup("Junior", "junior", "entry level", "entry-level", "intern", "graduate", "beginner"),
		newGroup("Senior", "senior", "experienced", "expert"),
		newGroup("Lead", "lead", "principal", "staff", "architect", "manager"),
	}
	typeGroups = []group{
		newGroup("behavioral", "behavioral", "behavioural", "soft skills", "situational"),
		newGroup("mixed", "mixed", "both", "combination", "balanced"),
	}
)

func firstMatch(groups []group, corpus, fallback string) string {
	for _, g := range groups {
		if g.re.MatchString(corpus) {
			return g.result
		}
	}
	return fallback
}

// Classifier is safe for concurrent use.
type Classifier struct {
	tech *techstack.Classifier
}

// New returns a Classifier that resolves technologies with tech. A nil tech
// uses the plain static table.
func New(tech *techstack.Classifier) *Classifier {
	if tech == nil {
		tech = techstack.New()
	}
	return &Classifier{tech: tech}
}

// Infer builds a partial generation request from a conversation. OwnerID is
// left empty. Amount is the number of assistant utterances and ok is false
// when there are none.
//
// Infer is deterministic and performs no I/O.
func (c *Classifier) Infer(utterances []transcript.Utterance) (req interview.Request, ok bool) {
	corpus := strings.ToLower(strings.Join(transcript.TextsBy(utterances, transcript.SpeakerUser), " "))

	req = interview.Request{
		Role:      firstMatch(roleGroups, corpus, DefaultRole),
		Level:     firstMatch(levelGroups, corpus, DefaultLevel),
		Type:      firstMatch(typeGroups, corpus, DefaultType),
		TechStack: c.techStack(corpus),
		Amount:    len(transcript.TextsBy(utterances, transcript.SpeakerAssistant)),
	}
	return req, req.Amount > 0
}

func (c *Classifier) techStack(corpus string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}

	for _, tok := range strings.Fields(corpus) {
		if name, ok := c.tech.Classify(trimToken(tok)); ok {
			add(name)
		}
	}
	for _, name := range c.tech.Phrases(corpus) {
		add(name)
	}

	if len(out) == 0 {
		return append([]string(nil), DefaultTechStack...)
	}
	return out
}

// trimToken strips surrounding punctuation but keeps '#' so "c#" survives.
// '+' is a symbol rather than punctuation and is kept as well.
func trimToken(tok string) string {
	return strings.TrimFunc(tok, func(r rune) bool {
		return r != '#' && unicode.IsPunct(r)
	})
}
