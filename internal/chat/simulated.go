package chat

import (
	"context"
	"strings"
)

// Simulated is a keyword-template generator used when no chat model is
// available. It never fails, so the assistant always answers something.
type Simulated struct{}

// NewSimulated creates the fallback generator.
func NewSimulated() *Simulated {
	return &Simulated{}
}

type template struct {
	keywords []string
	reply    string
}

var templates = []template{
	{
		keywords: []string{"salary", "pay", "compensation", "negotiat", "raise"},
		reply: "Negotiating pay works best when you anchor on market data. Research " +
			"salary bands for your role and region, list your recent wins with " +
			"numbers attached, and practice saying your target out loud before the " +
			"conversation.",
	},
	{
		keywords: []string{"resume", "cv", "cover letter"},
		reply: "A strong resume leads with impact. Put measurable outcomes in the " +
			"first bullet of each role, trim anything older than ten years, and " +
			"tailor the top third of the page to the job description.",
	},
	{
		keywords: []string{"interview", "hiring"},
		reply: "Treat interviews as structured storytelling. Prepare five stories " +
			"covering conflict, failure, leadership, delivery and learning, and " +
			"rehearse each in a situation, action, result shape.",
	},
	{
		keywords: []string{"lead", "manager", "management", "mentor"},
		reply: "Growing into leadership starts before the title. Volunteer to run a " +
			"small project end to end, ask for feedback from people you coordinate, " +
			"and find a mentor one or two levels above you.",
	},
	{
		keywords: []string{"skill", "learn", "course", "upskill", "career change", "switch"},
		reply: "When changing direction, pick one target skill and go deep rather " +
			"than sampling many. Build something real with it, then make that work " +
			"visible where your next employer will look.",
	},
	{
		keywords: []string{"network", "linkedin", "connect"},
		reply: "Networking compounds when you give first. Share what you are " +
			"learning, comment with substance on work you admire, and ask for " +
			"twenty minute conversations, not jobs.",
	},
}

const defaultReply = "I can help with career questions around salaries, resumes, " +
	"interviews, leadership and skill building. What are you working toward right now?"

// Generate matches the message against keyword templates.
func (s *Simulated) Generate(_ context.Context, _ []Message, message string) (string, error) {
	lower := strings.ToLower(message)
	for _, t := range templates {
		for _, kw := range t.keywords {
			if strings.Contains(lower, kw) {
				return t.reply, nil
			}
		}
	}
	return defaultReply, nil
}

// Name identifies the fallback generator in responses.
func (s *Simulated) Name() string {
	return "simulated"
}
