// Package e2e exercises the whole service over HTTP with a realistic session
// corpus. Embeddings are mocked, so retrieval quality rides on the keyword
// signal; each query case shares exact terms with its expected sessions.
package e2e

import (
	"time"

	"github.com/herkey/asha/internal/models"
)

// QueryCase pairs a user query with session ids that should surface in the
// recommendations.
type QueryCase struct {
	Description string
	Query       string
	ExpectedIDs []string
}

// Corpus is a fixed set of sessions plus query cases against them.
type Corpus struct {
	Sessions  []*models.Session
	TestCases []QueryCase
}

// BuildCorpus returns the e2e session corpus and its query cases.
func BuildCorpus() *Corpus {
	start := time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC)
	sessions := []*models.Session{
		{ID: "salary-negotiation", Title: "Salary Negotiation Workshop", Description: "Research market pay and negotiate your offer with confidence", Host: "Priya Nair", Tags: []string{"salary", "negotiation"}},
		{ID: "resume-clinic", Title: "Resume Clinic", Description: "Rework your resume with an experienced recruiter", Host: "Dana Cole", Tags: []string{"resume"}},
		{ID: "mock-interviews", Title: "Mock Interview Night", Description: "Practice behavioral interview questions with volunteers", Host: "Sam Osei", Tags: []string{"interview"}},
		{ID: "first-time-manager", Title: "First Time Manager Bootcamp", Description: "Delegation and feedback skills for a new manager", Host: "Ana Ruiz", Tags: []string{"leadership", "manager"}},
		{ID: "networking-basics", Title: "Networking Without Dread", Description: "Build a professional circle that actually helps", Host: "Lena Fischer", Tags: []string{"networking"}},
		{ID: "public-speaking", Title: "Public Speaking Basics", Description: "Structure and deliver a confident talk", Host: "Marco Díaz", Tags: []string{"speaking"}},
		{ID: "career-switch", Title: "Switching Into Tech", Description: "Plan a transition into a technical role", Host: "Ines Novak", Tags: []string{"transition"}},
		{ID: "freelancing", Title: "Freelancing Fundamentals", Description: "Pricing, contracts, and finding clients", Host: "Tomas Berg", Tags: []string{"freelancing"}},
		{ID: "mentorship", Title: "Finding a Mentor", Description: "How to ask for and sustain mentorship", Host: "Grace Udo", Tags: []string{"mentorship"}},
		{ID: "remote-work", Title: "Thriving In Remote Work", Description: "Async habits and visibility on a distributed team", Host: "Elif Kaya", Tags: []string{"remote"}},
	}
	for i, s := range sessions {
		s.StartTime = start.Add(time.Duration(i) * 24 * time.Hour)
		s.Duration = "60m"
	}

	cases := []QueryCase{
		{Description: "salary query", Query: "salary negotiation tips", ExpectedIDs: []string{"salary-negotiation"}},
		{Description: "resume query", Query: "improve my resume", ExpectedIDs: []string{"resume-clinic"}},
		{Description: "interview query", Query: "interview practice", ExpectedIDs: []string{"mock-interviews"}},
		{Description: "manager query", Query: "feedback skills for a new manager", ExpectedIDs: []string{"first-time-manager"}},
		{Description: "networking query", Query: "professional networking", ExpectedIDs: []string{"networking-basics"}},
		{Description: "speaking query", Query: "public speaking", ExpectedIDs: []string{"public-speaking"}},
		{Description: "remote query", Query: "remote work habits", ExpectedIDs: []string{"remote-work"}},
	}

	return &Corpus{Sessions: sessions, TestCases: cases}
}
