package screening

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	msgJDParsed         = "✅ Job Description parsed. You can now type ‘score’ to get candidate scores."
	msgJDBlank          = "⚠️ Please paste a job description first."
	msgJDFailed         = "⚠️ Job description parsing failed. Please try again."
	msgJDRequired       = "⚠️ Please parse a job description before scoring."
	msgResumesRequired  = "⚠️ Please upload at least one resume before scoring."
	msgWeightsInvalid   = "⚠️ Please ensure the weights sum to 100 before scoring."
	msgScoringFailed    = "⚠️ Scoring failed. Please try again."
	msgEnterCutoff      = "Please enter a cutoff score to filter candidates."
	msgInvalidCutoff    = "⚠️ Please enter a valid numeric cutoff."
	msgAnalyticsFailed  = "⚠️ Analytics are unavailable right now. You can still invite candidates."
	msgSelectRecipients = "Please select whom you want to invite and type your message below."
	msgNoResumes        = "⚠️ Please upload resumes before asking questions."
	msgParseJDFirst     = "ℹ️ Parse a job description first. Then ask about the candidates or type ‘score’."
	msgAnswerFailed     = "⚠️ Could not get an answer. Please try again."
	msgNoAnswer         = "No answer."
	msgNoRecipients     = "⚠️ Please select at least one recipient."
	msgNoMessage        = "⚠️ Please enter a message to send."
	msgInvitationClosed = "⚠️ There is no open invitation. Score the candidates and enter a cutoff first."
)

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func msgNoCandidate(cutoff float64) string {
	return fmt.Sprintf("No candidate has a score ≥ %s.", formatNumber(cutoff))
}

func msgScore(s ScoredCandidate) string {
	return fmt.Sprintf("%s: %s", s.Name, formatNumber(s.Score))
}

func msgPassed(s ScoredCandidate) string {
	return fmt.Sprintf("✓ Passed: %s (%s)", s.Name, s.Email)
}

func msgSent(emails []string) string {
	return "✅ Invitations sent to: " + strings.Join(emails, ", ")
}

func msgFailed(emails []string) string {
	return "❌ Failed to send to: " + strings.Join(emails, ", ")
}
