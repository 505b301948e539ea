package notify

import (
	"fmt"
	"strings"
)

// StatusChange describes a loan status change for an applicant.
type StatusChange struct {
	ApplicantName string
	Email         string
	LoanID        string
	FromStatus    string
	ToStatus      string
}

var statusPhrases = map[string]string{
	"PENDING":          "has been received and is awaiting review",
	"MANAGER_APPROVED": "has passed manager review and is awaiting final approval",
	"APPROVED":         "has been approved",
	"ACTIVE":           "is now active",
	"OVERDUE":          "has an overdue installment",
	"PAID":             "has been fully repaid",
	"REJECTED":         "has been rejected",
	"CANCELLED":        "has been cancelled",
	"INFO_REQUESTED":   "needs more information",
}

func StatusChangeMessage(c StatusChange) Message {
	phrase, ok := statusPhrases[c.ToStatus]
	if !ok {
		phrase = "is now " + strings.ToLower(c.ToStatus)
	}
	ref := "Your loan application"
	subject := "Loan application update"
	if c.LoanID != "" {
		ref = fmt.Sprintf("Your loan %s", c.LoanID)
		subject = fmt.Sprintf("Loan %s update", c.LoanID)
	}

	var b strings.Builder
	name := strings.TrimSpace(c.ApplicantName)
	if name == "" {
		name = "Applicant"
	}
	fmt.Fprintf(&b, "Dear %s,\n\n%s %s.\n", name, ref, phrase)
	if c.ToStatus == "OVERDUE" {
		b.WriteString("Please contact the branch to settle the pending amount.\n")
	}
	b.WriteString("\nThis is an automated message.\n")

	return Message{To: c.Email, Subject: subject, Body: b.String()}
}
