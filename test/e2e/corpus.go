// Package e2e provides end-to-end tests over a corpus of synthetic policy documents.
package e2e

import (
	"fmt"
	"strings"
)

// PolicyDocument is one synthetic policy in the corpus.
type PolicyDocument struct {
	ID        string
	Title     string
	Signature string
	Content   string
	// Penalties marks documents whose text mentions penalties; the fake risk assessor
	// labels them High.
	Penalties bool
}

// QueryTestCase is a card search query and the documents that must appear in its results.
type QueryTestCase struct {
	Query          string
	ExpectedDocIDs []string
	Description    string
}

// Corpus holds documents and query test cases for E2E tests.
type Corpus struct {
	Documents    []PolicyDocument
	TestCases    []QueryTestCase
	TotalDocs    int
	TotalQueries int
}

var policyTopics = []struct {
	title     string
	signature string
	body      string
}{
	{"Annual Leave Policy", "annual leave entitlement", "Staff accrue paid holiday each month. Requests go to the line manager two weeks ahead."},
	{"Procurement Policy", "procurement threshold approval", "Purchases above the threshold need three quotes. The finance team signs off each order."},
	{"Remote Working Policy", "remote working arrangements", "Employees may work from home up to three days a week. Equipment is issued by facilities."},
	{"Data Retention Policy", "records retention schedule", "Records are kept for the period in the schedule. Expired records are destroyed securely."},
	{"Information Security Policy", "information security controls", "Laptops use full disk encryption. Passwords rotate and access is reviewed quarterly."},
	{"Whistleblowing Policy", "whistleblowing protected disclosure", "Concerns can be raised confidentially. Retaliation against a whistleblower is prohibited."},
	{"Travel Expenses Policy", "travel expenses reimbursement", "Claims need receipts and manager approval. Economy class is the default for rail and air."},
	{"Health and Safety Policy", "workplace health safety", "Managers carry out risk assessments. Accidents are reported through the incident log."},
	{"Equality and Diversity Policy", "equality diversity inclusion", "Recruitment panels are balanced. Reasonable adjustments are made for disabled staff."},
	{"Social Media Policy", "social media conduct", "Staff must not post confidential information. Official accounts are run by communications."},
	{"Grievance Procedure", "grievance hearing appeal", "A grievance is raised in writing. Hearings take place within a fortnight and may be appealed."},
	{"Flexible Working Policy", "flexible working request", "Any employee may request flexible hours. Decisions are given within a statutory period."},
	{"Gifts and Hospitality Policy", "gifts hospitality register", "Gifts above a nominal value are declared. The register is reviewed by the monitoring officer."},
	{"Fleet Vehicle Policy", "fleet vehicle usage", "Pool cars are booked in advance. Drivers check licences and report damage promptly."},
	{"Anti-Bribery Policy", "anti bribery corruption", "Facilitation payments are forbidden. Third parties are vetted before contracts start."},
	{"Records Management Policy", "records management classification", "Files carry a classification marking. Shared drives follow the corporate file plan."},
	{"Lone Working Policy", "lone working safeguards", "Lone workers log their visits. A buddy system confirms safe return after site visits."},
	{"Sickness Absence Policy", "sickness absence reporting", "Absence is reported before the start of the shift. Return to work interviews are held."},
	{"Capability Procedure", "capability performance improvement", "Underperformance is addressed with a written improvement plan and regular reviews."},
	{"Complaints Policy", "customer complaints handling", "Complaints are acknowledged quickly. Unresolved cases escalate to the ombudsman."},
	{"Freedom of Information Policy", "freedom information requests", "Requests are answered within the statutory deadline. Exemptions are applied narrowly."},
	{"Business Continuity Policy", "business continuity planning", "Each service keeps a continuity plan. Plans are exercised and updated every year."},
	{"Energy Management Policy", "energy efficiency reduction", "Buildings track energy use. Heating schedules follow occupancy and targets are published."},
	{"Safeguarding Policy", "safeguarding vulnerable adults", "Concerns about vulnerable people are referred to the safeguarding lead the same day."},
	{"Volunteer Policy", "volunteer recruitment induction", "Volunteers receive an induction and a named supervisor. Expenses are reimbursed."},
	{"Parking Policy", "staff parking permits", "Permits are allocated by need. Blue badge holders have priority bays near entrances."},
	{"Learning and Development Policy", "learning development training", "Training needs are agreed at appraisal. Mandatory courses are completed online."},
	{"Conflict of Interest Policy", "conflict interest declaration", "Personal interests are declared annually. Conflicted staff withdraw from decisions."},
	{"Clear Desk Policy", "clear desk screen", "Desks are cleared at the end of each day. Screens lock when unattended."},
	{"Accessibility Policy", "digital accessibility standards", "Websites meet the accessibility standard. Documents are published in accessible formats."},
}

// BuildCorpus returns one document per policy topic and one query per document. Every
// third document mentions penalties.
func BuildCorpus() *Corpus {
	docs := make([]PolicyDocument, len(policyTopics))
	for i, t := range policyTopics {
		penalties := i%3 == 0
		var b strings.Builder
		b.WriteString(t.title)
		b.WriteString("\n\n")
		fmt.Fprintf(&b, "This policy sets out the %s rules that apply to all council staff.\n\n", t.signature)
		b.WriteString(t.body)
		if penalties {
			b.WriteString("\n\nBreaches lead to disciplinary action and statutory penalties.")
		}
		docs[i] = PolicyDocument{
			ID:        fmt.Sprintf("policy-%03d", i),
			Title:     t.title,
			Signature: t.signature,
			Content:   b.String(),
			Penalties: penalties,
		}
	}
	cases := make([]QueryTestCase, len(docs))
	for i, d := range docs {
		cases[i] = QueryTestCase{
			Query:          d.Signature,
			ExpectedDocIDs: []string{d.ID},
			Description:    fmt.Sprintf("%s finds %s", d.Signature, d.ID),
		}
	}
	return &Corpus{
		Documents:    docs,
		TestCases:    cases,
		TotalDocs:    len(docs),
		TotalQueries: len(cases),
	}
}

// HighRiskCount returns the number of documents that mention penalties.
func (c *Corpus) HighRiskCount() int {
	n := 0
	for _, d := range c.Documents {
		if d.Penalties {
			n++
		}
	}
	return n
}
