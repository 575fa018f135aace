package proposal

// AuditFields lists the audited fields in the order changelog entries of a
// single mutation are written.
var AuditFields = []string{
	"code",
	"title",
	"department",
	"project_type",
	"funding_agency",
	"application_date",
	"start_date",
	"end_date",
	"status",
	"sanction_letter_number",
	"final_sanctioned_cost",
	"investigators",
}

// Snapshot renders every audited field as text; unset fields are nil.
func (p Proposal) Snapshot() map[string]*string {
	s := map[string]*string{
		"code":                   text(p.code.String()),
		"title":                  text(p.title),
		"department":             text(p.code.Department),
		"project_type":           text(p.code.ProjectType),
		"funding_agency":         text(p.fundingAgency),
		"application_date":       text(formatDate(p.applicationDate)),
		"start_date":             text(formatDate(p.startDate)),
		"end_date":               text(formatDate(p.endDate)),
		"status":                 text(string(p.status)),
		"sanction_letter_number": text(p.sanctionLetterNumber),
		"final_sanctioned_cost":  nil,
		"investigators":          text(p.investigators.String()),
	}
	if p.finalSanctionedCost.Valid {
		s["final_sanctioned_cost"] = text(p.finalSanctionedCost.Decimal.StringFixed(2))
	}
	return s
}

func text(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
