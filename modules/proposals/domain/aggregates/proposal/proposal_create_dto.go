package proposal

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/gcir/gms/pkg/constants"
)

type CreateDTO struct {
	Year            int              `json:"year,omitempty" validate:"omitempty,min=1900,max=9999"`
	Department      string           `json:"department" validate:"required,max=10"`
	ProjectType     string           `json:"project_type" validate:"required,max=10"`
	Title           string           `json:"title" validate:"required,max=500"`
	FundingAgency   string           `json:"funding_agency,omitempty" validate:"omitempty,max=255"`
	ApplicationDate string           `json:"application_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	StartDate       string           `json:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate         string           `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Investigators   []MemberDocument `json:"investigators" validate:"required,min=1,dive"`
}

func (d *CreateDTO) Normalize() {
	d.Department = strings.ToUpper(strings.TrimSpace(d.Department))
	d.ProjectType = strings.ToUpper(strings.TrimSpace(d.ProjectType))
	d.Title = strings.TrimSpace(d.Title)
	d.FundingAgency = strings.TrimSpace(d.FundingAgency)
	for i := range d.Investigators {
		d.Investigators[i].InvestigatorID = strings.TrimSpace(d.Investigators[i].InvestigatorID)
	}
}

// Validate normalizes d and reports the first invalid field.
func (d *CreateDTO) Validate() error {
	d.Normalize()
	if err := constants.Validate.Struct(d); err != nil {
		return validationError(err, createDTOFieldNames)
	}
	return nil
}

// ResolveYear picks the explicit year, else the application date's year,
// else the year of now.
func (d *CreateDTO) ResolveYear(now time.Time) int {
	if d.Year != 0 {
		return d.Year
	}
	if t, err := ParseDate(d.ApplicationDate); err == nil && !t.IsZero() {
		return t.Year()
	}
	return now.Year()
}

// Fields parses the descriptive part of d.
func (d *CreateDTO) Fields() (Fields, error) {
	doc := Document{
		Title:           d.Title,
		FundingAgency:   d.FundingAgency,
		ApplicationDate: d.ApplicationDate,
		StartDate:       d.StartDate,
		EndDate:         d.EndDate,
		Investigators:   d.Investigators,
	}
	f, err := doc.EditFields()
	if err != nil {
		return Fields{}, err
	}
	return f.Fields, nil
}

type TransitionDTO struct {
	Status               string           `json:"status" validate:"required"`
	SanctionLetterNumber string           `json:"sanction_letter_number,omitempty" validate:"omitempty,max=200"`
	FinalSanctionedCost  *decimal.Decimal `json:"final_sanctioned_cost,omitempty"`
}

// Fields converts the optional sanction values.
func (d *TransitionDTO) Fields() TransitionFields {
	f := TransitionFields{SanctionLetterNumber: d.SanctionLetterNumber}
	if d.FinalSanctionedCost != nil {
		f.FinalSanctionedCost = decimal.NewNullDecimal(*d.FinalSanctionedCost)
	}
	return f
}

func (d *TransitionDTO) Validate() error {
	d.Status = strings.TrimSpace(d.Status)
	d.SanctionLetterNumber = strings.TrimSpace(d.SanctionLetterNumber)
	if err := constants.Validate.Struct(d); err != nil {
		return validationError(err, transitionDTOFieldNames)
	}
	return nil
}

var createDTOFieldNames = map[string]string{
	"Year":            "year",
	"Department":      "department",
	"ProjectType":     "project_type",
	"Title":           "title",
	"FundingAgency":   "funding_agency",
	"ApplicationDate": "application_date",
	"StartDate":       "start_date",
	"EndDate":         "end_date",
	"Investigators":   "investigators",
	"InvestigatorID":  "investigators",
	"Role":            "investigators",
}

var transitionDTOFieldNames = map[string]string{
	"Status":               "status",
	"SanctionLetterNumber": "sanction_letter_number",
	"FinalSanctionedCost":  "final_sanctioned_cost",
}

func validationError(err error, names map[string]string) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return InvalidField("", err.Error())
	}
	fe := verrs[0]
	field := names[fe.StructField()]
	if field == "" {
		field = fe.Field()
	}
	switch fe.Tag() {
	case "required":
		return &MissingFieldError{Field: field}
	case "min":
		if fe.Kind() == reflect.Slice {
			return &MissingFieldError{Field: field}
		}
	}
	return InvalidField(field, "failed "+fe.Tag()+" check")
}
