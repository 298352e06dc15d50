package model

import "strings"

// PatientFilters are the store side list filters. Empty fields are not sent.
type PatientFilters struct {
	SearchTerm string     `json:"q" form:"q"`
	BloodGroup BloodGroup `json:"bloodGroup" form:"bloodGroup"`
	UID        string     `json:"uid" form:"uid"`
}

func (f PatientFilters) IsEmpty() bool {
	return strings.TrimSpace(f.SearchTerm) == "" && f.BloodGroup.IsAll() && f.UID == ""
}
