package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

// Genders lists the selectable genders in display order
var Genders = []Gender{GenderMale, GenderFemale, GenderOther}

type BloodGroup string

const (
	BloodGroupAPos  BloodGroup = "A+"
	BloodGroupANeg  BloodGroup = "A-"
	BloodGroupBPos  BloodGroup = "B+"
	BloodGroupBNeg  BloodGroup = "B-"
	BloodGroupABPos BloodGroup = "AB+"
	BloodGroupABNeg BloodGroup = "AB-"
	BloodGroupOPos  BloodGroup = "O+"
	BloodGroupONeg  BloodGroup = "O-"

	// AllBloodGroups is the filter sentinel meaning no blood group filter
	AllBloodGroups BloodGroup = "All Blood Groups"
)

// BloodGroups lists the eight ABO/Rh groups in display order
var BloodGroups = []BloodGroup{
	BloodGroupAPos, BloodGroupANeg,
	BloodGroupBPos, BloodGroupBNeg,
	BloodGroupABPos, BloodGroupABNeg,
	BloodGroupOPos, BloodGroupONeg,
}

// IsAll reports whether g means "no filter".
func (g BloodGroup) IsAll() bool {
	return g == "" || g == AllBloodGroups
}

// PatientID is the client assigned numeric identifier. Zero means absent.
type PatientID int

// UnmarshalJSON accepts a number, a numeric string or null. Anything else
// decodes as absent so the entry is dropped by list calls.
func (id *PatientID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = 0
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			*id = 0
			return nil
		}
		*id = PatientID(n)
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		*id = 0
		return nil
	}
	*id = PatientID(int(f))
	return nil
}

func (id PatientID) Valid() bool {
	return id > 0
}

func (id PatientID) String() string {
	return strconv.Itoa(int(id))
}

type Patient struct {
	ID             PatientID  `json:"id,omitempty"`
	Name           string     `json:"name"`
	UID            string     `json:"uid"`
	Phone          string     `json:"phone"`
	Email          string     `json:"email,omitempty"`
	Age            int        `json:"age"`
	Gender         Gender     `json:"gender"`
	BloodGroup     BloodGroup `json:"bloodGroup"`
	Address        string     `json:"address,omitempty"`
	MedicalHistory string     `json:"medicalHistory,omitempty"`
	PhotoURL       string     `json:"photoUrl,omitempty"`
	CreatedAt      string     `json:"createdAt,omitempty"`
}

// PatientPatch carries a partial update. Nil fields are not sent and are left
// untouched by the store.
type PatientPatch struct {
	Name           *string     `json:"name,omitempty"`
	UID            *string     `json:"uid,omitempty"`
	Phone          *string     `json:"phone,omitempty"`
	Email          *string     `json:"email,omitempty"`
	Age            *int        `json:"age,omitempty"`
	Gender         *Gender     `json:"gender,omitempty"`
	BloodGroup     *BloodGroup `json:"bloodGroup,omitempty"`
	Address        *string     `json:"address,omitempty"`
	MedicalHistory *string     `json:"medicalHistory,omitempty"`
	PhotoURL       *string     `json:"photoUrl,omitempty"`
}

// Apply writes the set fields of the patch onto p.
func (pp *PatientPatch) Apply(p *Patient) {
	if pp.Name != nil {
		p.Name = *pp.Name
	}
	if pp.UID != nil {
		p.UID = *pp.UID
	}
	if pp.Phone != nil {
		p.Phone = *pp.Phone
	}
	if pp.Email != nil {
		p.Email = *pp.Email
	}
	if pp.Age != nil {
		p.Age = *pp.Age
	}
	if pp.Gender != nil {
		p.Gender = *pp.Gender
	}
	if pp.BloodGroup != nil {
		p.BloodGroup = *pp.BloodGroup
	}
	if pp.Address != nil {
		p.Address = *pp.Address
	}
	if pp.MedicalHistory != nil {
		p.MedicalHistory = *pp.MedicalHistory
	}
	if pp.PhotoURL != nil {
		p.PhotoURL = *pp.PhotoURL
	}
}

// PatientForm is the editable value set of the create/edit form.
type PatientForm struct {
	Name           string `json:"name" validate:"required,min=3"`
	UID            string `json:"uid" validate:"required,uid"`
	Phone          string `json:"phone" validate:"required,phone"`
	Age            *int   `json:"age" validate:"required,gte=0,lte=120"`
	Gender         string `json:"gender" validate:"required,oneof=Male Female Other"`
	BloodGroup     string `json:"bloodGroup" validate:"required,oneof=A+ A- B+ B- AB+ AB- O+ O-"`
	Address        string `json:"address"`
	MedicalHistory string `json:"medicalHistory"`
	PhotoURL       string `json:"photoUrl" validate:"omitempty,url"`
}

// FormFromPatient fills a form from a stored record.
func FormFromPatient(p *Patient) PatientForm {
	age := p.Age
	return PatientForm{
		Name:           p.Name,
		UID:            p.UID,
		Phone:          p.Phone,
		Age:            &age,
		Gender:         string(p.Gender),
		BloodGroup:     string(p.BloodGroup),
		Address:        p.Address,
		MedicalHistory: p.MedicalHistory,
		PhotoURL:       p.PhotoURL,
	}
}

// Draft converts the form into an unsaved patient without id or timestamp.
func (f PatientForm) Draft() *Patient {
	p := &Patient{
		Name:           f.Name,
		UID:            f.UID,
		Phone:          f.Phone,
		Gender:         Gender(f.Gender),
		BloodGroup:     BloodGroup(f.BloodGroup),
		Address:        f.Address,
		MedicalHistory: f.MedicalHistory,
		PhotoURL:       f.PhotoURL,
	}
	if f.Age != nil {
		p.Age = *f.Age
	}
	return p
}

// Patch converts the whole form into a patch; every form field is sent.
func (f PatientForm) Patch() *PatientPatch {
	name, uid, phone := f.Name, f.UID, f.Phone
	gender, group := Gender(f.Gender), BloodGroup(f.BloodGroup)
	address, history, photo := f.Address, f.MedicalHistory, f.PhotoURL
	pp := &PatientPatch{
		Name:           &name,
		UID:            &uid,
		Phone:          &phone,
		Gender:         &gender,
		BloodGroup:     &group,
		Address:        &address,
		MedicalHistory: &history,
		PhotoURL:       &photo,
	}
	if f.Age != nil {
		age := *f.Age
		pp.Age = &age
	}
	return pp
}
