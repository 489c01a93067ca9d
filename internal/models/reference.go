package models

import (
	"fmt"
	"time"
)

// Occupation is a standalone lookup of profession names. Users do not
// reference it; User.Occupation is an inline code.
type Occupation struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Name      string    `gorm:"size:30;not null" json:"name"`
}

func (o Occupation) String() string { return o.Name }

// TelephoneType distinguishes mobile from landline numbers.
type TelephoneType string

const (
	TelephoneMobile   TelephoneType = "cel"
	TelephoneLandline TelephoneType = "fix"
)

var TelephoneTypes = []string{string(TelephoneMobile), string(TelephoneLandline)}

func (t TelephoneType) Valid() bool {
	return t == TelephoneMobile || t == TelephoneLandline
}

func (t TelephoneType) Label() string {
	switch t {
	case TelephoneMobile:
		return "Celular"
	case TelephoneLandline:
		return "Fixo"
	}
	return string(t)
}

type Telephone struct {
	ID        uint          `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	Number    string        `gorm:"size:20;not null" json:"number"`
	Type      TelephoneType `gorm:"size:3;not null" json:"type"`
}

func (t Telephone) String() string { return t.Number }

// Address is a postal address; many users may share one row.
type Address struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Street       string    `gorm:"size:100;not null" json:"street"`
	Neighborhood string    `gorm:"size:255" json:"neighborhood"`
	City         string    `gorm:"size:50" json:"city"`
	ZipCode      int       `gorm:"not null" json:"zip_code"`
	Number       int       `gorm:"not null" json:"number"`
	Complement   *string   `gorm:"size:10" json:"complement,omitempty"`
}

// String renders "street, number - complement" with an empty complement when unset.
func (a Address) String() string {
	complement := ""
	if a.Complement != nil {
		complement = *a.Complement
	}
	return fmt.Sprintf("%s, %d - %s", a.Street, a.Number, complement)
}
