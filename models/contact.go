package models

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Contact is an organization's request to join the response network.
type Contact struct {
	ID               int       `gorm:"primary_key" json:"id"`
	OrgName          string    `gorm:"size:255;not null" json:"org_name"`
	OrgType          string    `gorm:"size:100" json:"org_type"`
	Website          string    `gorm:"size:255;not null" json:"website"`
	RegNumber        string    `gorm:"size:100" json:"reg_number"`
	YearEstablished  *int      `json:"year_established"`
	Email            string    `gorm:"size:100;not null;index" json:"email"`
	Phone            string    `gorm:"size:20" json:"phone"`
	ContactPerson    string    `gorm:"size:255;not null" json:"contact_person"`
	Address          string    `gorm:"type:text" json:"address"`
	City             string    `gorm:"size:100" json:"city"`
	State            string    `gorm:"size:100" json:"state"`
	Country          string    `gorm:"size:100" json:"country"`
	Purpose          string    `gorm:"type:text" json:"purpose"`
	Achievements     string    `gorm:"type:text" json:"achievements"`
	TeamSize         *int      `json:"team_size"`
	RegistrationFile string    `gorm:"size:1024" json:"registration_file"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewContact struct {
	OrgName         string `form:"orgName" validate:"required,max=255"`
	OrgType         string `form:"orgType" validate:"max=100"`
	Website         string `form:"website" validate:"required,url"`
	RegNumber       string `form:"regNumber" validate:"max=100"`
	YearEstablished *int   `form:"yearEstablished" validate:"omitempty,gte=1800,lte=2100"`
	Email           string `form:"email" validate:"required,email"`
	Phone           string `form:"phone"`
	ContactPerson   string `form:"contactPerson" validate:"required,max=255"`
	Address         string `form:"address"`
	City            string `form:"city" validate:"max=100"`
	State           string `form:"state" validate:"max=100"`
	Country         string `form:"country" validate:"max=100"`
	Purpose         string `form:"purpose"`
	Achievements    string `form:"achievements"`
	TeamSize        *int   `form:"teamSize" validate:"omitempty,gte=0"`
}

type ContactStore struct {
	DB *gorm.DB
}

func NewContactStore(db *gorm.DB) *ContactStore {
	return &ContactStore{DB: db}
}

func (s *ContactStore) Create(ctx context.Context, input *NewContact, registrationFile string) (*Contact, error) {
	contact := Contact{
		OrgName:          input.OrgName,
		OrgType:          input.OrgType,
		Website:          input.Website,
		RegNumber:        input.RegNumber,
		YearEstablished:  input.YearEstablished,
		Email:            input.Email,
		Phone:            input.Phone,
		ContactPerson:    input.ContactPerson,
		Address:          input.Address,
		City:             input.City,
		State:            input.State,
		Country:          input.Country,
		Purpose:          input.Purpose,
		Achievements:     input.Achievements,
		TeamSize:         input.TeamSize,
		RegistrationFile: registrationFile,
	}
	if err := s.DB.WithContext(ctx).Create(&contact).Error; err != nil {
		return nil, err
	}
	return &contact, nil
}

func (s *ContactStore) List(ctx context.Context) ([]*Contact, error) {
	var contacts []*Contact
	err := s.DB.WithContext(ctx).Order("created_at DESC, id DESC").Find(&contacts).Error
	return contacts, err
}
