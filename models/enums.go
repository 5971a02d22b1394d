package models

import (
	"fmt"
	"strings"
)

type ReportStatus string

const (
	ReportStatusPending    ReportStatus = "pending"
	ReportStatusVerified   ReportStatus = "verified"
	ReportStatusFalse      ReportStatus = "false"
	ReportStatusResponding ReportStatus = "responding"
	ReportStatusResolved   ReportStatus = "resolved"
)

func (s ReportStatus) IsValid() bool {
	switch s {
	case ReportStatusPending, ReportStatusVerified, ReportStatusFalse, ReportStatusResponding, ReportStatusResolved:
		return true
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s ReportStatus) IsTerminal() bool {
	return s == ReportStatusFalse || s == ReportStatusResolved
}

func (s ReportStatus) String() string { return string(s) }

func ParseReportStatus(raw string) (ReportStatus, error) {
	s := ReportStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", fmt.Errorf("unknown report status %q", raw)
	}
	return s, nil
}

// Severity is the classifier's damage label. NoDamage is a sentinel and never stored.
type Severity string

const (
	SeverityNoDamage Severity = "no_damage"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeveritySevere   Severity = "severe"
)

// Rank orders severities; unknown labels rank below no_damage.
func (s Severity) Rank() int {
	switch s {
	case SeverityNoDamage:
		return 0
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeveritySevere:
		return 3
	}
	return -1
}

func (s Severity) IsValid() bool { return s.Rank() >= 0 }

// IsDamage is true for the labels a stored report may carry.
func (s Severity) IsDamage() bool { return s.Rank() > 0 }

func (s Severity) String() string { return string(s) }

type DisasterCategory string

const (
	CategoryDamagedBuildings DisasterCategory = "damaged_buildings"
	CategoryFallenTrees      DisasterCategory = "fallen_trees"
	CategoryFire             DisasterCategory = "fire"
	CategoryFlood            DisasterCategory = "flood"
	CategoryLandslide        DisasterCategory = "landslide"
)

var DisasterCategories = []DisasterCategory{
	CategoryDamagedBuildings,
	CategoryFallenTrees,
	CategoryFire,
	CategoryFlood,
	CategoryLandslide,
}

func (c DisasterCategory) IsDisaster() bool {
	for _, known := range DisasterCategories {
		if c == known {
			return true
		}
	}
	return false
}

func (c DisasterCategory) String() string { return string(c) }

type UserRole string

const (
	UserRoleUser         UserRole = "user"
	UserRoleAdmin        UserRole = "admin"
	UserRoleOrganization UserRole = "organization"
)

func (r UserRole) IsValid() bool {
	switch r {
	case UserRoleUser, UserRoleAdmin, UserRoleOrganization:
		return true
	}
	return false
}

// CanTransitionReports is the single authority on who may move a report through verification.
func (r UserRole) CanTransitionReports() bool {
	switch r {
	case UserRoleOrganization:
		return true
	case UserRoleUser, UserRoleAdmin:
		return false
	}
	return false
}

func (r UserRole) IsAdmin() bool {
	return r == UserRoleAdmin
}

func (r UserRole) String() string { return string(r) }

func ParseUserRole(raw string) (UserRole, error) {
	r := UserRole(strings.ToLower(strings.TrimSpace(raw)))
	if !r.IsValid() {
		return "", fmt.Errorf("unknown role %q", raw)
	}
	return r, nil
}
