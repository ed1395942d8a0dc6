package model

import "time"

// Appointment status values. An appointment starts active and can only move
// to cancelled, never back.
const (
	StatusActive    = "active"
	StatusCancelled = "cancelled"
)

const (
	RolePatient  = "patient"
	RoleProvider = "provider"
)

type User struct {
	ID        int64
	Name      string
	Email     string
	Secret    string // bcrypt hash, never serialized
	Role      string
	CreatedAt time.Time
}

// PublicUser is the profile projection returned over the wire.
type PublicUser struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

type Appointment struct {
	ID         int64  `json:"id"`
	ProviderID int64  `json:"providerId"`
	PatientID  int64  `json:"patientId"`
	Date       string `json:"date"` // 2006-01-02
	Time       string `json:"time"` // 15:04
	Reason     string `json:"reason"`
	Status     string `json:"status"`
}

// PatientAppointment is one row of the by-patient query, joined with the
// provider's display name.
type PatientAppointment struct {
	ID           int64  `json:"id"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	Reason       string `json:"reason"`
	Status       string `json:"status"`
	ProviderName string `json:"providerName"`
}
