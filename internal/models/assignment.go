// Package models contains domain types for the DocSpace portal backend.
package models

import "time"

// AssignmentStatus is the workflow status reported for a fill-and-sign assignment.
type AssignmentStatus string

const (
	AssignmentStatusAction    AssignmentStatus = "action"
	AssignmentStatusCompleted AssignmentStatus = "completed"
)

// Assignment records that a form template was sent to a patient.
// Assignments are immutable once created.
type Assignment struct {
	ID             string    `json:"id" msgpack:"id"`
	PatientID      string    `json:"patientId" msgpack:"patientId"`
	TemplateFileID string    `json:"templateFileId" msgpack:"templateFileId"`
	TemplateTitle  string    `json:"templateTitle" msgpack:"templateTitle"`
	CreatedAt      time.Time `json:"createdAt" msgpack:"createdAt"`
	RequestedBy    string    `json:"requestedBy,omitempty" msgpack:"requestedBy"`
	ShareLink      string    `json:"shareLink" msgpack:"shareLink"`
}

// ResolvedAssignment is an Assignment enriched with its reconciled status.
type ResolvedAssignment struct {
	Assignment
	Status         AssignmentStatus `json:"status" msgpack:"status"`
	InstanceFileID string           `json:"instanceFileId,omitempty" msgpack:"instanceFileId,omitempty"`
	OpenURL        string           `json:"openUrl" msgpack:"openUrl"`
}
