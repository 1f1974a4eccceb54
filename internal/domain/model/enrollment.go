package model

import "time"

// Enrollment is a student's membership in one course.
// Unique on (StudentID, CourseID); creation is insert-if-absent.
type Enrollment struct {
	ID         string // UUID
	StudentID  string
	CourseID   string
	BatchID    string
	EnrolledAt time.Time
}

func NewEnrollment(id, studentID, courseID, batchID string) *Enrollment {
	return &Enrollment{
		ID:         id,
		StudentID:  studentID,
		CourseID:   courseID,
		BatchID:    batchID,
		EnrolledAt: time.Now(),
	}
}
