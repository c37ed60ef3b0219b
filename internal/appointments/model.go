package appointments

import "time"

// Status is the lifecycle label stored with an appointment. This service only
// ever writes StatusPending.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusConfirmed Status = "Confirmed"
	StatusCompleted Status = "Completed"
	StatusCancelled Status = "Cancelled"
)

// Appointment is a booked consultation together with its video meeting.
type Appointment struct {
	ID              string    `json:"id" bson:"_id"`
	Speciality      string    `json:"Speciality" bson:"speciality"`
	Doctor          string    `json:"Doctor" bson:"doctor"`
	DoctorEmail     string    `json:"DocEmail,omitempty" bson:"doctorEmail,omitempty"`
	Name            string    `json:"Name" bson:"name"`
	Email           string    `json:"Email" bson:"email"`
	Phone           string    `json:"Phone,omitempty" bson:"phone,omitempty"`
	Reason          string    `json:"Reason,omitempty" bson:"reason,omitempty"`
	AppointDate     string    `json:"AppointDate" bson:"appointDate"`
	AppointTime     string    `json:"AppointTime" bson:"appointTime"`
	ScheduledAt     time.Time `json:"scheduledAt" bson:"scheduledAt"`
	Timezone        string    `json:"timezone" bson:"timezone"`
	Status          Status    `json:"status" bson:"status"`
	DoctorID        string    `json:"doctorId,omitempty" bson:"doctorId,omitempty"`
	UserID          string    `json:"userId,omitempty" bson:"userId,omitempty"`
	MeetingID       string    `json:"meetingId" bson:"meetingId"`
	MeetingURL      string    `json:"meetingUrl" bson:"meetingUrl"`
	MeetingPassword string    `json:"meetingPassword" bson:"meetingPassword"`
	BookingRef      string    `json:"bookingRef" bson:"bookingRef"`
	DoctorRef       string    `json:"-" bson:"doctorRef,omitempty"`
	CreatedAt       time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt" bson:"updatedAt"`
}

// CreateRequest is the body of POST /api/appoint/create.
type CreateRequest struct {
	Speciality  string `json:"Speciality" validate:"required"`
	Doctor      string `json:"Doctor" validate:"required"`
	Name        string `json:"Name" validate:"required"`
	Email       string `json:"Email" validate:"required,email"`
	AppointDate string `json:"AppointDate" validate:"required"`
	AppointTime string `json:"AppointTime" validate:"required"`
	Phone       string `json:"Phone"`
	Reason      string `json:"Reason"`
	DocEmail    string `json:"DocEmail" validate:"omitempty,email"`
	DoctorID    string `json:"doctorId" validate:"omitempty,uuid"`
	UserID      string `json:"userId" validate:"omitempty,uuid"`
	Timezone    string `json:"Timezone"`
}

// Notifications reports the email outcome per recipient.
type Notifications struct {
	Patient string `json:"patient"`
	Doctor  string `json:"doctor"`
}

// BookingResult is what a successful booking returns.
type BookingResult struct {
	Appointment   *Appointment
	Notifications Notifications
	// Replayed is set when an Idempotency-Key matched an earlier booking.
	Replayed bool
}
