package domain

import (
	"encoding/json"
	"time"
)

// DefaultFeedCapacity is the number of notifications kept client-side.
// Server history may be longer; the feed mirrors only the newest window.
const DefaultFeedCapacity = 20

type NotificationItem struct {
	ID        string          `json:"id"`
	Text      string          `json:"text"`
	Timestamp time.Time       `json:"timestamp"`
	Link      string          `json:"link,omitempty"`
	Read      bool            `json:"read"`
	Raw       json.RawMessage `json:"raw,omitempty"`
}

// FeedSnapshot is the REST-fetched view used to seed the feed store.
// Items are ordered newest first by the server.
type FeedSnapshot struct {
	Items       []NotificationItem `json:"items"`
	UnreadCount int                `json:"unread_count"`
}

// EventEnvelope is the wire frame for every websocket message in both
// directions: a named event plus an opaque payload.
type EventEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// BrokerEvent is the fan-in format published on the Redis channel by
// upstream services, addressed to a single user.
type BrokerEvent struct {
	Event  string          `json:"event"`
	UserID string          `json:"user_id"`
	Data   json.RawMessage `json:"data,omitempty"`
}

type IdentifyPayload struct {
	UserID string `json:"user_id"`
}

// Payloads of the domain push events. Upstream services fill these in;
// the client translates them into feed entries.

type GradePayload struct {
	SubmissionID   string `json:"submission_id"`
	AssignmentName string `json:"assignment_name"`
	CourseName     string `json:"course_name"`
	Grade          string `json:"grade"`
}

type SubmissionPayload struct {
	SubmissionID   string `json:"submission_id"`
	StudentName    string `json:"student_name"`
	AssignmentName string `json:"assignment_name"`
}

type EnrollmentPayload struct {
	CourseID   string `json:"course_id"`
	CourseName string `json:"course_name"`
}

type RosterPayload struct {
	ClassroomID   string `json:"classroom_id"`
	ClassroomName string `json:"classroom_name"`
	StudentName   string `json:"student_name"`
}

type ClassMessagePayload struct {
	ClassroomID   string `json:"classroom_id"`
	ClassroomName string `json:"classroom_name"`
	SenderName    string `json:"sender_name"`
	Preview       string `json:"preview"`
}

type InvitationPayload struct {
	CourseID    string `json:"course_id"`
	CourseName  string `json:"course_name"`
	InviterName string `json:"inviter_name"`
}
