package services

import (
	"encoding/json"
	"fmt"
	"time"

	"notification-system/internal/domain"
	"notification-system/pkg/logger"

	"github.com/google/uuid"
)

// EventTranslator synthesizes a NotificationItem from each domain push
// event so all event types share one ingestion path into the feed.
// Server-minted notifications pass through as-is; domain events get a
// client-minted id and a rendered text line.
type EventTranslator struct {
	log logger.Logger
}

func NewEventTranslator(log logger.Logger) *EventTranslator {
	return &EventTranslator{log: log}
}

func (t *EventTranslator) Translate(event string, data json.RawMessage) (*domain.NotificationItem, error) {
	switch event {
	case domain.EventGenericNotificationCreated:
		return t.translateGeneric(data)
	case domain.EventSubmissionGraded:
		var p domain.GradePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return t.newItem(
			fmt.Sprintf("Your submission for %s was graded: %s", p.AssignmentName, p.Grade),
			"/submissions/"+p.SubmissionID, data), nil

	case domain.EventSubmissionCreated:
		var p domain.SubmissionPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return t.newItem(
			fmt.Sprintf("%s turned in %s", p.StudentName, p.AssignmentName),
			"/submissions/"+p.SubmissionID, data), nil

	case domain.EventEnrollmentAdded:
		var p domain.EnrollmentPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return t.newItem(
			fmt.Sprintf("You were enrolled in %s", p.CourseName),
			"/courses/"+p.CourseID, data), nil

	case domain.EventEnrollmentRemoved:
		var p domain.EnrollmentPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return t.newItem(
			fmt.Sprintf("You were removed from %s", p.CourseName), "", data), nil

	case domain.EventClassroomStudentAdded:
		var p domain.RosterPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return t.newItem(
			fmt.Sprintf("%s joined %s", p.StudentName, p.ClassroomName),
			"/classrooms/"+p.ClassroomID, data), nil

	case domain.EventClassroomStudentRemoved:
		var p domain.RosterPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return t.newItem(
			fmt.Sprintf("%s left %s", p.StudentName, p.ClassroomName),
			"/classrooms/"+p.ClassroomID, data), nil

	case domain.EventClassMessage:
		var p domain.ClassMessagePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return t.newItem(
			fmt.Sprintf("%s in %s: %s", p.SenderName, p.ClassroomName, p.Preview),
			"/classrooms/"+p.ClassroomID+"/messages", data), nil

	case domain.EventCourseInvitationCreated:
		var p domain.InvitationPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return t.newItem(
			fmt.Sprintf("%s invited you to join %s", p.InviterName, p.CourseName),
			"/courses/"+p.CourseID+"/invitations", data), nil
	}

	return nil, fmt.Errorf("no translation for event %q", event)
}

func (t *EventTranslator) translateGeneric(data json.RawMessage) (*domain.NotificationItem, error) {
	var item domain.NotificationItem
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, err
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.Timestamp.IsZero() {
		item.Timestamp = time.Now()
	}
	item.Read = false
	if item.Raw == nil {
		item.Raw = data
	}
	return &item, nil
}

func (t *EventTranslator) newItem(text, link string, raw json.RawMessage) *domain.NotificationItem {
	return &domain.NotificationItem{
		ID:        uuid.NewString(),
		Text:      text,
		Timestamp: time.Now(),
		Link:      link,
		Read:      false,
		Raw:       raw,
	}
}
