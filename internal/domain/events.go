package domain

// Control events of the identify handshake.
const (
	EventIdentify   = "identify"
	EventIdentified = "identified"
)

// Domain push events delivered over the websocket. All of them are
// ingested into the feed through the same path.
const (
	EventGenericNotificationCreated = "generic-notification-created"
	EventSubmissionGraded           = "submission-graded"
	EventSubmissionCreated          = "submission-created"
	EventEnrollmentAdded            = "enrollment-added"
	EventEnrollmentRemoved          = "enrollment-removed"
	EventClassroomStudentAdded      = "classroom-student-added"
	EventClassroomStudentRemoved    = "classroom-student-removed"
	EventClassMessage               = "class-message"
	EventCourseInvitationCreated    = "course-invitation-created"
)

// PushEventNames lists every domain event a client session subscribes to.
var PushEventNames = []string{
	EventGenericNotificationCreated,
	EventSubmissionGraded,
	EventSubmissionCreated,
	EventEnrollmentAdded,
	EventEnrollmentRemoved,
	EventClassroomStudentAdded,
	EventClassroomStudentRemoved,
	EventClassMessage,
	EventCourseInvitationCreated,
}
