package bitbucket

import "encoding/json"

// The enumerations below are closed: a value the server sends that is not
// listed here fails decoding with UnknownEnumValueError. Degrading unknown
// values to a fallback variant was considered and rejected; see DESIGN.md.

// enumFromJSON decodes a JSON string into enum type E, rejecting values
// outside the known set.
func enumFromJSON[E ~string](data []byte, name string, known map[E]struct{}) (E, error) {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return "", &UnknownEnumValueError{Enum: name, Value: string(data)}
	}
	v := E(raw)
	if _, ok := known[v]; !ok {
		return "", &UnknownEnumValueError{Enum: name, Value: raw}
	}
	return v, nil
}

// RefType distinguishes branches from tags.
type RefType string

const (
	RefBranch RefType = "BRANCH"
	RefTag    RefType = "TAG"
)

var refTypes = map[RefType]struct{}{RefBranch: {}, RefTag: {}}

func (t *RefType) UnmarshalJSON(data []byte) error {
	v, err := enumFromJSON(data, "RefType", refTypes)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// PullRequestState is the lifecycle state of a pull request. OPEN is the
// initial state; MERGED and DECLINED are terminal.
type PullRequestState string

const (
	PullRequestOpen     PullRequestState = "OPEN"
	PullRequestMerged   PullRequestState = "MERGED"
	PullRequestDeclined PullRequestState = "DECLINED"
)

var pullRequestStates = map[PullRequestState]struct{}{
	PullRequestOpen: {}, PullRequestMerged: {}, PullRequestDeclined: {},
}

func (s *PullRequestState) UnmarshalJSON(data []byte) error {
	v, err := enumFromJSON(data, "PullRequestState", pullRequestStates)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParticipantStatus is a reviewer's verdict on a pull request.
type ParticipantStatus string

const (
	StatusUnapproved ParticipantStatus = "UNAPPROVED"
	StatusNeedsWork  ParticipantStatus = "NEEDS_WORK"
	StatusApproved   ParticipantStatus = "APPROVED"
)

var participantStatuses = map[ParticipantStatus]struct{}{
	StatusUnapproved: {}, StatusNeedsWork: {}, StatusApproved: {},
}

func (s *ParticipantStatus) UnmarshalJSON(data []byte) error {
	v, err := enumFromJSON(data, "ParticipantStatus", participantStatuses)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParticipantRole is a user's relation to a pull request.
type ParticipantRole string

const (
	RoleAuthor      ParticipantRole = "AUTHOR"
	RoleReviewer    ParticipantRole = "REVIEWER"
	RoleParticipant ParticipantRole = "PARTICIPANT"
)

var participantRoles = map[ParticipantRole]struct{}{
	RoleAuthor: {}, RoleReviewer: {}, RoleParticipant: {},
}

func (r *ParticipantRole) UnmarshalJSON(data []byte) error {
	v, err := enumFromJSON(data, "ParticipantRole", participantRoles)
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// WebhookEvent is an event kind a webhook may subscribe to.
type WebhookEvent string

const (
	EventRepoRefsChanged          WebhookEvent = "repo:refs_changed"
	EventRepoForked               WebhookEvent = "repo:forked"
	EventRepoCommentAdded         WebhookEvent = "repo:comment:added"
	EventRepoCommentEdited        WebhookEvent = "repo:comment:edited"
	EventRepoCommentDeleted       WebhookEvent = "repo:comment:deleted"
	EventRepoSecretDetected       WebhookEvent = "repo:secret_detected"
	EventPROpened                 WebhookEvent = "pr:opened"
	EventPRModified               WebhookEvent = "pr:modified"
	EventPRMerged                 WebhookEvent = "pr:merged"
	EventPRDeclined               WebhookEvent = "pr:declined"
	EventPRDeleted                WebhookEvent = "pr:deleted"
	EventPRFromRefUpdated         WebhookEvent = "pr:from_ref_updated"
	EventPRCommentAdded           WebhookEvent = "pr:comment:added"
	EventPRCommentEdited          WebhookEvent = "pr:comment:edited"
	EventPRCommentDeleted         WebhookEvent = "pr:comment:deleted"
	EventPRReviewerUpdated        WebhookEvent = "pr:reviewer:updated"
	EventPRReviewerNeedsWork      WebhookEvent = "pr:reviewer:needs_work"
	EventPRReviewerApproved       WebhookEvent = "pr:reviewer:approved"
	EventPRReviewerUnapproved     WebhookEvent = "pr:reviewer:unapproved"
	EventPRReviewerModified       WebhookEvent = "repo:modified"
	EventMirrorRepoSynchronized   WebhookEvent = "mirror:repo_synchronized"
)

var webhookEvents = map[WebhookEvent]struct{}{
	EventRepoRefsChanged: {}, EventRepoForked: {}, EventRepoCommentAdded: {},
	EventRepoCommentEdited: {}, EventRepoCommentDeleted: {}, EventRepoSecretDetected: {},
	EventPROpened: {}, EventPRModified: {}, EventPRMerged: {}, EventPRDeclined: {},
	EventPRDeleted: {}, EventPRFromRefUpdated: {}, EventPRCommentAdded: {},
	EventPRCommentEdited: {}, EventPRCommentDeleted: {}, EventPRReviewerUpdated: {},
	EventPRReviewerNeedsWork: {}, EventPRReviewerApproved: {}, EventPRReviewerUnapproved: {},
	EventPRReviewerModified: {}, EventMirrorRepoSynchronized: {},
}

func (e *WebhookEvent) UnmarshalJSON(data []byte) error {
	v, err := enumFromJSON(data, "WebhookEvent", webhookEvents)
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// ActivityAction is the kind of event recorded in a pull request's
// activity stream.
type ActivityAction string

const (
	ActionApproved           ActivityAction = "APPROVED"
	ActionAutoMergeCancelled ActivityAction = "AUTO_MERGE_CANCELLED"
	ActionAutoMergeRequested ActivityAction = "AUTO_MERGE_REQUESTED"
	ActionCommented          ActivityAction = "COMMENTED"
	ActionDeclined           ActivityAction = "DECLINED"
	ActionDeleted            ActivityAction = "DELETED"
	ActionMerged             ActivityAction = "MERGED"
	ActionOpened             ActivityAction = "OPENED"
	ActionReopened           ActivityAction = "REOPENED"
	ActionRescoped           ActivityAction = "RESCOPED"
	ActionReviewCommented    ActivityAction = "REVIEW_COMMENTED"
	ActionReviewDiscarded    ActivityAction = "REVIEW_DISCARDED"
	ActionReviewFinished     ActivityAction = "REVIEW_FINISHED"
	ActionReviewed           ActivityAction = "REVIEWED"
	ActionUnapproved         ActivityAction = "UNAPPROVED"
	ActionUpdated            ActivityAction = "UPDATED"
)

var activityActions = map[ActivityAction]struct{}{
	ActionApproved: {}, ActionAutoMergeCancelled: {}, ActionAutoMergeRequested: {},
	ActionCommented: {}, ActionDeclined: {}, ActionDeleted: {}, ActionMerged: {},
	ActionOpened: {}, ActionReopened: {}, ActionRescoped: {}, ActionReviewCommented: {},
	ActionReviewDiscarded: {}, ActionReviewFinished: {}, ActionReviewed: {},
	ActionUnapproved: {}, ActionUpdated: {},
}

func (a *ActivityAction) UnmarshalJSON(data []byte) error {
	v, err := enumFromJSON(data, "ActivityAction", activityActions)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// CommentAction qualifies a COMMENTED activity entry.
type CommentAction string

const (
	CommentAdded   CommentAction = "ADDED"
	CommentDeleted CommentAction = "DELETED"
	CommentEdited  CommentAction = "EDITED"
	CommentReplied CommentAction = "REPLIED"
)

var commentActions = map[CommentAction]struct{}{
	CommentAdded: {}, CommentDeleted: {}, CommentEdited: {}, CommentReplied: {},
}

func (a *CommentAction) UnmarshalJSON(data []byte) error {
	v, err := enumFromJSON(data, "CommentAction", commentActions)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// DiffType is the diff context a comment anchor refers to.
type DiffType string

const (
	DiffCommit    DiffType = "COMMIT"
	DiffEffective DiffType = "EFFECTIVE"
	DiffRange     DiffType = "RANGE"
)

var diffTypes = map[DiffType]struct{}{DiffCommit: {}, DiffEffective: {}, DiffRange: {}}

func (t *DiffType) UnmarshalJSON(data []byte) error {
	v, err := enumFromJSON(data, "DiffType", diffTypes)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// FileType is the side of a diff an anchor points at.
type FileType string

const (
	FileFrom FileType = "FROM"
	FileTo   FileType = "TO"
)

var fileTypes = map[FileType]struct{}{FileFrom: {}, FileTo: {}}

func (t *FileType) UnmarshalJSON(data []byte) error {
	v, err := enumFromJSON(data, "FileType", fileTypes)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// LineType classifies a diff line an anchor points at.
type LineType string

const (
	LineAdded   LineType = "ADDED"
	LineContext LineType = "CONTEXT"
	LineRemoved LineType = "REMOVED"
)

var lineTypes = map[LineType]struct{}{LineAdded: {}, LineContext: {}, LineRemoved: {}}

func (t *LineType) UnmarshalJSON(data []byte) error {
	v, err := enumFromJSON(data, "LineType", lineTypes)
	if err != nil {
		return err
	}
	*t = v
	return nil
}
