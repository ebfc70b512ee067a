package bitbucket

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const projectJSON = `{"key":"OPS","id":1,"name":"Operations","public":false}`

func TestProjectDecode(t *testing.T) {
	var project Project
	require.NoError(t, json.Unmarshal([]byte(projectJSON), &project))
	assert.Equal(t, "OPS", project.Key)
	assert.Equal(t, int64(1), project.ID)
	assert.Equal(t, "Operations", project.Name)
	assert.False(t, project.Public)
	assert.Nil(t, project.Description)
	assert.Equal(t, "Project key=OPS", project.String())
}

func TestProjectDecodeMissingKey(t *testing.T) {
	var project Project
	err := json.Unmarshal([]byte(`{"id":1,"name":"Operations","public":false}`), &project)

	var mismatch *SchemaMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "project", mismatch.Resource)
	assert.Equal(t, "key", mismatch.Field)
}

func TestProjectDecodeEmptyKey(t *testing.T) {
	var project Project
	err := json.Unmarshal([]byte(`{"key":"","id":1,"name":"Operations","public":false}`), &project)

	var mismatch *SchemaMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "key", mismatch.Field)
}

func TestRepositoryDecode(t *testing.T) {
	payload := `{
		"slug": "deploy-scripts",
		"id": 10,
		"name": "deploy-scripts",
		"scmId": "git",
		"state": "AVAILABLE",
		"project": ` + projectJSON + `
	}`
	var repo Repository
	require.NoError(t, json.Unmarshal([]byte(payload), &repo))
	assert.Equal(t, "deploy-scripts", repo.Slug)
	assert.Equal(t, "OPS", repo.Project.Key)
	assert.Equal(t, "<Repo: OPS/deploy-scripts>", repo.String())
}

func TestRepositoryDecodeNestedFieldPath(t *testing.T) {
	// The project inside the repository is missing its name; the error must
	// point at the nested location.
	payload := `{
		"slug": "deploy-scripts",
		"id": 10,
		"name": "deploy-scripts",
		"scmId": "git",
		"state": "AVAILABLE",
		"project": {"key":"OPS","id":1,"public":false}
	}`
	var repo Repository
	err := json.Unmarshal([]byte(payload), &repo)

	var mismatch *SchemaMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "project", mismatch.Resource)
	assert.Equal(t, "project.name", mismatch.Field)
}

func TestPullRequestDecodeUnknownState(t *testing.T) {
	payload := pullRequestJSON(42, 3, "SUPERSEDED")
	var pr PullRequest
	err := json.Unmarshal([]byte(payload), &pr)

	var unknown *UnknownEnumValueError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "PullRequestState", unknown.Enum)
	assert.Equal(t, "SUPERSEDED", unknown.Value)
	assert.Equal(t, "state", unknown.Field)
}

func TestPullRequestDecode(t *testing.T) {
	var pr PullRequest
	require.NoError(t, json.Unmarshal([]byte(pullRequestJSON(42, 3, "OPEN")), &pr))
	assert.Equal(t, int64(42), pr.ID)
	assert.Equal(t, 3, pr.Version)
	assert.Equal(t, PullRequestOpen, pr.State)
	assert.Equal(t, "feature/retry", pr.FromRef.DisplayID)
	assert.Equal(t, "main", pr.ToRef.DisplayID)
	assert.Equal(t, "PR #42 [OPEN] Add retry handling", pr.String())
}

func TestParticipantDecodeInconsistentApproval(t *testing.T) {
	payload := `{
		"user": {"id":5,"name":"jdoe","slug":"jdoe","displayName":"J. Doe","active":true},
		"role": "REVIEWER",
		"status": "UNAPPROVED",
		"approved": true
	}`
	var participant Participant
	err := json.Unmarshal([]byte(payload), &participant)

	var mismatch *SchemaMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "participant", mismatch.Resource)
	assert.Equal(t, "approved", mismatch.Field)
}

func TestWebhookDecodeDefaultsScopeType(t *testing.T) {
	payload := `{
		"id": 3,
		"name": "ci-trigger",
		"url": "https://ci.example.com/hook",
		"events": ["repo:refs_changed", "pr:opened"],
		"active": true
	}`
	var hook Webhook
	require.NoError(t, json.Unmarshal([]byte(payload), &hook))
	assert.Equal(t, "repository", hook.ScopeType)
	assert.Equal(t, []WebhookEvent{EventRepoRefsChanged, EventPROpened}, hook.Events)
}

func TestWebhookDecodeUnknownEvent(t *testing.T) {
	payload := `{
		"id": 3,
		"name": "ci-trigger",
		"url": "https://ci.example.com/hook",
		"events": ["repo:refs_changed", "repo:vanished"],
		"active": true
	}`
	var hook Webhook
	err := json.Unmarshal([]byte(payload), &hook)

	var unknown *UnknownEnumValueError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "events[1]", unknown.Field)
	assert.Equal(t, "repo:vanished", unknown.Value)
}

func TestPageDecode(t *testing.T) {
	payload := `{
		"values": [` + projectJSON + `],
		"size": 1,
		"limit": 25,
		"isLastPage": true,
		"start": 0
	}`
	var page Page[Project]
	require.NoError(t, json.Unmarshal([]byte(payload), &page))
	require.Len(t, page.Values, 1)
	assert.True(t, page.IsLastPage)
	assert.Nil(t, page.NextPageStart)
}

func TestPageDecodeElementFieldPath(t *testing.T) {
	payload := `{
		"values": [` + projectJSON + `, {"id":2,"name":"Broken","public":true}],
		"size": 2,
		"limit": 25,
		"isLastPage": true,
		"start": 0
	}`
	var page Page[Project]
	err := json.Unmarshal([]byte(payload), &page)

	var mismatch *SchemaMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "values[1].key", mismatch.Field)
}

func TestPageDecodeMissingCursor(t *testing.T) {
	payload := `{
		"values": [],
		"size": 0,
		"limit": 25,
		"isLastPage": false,
		"start": 0
	}`
	var page Page[Project]
	err := json.Unmarshal([]byte(payload), &page)

	var mismatch *SchemaMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "nextPageStart", mismatch.Field)
}

func TestPageDecodeStalledCursor(t *testing.T) {
	payload := `{
		"values": [],
		"size": 0,
		"limit": 25,
		"isLastPage": false,
		"start": 25,
		"nextPageStart": 25
	}`
	var page Page[Project]
	err := json.Unmarshal([]byte(payload), &page)

	var mismatch *SchemaMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "nextPageStart", mismatch.Field)
}

func TestCommentDecodeThread(t *testing.T) {
	payload := `{
		"id": 1,
		"version": 0,
		"text": "root",
		"comments": [
			{"id": 2, "version": 0, "text": "first reply"},
			{"id": 3, "version": 1, "text": "second reply"}
		]
	}`
	var comment Comment
	require.NoError(t, json.Unmarshal([]byte(payload), &comment))
	require.NotNil(t, comment.ID)
	assert.Equal(t, int64(1), *comment.ID)
	require.Len(t, comment.Comments, 2)
	assert.Equal(t, "first reply", *comment.Comments[0].Text)
}

func TestCommentDecodeCycle(t *testing.T) {
	payload := `{
		"id": 7,
		"version": 0,
		"comments": [{"id": 7, "version": 0}]
	}`
	var comment Comment
	err := json.Unmarshal([]byte(payload), &comment)

	var cyclic *CyclicReferenceError
	require.ErrorAs(t, err, &cyclic)
	assert.Equal(t, int64(7), cyclic.ID)
}

func TestCommentDecodeCycleThroughParent(t *testing.T) {
	payload := `{
		"id": 7,
		"version": 0,
		"parent": {"id": 8, "version": 0, "parent": {"id": 7, "version": 0}}
	}`
	var comment Comment
	err := json.Unmarshal([]byte(payload), &comment)

	var cyclic *CyclicReferenceError
	require.ErrorAs(t, err, &cyclic)
	assert.Equal(t, int64(7), cyclic.ID)
}

func TestCommentDecodeRepeatedSiblingIDs(t *testing.T) {
	// Only the ancestor chain counts as a cycle. Two siblings sharing an id
	// is odd but not unbounded, so it decodes.
	payload := `{
		"id": 1,
		"version": 0,
		"comments": [
			{"id": 9, "version": 0},
			{"id": 9, "version": 0}
		]
	}`
	var comment Comment
	require.NoError(t, json.Unmarshal([]byte(payload), &comment))
	assert.Len(t, comment.Comments, 2)
}

func TestCommentDecodeMissingVersion(t *testing.T) {
	var comment Comment
	err := json.Unmarshal([]byte(`{"id": 1, "text": "hi"}`), &comment)

	var mismatch *SchemaMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "comment", mismatch.Resource)
	assert.Equal(t, "version", mismatch.Field)
}

func TestActivityDecodePreservesExtraFields(t *testing.T) {
	payload := `{
		"id": 100,
		"createdDate": 1700000000000,
		"user": {"id":5,"name":"jdoe","slug":"jdoe","displayName":"J. Doe","active":true},
		"action": "COMMENTED",
		"commentAction": "ADDED",
		"comment": {"id": 1, "version": 0, "text": "looks good"},
		"addedReviewers": [{"name": "someone"}]
	}`
	var activity Activity
	require.NoError(t, json.Unmarshal([]byte(payload), &activity))
	assert.Equal(t, ActionCommented, activity.Action)
	require.NotNil(t, activity.CommentAction)
	assert.Equal(t, CommentAdded, *activity.CommentAction)
	require.NotNil(t, activity.Comment)
	assert.Contains(t, activity.Extra, "addedReviewers")
	assert.NotContains(t, activity.Extra, "id")
}

func TestActivityDecodeUnknownAction(t *testing.T) {
	payload := `{
		"id": 100,
		"createdDate": 1700000000000,
		"user": {"id":5,"name":"jdoe","slug":"jdoe","displayName":"J. Doe","active":true},
		"action": "TELEPORTED"
	}`
	var activity Activity
	err := json.Unmarshal([]byte(payload), &activity)

	var unknown *UnknownEnumValueError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "ActivityAction", unknown.Enum)
}

func TestDecodeErrorsAreNotTransient(t *testing.T) {
	decodeErrs := []error{
		&SchemaMismatchError{Resource: "project", Field: "key"},
		&UnknownEnumValueError{Enum: "RefType", Value: "FROND"},
		&CyclicReferenceError{ID: 1},
	}
	for _, err := range decodeErrs {
		assert.False(t, isTransient(err), "%T", err)
	}
	assert.True(t, isTransient(&TransportError{URL: "http://x", Err: errors.New("refused")}))
	assert.True(t, isTransient(&RateLimitedError{Path: "/x"}))
	assert.True(t, isTransient(&ServerError{StatusCode: 503}))
	assert.False(t, isTransient(&ServerError{StatusCode: 418}))
	assert.False(t, isTransient(&AuthError{StatusCode: 401}))
	assert.False(t, isTransient(&VersionConflictError{}))
}

// pullRequestJSON builds a pull request payload with the given id, version
// and state and a fixed pair of refs.
func pullRequestJSON(id int64, version int, state string) string {
	repo := `{
		"slug": "deploy-scripts",
		"id": 10,
		"name": "deploy-scripts",
		"scmId": "git",
		"state": "AVAILABLE",
		"project": ` + projectJSON + `
	}`
	fromRef := `{
		"id": "refs/heads/feature/retry",
		"type": "BRANCH",
		"displayId": "feature/retry",
		"latestCommit": "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		"repository": ` + repo + `
	}`
	toRef := `{
		"id": "refs/heads/main",
		"type": "BRANCH",
		"displayId": "main",
		"latestCommit": "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
		"repository": ` + repo + `
	}`
	return `{
		"id": ` + jsonInt(id) + `,
		"version": ` + jsonInt(int64(version)) + `,
		"title": "Add retry handling",
		"state": "` + state + `",
		"open": ` + jsonBool(state == "OPEN") + `,
		"closed": ` + jsonBool(state != "OPEN") + `,
		"locked": false,
		"createdDate": 1700000000000,
		"updatedDate": 1700000100000,
		"fromRef": ` + fromRef + `,
		"toRef": ` + toRef + `
	}`
}

func jsonInt(v int64) string {
	data, _ := json.Marshal(v)
	return string(data)
}

func jsonBool(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
