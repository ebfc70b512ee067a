package bitbucket

import (
	"encoding/json"
	"fmt"
)

// Link is one entry of a resource's "links" map.
type Link struct {
	Href string `json:"href"`
	Name string `json:"name,omitempty"`
}

// Links maps a link kind ("self", "clone") to its entries.
type Links map[string][]Link

// FileReference is a path decomposed into parts. Every field is optional:
// the server omits them situationally, e.g. on deletion events.
type FileReference struct {
	Extension  *string  `json:"extension,omitempty"`  // File extension only
	Name       *string  `json:"name,omitempty"`       // Filename including extension
	Parent     *string  `json:"parent,omitempty"`     // Path of the parent directory
	Components []string `json:"components,omitempty"` // Path split into parts
	ToString   *string  `json:"toString,omitempty"`   // Full path as one string
}

// Project is a Bitbucket project. The key is its stable identity.
type Project struct {
	Key         string  `json:"key"`
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Public      bool    `json:"public"`
	Type        *string `json:"type,omitempty"`
	Links       Links   `json:"links,omitempty"`
}

func (p Project) String() string {
	return fmt.Sprintf("Project key=%s", p.Key)
}

func (p *Project) UnmarshalJSON(data []byte) error {
	var raw struct {
		Key         *string `json:"key"`
		ID          *int64  `json:"id"`
		Name        *string `json:"name"`
		Description *string `json:"description"`
		Public      *bool   `json:"public"`
		Type        *string `json:"type"`
		Links       Links   `json:"links"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return rawDecodeError("project", err)
	}
	switch {
	case raw.Key == nil || *raw.Key == "":
		return missing("project", "key")
	case raw.ID == nil:
		return missing("project", "id")
	case raw.Name == nil:
		return missing("project", "name")
	case raw.Public == nil:
		return missing("project", "public")
	}
	*p = Project{
		Key:         *raw.Key,
		ID:          *raw.ID,
		Name:        *raw.Name,
		Description: raw.Description,
		Public:      *raw.Public,
		Type:        raw.Type,
		Links:       raw.Links,
	}
	return nil
}

// Repository is a source repository within a project. The slug is unique
// within its project; the embedded Project is a snapshot taken when the
// repository was fetched.
type Repository struct {
	Slug          string  `json:"slug"`
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	HierarchyID   *string `json:"hierarchyId,omitempty"`
	ScmID         string  `json:"scmId"`
	State         string  `json:"state"`
	StatusMessage *string `json:"statusMessage,omitempty"`
	Forkable      *bool   `json:"forkable,omitempty"`
	Project       Project `json:"project"`
	Public        *bool   `json:"public,omitempty"`
	Archived      *bool   `json:"archived,omitempty"`
	Links         Links   `json:"links,omitempty"`
}

func (r Repository) String() string {
	return fmt.Sprintf("<Repo: %s/%s>", r.Project.Key, r.Slug)
}

func (r *Repository) UnmarshalJSON(data []byte) error {
	var raw struct {
		Slug          *string         `json:"slug"`
		ID            *int64          `json:"id"`
		Name          *string         `json:"name"`
		HierarchyID   *string         `json:"hierarchyId"`
		ScmID         *string         `json:"scmId"`
		State         *string         `json:"state"`
		StatusMessage *string         `json:"statusMessage"`
		Forkable      *bool           `json:"forkable"`
		Project       json.RawMessage `json:"project"`
		Public        *bool           `json:"public"`
		Archived      *bool           `json:"archived"`
		Links         Links           `json:"links"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return rawDecodeError("repository", err)
	}
	switch {
	case raw.Slug == nil:
		return missing("repository", "slug")
	case raw.ID == nil:
		return missing("repository", "id")
	case raw.Name == nil:
		return missing("repository", "name")
	case raw.ScmID == nil:
		return missing("repository", "scmId")
	case raw.State == nil:
		return missing("repository", "state")
	case len(raw.Project) == 0:
		return missing("repository", "project")
	}
	var project Project
	if err := json.Unmarshal(raw.Project, &project); err != nil {
		return prefixField(rawDecodeError("project", err), "project")
	}
	*r = Repository{
		Slug:          *raw.Slug,
		ID:            *raw.ID,
		Name:          *raw.Name,
		HierarchyID:   raw.HierarchyID,
		ScmID:         *raw.ScmID,
		State:         *raw.State,
		StatusMessage: raw.StatusMessage,
		Forkable:      raw.Forkable,
		Project:       project,
		Public:        raw.Public,
		Archived:      raw.Archived,
		Links:         raw.Links,
	}
	return nil
}

// User is an account. The id is its stable identity.
type User struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Slug         string  `json:"slug"`
	DisplayName  string  `json:"displayName"`
	Active       bool    `json:"active"`
	Type         *string `json:"type,omitempty"`
	EmailAddress *string `json:"emailAddress,omitempty"`
	Links        Links   `json:"links,omitempty"`
}

func (u *User) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID           *int64  `json:"id"`
		Name         *string `json:"name"`
		Slug         *string `json:"slug"`
		DisplayName  *string `json:"displayName"`
		Active       *bool   `json:"active"`
		Type         *string `json:"type"`
		EmailAddress *string `json:"emailAddress"`
		Links        Links   `json:"links"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return rawDecodeError("user", err)
	}
	switch {
	case raw.ID == nil:
		return missing("user", "id")
	case raw.Name == nil:
		return missing("user", "name")
	case raw.Slug == nil:
		return missing("user", "slug")
	case raw.DisplayName == nil:
		return missing("user", "displayName")
	case raw.Active == nil:
		return missing("user", "active")
	}
	*u = User{
		ID:           *raw.ID,
		Name:         *raw.Name,
		Slug:         *raw.Slug,
		DisplayName:  *raw.DisplayName,
		Active:       *raw.Active,
		Type:         raw.Type,
		EmailAddress: raw.EmailAddress,
		Links:        raw.Links,
	}
	return nil
}

// Ref is a branch or tag pointer within a repository.
type Ref struct {
	ID           string     `json:"id"`
	Type         RefType    `json:"type"`
	DisplayID    string     `json:"displayId"`
	LatestCommit string     `json:"latestCommit"`
	Repository   Repository `json:"repository"`
}

func (r *Ref) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID           *string         `json:"id"`
		Type         json.RawMessage `json:"type"`
		DisplayID    *string         `json:"displayId"`
		LatestCommit *string         `json:"latestCommit"`
		Repository   json.RawMessage `json:"repository"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return rawDecodeError("ref", err)
	}
	switch {
	case raw.ID == nil:
		return missing("ref", "id")
	case len(raw.Type) == 0:
		return missing("ref", "type")
	case raw.DisplayID == nil:
		return missing("ref", "displayId")
	case raw.LatestCommit == nil:
		return missing("ref", "latestCommit")
	case len(raw.Repository) == 0:
		return missing("ref", "repository")
	}
	var refType RefType
	if err := json.Unmarshal(raw.Type, &refType); err != nil {
		return prefixField(err, "type")
	}
	var repository Repository
	if err := json.Unmarshal(raw.Repository, &repository); err != nil {
		return prefixField(rawDecodeError("repository", err), "repository")
	}
	*r = Ref{
		ID:           *raw.ID,
		Type:         refType,
		DisplayID:    *raw.DisplayID,
		LatestCommit: *raw.LatestCommit,
		Repository:   repository,
	}
	return nil
}

// MinimalRef is a ref without its repository, as embedded in events and
// previous-target records.
type MinimalRef struct {
	ID        string  `json:"id"`
	Type      RefType `json:"type"`
	DisplayID string  `json:"displayId"`
}

func (r *MinimalRef) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        *string         `json:"id"`
		Type      json.RawMessage `json:"type"`
		DisplayID *string         `json:"displayId"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return rawDecodeError("minimalRef", err)
	}
	switch {
	case raw.ID == nil:
		return missing("minimalRef", "id")
	case len(raw.Type) == 0:
		return missing("minimalRef", "type")
	case raw.DisplayID == nil:
		return missing("minimalRef", "displayId")
	}
	var refType RefType
	if err := json.Unmarshal(raw.Type, &refType); err != nil {
		return prefixField(err, "type")
	}
	*r = MinimalRef{ID: *raw.ID, Type: refType, DisplayID: *raw.DisplayID}
	return nil
}

// Participant is a user's relation to a pull request.
type Participant struct {
	User               User              `json:"user"`
	Role               ParticipantRole   `json:"role"`
	Status             ParticipantStatus `json:"status"`
	Approved           bool              `json:"approved"`
	LastReviewedCommit *string           `json:"lastReviewedCommit,omitempty"`
}

func (p *Participant) UnmarshalJSON(data []byte) error {
	var raw struct {
		User               json.RawMessage `json:"user"`
		Role               json.RawMessage `json:"role"`
		Status             json.RawMessage `json:"status"`
		Approved           *bool           `json:"approved"`
		LastReviewedCommit *string         `json:"lastReviewedCommit"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return rawDecodeError("participant", err)
	}
	switch {
	case len(raw.User) == 0:
		return missing("participant", "user")
	case len(raw.Role) == 0:
		return missing("participant", "role")
	case len(raw.Status) == 0:
		return missing("participant", "status")
	case raw.Approved == nil:
		return missing("participant", "approved")
	}
	var user User
	if err := json.Unmarshal(raw.User, &user); err != nil {
		return prefixField(rawDecodeError("user", err), "user")
	}
	var role ParticipantRole
	if err := json.Unmarshal(raw.Role, &role); err != nil {
		return prefixField(err, "role")
	}
	var status ParticipantStatus
	if err := json.Unmarshal(raw.Status, &status); err != nil {
		return prefixField(err, "status")
	}
	// The approved flag is redundant with the status; reject payloads where
	// the two disagree rather than guessing which one to trust.
	if *raw.Approved != (status == StatusApproved) {
		return &SchemaMismatchError{
			Resource: "participant",
			Field:    "approved",
			Reason:   fmt.Sprintf("approved=%t is inconsistent with status=%s", *raw.Approved, status),
		}
	}
	*p = Participant{
		User:               user,
		Role:               role,
		Status:             status,
		Approved:           *raw.Approved,
		LastReviewedCommit: raw.LastReviewedCommit,
	}
	return nil
}

// PullRequest is a merge proposal. The version is incremented server-side
// on every mutation and must be supplied back on any mutating call.
type PullRequest struct {
	ID           int64            `json:"id"`
	Version      int              `json:"version"`
	Title        string           `json:"title"`
	Description  *string          `json:"description,omitempty"`
	State        PullRequestState `json:"state"`
	Open         bool             `json:"open"`
	Closed       bool             `json:"closed"`
	Locked       bool             `json:"locked"`
	CreatedDate  int64            `json:"createdDate"`
	UpdatedDate  int64            `json:"updatedDate"`
	ClosedDate   *int64           `json:"closedDate,omitempty"`
	FromRef      Ref              `json:"fromRef"`
	ToRef        Ref              `json:"toRef"`
	Participants []Participant    `json:"participants"`
	Reviewers    []Participant    `json:"reviewers"`
	Links        Links            `json:"links,omitempty"`
}

func (pr PullRequest) String() string {
	return fmt.Sprintf("PR #%d [%s] %s", pr.ID, pr.State, pr.Title)
}

func (pr *PullRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID           *int64            `json:"id"`
		Version      *int              `json:"version"`
		Title        *string           `json:"title"`
		Description  *string           `json:"description"`
		State        json.RawMessage   `json:"state"`
		Open         *bool             `json:"open"`
		Closed       *bool             `json:"closed"`
		Locked       *bool             `json:"locked"`
		CreatedDate  *int64            `json:"createdDate"`
		UpdatedDate  *int64            `json:"updatedDate"`
		ClosedDate   *int64            `json:"closedDate"`
		FromRef      json.RawMessage   `json:"fromRef"`
		ToRef        json.RawMessage   `json:"toRef"`
		Participants []json.RawMessage `json:"participants"`
		Reviewers    []json.RawMessage `json:"reviewers"`
		Links        Links             `json:"links"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return rawDecodeError("pullRequest", err)
	}
	switch {
	case raw.ID == nil:
		return missing("pullRequest", "id")
	case raw.Version == nil:
		return missing("pullRequest", "version")
	case raw.Title == nil:
		return missing("pullRequest", "title")
	case len(raw.State) == 0:
		return missing("pullRequest", "state")
	case raw.Open == nil:
		return missing("pullRequest", "open")
	case raw.Closed == nil:
		return missing("pullRequest", "closed")
	case raw.Locked == nil:
		return missing("pullRequest", "locked")
	case raw.CreatedDate == nil:
		return missing("pullRequest", "createdDate")
	case raw.UpdatedDate == nil:
		return missing("pullRequest", "updatedDate")
	case len(raw.FromRef) == 0:
		return missing("pullRequest", "fromRef")
	case len(raw.ToRef) == 0:
		return missing("pullRequest", "toRef")
	}
	var state PullRequestState
	if err := json.Unmarshal(raw.State, &state); err != nil {
		return prefixField(err, "state")
	}
	var fromRef, toRef Ref
	if err := json.Unmarshal(raw.FromRef, &fromRef); err != nil {
		return prefixField(rawDecodeError("ref", err), "fromRef")
	}
	if err := json.Unmarshal(raw.ToRef, &toRef); err != nil {
		return prefixField(rawDecodeError("ref", err), "toRef")
	}
	participants, err := decodeElements[Participant](raw.Participants, "participant", "participants")
	if err != nil {
		return err
	}
	reviewers, err := decodeElements[Participant](raw.Reviewers, "participant", "reviewers")
	if err != nil {
		return err
	}
	*pr = PullRequest{
		ID:           *raw.ID,
		Version:      *raw.Version,
		Title:        *raw.Title,
		Description:  raw.Description,
		State:        state,
		Open:         *raw.Open,
		Closed:       *raw.Closed,
		Locked:       *raw.Locked,
		CreatedDate:  *raw.CreatedDate,
		UpdatedDate:  *raw.UpdatedDate,
		ClosedDate:   raw.ClosedDate,
		FromRef:      fromRef,
		ToRef:        toRef,
		Participants: participants,
		Reviewers:    reviewers,
		Links:        raw.Links,
	}
	return nil
}

// Label is a pull request label.
type Label struct {
	Name string `json:"name"`
}

func (l *Label) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name *string `json:"name"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return rawDecodeError("label", err)
	}
	if raw.Name == nil {
		return missing("label", "name")
	}
	l.Name = *raw.Name
	return nil
}

// WebhookCredentials are the optional basic credentials a webhook presents
// to its target.
type WebhookCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (c *WebhookCredentials) UnmarshalJSON(data []byte) error {
	var raw struct {
		Username *string `json:"username"`
		Password *string `json:"password"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return rawDecodeError("webhookCredentials", err)
	}
	switch {
	case raw.Username == nil:
		return missing("webhookCredentials", "username")
	case raw.Password == nil:
		return missing("webhookCredentials", "password")
	}
	*c = WebhookCredentials{Username: *raw.Username, Password: *raw.Password}
	return nil
}

// Webhook is a registered event subscription on a repository or project.
type Webhook struct {
	ID            int64               `json:"id"`
	Name          string              `json:"name"`
	URL           string              `json:"url"`
	Events        []WebhookEvent      `json:"events"`
	Active        bool                `json:"active"`
	ScopeType     string              `json:"scopeType"`
	CreatedDate   *int64              `json:"createdDate,omitempty"`
	UpdatedDate   *int64              `json:"updatedDate,omitempty"`
	Configuration map[string]any      `json:"configuration,omitempty"`
	SSLVerify     *bool               `json:"sslVerificationRequired,omitempty"`
	Credentials   *WebhookCredentials `json:"credentials,omitempty"`
}

func (w Webhook) String() string {
	return fmt.Sprintf("Webhook(name=%s, url=%s)", w.Name, w.URL)
}

func (w *Webhook) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID            *int64            `json:"id"`
		Name          *string           `json:"name"`
		URL           *string           `json:"url"`
		Events        []json.RawMessage `json:"events"`
		Active        *bool             `json:"active"`
		ScopeType     *string           `json:"scopeType"`
		CreatedDate   *int64            `json:"createdDate"`
		UpdatedDate   *int64            `json:"updatedDate"`
		Configuration map[string]any    `json:"configuration"`
		SSLVerify     *bool             `json:"sslVerificationRequired"`
		Credentials   json.RawMessage   `json:"credentials"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return rawDecodeError("webhook", err)
	}
	switch {
	case raw.ID == nil:
		return missing("webhook", "id")
	case raw.Name == nil:
		return missing("webhook", "name")
	case raw.URL == nil:
		return missing("webhook", "url")
	case raw.Events == nil:
		return missing("webhook", "events")
	case raw.Active == nil:
		return missing("webhook", "active")
	}
	events, err := decodeElements[WebhookEvent](raw.Events, "webhookEvent", "events")
	if err != nil {
		return err
	}
	// The server omits scopeType on older versions; "repository" is the
	// documented default.
	scopeType := "repository"
	if raw.ScopeType != nil {
		scopeType = *raw.ScopeType
	}
	var credentials *WebhookCredentials
	if len(raw.Credentials) > 0 && string(raw.Credentials) != "null" {
		credentials = new(WebhookCredentials)
		if err := json.Unmarshal(raw.Credentials, credentials); err != nil {
			return prefixField(rawDecodeError("webhookCredentials", err), "credentials")
		}
	}
	*w = Webhook{
		ID:            *raw.ID,
		Name:          *raw.Name,
		URL:           *raw.URL,
		Events:        events,
		Active:        *raw.Active,
		ScopeType:     scopeType,
		CreatedDate:   raw.CreatedDate,
		UpdatedDate:   raw.UpdatedDate,
		Configuration: raw.Configuration,
		SSLVerify:     raw.SSLVerify,
		Credentials:   credentials,
	}
	return nil
}

// CommentAnchor pins a comment to a location in a diff. Every field is
// optional; general pull request comments have no anchor at all.
type CommentAnchor struct {
	Path        *FileReference `json:"path,omitempty"`
	SrcPath     *FileReference `json:"srcPath,omitempty"`
	DiffType    *DiffType      `json:"diffType,omitempty"`
	FileType    *FileType      `json:"fileType,omitempty"`
	LineType    *LineType      `json:"lineType,omitempty"`
	FromHash    *string        `json:"fromHash,omitempty"`
	ToHash      *string        `json:"toHash,omitempty"`
	Line        *int           `json:"line,omitempty"`
	LineComment *bool          `json:"lineComment,omitempty"`
	PullRequest *PullRequest   `json:"pullRequest,omitempty"`
}

// Committer identifies the author or committer of a commit. Unlike User,
// it is not necessarily a Bitbucket account.
type Committer struct {
	Name         *string `json:"name,omitempty"`
	EmailAddress *string `json:"emailAddress,omitempty"`
}

// MinimalCommit is a commit reference as embedded in parent lists.
type MinimalCommit struct {
	ID        *string `json:"id,omitempty"`
	DisplayID *string `json:"displayId,omitempty"`
}

// Commit is a commit record from a commit listing.
type Commit struct {
	ID                 *string         `json:"id,omitempty"`
	DisplayID          *string         `json:"displayId,omitempty"`
	Message            *string         `json:"message,omitempty"`
	Author             *Committer      `json:"author,omitempty"`
	AuthorTimestamp    *int64          `json:"authorTimestamp,omitempty"`
	Committer          *Committer      `json:"committer,omitempty"`
	CommitterTimestamp *int64          `json:"committerTimestamp,omitempty"`
	Parents            []MinimalCommit `json:"parents,omitempty"`
}

// DiffLine is one line of a diff segment.
type DiffLine struct {
	Source         *int    `json:"source,omitempty"`
	Destination    *int    `json:"destination,omitempty"`
	Line           *string `json:"line,omitempty"`
	Truncated      *bool   `json:"truncated,omitempty"`
	ConflictMarker *string `json:"conflictMarker,omitempty"`
	CommentIDs     []int64 `json:"commentIds,omitempty"`
}

// DiffSegment is a run of added, removed, or context lines.
type DiffSegment struct {
	Type      *string    `json:"type,omitempty"`
	Truncated *bool      `json:"truncated,omitempty"`
	Lines     []DiffLine `json:"lines,omitempty"`
}

// DiffHunk is a contiguous region of changed lines.
type DiffHunk struct {
	Context         *string       `json:"context,omitempty"`
	SourceLine      *int          `json:"sourceLine,omitempty"`
	SourceSpan      *int          `json:"sourceSpan,omitempty"`
	DestinationLine *int          `json:"destinationLine,omitempty"`
	DestinationSpan *int          `json:"destinationSpan,omitempty"`
	Segments        []DiffSegment `json:"segments,omitempty"`
	Truncated       *bool         `json:"truncated,omitempty"`
}

// Diff is the change record for one file.
type Diff struct {
	Source       *FileReference `json:"source,omitempty"`
	Destination  *FileReference `json:"destination,omitempty"`
	Binary       *bool          `json:"binary,omitempty"`
	Truncated    *bool          `json:"truncated,omitempty"`
	Hunks        []DiffHunk     `json:"hunks,omitempty"`
	LineComments []*Comment     `json:"lineComments,omitempty"`
	Properties   map[string]any `json:"properties,omitempty"`
}

// MinimalChange identifies one side of a merge conflict.
type MinimalChange struct {
	Type    *string        `json:"type,omitempty"`
	Path    *FileReference `json:"path,omitempty"`
	SrcPath *FileReference `json:"srcPath,omitempty"`
}

// Conflict pairs the two sides of a merge conflict.
type Conflict struct {
	OurChange   MinimalChange `json:"ourChange"`
	TheirChange MinimalChange `json:"theirChange"`
}

// Change is one entry of a changeset listing.
type Change struct {
	Type             *string        `json:"type,omitempty"`
	Path             *FileReference `json:"path,omitempty"`
	SrcPath          *FileReference `json:"srcPath,omitempty"`
	NodeType         *string        `json:"nodeType,omitempty"`
	ContentID        *string        `json:"contentId,omitempty"`
	FromContentID    *string        `json:"fromContentId,omitempty"`
	Executable       *bool          `json:"executable,omitempty"`
	SrcExecutable    *bool          `json:"srcExecutable,omitempty"`
	PercentUnchanged *int           `json:"percentUnchanged,omitempty"`
	Conflict         *Conflict      `json:"conflict,omitempty"`
}

// Issue is a Jira issue key linked to a pull request.
type Issue struct {
	Key string `json:"key"`
	URL string `json:"url,omitempty"`
}

// ApplicationProperties describes the server build, as reported by the
// application-properties endpoint.
type ApplicationProperties struct {
	Version     *string `json:"version,omitempty"`
	BuildNumber *string `json:"buildNumber,omitempty"`
	BuildDate   *string `json:"buildDate,omitempty"`
	DisplayName *string `json:"displayName,omitempty"`
}

// BrowseEntry is one file or directory in a repository directory listing.
type BrowseEntry struct {
	Path      FileReference `json:"path"`
	Type      string        `json:"type"` // FILE, DIRECTORY or SUBMODULE
	ContentID *string       `json:"contentId,omitempty"`
	Node      *string       `json:"node,omitempty"`
	Size      *int64        `json:"size,omitempty"`
}

// BrowseListing is the browse endpoint's response: the directory itself
// plus one page of its children.
type BrowseListing struct {
	Path     FileReference     `json:"path"`
	Revision *string           `json:"revision,omitempty"`
	Children Page[BrowseEntry] `json:"children"`
}
