package bitbucket

import (
	"encoding/json"
	"fmt"
	"maps"
)

// missing builds the SchemaMismatchError for an absent required field.
func missing(resource, field string) error {
	return &SchemaMismatchError{Resource: resource, Field: field}
}

// rawDecodeError passes through errors from our own decoders and converts
// anything else (malformed JSON, wrong JSON kind) into a SchemaMismatchError.
func rawDecodeError(resource string, err error) error {
	switch err.(type) {
	case *SchemaMismatchError, *UnknownEnumValueError, *CyclicReferenceError:
		return err
	}
	return &SchemaMismatchError{Resource: resource, Field: "(body)", Reason: err.Error()}
}

// decodeElements decodes a slice of raw JSON values, attaching the index of
// the first failing element to its field path. A nil input slice stays nil,
// keeping "absent" distinguishable from "empty".
func decodeElements[T any](raws []json.RawMessage, resource, field string) ([]T, error) {
	if raws == nil {
		return nil, nil
	}
	out := make([]T, len(raws))
	for i, r := range raws {
		if err := json.Unmarshal(r, &out[i]); err != nil {
			return nil, prefixField(rawDecodeError(resource, err), fmt.Sprintf("%s[%d]", field, i))
		}
	}
	return out, nil
}

// Page is one page of a paginated listing. NextPageStart is nil exactly
// when the server did not provide a continuation offset.
type Page[T any] struct {
	Values        []T   `json:"values"`
	Size          int   `json:"size"`
	Limit         int   `json:"limit"`
	IsLastPage    bool  `json:"isLastPage"`
	Start         int   `json:"start"`
	NextPageStart *int  `json:"nextPageStart,omitempty"`
}

func (p *Page[T]) UnmarshalJSON(data []byte) error {
	var raw struct {
		Values        []json.RawMessage `json:"values"`
		Size          *int              `json:"size"`
		Limit         *int              `json:"limit"`
		IsLastPage    *bool             `json:"isLastPage"`
		Start         *int              `json:"start"`
		NextPageStart *int              `json:"nextPageStart"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return rawDecodeError("page", err)
	}
	switch {
	case raw.Values == nil:
		return missing("page", "values")
	case raw.Size == nil:
		return missing("page", "size")
	case raw.Limit == nil:
		return missing("page", "limit")
	case raw.IsLastPage == nil:
		return missing("page", "isLastPage")
	case raw.Start == nil:
		return missing("page", "start")
	}
	if !*raw.IsLastPage {
		// A non-final page without a forward cursor cannot be traversed.
		if raw.NextPageStart == nil {
			return &SchemaMismatchError{
				Resource: "page",
				Field:    "nextPageStart",
				Reason:   "absent on a page with isLastPage=false",
			}
		}
		if *raw.NextPageStart <= *raw.Start {
			return &SchemaMismatchError{
				Resource: "page",
				Field:    "nextPageStart",
				Reason:   fmt.Sprintf("%d does not advance past start=%d", *raw.NextPageStart, *raw.Start),
			}
		}
	}
	values := make([]T, len(raw.Values))
	for i, rv := range raw.Values {
		if err := json.Unmarshal(rv, &values[i]); err != nil {
			return prefixField(rawDecodeError("page", err), fmt.Sprintf("values[%d]", i))
		}
	}
	*p = Page[T]{
		Values:        values,
		Size:          *raw.Size,
		Limit:         *raw.Limit,
		IsLastPage:    *raw.IsLastPage,
		Start:         *raw.Start,
		NextPageStart: raw.NextPageStart,
	}
	return nil
}

// Comment is a threaded pull request or commit comment. Comments form a
// tree: replies live in Comments, and a reply points back at its parent.
type Comment struct {
	ID                 *int64         `json:"id,omitempty"`
	Version            int            `json:"version"`
	Text               *string        `json:"text,omitempty"`
	HTML               *string        `json:"html,omitempty"`
	State              *string        `json:"state,omitempty"`
	Author             *User          `json:"author,omitempty"`
	Anchor             *CommentAnchor `json:"anchor,omitempty"`
	Parent             *Comment       `json:"parent,omitempty"`
	Comments           []*Comment     `json:"comments,omitempty"`
	CreatedDate        *int64         `json:"createdDate,omitempty"`
	UpdatedDate        *int64         `json:"updatedDate,omitempty"`
	ThreadResolved     *bool          `json:"threadResolved,omitempty"`
	ThreadResolvedDate *int64         `json:"threadResolvedDate,omitempty"`
	ThreadResolver     *User          `json:"threadResolver,omitempty"`
	Anchored           *bool          `json:"anchored,omitempty"`
	Pending            *bool          `json:"pending,omitempty"`
	Reply              *bool          `json:"reply,omitempty"`
	Properties         map[string]any `json:"properties,omitempty"`
}

func (c *Comment) UnmarshalJSON(data []byte) error {
	decoded, err := decodeComment(data, nil)
	if err != nil {
		return err
	}
	*c = *decoded
	return nil
}

// decodeComment decodes a comment depth-first. ancestors holds the ids on
// the chain from the decode root to this comment; revisiting one of them
// means the payload encodes a cycle and recursion must stop.
func decodeComment(data []byte, ancestors map[int64]struct{}) (*Comment, error) {
	var raw struct {
		ID                 *int64            `json:"id"`
		Version            *int              `json:"version"`
		Text               *string           `json:"text"`
		HTML               *string           `json:"html"`
		State              *string           `json:"state"`
		Author             json.RawMessage   `json:"author"`
		Anchor             json.RawMessage   `json:"anchor"`
		Parent             json.RawMessage   `json:"parent"`
		Comments           []json.RawMessage `json:"comments"`
		CreatedDate        *int64            `json:"createdDate"`
		UpdatedDate        *int64            `json:"updatedDate"`
		ThreadResolved     *bool             `json:"threadResolved"`
		ThreadResolvedDate *int64            `json:"threadResolvedDate"`
		ThreadResolver     json.RawMessage   `json:"threadResolver"`
		Anchored           *bool             `json:"anchored"`
		Pending            *bool             `json:"pending"`
		Reply              *bool             `json:"reply"`
		Properties         map[string]any    `json:"properties"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, rawDecodeError("comment", err)
	}
	if raw.Version == nil {
		return nil, missing("comment", "version")
	}
	chain := ancestors
	if raw.ID != nil {
		if _, seen := ancestors[*raw.ID]; seen {
			return nil, &CyclicReferenceError{ID: *raw.ID}
		}
		chain = maps.Clone(ancestors)
		if chain == nil {
			chain = make(map[int64]struct{})
		}
		chain[*raw.ID] = struct{}{}
	}
	c := &Comment{
		ID:                 raw.ID,
		Version:            *raw.Version,
		Text:               raw.Text,
		HTML:               raw.HTML,
		State:              raw.State,
		CreatedDate:        raw.CreatedDate,
		UpdatedDate:        raw.UpdatedDate,
		ThreadResolved:     raw.ThreadResolved,
		ThreadResolvedDate: raw.ThreadResolvedDate,
		Anchored:           raw.Anchored,
		Pending:            raw.Pending,
		Reply:              raw.Reply,
		Properties:         raw.Properties,
	}
	if present(raw.Author) {
		c.Author = new(User)
		if err := json.Unmarshal(raw.Author, c.Author); err != nil {
			return nil, prefixField(rawDecodeError("user", err), "author")
		}
	}
	if present(raw.ThreadResolver) {
		c.ThreadResolver = new(User)
		if err := json.Unmarshal(raw.ThreadResolver, c.ThreadResolver); err != nil {
			return nil, prefixField(rawDecodeError("user", err), "threadResolver")
		}
	}
	if present(raw.Anchor) {
		c.Anchor = new(CommentAnchor)
		if err := json.Unmarshal(raw.Anchor, c.Anchor); err != nil {
			return nil, prefixField(rawDecodeError("commentAnchor", err), "anchor")
		}
	}
	if present(raw.Parent) {
		parent, err := decodeComment(raw.Parent, chain)
		if err != nil {
			return nil, prefixField(err, "parent")
		}
		c.Parent = parent
	}
	if raw.Comments != nil {
		c.Comments = make([]*Comment, len(raw.Comments))
		for i, rc := range raw.Comments {
			child, err := decodeComment(rc, chain)
			if err != nil {
				return nil, prefixField(err, fmt.Sprintf("comments[%d]", i))
			}
			c.Comments[i] = child
		}
	}
	return c, nil
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

// Activity is one entry of a pull request's activity stream. The endpoint
// ships undocumented extra fields depending on the action; anything this
// model does not recognize is preserved verbatim in Extra instead of being
// dropped or loosening the rest of the record.
type Activity struct {
	ID            int64                      `json:"id"`
	CreatedDate   int64                      `json:"createdDate"`
	User          User                       `json:"user"`
	Action        ActivityAction             `json:"action"`
	CommentAction *CommentAction             `json:"commentAction,omitempty"` // Set when Action is COMMENTED
	Comment       *Comment                   `json:"comment,omitempty"`
	CommentAnchor *CommentAnchor             `json:"commentAnchor,omitempty"`
	Extra         map[string]json.RawMessage `json:"-"`
}

func (a *Activity) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return rawDecodeError("activity", err)
	}
	take := func(name string) (json.RawMessage, bool) {
		raw, ok := fields[name]
		if ok {
			delete(fields, name)
		}
		return raw, ok && string(raw) != "null"
	}

	decoded := Activity{}
	if raw, ok := take("id"); !ok {
		return missing("activity", "id")
	} else if err := json.Unmarshal(raw, &decoded.ID); err != nil {
		return prefixField(rawDecodeError("activity", err), "id")
	}
	if raw, ok := take("createdDate"); !ok {
		return missing("activity", "createdDate")
	} else if err := json.Unmarshal(raw, &decoded.CreatedDate); err != nil {
		return prefixField(rawDecodeError("activity", err), "createdDate")
	}
	if raw, ok := take("user"); !ok {
		return missing("activity", "user")
	} else if err := json.Unmarshal(raw, &decoded.User); err != nil {
		return prefixField(rawDecodeError("user", err), "user")
	}
	if raw, ok := take("action"); !ok {
		return missing("activity", "action")
	} else if err := json.Unmarshal(raw, &decoded.Action); err != nil {
		return prefixField(err, "action")
	}
	if raw, ok := take("commentAction"); ok {
		decoded.CommentAction = new(CommentAction)
		if err := json.Unmarshal(raw, decoded.CommentAction); err != nil {
			return prefixField(err, "commentAction")
		}
	}
	if raw, ok := take("comment"); ok {
		decoded.Comment = new(Comment)
		if err := json.Unmarshal(raw, decoded.Comment); err != nil {
			return prefixField(rawDecodeError("comment", err), "comment")
		}
	}
	if raw, ok := take("commentAnchor"); ok {
		decoded.CommentAnchor = new(CommentAnchor)
		if err := json.Unmarshal(raw, decoded.CommentAnchor); err != nil {
			return prefixField(rawDecodeError("commentAnchor", err), "commentAnchor")
		}
	}
	if len(fields) > 0 {
		decoded.Extra = fields
	}
	*a = decoded
	return nil
}
