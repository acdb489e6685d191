package domain

import (
	"regexp"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// Priority orders notification types when one event would notify the same
// recipient more than once; only the highest-priority one is kept.
func Priority(t Type) int {
	switch t {
	case TypeMentioned:
		return 3
	case TypeCommentReplied:
		return 2
	case TypeCommentAdded:
		return 1
	default:
		return 0
	}
}

// Fanout collects the recipients of one event, resolving collisions by
// type priority and never including the actor.
type Fanout struct {
	actorID    snowflake.ID
	recipients map[snowflake.ID]pending
	order      []snowflake.ID
}

type pending struct {
	typ   Type
	title string
}

func NewFanout(actorID snowflake.ID) *Fanout {
	return &Fanout{
		actorID:    actorID,
		recipients: make(map[snowflake.ID]pending),
	}
}

// Add proposes a notification for userID. Lower-priority proposals for a
// recipient that already has one are dropped.
func (f *Fanout) Add(userID snowflake.ID, typ Type, title string) {
	if userID == f.actorID {
		return
	}
	existing, ok := f.recipients[userID]
	if ok && Priority(typ) <= Priority(existing.typ) {
		return
	}
	if !ok {
		f.order = append(f.order, userID)
	}
	f.recipients[userID] = pending{typ: typ, title: title}
}

// Notifications materializes the fan-out in first-added recipient order.
// The shared fields (actor, issue, comment, body) are stamped onto each.
func (f *Fanout) Notifications(projectID, issueID, commentID *snowflake.ID, body string) []Notification {
	out := make([]Notification, 0, len(f.order))
	actorID := f.actorID
	for _, userID := range f.order {
		p := f.recipients[userID]
		out = append(out, Notification{
			UserID:    userID,
			ActorID:   &actorID,
			Type:      p.typ,
			ProjectID: projectID,
			IssueID:   issueID,
			CommentID: commentID,
			Title:     p.title,
			Body:      body,
		})
	}
	return out
}

var mentionPattern = regexp.MustCompile(`(^|\s)@([A-Za-z0-9][A-Za-z0-9._:-]{0,127})`)

// ExtractMentions returns the distinct mention tokens in body, in order of
// first appearance. Tokens are usernames; callers resolve and validate
// them against the user store and project membership.
func ExtractMentions(body string) []string {
	var tokens []string
	seen := make(map[string]bool)
	for _, m := range mentionPattern.FindAllStringSubmatch(body, -1) {
		token := m[2]
		if token == "" || seen[token] {
			continue
		}
		seen[token] = true
		tokens = append(tokens, token)
	}
	return tokens
}

// TruncateBody trims body and caps it at maxLength characters, replacing
// the last kept character with an ellipsis when cut.
func TruncateBody(body string, maxLength int) string {
	trimmed := strings.TrimSpace(body)
	runes := []rune(trimmed)
	if len(runes) <= maxLength {
		return trimmed
	}
	return string(runes[:maxLength-1]) + "…"
}

// DefaultBodyLength is the inbox preview budget.
const DefaultBodyLength = 140
