package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tracklane/tracklane/internal/clock"
	issuedomain "github.com/tracklane/tracklane/internal/issue/domain"
	"github.com/tracklane/tracklane/internal/migration"
	notificationdomain "github.com/tracklane/tracklane/internal/notification/domain"
	notificationservice "github.com/tracklane/tracklane/internal/notification/service"
	projectdomain "github.com/tracklane/tracklane/internal/project/domain"
	projectservice "github.com/tracklane/tracklane/internal/project/service"
	"github.com/tracklane/tracklane/internal/quota"
	userdomain "github.com/tracklane/tracklane/internal/user/domain"
)

type issueFixture struct {
	svc        issuedomain.Service
	projectSvc projectdomain.Service
	db         *gorm.DB
	node       *snowflake.Node
	clock      *clock.FakeClock
}

func newIssueFixture(t *testing.T) *issueFixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:" + t.Name() + "?mode=memory&cache=shared"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(migration.Models()...))

	node, err := snowflake.NewNode(1)
	assert.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	quotaSvc := quota.NewService(quota.ServiceParam{DB: db, Log: log})
	projectSvc := projectservice.NewService(projectservice.ServiceParam{
		DB: db, Log: log, GenID: node, Clock: fake, QuotaSvc: quotaSvc,
	})
	notifSvc := notificationservice.NewService(notificationservice.ServiceParam{
		DB: db, Log: log, GenID: node, Clock: fake,
	})
	svc := NewService(ServiceParam{
		DB: db, Log: log, GenID: node, Clock: fake,
		QuotaSvc: quotaSvc, ProjectSvc: projectSvc, NotifSvc: notifSvc,
	})

	return &issueFixture{svc: svc, projectSvc: projectSvc, db: db, node: node, clock: fake}
}

func (f *issueFixture) seedUser(t *testing.T) userdomain.User {
	t.Helper()
	id := f.node.Generate()
	user := userdomain.User{
		ID:          id,
		Username:    "i" + id.String(),
		Email:       "i" + id.String() + "@example.com",
		DisplayName: "Issue " + id.String(),
		PlanTier:    userdomain.PlanFree,
	}
	assert.NoError(t, f.db.Create(&user).Error)
	return user
}

func (f *issueFixture) notificationsFor(t *testing.T, userID snowflake.ID) []notificationdomain.Notification {
	t.Helper()
	var rows []notificationdomain.Notification
	assert.NoError(t, f.db.Where("user_id = ?", userID).Order("id ASC").Find(&rows).Error)
	return rows
}

func TestCreateIssueDefaults(t *testing.T) {
	f := newIssueFixture(t)
	ctx := context.Background()
	user := f.seedUser(t)

	issue, err := f.svc.Create(ctx, user.ID, issuedomain.CreateIssueRequest{
		Title:  "  Fix the login flow  ",
		Labels: []string{" Bug ", "bug", "auth"},
	})
	assert.NoError(t, err)
	assert.Equal(t, "Fix the login flow", issue.Title)
	assert.Equal(t, issuedomain.StatusOpen, issue.Status)
	assert.Equal(t, issuedomain.PriorityMedium, issue.Priority)
	assert.Equal(t, []string{"Bug", "auth"}, []string(issue.Labels))
	assert.Nil(t, issue.ProjectID)

	_, err = f.svc.Create(ctx, user.ID, issuedomain.CreateIssueRequest{
		Title:    "bad priority",
		Priority: issuedomain.IssuePriority("blazing"),
	})
	assert.ErrorIs(t, err, issuedomain.ErrInvalidPriority)
}

func TestCreateSubIssueInheritsProject(t *testing.T) {
	f := newIssueFixture(t)
	ctx := context.Background()
	user := f.seedUser(t)

	project, err := f.projectSvc.Create(ctx, user.ID, projectdomain.CreateProjectRequest{Name: "app"})
	assert.NoError(t, err)
	parent, err := f.svc.Create(ctx, user.ID, issuedomain.CreateIssueRequest{ProjectID: &project.ID, Title: "epic"})
	assert.NoError(t, err)

	child, err := f.svc.Create(ctx, user.ID, issuedomain.CreateIssueRequest{ParentIssueID: &parent.ID, Title: "task"})
	assert.NoError(t, err)
	assert.NotNil(t, child.ProjectID)
	assert.Equal(t, project.ID, *child.ProjectID)

	other, err := f.projectSvc.Create(ctx, user.ID, projectdomain.CreateProjectRequest{Name: "other"})
	assert.NoError(t, err)
	_, err = f.svc.Create(ctx, user.ID, issuedomain.CreateIssueRequest{
		ParentIssueID: &parent.ID,
		ProjectID:     &other.ID,
		Title:         "mismatched",
	})
	assert.ErrorIs(t, err, issuedomain.ErrProjectMismatch)

	missing := f.node.Generate()
	_, err = f.svc.Create(ctx, user.ID, issuedomain.CreateIssueRequest{ParentIssueID: &missing, Title: "orphan"})
	assert.ErrorIs(t, err, issuedomain.ErrParentIssueNotFound)
}

func TestListIssuesTopLevelOnly(t *testing.T) {
	f := newIssueFixture(t)
	ctx := context.Background()
	user := f.seedUser(t)

	project, err := f.projectSvc.Create(ctx, user.ID, projectdomain.CreateProjectRequest{Name: "listing"})
	assert.NoError(t, err)
	parent, err := f.svc.Create(ctx, user.ID, issuedomain.CreateIssueRequest{ProjectID: &project.ID, Title: "top"})
	assert.NoError(t, err)
	_, err = f.svc.Create(ctx, user.ID, issuedomain.CreateIssueRequest{ParentIssueID: &parent.ID, Title: "sub"})
	assert.NoError(t, err)

	top, err := f.svc.List(ctx, issuedomain.ListIssuesRequest{ProjectID: &project.ID})
	assert.NoError(t, err)
	assert.Len(t, top, 1)
	assert.Equal(t, parent.ID, top[0].ID)

	subs, err := f.svc.List(ctx, issuedomain.ListIssuesRequest{ParentIssueID: &parent.ID})
	assert.NoError(t, err)
	assert.Len(t, subs, 1)
	assert.Equal(t, "sub", subs[0].Title)
}

func TestSetStatusNotifiesCreator(t *testing.T) {
	f := newIssueFixture(t)
	ctx := context.Background()
	creator := f.seedUser(t)
	actor := f.seedUser(t)

	issue, err := f.svc.Create(ctx, creator.ID, issuedomain.CreateIssueRequest{Title: "status me"})
	assert.NoError(t, err)

	assert.ErrorIs(t, f.svc.SetStatus(ctx, actor.ID, issue.ID, issuedomain.IssueStatus("nonsense")), issuedomain.ErrInvalidStatus)

	assert.NoError(t, f.svc.SetStatus(ctx, actor.ID, issue.ID, issuedomain.StatusInProgress))

	got, err := f.svc.GetByID(ctx, issue.ID)
	assert.NoError(t, err)
	assert.Equal(t, issuedomain.StatusInProgress, got.Status)

	rows := f.notificationsFor(t, creator.ID)
	assert.Len(t, rows, 1)
	assert.Equal(t, notificationdomain.TypeIssueStatusChanged, rows[0].Type)
	assert.Equal(t, "Status set to in progress", rows[0].Body)

	// The creator changing their own issue stays silent.
	assert.NoError(t, f.svc.SetStatus(ctx, creator.ID, issue.ID, issuedomain.StatusDone))
	assert.Len(t, f.notificationsFor(t, creator.ID), 1)
}

func TestSetAssigneesNotifiesNewOnly(t *testing.T) {
	f := newIssueFixture(t)
	ctx := context.Background()
	creator := f.seedUser(t)
	alice := f.seedUser(t)
	bob := f.seedUser(t)

	issue, err := f.svc.Create(ctx, creator.ID, issuedomain.CreateIssueRequest{Title: "assign me"})
	assert.NoError(t, err)

	assert.NoError(t, f.svc.SetAssignees(ctx, creator.ID, issue.ID, []snowflake.ID{alice.ID, alice.ID}))
	assert.Len(t, f.notificationsFor(t, alice.ID), 1)

	// Re-assigning alice plus bob only notifies bob.
	assert.NoError(t, f.svc.SetAssignees(ctx, creator.ID, issue.ID, []snowflake.ID{alice.ID, bob.ID}))
	assert.Len(t, f.notificationsFor(t, alice.ID), 1)
	assert.Len(t, f.notificationsFor(t, bob.ID), 1)

	got, err := f.svc.GetByID(ctx, issue.ID)
	assert.NoError(t, err)
	assert.Len(t, got.Assignees, 2)

	tooMany := make([]snowflake.ID, 51)
	for i := range tooMany {
		tooMany[i] = f.node.Generate()
	}
	assert.ErrorIs(t, f.svc.SetAssignees(ctx, creator.ID, issue.ID, tooMany), issuedomain.ErrTooManyAssignees)
}

func TestToggleFavorite(t *testing.T) {
	f := newIssueFixture(t)
	ctx := context.Background()
	user := f.seedUser(t)

	issue, err := f.svc.Create(ctx, user.ID, issuedomain.CreateIssueRequest{Title: "fav"})
	assert.NoError(t, err)

	res, err := f.svc.ToggleFavorite(ctx, user.ID, issue.ID)
	assert.NoError(t, err)
	assert.True(t, res.Added)

	favs, err := f.svc.ListFavorites(ctx, user.ID, 0)
	assert.NoError(t, err)
	assert.Len(t, favs, 1)
	assert.Equal(t, issue.ID, favs[0].ID)

	res, err = f.svc.ToggleFavorite(ctx, user.ID, issue.ID)
	assert.NoError(t, err)
	assert.False(t, res.Added)

	favs, err = f.svc.ListFavorites(ctx, user.ID, 0)
	assert.NoError(t, err)
	assert.Len(t, favs, 0)
}

func TestToggleRelatedLink(t *testing.T) {
	f := newIssueFixture(t)
	ctx := context.Background()
	user := f.seedUser(t)

	a, err := f.svc.Create(ctx, user.ID, issuedomain.CreateIssueRequest{Title: "a"})
	assert.NoError(t, err)
	b, err := f.svc.Create(ctx, user.ID, issuedomain.CreateIssueRequest{Title: "b"})
	assert.NoError(t, err)

	_, err = f.svc.ToggleLink(ctx, user.ID, a.ID, a.ID, issuedomain.LinkRelated)
	assert.ErrorIs(t, err, issuedomain.ErrSelfLink)

	res, err := f.svc.ToggleLink(ctx, user.ID, a.ID, b.ID, issuedomain.LinkRelated)
	assert.NoError(t, err)
	assert.True(t, res.Added)

	var count int64
	assert.NoError(t, f.db.Model(&issuedomain.Link{}).
		Where("issue_id IN ?", []snowflake.ID{a.ID, b.ID}).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	// Toggling from the other side unlinks the pair entirely.
	res, err = f.svc.ToggleLink(ctx, user.ID, b.ID, a.ID, issuedomain.LinkRelated)
	assert.NoError(t, err)
	assert.False(t, res.Added)

	assert.NoError(t, f.db.Model(&issuedomain.Link{}).
		Where("issue_id IN ?", []snowflake.ID{a.ID, b.ID}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestToggleBlockedByLinkIsDirectional(t *testing.T) {
	f := newIssueFixture(t)
	ctx := context.Background()
	user := f.seedUser(t)

	a, err := f.svc.Create(ctx, user.ID, issuedomain.CreateIssueRequest{Title: "blocked"})
	assert.NoError(t, err)
	b, err := f.svc.Create(ctx, user.ID, issuedomain.CreateIssueRequest{Title: "blocker"})
	assert.NoError(t, err)

	res, err := f.svc.ToggleLink(ctx, user.ID, a.ID, b.ID, issuedomain.LinkBlockedBy)
	assert.NoError(t, err)
	assert.True(t, res.Added)

	var count int64
	assert.NoError(t, f.db.Model(&issuedomain.Link{}).
		Where("issue_id = ? AND other_issue_id = ?", a.ID, b.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// The reverse direction is its own link.
	res, err = f.svc.ToggleLink(ctx, user.ID, b.ID, a.ID, issuedomain.LinkBlockedBy)
	assert.NoError(t, err)
	assert.True(t, res.Added)
}

func TestAddCommentFanout(t *testing.T) {
	f := newIssueFixture(t)
	ctx := context.Background()
	creator := f.seedUser(t)
	commenter := f.seedUser(t)
	mentioned := f.seedUser(t)

	issue, err := f.svc.Create(ctx, creator.ID, issuedomain.CreateIssueRequest{Title: "discuss"})
	assert.NoError(t, err)

	comment, err := f.svc.AddComment(ctx, commenter.ID, issue.ID, issuedomain.AddCommentRequest{
		Body: "ping @" + mentioned.Username + " about this",
	})
	assert.NoError(t, err)
	assert.Equal(t, issue.ID, comment.IssueID)

	creatorRows := f.notificationsFor(t, creator.ID)
	assert.Len(t, creatorRows, 1)
	assert.Equal(t, notificationdomain.TypeCommentAdded, creatorRows[0].Type)

	mentionRows := f.notificationsFor(t, mentioned.ID)
	assert.Len(t, mentionRows, 1)
	assert.Equal(t, notificationdomain.TypeMentioned, mentionRows[0].Type)

	// Replies notify the parent comment's author as a reply.
	reply, err := f.svc.AddComment(ctx, creator.ID, issue.ID, issuedomain.AddCommentRequest{
		ParentCommentID: &comment.ID,
		Body:            "done",
	})
	assert.NoError(t, err)
	assert.NotNil(t, reply.ParentCommentID)

	commenterRows := f.notificationsFor(t, commenter.ID)
	assert.Len(t, commenterRows, 1)
	assert.Equal(t, notificationdomain.TypeCommentReplied, commenterRows[0].Type)
}

func TestAddCommentParentMustMatchIssue(t *testing.T) {
	f := newIssueFixture(t)
	ctx := context.Background()
	user := f.seedUser(t)

	first, err := f.svc.Create(ctx, user.ID, issuedomain.CreateIssueRequest{Title: "first"})
	assert.NoError(t, err)
	second, err := f.svc.Create(ctx, user.ID, issuedomain.CreateIssueRequest{Title: "second"})
	assert.NoError(t, err)

	comment, err := f.svc.AddComment(ctx, user.ID, first.ID, issuedomain.AddCommentRequest{Body: "root"})
	assert.NoError(t, err)

	_, err = f.svc.AddComment(ctx, user.ID, second.ID, issuedomain.AddCommentRequest{
		ParentCommentID: &comment.ID,
		Body:            "cross-issue reply",
	})
	assert.ErrorIs(t, err, issuedomain.ErrCommentNotFound)
}

func TestMentionRequiresProjectMembership(t *testing.T) {
	f := newIssueFixture(t)
	ctx := context.Background()
	creator := f.seedUser(t)
	outsider := f.seedUser(t)

	project, err := f.projectSvc.Create(ctx, creator.ID, projectdomain.CreateProjectRequest{Name: "closed"})
	assert.NoError(t, err)
	issue, err := f.svc.Create(ctx, creator.ID, issuedomain.CreateIssueRequest{ProjectID: &project.ID, Title: "private talk"})
	assert.NoError(t, err)

	_, err = f.svc.AddComment(ctx, creator.ID, issue.ID, issuedomain.AddCommentRequest{
		Body: "cc @" + outsider.Username,
	})
	assert.NoError(t, err)
	assert.Len(t, f.notificationsFor(t, outsider.ID), 0)
}

func TestToggleReaction(t *testing.T) {
	f := newIssueFixture(t)
	ctx := context.Background()
	creator := f.seedUser(t)
	reactor := f.seedUser(t)

	issue, err := f.svc.Create(ctx, creator.ID, issuedomain.CreateIssueRequest{Title: "react"})
	assert.NoError(t, err)

	res, err := f.svc.ToggleReaction(ctx, reactor.ID, issue.ID, issuedomain.ToggleReactionRequest{Emoji: "🔥"})
	assert.NoError(t, err)
	assert.True(t, res.Added)

	rows := f.notificationsFor(t, creator.ID)
	assert.Len(t, rows, 1)
	assert.Equal(t, notificationdomain.TypeReactionAdded, rows[0].Type)
	assert.Equal(t, "🔥", rows[0].Body)

	res, err = f.svc.ToggleReaction(ctx, reactor.ID, issue.ID, issuedomain.ToggleReactionRequest{Emoji: "🔥"})
	assert.NoError(t, err)
	assert.False(t, res.Added)

	all, err := f.svc.ListReactions(ctx, issue.ID)
	assert.NoError(t, err)
	assert.Len(t, all, 0)
}
