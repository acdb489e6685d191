package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tracklane/tracklane/internal/clock"
	issuedomain "github.com/tracklane/tracklane/internal/issue/domain"
	notificationdomain "github.com/tracklane/tracklane/internal/notification/domain"
	projectdomain "github.com/tracklane/tracklane/internal/project/domain"
	"github.com/tracklane/tracklane/internal/quota"
	userdomain "github.com/tracklane/tracklane/internal/user/domain"
	"github.com/tracklane/tracklane/pkg/repository"
)

const maxAssignees = 50

type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	QuotaSvc   quota.Service
	ProjectSvc projectdomain.Service
	NotifSvc   notificationdomain.Service
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock

	issuerepo    repository.Repository[issuedomain.Issue]
	assigneerepo repository.Repository[issuedomain.Assignee]
	linkrepo     repository.Repository[issuedomain.Link]
	favoriterepo repository.Repository[issuedomain.Favorite]
	commentrepo  repository.Repository[issuedomain.Comment]
	reactionrepo repository.Repository[issuedomain.Reaction]
	userrepo     repository.Repository[userdomain.User]

	quotaSvc   quota.Service
	projectSvc projectdomain.Service
	notifSvc   notificationdomain.Service
}

func NewService(p ServiceParam) issuedomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("issue.service"),
		genID: p.GenID,
		clock: p.Clock,

		issuerepo:    repository.ProvideStore[issuedomain.Issue](p.DB),
		assigneerepo: repository.ProvideStore[issuedomain.Assignee](p.DB),
		linkrepo:     repository.ProvideStore[issuedomain.Link](p.DB),
		favoriterepo: repository.ProvideStore[issuedomain.Favorite](p.DB),
		commentrepo:  repository.ProvideStore[issuedomain.Comment](p.DB),
		reactionrepo: repository.ProvideStore[issuedomain.Reaction](p.DB),
		userrepo:     repository.ProvideStore[userdomain.User](p.DB),

		quotaSvc:   p.QuotaSvc,
		projectSvc: p.ProjectSvc,
		notifSvc:   p.NotifSvc,
	}
}

func (s *Service) Create(ctx context.Context, viewerID snowflake.ID, req issuedomain.CreateIssueRequest) (issuedomain.Issue, error) {
	now := s.clock.Now()

	priority := req.Priority
	if priority == "" {
		priority = issuedomain.PriorityMedium
	}
	if !priority.Valid() {
		return issuedomain.Issue{}, issuedomain.ErrInvalidPriority
	}

	projectID := req.ProjectID
	if req.ParentIssueID != nil {
		parent, err := s.issuerepo.FindOne(ctx, &issuedomain.Issue{ID: *req.ParentIssueID})
		if err != nil {
			return issuedomain.Issue{}, err
		}
		if parent == nil {
			return issuedomain.Issue{}, issuedomain.ErrParentIssueNotFound
		}
		if req.ProjectID != nil && (parent.ProjectID == nil || *parent.ProjectID != *req.ProjectID) {
			return issuedomain.Issue{}, issuedomain.ErrProjectMismatch
		}
		// Sub-issues inherit the parent's project.
		projectID = parent.ProjectID
	}

	if projectID != nil {
		if _, err := s.projectSvc.GetByID(ctx, *projectID); err != nil {
			return issuedomain.Issue{}, err
		}
	}

	issue := issuedomain.Issue{
		ID:              s.genID.Generate(),
		Source:          issuedomain.SourceApp,
		ProjectID:       projectID,
		ParentIssueID:   req.ParentIssueID,
		Title:           strings.TrimSpace(req.Title),
		Description:     strings.TrimSpace(req.Description),
		Status:          issuedomain.StatusOpen,
		Priority:        priority,
		EstimateMinutes: req.EstimateMinutes,
		Labels:          issuedomain.NormalizeLabels(req.Labels),
		CreatorID:       viewerID,
		LastActivityAt:  now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.quotaSvc.EnforceCreation(ctx, tx, viewerID, quota.ActionIssues); err != nil {
			return err
		}
		return s.issuerepo.WithTrx(tx).Create(ctx, &issue)
	})
	if err != nil {
		return issuedomain.Issue{}, err
	}

	if req.ParentIssueID != nil {
		if err := s.touchIssue(ctx, *req.ParentIssueID); err != nil {
			return issuedomain.Issue{}, err
		}
	}
	if projectID != nil {
		if err := s.projectSvc.TouchActivity(ctx, *projectID); err != nil {
			return issuedomain.Issue{}, err
		}
	}

	s.log.Info("issue created",
		zap.String("issue_id", issue.ID.String()),
		zap.String("creator_id", viewerID.String()),
	)
	return issue, nil
}

func (s *Service) List(ctx context.Context, req issuedomain.ListIssuesRequest) ([]issuedomain.Issue, error) {
	limit := req.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := s.db.WithContext(ctx).Model(&issuedomain.Issue{}).
		Preload("Assignees").
		Order("last_activity_at DESC").
		Limit(limit)

	if req.ParentIssueID != nil {
		query = query.Where("parent_issue_id = ?", *req.ParentIssueID)
	} else {
		query = query.Where("parent_issue_id IS NULL")
	}
	if req.ProjectID != nil {
		query = query.Where("project_id = ?", *req.ProjectID)
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, issuedomain.ErrInvalidStatus
		}
		query = query.Where("status = ?", *req.Status)
	}
	if !req.IncludeArchived {
		query = query.Where("archived_at IS NULL")
	}

	var issues []issuedomain.Issue
	if err := query.Find(&issues).Error; err != nil {
		return nil, err
	}
	return issues, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (issuedomain.Issue, error) {
	var issue issuedomain.Issue
	err := s.db.WithContext(ctx).Preload("Assignees").First(&issue, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return issuedomain.Issue{}, issuedomain.ErrIssueNotFound
		}
		return issuedomain.Issue{}, err
	}
	return issue, nil
}

func (s *Service) SetStatus(ctx context.Context, viewerID, issueID snowflake.ID, status issuedomain.IssueStatus) error {
	if !status.Valid() {
		return issuedomain.ErrInvalidStatus
	}

	issue, err := s.GetByID(ctx, issueID)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	err = s.db.WithContext(ctx).Model(&issuedomain.Issue{}).
		Where("id = ?", issueID).
		Updates(map[string]any{"status": status, "last_activity_at": now}).Error
	if err != nil {
		return err
	}

	if issue.CreatorID != viewerID {
		fanout := notificationdomain.NewFanout(viewerID)
		fanout.Add(issue.CreatorID, notificationdomain.TypeIssueStatusChanged, "Issue status updated")
		body := "Status set to " + strings.ReplaceAll(string(status), "_", " ")
		return s.notifSvc.CreateAll(ctx, fanout.Notifications(issue.ProjectID, &issueID, nil, body))
	}
	return nil
}

func (s *Service) SetAssignees(ctx context.Context, viewerID, issueID snowflake.ID, assigneeIDs []snowflake.ID) error {
	if len(assigneeIDs) > maxAssignees {
		return issuedomain.ErrTooManyAssignees
	}

	issue, err := s.GetByID(ctx, issueID)
	if err != nil {
		return err
	}

	next := make([]snowflake.ID, 0, len(assigneeIDs))
	seen := make(map[snowflake.ID]bool)
	for _, id := range assigneeIDs {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		next = append(next, id)
	}

	prev := make(map[snowflake.ID]bool, len(issue.Assignees))
	for _, a := range issue.Assignees {
		prev[a.UserID] = true
	}
	var added []snowflake.ID
	for _, id := range next {
		if !prev[id] {
			added = append(added, id)
		}
	}

	now := s.clock.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("issue_id = ?", issueID).Delete(&issuedomain.Assignee{}).Error; err != nil {
			return err
		}
		rows := make([]*issuedomain.Assignee, len(next))
		for i, id := range next {
			rows[i] = &issuedomain.Assignee{IssueID: issueID, UserID: id, CreatedAt: now}
		}
		if err := s.assigneerepo.WithTrx(tx).BatchCreate(ctx, rows); err != nil {
			return err
		}
		return tx.Model(&issuedomain.Issue{}).
			Where("id = ?", issueID).
			Update("last_activity_at", now).Error
	})
	if err != nil {
		return err
	}

	fanout := notificationdomain.NewFanout(viewerID)
	for _, id := range added {
		fanout.Add(id, notificationdomain.TypeIssueAssigned, "Assigned to an issue")
	}
	return s.notifSvc.CreateAll(ctx, fanout.Notifications(issue.ProjectID, &issueID, nil, issue.Title))
}

func (s *Service) SetLabels(ctx context.Context, viewerID, issueID snowflake.ID, labels []string) (issuedomain.Issue, error) {
	issue, err := s.GetByID(ctx, issueID)
	if err != nil {
		return issuedomain.Issue{}, err
	}

	issue.Labels = issuedomain.NormalizeLabels(labels)
	issue.LastActivityAt = s.clock.Now()

	err = s.db.WithContext(ctx).Model(&issuedomain.Issue{}).
		Where("id = ?", issueID).
		Updates(map[string]any{"labels": issue.Labels, "last_activity_at": issue.LastActivityAt}).Error
	if err != nil {
		return issuedomain.Issue{}, err
	}
	return issue, nil
}

func (s *Service) ToggleFavorite(ctx context.Context, viewerID, issueID snowflake.ID) (issuedomain.ToggleResult, error) {
	if _, err := s.GetByID(ctx, issueID); err != nil {
		return issuedomain.ToggleResult{}, err
	}

	existing, err := s.favoriterepo.FindOne(ctx, &issuedomain.Favorite{IssueID: issueID, UserID: viewerID})
	if err != nil {
		return issuedomain.ToggleResult{}, err
	}
	if existing != nil {
		if err := s.favoriterepo.Delete(ctx, existing.ID.String()); err != nil {
			return issuedomain.ToggleResult{}, err
		}
		return issuedomain.ToggleResult{Added: false}, nil
	}

	favorite := issuedomain.Favorite{
		ID:        s.genID.Generate(),
		IssueID:   issueID,
		UserID:    viewerID,
		CreatedAt: s.clock.Now(),
	}
	if err := s.favoriterepo.Create(ctx, &favorite); err != nil {
		return issuedomain.ToggleResult{}, err
	}
	return issuedomain.ToggleResult{Added: true}, nil
}

func (s *Service) ListFavorites(ctx context.Context, viewerID snowflake.ID, limit int) ([]issuedomain.Issue, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var favorites []issuedomain.Favorite
	err := s.db.WithContext(ctx).
		Where("user_id = ?", viewerID).
		Order("created_at DESC").
		Limit(limit).
		Find(&favorites).Error
	if err != nil {
		return nil, err
	}

	issues := make([]issuedomain.Issue, 0, len(favorites))
	for _, f := range favorites {
		issue, err := s.GetByID(ctx, f.IssueID)
		if err != nil {
			if err == issuedomain.ErrIssueNotFound {
				continue
			}
			return nil, err
		}
		issues = append(issues, issue)
	}
	return issues, nil
}

func (s *Service) ToggleLink(ctx context.Context, viewerID, issueID, otherIssueID snowflake.ID, linkType issuedomain.LinkType) (issuedomain.ToggleResult, error) {
	if !linkType.Valid() {
		return issuedomain.ToggleResult{}, issuedomain.ErrInvalidLinkType
	}
	if issueID == otherIssueID {
		return issuedomain.ToggleResult{}, issuedomain.ErrSelfLink
	}

	if _, err := s.GetByID(ctx, issueID); err != nil {
		return issuedomain.ToggleResult{}, err
	}
	if _, err := s.GetByID(ctx, otherIssueID); err != nil {
		return issuedomain.ToggleResult{}, err
	}

	now := s.clock.Now()

	if linkType == issuedomain.LinkBlockedBy {
		existing, err := s.linkrepo.FindOne(ctx, &issuedomain.Link{IssueID: issueID, OtherIssueID: otherIssueID, Type: linkType})
		if err != nil {
			return issuedomain.ToggleResult{}, err
		}
		if existing != nil {
			if err := s.linkrepo.Delete(ctx, existing.ID.String()); err != nil {
				return issuedomain.ToggleResult{}, err
			}
			return issuedomain.ToggleResult{Added: false}, s.touchIssue(ctx, issueID)
		}

		link := issuedomain.Link{ID: s.genID.Generate(), IssueID: issueID, OtherIssueID: otherIssueID, Type: linkType, CreatedAt: now}
		if err := s.linkrepo.Create(ctx, &link); err != nil {
			return issuedomain.ToggleResult{}, err
		}
		return issuedomain.ToggleResult{Added: true}, s.touchIssue(ctx, issueID)
	}

	// Related links live as one row per direction so either side finding
	// its row means the pair is linked.
	forward, err := s.linkrepo.FindOne(ctx, &issuedomain.Link{IssueID: issueID, OtherIssueID: otherIssueID, Type: linkType})
	if err != nil {
		return issuedomain.ToggleResult{}, err
	}
	backward, err := s.linkrepo.FindOne(ctx, &issuedomain.Link{IssueID: otherIssueID, OtherIssueID: issueID, Type: linkType})
	if err != nil {
		return issuedomain.ToggleResult{}, err
	}

	existed := forward != nil || backward != nil
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if existed {
			return tx.Where(
				"type = ? AND ((issue_id = ? AND other_issue_id = ?) OR (issue_id = ? AND other_issue_id = ?))",
				linkType, issueID, otherIssueID, otherIssueID, issueID,
			).Delete(&issuedomain.Link{}).Error
		}
		rows := []*issuedomain.Link{
			{ID: s.genID.Generate(), IssueID: issueID, OtherIssueID: otherIssueID, Type: linkType, CreatedAt: now},
			{ID: s.genID.Generate(), IssueID: otherIssueID, OtherIssueID: issueID, Type: linkType, CreatedAt: now},
		}
		return s.linkrepo.WithTrx(tx).BatchCreate(ctx, rows)
	})
	if err != nil {
		return issuedomain.ToggleResult{}, err
	}

	if err := s.touchIssue(ctx, issueID); err != nil {
		return issuedomain.ToggleResult{}, err
	}
	if err := s.touchIssue(ctx, otherIssueID); err != nil {
		return issuedomain.ToggleResult{}, err
	}
	return issuedomain.ToggleResult{Added: !existed}, nil
}

func (s *Service) AddComment(ctx context.Context, viewerID, issueID snowflake.ID, req issuedomain.AddCommentRequest) (issuedomain.Comment, error) {
	issue, err := s.GetByID(ctx, issueID)
	if err != nil {
		return issuedomain.Comment{}, err
	}

	var parentComment *issuedomain.Comment
	if req.ParentCommentID != nil {
		parentComment, err = s.commentrepo.FindOne(ctx, &issuedomain.Comment{ID: *req.ParentCommentID})
		if err != nil {
			return issuedomain.Comment{}, err
		}
		if parentComment == nil || parentComment.IssueID != issueID {
			return issuedomain.Comment{}, issuedomain.ErrCommentNotFound
		}
	}

	comment := issuedomain.Comment{
		ID:              s.genID.Generate(),
		IssueID:         issueID,
		ParentCommentID: req.ParentCommentID,
		AuthorID:        viewerID,
		Body:            strings.TrimSpace(req.Body),
		CreatedAt:       s.clock.Now(),
	}
	if err := s.commentrepo.Create(ctx, &comment); err != nil {
		return issuedomain.Comment{}, err
	}
	if err := s.touchIssue(ctx, issueID); err != nil {
		return issuedomain.Comment{}, err
	}

	fanout := notificationdomain.NewFanout(viewerID)

	baseType := notificationdomain.TypeCommentAdded
	baseTitle := "New comment"
	if req.ParentCommentID != nil {
		baseType = notificationdomain.TypeCommentReplied
		baseTitle = "New reply"
	}
	fanout.Add(issue.CreatorID, baseType, baseTitle)

	if parentComment != nil {
		fanout.Add(parentComment.AuthorID, notificationdomain.TypeCommentReplied, "New reply")
	}

	if err := s.addMentionRecipients(ctx, fanout, issue, req.Body); err != nil {
		return issuedomain.Comment{}, err
	}

	body := notificationdomain.TruncateBody(req.Body, notificationdomain.DefaultBodyLength)
	commentID := comment.ID
	if err := s.notifSvc.CreateAll(ctx, fanout.Notifications(issue.ProjectID, &issueID, &commentID, body)); err != nil {
		return issuedomain.Comment{}, err
	}

	return comment, nil
}

// addMentionRecipients resolves @username tokens. Mentioned users must
// exist; when the issue belongs to a project they must also be members.
func (s *Service) addMentionRecipients(ctx context.Context, fanout *notificationdomain.Fanout, issue issuedomain.Issue, body string) error {
	tokens := notificationdomain.ExtractMentions(body)
	if len(tokens) == 0 {
		return nil
	}

	for _, token := range tokens {
		user, err := s.userrepo.FindOne(ctx, &userdomain.User{Username: strings.ToLower(token)})
		if err != nil {
			return err
		}
		if user == nil {
			continue
		}
		if issue.ProjectID != nil {
			ok, err := s.projectSvc.IsMember(ctx, *issue.ProjectID, user.ID)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
		}
		fanout.Add(user.ID, notificationdomain.TypeMentioned, "You were mentioned")
	}
	return nil
}

func (s *Service) ListComments(ctx context.Context, issueID snowflake.ID, parentCommentID *snowflake.ID, limit int) ([]issuedomain.Comment, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}

	query := s.db.WithContext(ctx).
		Where("issue_id = ?", issueID).
		Order("created_at ASC").
		Limit(limit)
	if parentCommentID != nil {
		query = query.Where("parent_comment_id = ?", *parentCommentID)
	} else {
		query = query.Where("parent_comment_id IS NULL")
	}

	var comments []issuedomain.Comment
	if err := query.Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

func (s *Service) ListCommentsFlat(ctx context.Context, issueID snowflake.ID, limit int) ([]issuedomain.Comment, error) {
	if limit <= 0 || limit > 500 {
		limit = 200
	}

	var comments []issuedomain.Comment
	err := s.db.WithContext(ctx).
		Where("issue_id = ?", issueID).
		Order("created_at ASC").
		Limit(limit).
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	return comments, nil
}

func (s *Service) ToggleReaction(ctx context.Context, viewerID, issueID snowflake.ID, req issuedomain.ToggleReactionRequest) (issuedomain.ToggleResult, error) {
	issue, err := s.GetByID(ctx, issueID)
	if err != nil {
		return issuedomain.ToggleResult{}, err
	}

	var comment *issuedomain.Comment
	if req.CommentID != nil {
		comment, err = s.commentrepo.FindOne(ctx, &issuedomain.Comment{ID: *req.CommentID})
		if err != nil {
			return issuedomain.ToggleResult{}, err
		}
		if comment == nil || comment.IssueID != issueID {
			return issuedomain.ToggleResult{}, issuedomain.ErrCommentNotFound
		}
	}

	query := s.db.WithContext(ctx).
		Where("issue_id = ? AND user_id = ? AND emoji = ?", issueID, viewerID, req.Emoji)
	if req.CommentID != nil {
		query = query.Where("comment_id = ?", *req.CommentID)
	} else {
		query = query.Where("comment_id IS NULL")
	}

	var existing issuedomain.Reaction
	err = query.First(&existing).Error
	if err == nil {
		if err := s.reactionrepo.Delete(ctx, existing.ID.String()); err != nil {
			return issuedomain.ToggleResult{}, err
		}
		return issuedomain.ToggleResult{Added: false}, nil
	}
	if err != gorm.ErrRecordNotFound {
		return issuedomain.ToggleResult{}, err
	}

	reaction := issuedomain.Reaction{
		ID:        s.genID.Generate(),
		IssueID:   issueID,
		CommentID: req.CommentID,
		UserID:    viewerID,
		Emoji:     req.Emoji,
		CreatedAt: s.clock.Now(),
	}
	if err := s.reactionrepo.Create(ctx, &reaction); err != nil {
		return issuedomain.ToggleResult{}, err
	}

	fanout := notificationdomain.NewFanout(viewerID)
	if comment != nil {
		fanout.Add(comment.AuthorID, notificationdomain.TypeReactionAdded, "Reaction on your comment")
	} else {
		fanout.Add(issue.CreatorID, notificationdomain.TypeReactionAdded, "Reaction on your issue")
	}
	if err := s.notifSvc.CreateAll(ctx, fanout.Notifications(issue.ProjectID, &issueID, req.CommentID, req.Emoji)); err != nil {
		return issuedomain.ToggleResult{}, err
	}

	return issuedomain.ToggleResult{Added: true}, nil
}

func (s *Service) ListReactions(ctx context.Context, issueID snowflake.ID) ([]issuedomain.Reaction, error) {
	reactions, err := s.reactionrepo.Find(ctx, &issuedomain.Reaction{IssueID: issueID})
	if err != nil {
		return nil, err
	}

	out := make([]issuedomain.Reaction, len(reactions))
	for i, r := range reactions {
		out[i] = *r
	}
	return out, nil
}

func (s *Service) touchIssue(ctx context.Context, issueID snowflake.ID) error {
	return s.db.WithContext(ctx).
		Model(&issuedomain.Issue{}).
		Where("id = ?", issueID).
		Update("last_activity_at", s.clock.Now()).Error
}
