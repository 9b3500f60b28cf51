package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/deptshare-api/internal/models"
	appErrors "github.com/noah-isme/deptshare-api/pkg/errors"
	"github.com/noah-isme/deptshare-api/pkg/jobs"
	"github.com/noah-isme/deptshare-api/pkg/mail"
)

// Mail job types handled by MailWorker.
const (
	JobTypeShareMail       = "mail.share"
	JobTypePublicShareMail = "mail.public_share"
)

type notificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListUnread(ctx context.Context, userID string) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID string) (bool, error)
}

type userEmailLookup interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type staffEmailLister interface {
	ListStaffEmails(ctx context.Context) ([]string, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// NotificationService keeps user inboxes and queues share notification mail.
type NotificationService struct {
	repo    notificationRepository
	users   userEmailLookup
	queue   jobEnqueuer
	metrics *MetricsService
	logger  *zap.Logger
}

// NewNotificationService constructs the service. A nil queue disables mail.
func NewNotificationService(repo notificationRepository, users userEmailLookup, queue jobEnqueuer, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{repo: repo, users: users, queue: queue, metrics: metrics, logger: logger}
}

// ShareCreated reacts to a new share link. Email and password links notify their recipient by
// mail and, when the address belongs to an account, in the inbox. Public links notify staff by
// mail only, even when an address was supplied.
// Failures are logged; link creation never fails because of them.
func (s *NotificationService) ShareCreated(ctx context.Context, notice ShareNotice) {
	link := notice.Link
	recipient := link.ShareType == models.ShareTypeEmail || link.ShareType == models.ShareTypePassword
	if recipient && link.Email != nil && *link.Email != "" {
		s.enqueue(JobTypeShareMail, shareMessage(notice, *link.Email), link.ID)
		s.notifyAccount(ctx, *link.Email, notice)
	}
	if link.ShareType == models.ShareTypePublic {
		s.enqueue(JobTypePublicShareMail, publicShareMessage(notice), link.ID)
	}
}

// ListUnread returns the actor's unread notifications, newest first.
func (s *NotificationService) ListUnread(ctx context.Context, actor *models.Actor) ([]models.Notification, error) {
	if !actor.Authenticated() {
		return nil, appErrors.ErrUnauthorized
	}
	items, err := s.repo.ListUnread(ctx, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	return items, nil
}

// MarkRead marks one of the actor's notifications read.
func (s *NotificationService) MarkRead(ctx context.Context, actor *models.Actor, id string) error {
	if !actor.Authenticated() {
		return appErrors.ErrUnauthorized
	}
	updated, err := s.repo.MarkRead(ctx, id, actor.UserID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update notification")
	}
	if !updated {
		return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	}
	return nil
}

func (s *NotificationService) notifyAccount(ctx context.Context, email string, notice ShareNotice) {
	if s.users == nil || s.repo == nil {
		return
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("failed to look up share recipient", zap.Error(err))
		}
		return
	}
	n := &models.Notification{
		UserID:  user.ID,
		Type:    models.NotificationFileShared,
		Title:   fmt.Sprintf("%s shared with you", notice.ItemKind),
		Message: fmt.Sprintf("%s shared %q with you: %s", notice.SharedBy, notice.ItemName, notice.URL),
	}
	if notice.Link.Target.IsFile() {
		fileID := notice.Link.Target.ID
		n.RelatedFileID = &fileID
	}
	if err := s.repo.Create(ctx, n); err != nil {
		s.logger.Warn("failed to create share notification", zap.String("user_id", user.ID), zap.Error(err))
	}
}

func (s *NotificationService) enqueue(jobType string, msg mail.Message, linkID string) {
	if s.queue == nil {
		return
	}
	if err := s.queue.Enqueue(jobs.Job{Type: jobType, Payload: msg}); err != nil {
		s.metrics.RecordMailJob("dropped")
		s.logger.Warn("failed to queue share mail", zap.String("type", jobType), zap.String("link_id", linkID), zap.Error(err))
		return
	}
	s.metrics.RecordMailJob("queued")
}

var shareMailHTML = template.Must(template.New("share").Parse(`<p>{{.SharedBy}} shared the {{.Kind}} <strong>{{.Name}}</strong> with you.</p>
<p>Department: {{.Department}}<br>Session: {{.Session}}</p>
{{if .Password}}<p>Password: <code>{{.Password}}</code></p>{{end}}
{{if .MaxDownloads}}<p>Downloads allowed: {{.MaxDownloads}}</p>{{end}}
{{if .Expires}}<p>Expires: {{.Expires}}</p>{{end}}
<p><a href="{{.URL}}">Open the shared {{.Kind}}</a></p>`))

type shareMailData struct {
	SharedBy     string
	Kind         string
	Name         string
	Department   string
	Session      string
	Password     string
	MaxDownloads int
	Expires      string
	URL          string
}

func shareMessage(notice ShareNotice, to string) mail.Message {
	data := shareMailData{
		SharedBy:   notice.SharedBy,
		Kind:       strings.ToLower(notice.ItemKind),
		Name:       notice.ItemName,
		Department: notice.Department,
		Session:    notice.Session,
		Password:   notice.Password,
		URL:        notice.URL,
	}
	if notice.Link.MaxDownloads != nil {
		data.MaxDownloads = *notice.Link.MaxDownloads
	}
	if notice.Link.ExpiresAt != nil {
		data.Expires = notice.Link.ExpiresAt.Format(time.RFC1123)
	}

	var text strings.Builder
	fmt.Fprintf(&text, "%s shared the %s %q with you.\n\nDepartment: %s\nSession: %s\n", data.SharedBy, data.Kind, data.Name, data.Department, data.Session)
	if data.Password != "" {
		fmt.Fprintf(&text, "Password: %s\n", data.Password)
	}
	if data.MaxDownloads > 0 {
		fmt.Fprintf(&text, "Downloads allowed: %d\n", data.MaxDownloads)
	}
	if data.Expires != "" {
		fmt.Fprintf(&text, "Expires: %s\n", data.Expires)
	}
	fmt.Fprintf(&text, "\nOpen it here: %s\n", data.URL)

	var html bytes.Buffer
	if err := shareMailHTML.Execute(&html, data); err != nil {
		html.Reset()
	}
	return mail.Message{
		To:      []string{to},
		Subject: fmt.Sprintf("%s shared: %s", notice.ItemKind, notice.ItemName),
		Text:    text.String(),
		HTML:    html.String(),
	}
}

func publicShareMessage(notice ShareNotice) mail.Message {
	text := fmt.Sprintf("A new public %s has been shared.\n\n%s: %s\nDepartment: %s\nSession: %s\nShared by: %s\n\nAccess URL: %s\n",
		strings.ToLower(notice.ItemKind), notice.ItemKind, notice.ItemName, notice.Department, notice.Session, notice.SharedBy, notice.URL)
	return mail.Message{
		Subject: fmt.Sprintf("New public %s: %s", strings.ToLower(notice.ItemKind), notice.ItemName),
		Text:    text,
	}
}

// MailWorker delivers queued mail jobs.
type MailWorker struct {
	sender  mail.Sender
	staff   staffEmailLister
	metrics *MetricsService
	logger  *zap.Logger
}

// NewMailWorker constructs a worker.
func NewMailWorker(sender mail.Sender, staff staffEmailLister, metrics *MetricsService, logger *zap.Logger) *MailWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MailWorker{sender: sender, staff: staff, metrics: metrics, logger: logger}
}

// Register binds the worker to its job types on q.
func (w *MailWorker) Register(q *jobs.Queue) {
	q.Register(JobTypeShareMail, w.Handle)
	q.Register(JobTypePublicShareMail, w.Handle)
}

// Handle sends one mail job. Public share jobs go to every active staff address.
func (w *MailWorker) Handle(ctx context.Context, job jobs.Job) error {
	msg, ok := job.Payload.(mail.Message)
	if !ok {
		w.metrics.RecordMailJob("invalid")
		w.logger.Error("unexpected mail payload", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}
	if job.Type == JobTypePublicShareMail {
		if w.staff == nil {
			return nil
		}
		emails, err := w.staff.ListStaffEmails(ctx)
		if err != nil {
			return err
		}
		if len(emails) == 0 {
			return nil
		}
		msg.To = emails
	}
	if err := w.sender.Send(ctx, msg); err != nil {
		w.metrics.RecordMailJob("failed")
		return err
	}
	w.metrics.RecordMailJob("sent")
	return nil
}
