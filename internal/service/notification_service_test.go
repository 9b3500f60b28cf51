package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/deptshare-api/internal/models"
	appErrors "github.com/noah-isme/deptshare-api/pkg/errors"
	"github.com/noah-isme/deptshare-api/pkg/jobs"
	"github.com/noah-isme/deptshare-api/pkg/mail"
)

type notificationRepoStub struct {
	items []models.Notification
}

func (r *notificationRepoStub) Create(ctx context.Context, n *models.Notification) error {
	n.ID = "n-" + n.UserID
	r.items = append(r.items, *n)
	return nil
}

func (r *notificationRepoStub) ListUnread(ctx context.Context, userID string) ([]models.Notification, error) {
	out := []models.Notification{}
	for _, n := range r.items {
		if n.UserID == userID && !n.IsRead {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *notificationRepoStub) MarkRead(ctx context.Context, id, userID string) (bool, error) {
	for i := range r.items {
		if r.items[i].ID == id && r.items[i].UserID == userID {
			r.items[i].IsRead = true
			return true, nil
		}
	}
	return false, nil
}

type userLookupStub map[string]*models.User

func (u userLookupStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := u[strings.ToLower(email)]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

type queueStub struct {
	jobs []jobs.Job
	err  error
}

func (q *queueStub) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

type senderStub struct {
	sent []mail.Message
	err  error
}

func (s *senderStub) Send(ctx context.Context, msg mail.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

type staffStub []string

func (s staffStub) ListStaffEmails(ctx context.Context) ([]string, error) { return s, nil }

func shareNotice(link models.ShareLink) ShareNotice {
	return ShareNotice{
		Link:       link,
		ItemKind:   "File",
		ItemName:   "syllabus.pdf",
		Department: "Computer Science",
		Session:    "2025 Spring",
		SharedBy:   "faculty",
		URL:        "https://portal.example.edu/share/tok",
	}
}

func TestShareCreatedQueuesMailAndInbox(t *testing.T) {
	repo := &notificationRepoStub{}
	queue := &queueStub{}
	users := userLookupStub{"s@example.edu": {ID: "s", Email: "s@example.edu"}}
	svc := NewNotificationService(repo, users, queue, nil, nil)

	expires := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	notice := shareNotice(models.ShareLink{
		ID:           "l1",
		Target:       models.FileTarget("file-1"),
		ShareType:    models.ShareTypeEmail,
		Email:        strPtr("s@example.edu"),
		MaxDownloads: intPtr(3),
		ExpiresAt:    &expires,
	})
	svc.ShareCreated(context.Background(), notice)

	require.Len(t, queue.jobs, 1)
	assert.Equal(t, JobTypeShareMail, queue.jobs[0].Type)
	msg := queue.jobs[0].Payload.(mail.Message)
	assert.Equal(t, []string{"s@example.edu"}, msg.To)
	assert.Contains(t, msg.Text, "Downloads allowed: 3")
	assert.Contains(t, msg.HTML, "https://portal.example.edu/share/tok")

	require.Len(t, repo.items, 1)
	assert.Equal(t, models.NotificationFileShared, repo.items[0].Type)
	require.NotNil(t, repo.items[0].RelatedFileID)
	assert.Equal(t, "file-1", *repo.items[0].RelatedFileID)
}

func TestShareCreatedPublicAndUnknownRecipient(t *testing.T) {
	repo := &notificationRepoStub{}
	queue := &queueStub{}
	svc := NewNotificationService(repo, userLookupStub{}, queue, nil, nil)

	svc.ShareCreated(context.Background(), shareNotice(models.ShareLink{ID: "l1", Target: models.FolderTarget("notes"), ShareType: models.ShareTypePublic}))
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, JobTypePublicShareMail, queue.jobs[0].Type)
	assert.Empty(t, queue.jobs[0].Payload.(mail.Message).To)

	svc.ShareCreated(context.Background(), shareNotice(models.ShareLink{ID: "l2", ShareType: models.ShareTypeEmail, Email: strPtr("outside@example.com")}))
	assert.Len(t, queue.jobs, 2)
	assert.Empty(t, repo.items)

	queue.jobs = nil
	svc.ShareCreated(context.Background(), shareNotice(models.ShareLink{ID: "l3", Target: models.FileTarget("file"), ShareType: models.ShareTypePublic, Email: strPtr("someone@example.com")}))
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, JobTypePublicShareMail, queue.jobs[0].Type)
	assert.Empty(t, repo.items)

	failing := NewNotificationService(repo, nil, &queueStub{err: errors.New("queue full")}, nil, nil)
	failing.ShareCreated(context.Background(), shareNotice(models.ShareLink{ShareType: models.ShareTypePublic}))
}

func TestNotificationInbox(t *testing.T) {
	repo := &notificationRepoStub{items: []models.Notification{{ID: "n1", UserID: "s"}, {ID: "n2", UserID: "f"}}}
	svc := NewNotificationService(repo, nil, nil, nil, nil)
	ctx := context.Background()

	items, err := svc.ListUnread(ctx, studentActor)
	require.NoError(t, err)
	require.Len(t, items, 1)

	assert.True(t, errors.Is(svc.MarkRead(ctx, studentActor, "n2"), appErrors.ErrNotFound))
	require.NoError(t, svc.MarkRead(ctx, studentActor, "n1"))
	items, err = svc.ListUnread(ctx, studentActor)
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = svc.ListUnread(ctx, nil)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}

func TestMailWorkerHandle(t *testing.T) {
	sender := &senderStub{}
	worker := NewMailWorker(sender, staffStub{"staff@example.edu"}, nil, nil)
	ctx := context.Background()

	require.NoError(t, worker.Handle(ctx, jobs.Job{Type: JobTypeShareMail, Payload: mail.Message{To: []string{"s@example.edu"}, Subject: "hi"}}))
	require.NoError(t, worker.Handle(ctx, jobs.Job{Type: JobTypePublicShareMail, Payload: mail.Message{Subject: "public"}}))
	require.NoError(t, worker.Handle(ctx, jobs.Job{Type: JobTypeShareMail, Payload: "not a message"}))

	require.Len(t, sender.sent, 2)
	assert.Equal(t, []string{"staff@example.edu"}, sender.sent[1].To)

	sender.err = errors.New("relay down")
	assert.Error(t, worker.Handle(ctx, jobs.Job{Type: JobTypeShareMail, Payload: mail.Message{To: []string{"x@example.edu"}}}))

	quiet := NewMailWorker(sender, staffStub{}, nil, nil)
	require.NoError(t, quiet.Handle(ctx, jobs.Job{Type: JobTypePublicShareMail, Payload: mail.Message{}}))
}
