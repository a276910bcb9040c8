package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/thesis-review-api/internal/dto"
	"github.com/noah-isme/thesis-review-api/internal/models"
	"github.com/noah-isme/thesis-review-api/internal/repository"
)

// memDB is an in-memory stand-in for the review schema. It mirrors the repository contracts,
// including the unique keys and the PENDING guards, and rolls back on a failed transaction.
type memDB struct {
	mu    sync.Mutex
	txMu  sync.Mutex
	seq   int
	clock time.Time

	users       map[string]models.User
	topics      map[string]models.Topic
	versions    []models.TopicVersion
	assignments []models.Assignment
	reviews     []models.Review
	comments    []models.FeedbackComment
	files       []models.FeedbackFile
	audits      []models.AuditLog

	fail map[string]error
}

type memSnapshot struct {
	topics      map[string]models.Topic
	versions    []models.TopicVersion
	assignments []models.Assignment
	reviews     []models.Review
}

func newMemDB() *memDB {
	return &memDB{
		clock:  time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		users:  map[string]models.User{},
		topics: map[string]models.Topic{},
		fail:   map[string]error{},
	}
}

func (db *memDB) nextID(prefix string) string {
	db.seq++
	return fmt.Sprintf("%s-%d", prefix, db.seq)
}

func (db *memDB) tick() time.Time {
	db.clock = db.clock.Add(time.Second)
	return db.clock
}

func (db *memDB) failure(op string) error {
	return db.fail[op]
}

func (db *memDB) snapshot() memSnapshot {
	db.mu.Lock()
	defer db.mu.Unlock()
	topics := make(map[string]models.Topic, len(db.topics))
	for k, v := range db.topics {
		topics[k] = v
	}
	return memSnapshot{
		topics:      topics,
		versions:    append([]models.TopicVersion(nil), db.versions...),
		assignments: append([]models.Assignment(nil), db.assignments...),
		reviews:     append([]models.Review(nil), db.reviews...),
	}
}

func (db *memDB) restore(s memSnapshot) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.topics = s.topics
	db.versions = s.versions
	db.assignments = s.assignments
	db.reviews = s.reviews
}

type memTxKey struct{}

type memTx struct {
	db      *memDB
	commits int
}

func (t *memTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}
	t.db.txMu.Lock()
	defer t.db.txMu.Unlock()

	snap := t.db.snapshot()
	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		t.db.restore(snap)
		return err
	}
	t.commits++
	return nil
}

type memTopics struct{ db *memDB }

func (s memTopics) Create(ctx context.Context, topic *models.Topic) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.failure("topics.Create"); err != nil {
		return err
	}
	now := s.db.tick()
	topic.CreatedAt, topic.UpdatedAt = now, now
	s.db.topics[topic.ID] = *topic
	return nil
}

func (s memTopics) FindByID(ctx context.Context, id string) (*models.Topic, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	topic, ok := s.db.topics[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &topic, nil
}

func (s memTopics) LockByID(ctx context.Context, id string) (*models.Topic, error) {
	if ctx.Value(memTxKey{}) == nil {
		return nil, fmt.Errorf("lock topic %s outside a transaction", id)
	}
	return s.FindByID(ctx, id)
}

func (s memTopics) List(ctx context.Context, filter models.TopicFilter) ([]models.Topic, int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.Topic
	for _, t := range s.db.topics {
		if filter.StudentID != "" && t.StudentID != filter.StudentID {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(t.Title), strings.ToLower(filter.Search)) {
			continue
		}
		if filter.EvaluatorID != "" && !s.db.hasEvaluator(t.ID, filter.EvaluatorID) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := len(out)
	start := (filter.Page - 1) * filter.PageSize
	if start >= total {
		return []models.Topic{}, total, nil
	}
	end := start + filter.PageSize
	if end > total {
		end = total
	}
	return out[start:end], total, nil
}

func (db *memDB) hasEvaluator(topicID, evaluatorID string) bool {
	for _, a := range db.assignments {
		if a.TopicID == topicID && a.EvaluatorID == evaluatorID {
			return true
		}
	}
	return false
}

func (s memTopics) UpdateTitle(ctx context.Context, id, title string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	topic, ok := s.db.topics[id]
	if !ok {
		return sql.ErrNoRows
	}
	topic.Title = title
	topic.UpdatedAt = s.db.tick()
	s.db.topics[id] = topic
	return nil
}

func (s memTopics) UpdateStatus(ctx context.Context, id string, status models.TopicStatus, at time.Time) (*time.Time, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.failure("topics.UpdateStatus"); err != nil {
		return nil, err
	}
	topic, ok := s.db.topics[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	topic.Status = status
	if status == models.TopicStatusApproved && topic.ApprovedAt == nil {
		stamp := at
		topic.ApprovedAt = &stamp
	}
	topic.UpdatedAt = at
	s.db.topics[id] = topic
	return topic.ApprovedAt, nil
}

func (s memTopics) Delete(ctx context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.topics[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.db.topics, id)
	versions := s.db.versions[:0]
	for _, v := range s.db.versions {
		if v.TopicID != id {
			versions = append(versions, v)
		}
	}
	s.db.versions = versions
	return nil
}

type memVersions struct{ db *memDB }

func (s memVersions) CreateInitial(ctx context.Context, version *models.TopicVersion) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.failure("versions.CreateInitial"); err != nil {
		return err
	}
	for _, v := range s.db.versions {
		if v.TopicID == version.TopicID {
			return repository.ErrDuplicate
		}
	}
	version.ID = s.db.nextID("version")
	version.VersionNumber = 1
	version.CreatedAt = s.db.tick()
	s.db.versions = append(s.db.versions, *version)
	return nil
}

func (s memVersions) CreateNext(ctx context.Context, version *models.TopicVersion) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.failure("versions.CreateNext"); err != nil {
		return err
	}
	highest := 0
	for _, v := range s.db.versions {
		if v.TopicID == version.TopicID && v.VersionNumber > highest {
			highest = v.VersionNumber
		}
	}
	version.ID = s.db.nextID("version")
	version.VersionNumber = highest + 1
	version.CreatedAt = s.db.tick()
	s.db.versions = append(s.db.versions, *version)
	return nil
}

func (s memVersions) FindByID(ctx context.Context, id string) (*models.TopicVersion, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, v := range s.db.versions {
		if v.ID == id {
			return &v, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s memVersions) FindByNumber(ctx context.Context, topicID string, number int) (*models.TopicVersion, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, v := range s.db.versions {
		if v.TopicID == topicID && v.VersionNumber == number {
			return &v, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s memVersions) ListByTopic(ctx context.Context, topicID string) ([]models.TopicVersion, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []models.TopicVersion{}
	for _, v := range s.db.versions {
		if v.TopicID == topicID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VersionNumber < out[j].VersionNumber })
	return out, nil
}

type memAssignments struct{ db *memDB }

func (s memAssignments) CreateBatch(ctx context.Context, assignments []models.Assignment) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for i := range assignments {
		a := &assignments[i]
		if s.db.hasEvaluator(a.TopicID, a.EvaluatorID) {
			return repository.ErrDuplicate
		}
		a.ID = s.db.nextID("assignment")
		a.CreatedAt = s.db.tick()
		s.db.assignments = append(s.db.assignments, *a)
	}
	return nil
}

func (s memAssignments) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, a := range s.db.assignments {
		if a.ID == id {
			return &a, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s memAssignments) ListByTopic(ctx context.Context, topicID string) ([]models.Assignment, error) {
	return s.filter(func(a models.Assignment) bool { return a.TopicID == topicID }), nil
}

func (s memAssignments) ListByEvaluator(ctx context.Context, evaluatorID string) ([]models.Assignment, error) {
	return s.filter(func(a models.Assignment) bool { return a.EvaluatorID == evaluatorID }), nil
}

func (s memAssignments) CountByTopic(ctx context.Context, topicID string) (int, error) {
	return len(s.filter(func(a models.Assignment) bool { return a.TopicID == topicID })), nil
}

func (s memAssignments) filter(keep func(models.Assignment) bool) []models.Assignment {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []models.Assignment{}
	for _, a := range s.db.assignments {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out
}

type memReviews struct{ db *memDB }

func (s memReviews) CreatePending(ctx context.Context, review *models.Review) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.failure("reviews.CreatePending"); err != nil {
		return err
	}
	for _, r := range s.db.reviews {
		if r.AssignmentID == review.AssignmentID && r.Verdict == models.VerdictPending {
			return repository.ErrPendingReviewOpen
		}
		if r.AssignmentID == review.AssignmentID && r.VersionID == review.VersionID {
			return repository.ErrDuplicate
		}
	}
	review.ID = s.db.nextID("review")
	review.Verdict = models.VerdictPending
	review.Observations = nil
	review.VerdictAt = nil
	review.CreatedAt = s.db.tick()
	s.db.reviews = append(s.db.reviews, *review)
	return nil
}

func (s memReviews) RecordVerdict(ctx context.Context, id string, verdict models.Verdict, observations *string, at time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for i := range s.db.reviews {
		r := &s.db.reviews[i]
		if r.ID != id || r.Verdict != models.VerdictPending {
			continue
		}
		stamp := at
		r.Verdict = verdict
		r.Observations = observations
		r.VerdictAt = &stamp
		return nil
	}
	return repository.ErrVerdictAlreadyIssued
}

func (db *memDB) withVersionNumber(r models.Review) models.Review {
	for _, v := range db.versions {
		if v.ID == r.VersionID {
			r.VersionNumber = v.VersionNumber
		}
	}
	return r
}

func (s memReviews) FindByID(ctx context.Context, id string) (*models.Review, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, r := range s.db.reviews {
		if r.ID == id {
			out := s.db.withVersionNumber(r)
			return &out, nil
		}
	}
	return nil, sql.ErrNoRows
}

// history returns an assignment's reviews newest first, ordered like the repository query.
func (db *memDB) history(assignmentID string) []models.Review {
	out := []models.Review{}
	for _, r := range db.reviews {
		if r.AssignmentID == assignmentID {
			out = append(out, db.withVersionNumber(r))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].VersionNumber != out[j].VersionNumber {
			return out[i].VersionNumber > out[j].VersionNumber
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s memReviews) LatestByAssignment(ctx context.Context, assignmentID string) (*models.Review, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	history := s.db.history(assignmentID)
	if len(history) == 0 {
		return nil, sql.ErrNoRows
	}
	return &history[0], nil
}

func (s memReviews) ListByAssignment(ctx context.Context, assignmentID string) ([]models.Review, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.db.history(assignmentID), nil
}

func (s memReviews) LatestByTopic(ctx context.Context, topicID string) ([]models.LatestVerdict, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []models.LatestVerdict{}
	for _, a := range s.db.assignments {
		if a.TopicID != topicID {
			continue
		}
		lv := models.LatestVerdict{AssignmentID: a.ID, EvaluatorID: a.EvaluatorID}
		if history := s.db.history(a.ID); len(history) > 0 {
			r := history[0]
			lv.ReviewID, lv.VersionID, lv.VersionNumber, lv.Verdict = &r.ID, &r.VersionID, &r.VersionNumber, &r.Verdict
		}
		out = append(out, lv)
	}
	return out, nil
}

type memUsers struct{ db *memDB }

func (s memUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &u, nil
}

func (s memUsers) FindByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []models.User{}
	for _, id := range ids {
		if u, ok := s.db.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

type memFeedback struct{ db *memDB }

func (s memFeedback) CreateComment(ctx context.Context, comment *models.FeedbackComment) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	comment.ID = s.db.nextID("comment")
	comment.CreatedAt = s.db.tick()
	s.db.comments = append(s.db.comments, *comment)
	return nil
}

func (s memFeedback) CreateFile(ctx context.Context, file *models.FeedbackFile) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.failure("feedback.CreateFile"); err != nil {
		return err
	}
	file.ID = s.db.nextID("file")
	file.CreatedAt = s.db.tick()
	s.db.files = append(s.db.files, *file)
	return nil
}

func (s memFeedback) ListByAssignment(ctx context.Context, assignmentID string) (*models.AssignmentFeedback, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := &models.AssignmentFeedback{Comments: []models.FeedbackComment{}, Files: []models.FeedbackFile{}}
	for i := len(s.db.comments) - 1; i >= 0; i-- {
		if s.db.comments[i].AssignmentID == assignmentID {
			out.Comments = append(out.Comments, s.db.comments[i])
		}
	}
	for i := len(s.db.files) - 1; i >= 0; i-- {
		if s.db.files[i].AssignmentID == assignmentID {
			out.Files = append(out.Files, s.db.files[i])
		}
	}
	return out, nil
}

type memAudit struct{ db *memDB }

func (s memAudit) Create(ctx context.Context, log *models.AuditLog) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.audits = append(s.db.audits, *log)
	return nil
}

// memDocuments records stored and discarded references instead of touching a filesystem.
type memDocuments struct {
	mu        sync.Mutex
	stored    []string
	discarded []string
	storeErr  error
}

func (d *memDocuments) Store(ctx context.Context, kind, ownerID string, upload dto.DocumentUpload) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.storeErr != nil {
		return "", d.storeErr
	}
	ref := fmt.Sprintf("%s/%s/%d-%s", kind, ownerID, len(d.stored)+1, upload.Filename)
	d.stored = append(d.stored, ref)
	return ref, nil
}

func (d *memDocuments) Discard(ctx context.Context, ref string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.discarded = append(d.discarded, ref)
}

func (d *memDocuments) SignDownload(ownerID, ref string) (*dto.DownloadURLResponse, error) {
	return &dto.DownloadURLResponse{URL: "/files/download?token=" + ownerID + ":" + ref, Token: ownerID + ":" + ref}, nil
}

var (
	director    = models.Actor{ID: "director-1", Role: models.RoleDirector}
	secretary   = models.Actor{ID: "secretary-1", Role: models.RoleSecretario}
	student     = models.Actor{ID: "student-1", Role: models.RoleEstudiante}
	otherPupil  = models.Actor{ID: "student-2", Role: models.RoleEstudiante}
	evaluator1  = models.Actor{ID: "tribunal-1", Role: models.RoleTribunal}
	evaluator2  = models.Actor{ID: "tribunal-2", Role: models.RoleTribunal}
	evaluator3  = models.Actor{ID: "tribunal-3", Role: models.RoleTribunal}
	outsider    = models.Actor{ID: "tribunal-4", Role: models.RoleTribunal}
	panelActors = []models.Actor{evaluator1, evaluator2, evaluator3}
)

// workflow wires every review service over one memDB.
type workflow struct {
	db          *memDB
	tx          *memTx
	docs        *memDocuments
	metrics     *MetricsService
	engine      *AggregationEngine
	topics      *TopicService
	assignments *AssignmentService
	versions    *VersionService
	reviews     *ReviewService
	feedback    *FeedbackService
}

func newWorkflow(t *testing.T) *workflow {
	t.Helper()
	db := newMemDB()
	for _, u := range []models.User{
		{ID: student.ID, Role: models.RoleEstudiante, Active: true},
		{ID: otherPupil.ID, Role: models.RoleEstudiante, Active: true},
		{ID: evaluator1.ID, Role: models.RoleTribunal, Active: true},
		{ID: evaluator2.ID, Role: models.RoleTribunal, Active: true},
		{ID: evaluator3.ID, Role: models.RoleTribunal, Active: true},
		{ID: outsider.ID, Role: models.RoleTribunal, Active: true},
		{ID: "tribunal-retired", Role: models.RoleTribunal, Active: false},
		{ID: director.ID, Role: models.RoleDirector, Active: true},
	} {
		db.users[u.ID] = u
	}

	tx := &memTx{db: db}
	topics, versions, assignments, reviews := memTopics{db}, memVersions{db}, memAssignments{db}, memReviews{db}
	users := memUsers{db}
	docs := &memDocuments{}
	metrics := NewMetricsService()
	audit := NewAuditService(memAudit{db}, nil)

	engine := NewAggregationEngine(tx, topics, reviews, metrics, nil)
	engine.now = func() time.Time {
		db.mu.Lock()
		defer db.mu.Unlock()
		return db.tick()
	}
	reviewSvc := NewReviewService(tx, topics, assignments, reviews, engine, nil, audit, metrics, nil, nil)
	reviewSvc.now = engine.now

	return &workflow{
		db:          db,
		tx:          tx,
		docs:        docs,
		metrics:     metrics,
		engine:      engine,
		topics:      NewTopicService(tx, topics, versions, assignments, reviews, users, docs, nil, audit, nil, nil),
		assignments: NewAssignmentService(tx, topics, versions, assignments, reviews, users, engine, nil, audit, nil, nil),
		versions:    NewVersionService(tx, topics, versions, assignments, reviews, docs, engine, nil, audit, metrics, nil, nil),
		reviews:     reviewSvc,
		feedback:    NewFeedbackService(topics, assignments, memFeedback{db}, docs, audit, nil, nil),
	}
}

func pdfUpload(name string) dto.DocumentUpload {
	return dto.DocumentUpload{Filename: name, Size: 4, Content: strings.NewReader("%PDF")}
}

func (w *workflow) createTopic(t *testing.T) string {
	t.Helper()
	detail, err := w.topics.Create(context.Background(), director, dto.CreateTopicRequest{Title: "Graph partitioning for sparse solvers", StudentID: student.ID}, pdfUpload("v1.pdf"))
	require.NoError(t, err)
	return detail.ID
}

// assignPanel seats evaluators 1..3 and returns their assignments in that order.
func (w *workflow) assignPanel(t *testing.T, topicID string) []models.AssignmentDetail {
	t.Helper()
	details, err := w.assignments.AssignEvaluators(context.Background(), director, topicID, dto.AssignEvaluatorsRequest{
		EvaluatorIDs: []string{evaluator1.ID, evaluator2.ID, evaluator3.ID},
	})
	require.NoError(t, err)
	require.Len(t, details, models.EvaluatorsPerTopic)
	return details
}

func (w *workflow) latestReviewID(t *testing.T, assignmentID string) string {
	t.Helper()
	review, err := memReviews{w.db}.LatestByAssignment(context.Background(), assignmentID)
	require.NoError(t, err)
	return review.ID
}

func (w *workflow) verdict(t *testing.T, actor models.Actor, assignmentID string, verdict models.Verdict) *VerdictResult {
	t.Helper()
	result, err := w.reviews.RecordVerdict(context.Background(), actor, w.latestReviewID(t, assignmentID), dto.RecordVerdictRequest{Verdict: string(verdict)})
	require.NoError(t, err)
	return result
}

func (w *workflow) topic(t *testing.T, id string) models.Topic {
	t.Helper()
	topic, err := memTopics{w.db}.FindByID(context.Background(), id)
	require.NoError(t, err)
	return *topic
}

func (w *workflow) reviewsOf(assignmentID string) []models.Review {
	w.db.mu.Lock()
	defer w.db.mu.Unlock()
	return w.db.history(assignmentID)
}

func (w *workflow) assignmentCount(topicID string) int {
	w.db.mu.Lock()
	defer w.db.mu.Unlock()
	n := 0
	for _, a := range w.db.assignments {
		if a.TopicID == topicID {
			n++
		}
	}
	return n
}
