package services

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/campuspulse/campuspulse-backend/internal/logger"
	"github.com/campuspulse/campuspulse-backend/internal/requestdata"
	"github.com/campuspulse/campuspulse-backend/internal/types"
)

// In-memory repo fakes. They ignore the tx argument and emulate the store's
// unique indexes by returning postgres unique-violation errors.

func uniqueViolation() error {
	return &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(func() { l.Sync() })
	return l
}

// dummyTx keeps services on their caller-supplied-transaction path so the
// fakes never see a real database handle.
func dummyTx() *gorm.DB { return &gorm.DB{} }

func claimsContext(role string, userID, filiereID uuid.UUID) context.Context {
	return requestdata.WithRequestData(context.Background(), &requestdata.RequestData{
		UserID:    userID,
		Role:      role,
		FiliereID: filiereID,
	})
}

type fakeTemplateRepo struct {
	rows map[uuid.UUID]*types.Template
}

func newFakeTemplateRepo() *fakeTemplateRepo {
	return &fakeTemplateRepo{rows: map[uuid.UUID]*types.Template{}}
}

func (f *fakeTemplateRepo) Create(ctx context.Context, tx *gorm.DB, templates []*types.Template) ([]*types.Template, error) {
	for _, t := range templates {
		for _, existing := range f.rows {
			if existing.Code == t.Code && existing.Version == t.Version {
				return nil, uniqueViolation()
			}
		}
		if t.ID == uuid.Nil {
			t.ID = uuid.New()
		}
		cp := *t
		f.rows[t.ID] = &cp
	}
	return templates, nil
}

func (f *fakeTemplateRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Template, error) {
	var out []*types.Template
	for _, id := range ids {
		if row, ok := f.rows[id]; ok {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeTemplateRepo) GetByCodes(ctx context.Context, tx *gorm.DB, codes []string) ([]*types.Template, error) {
	var out []*types.Template
	for _, code := range codes {
		for _, row := range f.rows {
			if row.Code == code {
				cp := *row
				out = append(out, &cp)
			}
		}
	}
	return out, nil
}

func (f *fakeTemplateRepo) GetByCodeAndVersion(ctx context.Context, tx *gorm.DB, code string, version int) (*types.Template, error) {
	for _, row := range f.rows {
		if row.Code == code && row.Version == version {
			cp := *row
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeTemplateRepo) GetAll(ctx context.Context, tx *gorm.DB) ([]*types.Template, error) {
	var out []*types.Template
	for _, row := range f.rows {
		cp := *row
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeTemplateRepo) Update(ctx context.Context, tx *gorm.DB, row *types.Template) error {
	cp := *row
	f.rows[row.ID] = &cp
	return nil
}

func (f *fakeTemplateRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
	for _, id := range ids {
		delete(f.rows, id)
	}
	return nil
}

type fakeSectionRepo struct {
	rows map[uuid.UUID]*types.Section
}

func newFakeSectionRepo() *fakeSectionRepo {
	return &fakeSectionRepo{rows: map[uuid.UUID]*types.Section{}}
}

func (f *fakeSectionRepo) Create(ctx context.Context, tx *gorm.DB, sections []*types.Section) ([]*types.Section, error) {
	for _, s := range sections {
		for _, existing := range f.rows {
			if existing.TemplateID == s.TemplateID && existing.DisplayOrder == s.DisplayOrder {
				return nil, uniqueViolation()
			}
		}
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
		cp := *s
		f.rows[s.ID] = &cp
	}
	return sections, nil
}

func (f *fakeSectionRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Section, error) {
	var out []*types.Section
	for _, id := range ids {
		if row, ok := f.rows[id]; ok {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeSectionRepo) GetByTemplateIDs(ctx context.Context, tx *gorm.DB, templateIDs []uuid.UUID) ([]*types.Section, error) {
	var out []*types.Section
	for _, tid := range templateIDs {
		for _, row := range f.rows {
			if row.TemplateID == tid {
				cp := *row
				out = append(out, &cp)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out, nil
}

func (f *fakeSectionRepo) Update(ctx context.Context, tx *gorm.DB, row *types.Section) error {
	cp := *row
	f.rows[row.ID] = &cp
	return nil
}

func (f *fakeSectionRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
	for _, id := range ids {
		delete(f.rows, id)
	}
	return nil
}

func (f *fakeSectionRepo) FullDeleteByTemplateIDs(ctx context.Context, tx *gorm.DB, templateIDs []uuid.UUID) error {
	for _, tid := range templateIDs {
		for id, row := range f.rows {
			if row.TemplateID == tid {
				delete(f.rows, id)
			}
		}
	}
	return nil
}

type fakeQuestionRepo struct {
	rows map[uuid.UUID]*types.Question
}

func newFakeQuestionRepo() *fakeQuestionRepo {
	return &fakeQuestionRepo{rows: map[uuid.UUID]*types.Question{}}
}

func (f *fakeQuestionRepo) Create(ctx context.Context, tx *gorm.DB, questions []*types.Question) ([]*types.Question, error) {
	for _, q := range questions {
		if q.ID == uuid.Nil {
			q.ID = uuid.New()
		}
		cp := *q
		f.rows[q.ID] = &cp
	}
	return questions, nil
}

func (f *fakeQuestionRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Question, error) {
	var out []*types.Question
	for _, id := range ids {
		if row, ok := f.rows[id]; ok {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeQuestionRepo) GetBySectionIDs(ctx context.Context, tx *gorm.DB, sectionIDs []uuid.UUID) ([]*types.Question, error) {
	var out []*types.Question
	for _, sid := range sectionIDs {
		for _, row := range f.rows {
			if row.SectionID == sid {
				cp := *row
				out = append(out, &cp)
			}
		}
	}
	return out, nil
}

func (f *fakeQuestionRepo) Update(ctx context.Context, tx *gorm.DB, row *types.Question) error {
	cp := *row
	f.rows[row.ID] = &cp
	return nil
}

func (f *fakeQuestionRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
	for _, id := range ids {
		delete(f.rows, id)
	}
	return nil
}

func (f *fakeQuestionRepo) FullDeleteBySectionIDs(ctx context.Context, tx *gorm.DB, sectionIDs []uuid.UUID) error {
	for _, sid := range sectionIDs {
		for id, row := range f.rows {
			if row.SectionID == sid {
				delete(f.rows, id)
			}
		}
	}
	return nil
}

type fakePublicationRepo struct {
	rows map[uuid.UUID]*types.Publication
}

func newFakePublicationRepo() *fakePublicationRepo {
	return &fakePublicationRepo{rows: map[uuid.UUID]*types.Publication{}}
}

func (f *fakePublicationRepo) Create(ctx context.Context, tx *gorm.DB, publications []*types.Publication) ([]*types.Publication, error) {
	for _, p := range publications {
		for _, existing := range f.rows {
			if existing.TemplateCode == p.TemplateCode && existing.Version == p.Version {
				return nil, uniqueViolation()
			}
		}
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		cp := *p
		f.rows[p.ID] = &cp
	}
	return publications, nil
}

func (f *fakePublicationRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Publication, error) {
	var out []*types.Publication
	for _, id := range ids {
		if row, ok := f.rows[id]; ok {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakePublicationRepo) GetAll(ctx context.Context, tx *gorm.DB) ([]*types.Publication, error) {
	var out []*types.Publication
	for _, row := range f.rows {
		cp := *row
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakePublicationRepo) GetOpenAt(ctx context.Context, tx *gorm.DB, now time.Time) ([]*types.Publication, error) {
	var out []*types.Publication
	for _, row := range f.rows {
		if row.IsOpenAt(now) {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakePublicationRepo) GetLatestOpenByCode(ctx context.Context, tx *gorm.DB, code string, now time.Time) (*types.Publication, error) {
	var best *types.Publication
	for _, row := range f.rows {
		if row.TemplateCode != code || !row.IsOpenAt(now) {
			continue
		}
		if best == nil || row.Version > best.Version {
			cp := *row
			best = &cp
		}
	}
	if best == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return best, nil
}

func (f *fakePublicationRepo) GetByCodes(ctx context.Context, tx *gorm.DB, codes []string) ([]*types.Publication, error) {
	var out []*types.Publication
	for _, code := range codes {
		for _, row := range f.rows {
			if row.TemplateCode == code {
				cp := *row
				out = append(out, &cp)
			}
		}
	}
	return out, nil
}

func (f *fakePublicationRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
	for _, id := range ids {
		delete(f.rows, id)
	}
	return nil
}

type fakeSubmissionRepo struct {
	rows map[uuid.UUID]*types.Submission
	// raceWinner simulates losing the first-answer insert race: the row
	// appears between the caller's read and its insert, so the insert's
	// on-conflict clause turns it into a no-op.
	raceWinner *types.Submission
}

func newFakeSubmissionRepo() *fakeSubmissionRepo {
	return &fakeSubmissionRepo{rows: map[uuid.UUID]*types.Submission{}}
}

func (f *fakeSubmissionRepo) Create(ctx context.Context, tx *gorm.DB, submissions []*types.Submission) ([]*types.Submission, error) {
	for _, s := range submissions {
		for _, existing := range f.rows {
			if existing.PublicationID == s.PublicationID && existing.UserID == s.UserID {
				return nil, uniqueViolation()
			}
		}
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
		cp := *s
		f.rows[s.ID] = &cp
	}
	return submissions, nil
}

func (f *fakeSubmissionRepo) CreateIfAbsent(ctx context.Context, tx *gorm.DB, row *types.Submission) error {
	if f.raceWinner != nil {
		winner := f.raceWinner
		f.raceWinner = nil
		cp := *winner
		f.rows[winner.ID] = &cp
	}
	for _, existing := range f.rows {
		if existing.PublicationID == row.PublicationID && existing.UserID == row.UserID {
			return nil
		}
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	cp := *row
	f.rows[row.ID] = &cp
	return nil
}

func (f *fakeSubmissionRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Submission, error) {
	var out []*types.Submission
	for _, id := range ids {
		if row, ok := f.rows[id]; ok {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeSubmissionRepo) GetByPublicationIDs(ctx context.Context, tx *gorm.DB, publicationIDs []uuid.UUID) ([]*types.Submission, error) {
	var out []*types.Submission
	for _, pid := range publicationIDs {
		for _, row := range f.rows {
			if row.PublicationID == pid {
				cp := *row
				out = append(out, &cp)
			}
		}
	}
	return out, nil
}

func (f *fakeSubmissionRepo) GetByPublicationAndUser(ctx context.Context, tx *gorm.DB, publicationID, userID uuid.UUID) (*types.Submission, error) {
	for _, row := range f.rows {
		if row.PublicationID == publicationID && row.UserID == userID {
			cp := *row
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeSubmissionRepo) Update(ctx context.Context, tx *gorm.DB, row *types.Submission) error {
	cp := *row
	f.rows[row.ID] = &cp
	return nil
}

func (f *fakeSubmissionRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
	for _, id := range ids {
		delete(f.rows, id)
	}
	return nil
}

type answerKey struct {
	submissionID uuid.UUID
	questionID   uuid.UUID
}

type fakeSubmissionAnswerRepo struct {
	rows map[answerKey]*types.SubmissionAnswer
}

func newFakeSubmissionAnswerRepo() *fakeSubmissionAnswerRepo {
	return &fakeSubmissionAnswerRepo{rows: map[answerKey]*types.SubmissionAnswer{}}
}

func (f *fakeSubmissionAnswerRepo) GetBySubmissionIDs(ctx context.Context, tx *gorm.DB, submissionIDs []uuid.UUID) ([]*types.SubmissionAnswer, error) {
	var out []*types.SubmissionAnswer
	for _, sid := range submissionIDs {
		for key, row := range f.rows {
			if key.submissionID == sid {
				cp := *row
				out = append(out, &cp)
			}
		}
	}
	return out, nil
}

func (f *fakeSubmissionAnswerRepo) GetBySubmissionAndQuestion(ctx context.Context, tx *gorm.DB, submissionID, questionID uuid.UUID) (*types.SubmissionAnswer, error) {
	if row, ok := f.rows[answerKey{submissionID, questionID}]; ok {
		cp := *row
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeSubmissionAnswerRepo) Upsert(ctx context.Context, tx *gorm.DB, row *types.SubmissionAnswer) error {
	key := answerKey{row.SubmissionID, row.QuestionID}
	if existing, ok := f.rows[key]; ok {
		existing.ValueNumber = row.ValueNumber
		existing.ValueText = row.ValueText
		existing.UpdatedAt = row.UpdatedAt
		return nil
	}
	cp := *row
	f.rows[key] = &cp
	return nil
}

func (f *fakeSubmissionAnswerRepo) FullDeleteBySubmissionIDs(ctx context.Context, tx *gorm.DB, submissionIDs []uuid.UUID) error {
	for _, sid := range submissionIDs {
		for key := range f.rows {
			if key.submissionID == sid {
				delete(f.rows, key)
			}
		}
	}
	return nil
}

type fakeFormationCacheRepo struct {
	rows map[string]*types.FormationCache
}

func newFakeFormationCacheRepo() *fakeFormationCacheRepo {
	return &fakeFormationCacheRepo{rows: map[string]*types.FormationCache{}}
}

func (f *fakeFormationCacheRepo) UpsertByCode(ctx context.Context, tx *gorm.DB, row *types.FormationCache) error {
	if existing, ok := f.rows[row.Code]; ok {
		existing.Title = row.Title
		existing.Description = row.Description
		existing.Credits = row.Credits
		existing.UpdatedAt = row.UpdatedAt
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	cp := *row
	f.rows[row.Code] = &cp
	return nil
}

func (f *fakeFormationCacheRepo) GetByCodes(ctx context.Context, tx *gorm.DB, codes []string) ([]*types.FormationCache, error) {
	var out []*types.FormationCache
	for _, code := range codes {
		if row, ok := f.rows[code]; ok {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeFormationCacheRepo) GetAll(ctx context.Context, tx *gorm.DB) ([]*types.FormationCache, error) {
	var out []*types.FormationCache
	for _, row := range f.rows {
		cp := *row
		out = append(out, &cp)
	}
	return out, nil
}
