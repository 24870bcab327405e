package document

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/sujalkunwar22/backend/internal/apperr"
	"github.com/sujalkunwar22/backend/internal/models"
	"github.com/sujalkunwar22/backend/internal/notify"
	"github.com/sujalkunwar22/backend/internal/paging"
	"gorm.io/gorm"
)

// Event is the live event pushed to the other appointment party.
const Event = "document:uploaded"

// Limits.
const (
	DefaultLimit         = 20
	DefaultSharedLimit   = 50
	MaxLimit             = 100
	DefaultMaxSize       = 100 << 20
	MaxDescriptionLength = 500
	sniffLen             = 3072
)

// Options wires the collaborators of a Service. Nil fields are skipped.
type Options struct {
	Sink    *notify.Sink
	Events  notify.Pusher
	MaxSize int64
}

// Service runs document operations against the record store and the blob
// store.
type Service struct {
	db      *gorm.DB
	store   Store
	sink    *notify.Sink
	events  notify.Pusher
	maxSize int64
}

// NewService returns a Service over db and store.
func NewService(db *gorm.DB, store Store, opts Options) *Service {
	s := &Service{
		db:      db,
		store:   store,
		sink:    opts.Sink,
		events:  opts.Events,
		maxSize: opts.MaxSize,
	}
	if s.maxSize <= 0 {
		s.maxSize = DefaultMaxSize
	}
	return s
}

// UploadInput describes one uploaded file.
type UploadInput struct {
	AppointmentID string
	Description   string
	Category      models.DocumentCategory
	OriginalName  string
	Body          io.Reader
}

// Upload is the outcome of storing one file.
type Upload struct {
	Document *models.Document
	// Reused is set when an earlier blob of the owner was reused.
	Reused bool
}

// UploadedPayload is the body of the live event sent to the other party.
type UploadedPayload struct {
	Type     models.NotificationType `json:"type"`
	Document *models.Document        `json:"document"`
}

func (in *UploadInput) validate() error {
	if in.Body == nil || strings.TrimSpace(in.OriginalName) == "" {
		return apperr.Validationf("No file uploaded")
	}
	if utf8.RuneCountInString(in.Description) > MaxDescriptionLength {
		return apperr.Validationf("description must be at most %d characters", MaxDescriptionLength)
	}
	if in.Category == "" {
		in.Category = models.CategoryOther
	}
	if !in.Category.Valid() {
		return apperr.Validationf("Invalid category %q", in.Category)
	}
	return nil
}

// Upload stores in for owner. When the owner already has a document with
// the same size and content hash whose blob still exists, the new blob is
// dropped and the new record points at the existing one.
func (s *Service) Upload(ctx context.Context, owner *models.User, in UploadInput) (*Upload, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var appt *models.Appointment
	if in.AppointmentID != "" {
		a, err := s.partyAppointment(ctx, in.AppointmentID, owner.ID)
		if err != nil {
			return nil, err
		}
		appt = a
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(in.Body, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("document: read upload: %w", err)
	}
	head = head[:n]
	if n == 0 {
		return nil, apperr.Validationf("Uploaded file is empty")
	}

	hash := md5.New()
	body := io.TeeReader(io.LimitReader(io.MultiReader(bytes.NewReader(head), in.Body), s.maxSize+1), hash)
	name, size, err := s.store.Put(extension(in.OriginalName), body)
	if err != nil {
		return nil, err
	}
	if size > s.maxSize {
		s.discard(name)
		return nil, apperr.Validationf("File exceeds the %d MB limit", s.maxSize>>20)
	}
	sum := hex.EncodeToString(hash.Sum(nil))

	doc := &models.Document{
		OwnerID:      owner.ID,
		FileName:     name,
		OriginalName: strings.TrimSpace(in.OriginalName),
		FilePath:     name,
		FileSize:     size,
		ContentHash:  sum,
		MimeType:     mimetype.Detect(head).String(),
		Description:  in.Description,
		Category:     in.Category,
	}
	existing, err := s.findDuplicate(ctx, owner.ID, size, sum)
	if err != nil {
		s.discard(name)
		return nil, err
	}
	if existing != nil {
		s.discard(name)
		doc.FileName = existing.FileName
		doc.FilePath = existing.FilePath
	}
	var other string
	if appt != nil {
		id := appt.ID
		other = appt.ClientID
		if other == owner.ID {
			other = appt.LawyerID
		}
		doc.AppointmentID = &id
		doc.IsShared = true
		doc.SharedWithID = &other
	}

	if err := s.db.WithContext(ctx).Create(doc).Error; err != nil {
		if existing == nil {
			s.discard(name)
		}
		return nil, fmt.Errorf("document: create: %w", err)
	}

	if other != "" {
		s.sink.Record(ctx, notify.Notice{
			UserID:      other,
			Type:        models.NotifyDocumentUploaded,
			Title:       "New Document Uploaded",
			Message:     fmt.Sprintf("%s uploaded a document", owner.FullName()),
			RelatedID:   doc.ID,
			RelatedType: notify.RelatedDocument,
		})
		if s.events != nil {
			s.events.ToUser(other, Event, UploadedPayload{Type: models.NotifyDocumentUploaded, Document: doc})
		}
	}
	return &Upload{Document: doc, Reused: existing != nil}, nil
}

// findDuplicate narrows the owner's documents to those of the same size,
// then returns the oldest whose content hash matches and whose blob still
// exists.
func (s *Service) findDuplicate(ctx context.Context, ownerID string, size int64, sum string) (*models.Document, error) {
	var candidates []models.Document
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND file_size = ?", ownerID, size).
		Order("created_at ASC").Find(&candidates).Error
	if err != nil {
		return nil, fmt.Errorf("document: find candidates: %w", err)
	}
	for i := range candidates {
		c := &candidates[i]
		if c.ContentHash != sum || !s.exists(c.FilePath) {
			continue
		}
		return c, nil
	}
	return nil, nil
}

func (s *Service) exists(name string) bool {
	rc, err := s.store.Open(name)
	if err != nil {
		return false
	}
	rc.Close()
	return true
}

func (s *Service) discard(name string) {
	if err := s.store.Remove(name); err != nil {
		log.Printf("document: %v", err)
	}
}

func (s *Service) partyAppointment(ctx context.Context, id, userID string) (*models.Appointment, error) {
	var appt models.Appointment
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&appt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("Appointment not found")
	}
	if err != nil {
		return nil, fmt.Errorf("document: load appointment %s: %w", id, err)
	}
	if !appt.IsParty(userID) {
		return nil, apperr.Forbiddenf("You are not a party to this appointment")
	}
	return &appt, nil
}

// Filter narrows a listing of the caller's documents.
type Filter struct {
	AppointmentID string
	Category      models.DocumentCategory
}

// Page is one page of documents.
type Page struct {
	Documents  []models.Document `json:"documents"`
	Pagination paging.Pagination `json:"pagination"`
}

func (s *Service) list(ctx context.Context, q *gorm.DB, page, limit int) (*Page, error) {
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("document: count: %w", err)
	}
	out := &Page{Documents: []models.Document{}}
	err := q.Session(&gorm.Session{}).Preload("Owner").
		Order("created_at DESC").Order("id DESC").
		Offset(paging.Offset(page, limit)).Limit(limit).
		Find(&out.Documents).Error
	if err != nil {
		return nil, fmt.Errorf("document: list: %w", err)
	}
	out.Pagination = paging.New(page, limit, total)
	return out, nil
}

// Mine lists the documents user owns, newest first.
func (s *Service) Mine(ctx context.Context, user *models.User, f Filter, page, limit int) (*Page, error) {
	page, limit = paging.Normalize(page, limit, DefaultLimit, MaxLimit)
	q := s.db.WithContext(ctx).Model(&models.Document{}).Where("owner_id = ?", user.ID)
	if f.AppointmentID != "" {
		q = q.Where("appointment_id = ?", f.AppointmentID)
	}
	if f.Category != "" {
		if !f.Category.Valid() {
			return nil, apperr.Validationf("Invalid category %q", f.Category)
		}
		q = q.Where("category = ?", f.Category)
	}
	return s.list(ctx, q, page, limit)
}

// Shared lists the documents either of user and otherID shared with the
// other.
func (s *Service) Shared(ctx context.Context, user *models.User, otherID string, page, limit int) (*Page, error) {
	page, limit = paging.Normalize(page, limit, DefaultSharedLimit, MaxLimit)
	q := s.db.WithContext(ctx).Model(&models.Document{}).
		Where("is_shared = ? AND ((owner_id = ? AND shared_with_id = ?) OR (owner_id = ? AND shared_with_id = ?))",
			true, user.ID, otherID, otherID, user.ID)
	return s.list(ctx, q, page, limit)
}

func (s *Service) load(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	err := s.db.WithContext(ctx).Preload("Owner").Where("id = ?", id).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("Document not found")
	}
	if err != nil {
		return nil, fmt.Errorf("document: load %s: %w", id, err)
	}
	return &doc, nil
}

// Get returns one document to its owner, the user it was shared with, or
// an admin.
func (s *Service) Get(ctx context.Context, id string, user *models.User) (*models.Document, error) {
	doc, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !doc.VisibleTo(user.ID) && user.Role != models.RoleAdmin {
		return nil, apperr.Forbiddenf("Access denied")
	}
	return doc, nil
}

// Open returns the document and a reader over its blob. The caller closes
// the reader.
func (s *Service) Open(ctx context.Context, id string, user *models.User) (*models.Document, io.ReadCloser, error) {
	doc, err := s.Get(ctx, id, user)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.store.Open(doc.FilePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, apperr.NotFoundf("File not found on server")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("document: open blob: %w", err)
	}
	return doc, rc, nil
}

// Delete removes a document on behalf of its owner or an admin. The blob
// is removed once no other record points at it.
func (s *Service) Delete(ctx context.Context, id string, user *models.User) error {
	doc, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if doc.OwnerID != user.ID && user.Role != models.RoleAdmin {
		return apperr.Forbiddenf("Access denied")
	}
	var refs int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Document{}, "id = ?", doc.ID).Error; err != nil {
			return err
		}
		return tx.Model(&models.Document{}).Where("file_path = ?", doc.FilePath).Count(&refs).Error
	})
	if err != nil {
		return fmt.Errorf("document: delete %s: %w", id, err)
	}
	if refs == 0 {
		s.discard(doc.FilePath)
	}
	return nil
}

// MaxSize is the largest accepted upload in bytes.
func (s *Service) MaxSize() int64 {
	return s.maxSize
}
