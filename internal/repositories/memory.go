package repositories

import (
	"database/sql"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"library-api/internal/models"
)

// MemoryStore is a storage-free implementation of the repository interfaces
// and Transactor, used by tests. Entities are kept in insertion-order slices
// behind one mutex; every read returns a copy so callers only change stored
// state through Save, the same way the gorm repositories behave.
type MemoryStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	members []*models.Member
	books   []*models.Book
	loans   []*models.Loan
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Transaction serializes whole units of work. The callback receives a nil
// handle; the memory repositories ignore it.
func (s *MemoryStore) Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fc(nil)
}

func (s *MemoryStore) Members() MemberRepository { return &memoryMemberRepository{s} }
func (s *MemoryStore) Books() BookRepository     { return &memoryBookRepository{s} }
func (s *MemoryStore) Loans() LoanRepository     { return &memoryLoanRepository{s} }

func (s *MemoryStore) findMember(id uuid.UUID) *models.Member {
	for _, m := range s.members {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (s *MemoryStore) findBook(id uuid.UUID) *models.Book {
	for _, b := range s.books {
		if b.ID == id {
			return b
		}
	}
	return nil
}

type memoryMemberRepository struct {
	store *MemoryStore
}

func (r *memoryMemberRepository) FindByCode(_ *gorm.DB, code string) (*models.Member, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, m := range r.store.members {
		if m.Code == code {
			cp := *m
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memoryMemberRepository) FindByCodeForUpdate(db *gorm.DB, code string) (*models.Member, error) {
	return r.FindByCode(db, code)
}

func (r *memoryMemberRepository) FindByID(_ *gorm.DB, id uuid.UUID) (*models.Member, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if m := r.store.findMember(id); m != nil {
		cp := *m
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memoryMemberRepository) List(_ *gorm.DB) ([]models.Member, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]models.Member, 0, len(r.store.members))
	for _, m := range r.store.members {
		out = append(out, *m)
	}
	return out, nil
}

func (r *memoryMemberRepository) ListWithLoans(_ *gorm.DB) ([]models.Member, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]models.Member, 0, len(r.store.members))
	for _, m := range r.store.members {
		cp := *m
		for _, l := range r.store.loans {
			if l.MemberID != m.ID {
				continue
			}
			lc := *l
			if b := r.store.findBook(l.BookID); b != nil {
				lc.Book = *b
			}
			cp.Loans = append(cp.Loans, lc)
		}
		out = append(out, cp)
	}
	return out, nil
}

func (r *memoryMemberRepository) Create(_ *gorm.DB, member *models.Member) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if member.ID == uuid.Nil {
		member.ID = uuid.New()
	}
	cp := *member
	r.store.members = append(r.store.members, &cp)
	return nil
}

func (r *memoryMemberRepository) Save(_ *gorm.DB, member *models.Member) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if stored := r.store.findMember(member.ID); stored != nil {
		*stored = *member
		return nil
	}
	cp := *member
	r.store.members = append(r.store.members, &cp)
	return nil
}

type memoryBookRepository struct {
	store *MemoryStore
}

func (r *memoryBookRepository) FindByCode(_ *gorm.DB, code string) (*models.Book, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, b := range r.store.books {
		if b.Code == code {
			cp := *b
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memoryBookRepository) FindByCodeForUpdate(db *gorm.DB, code string) (*models.Book, error) {
	return r.FindByCode(db, code)
}

func (r *memoryBookRepository) FindByID(_ *gorm.DB, id uuid.UUID) (*models.Book, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if b := r.store.findBook(id); b != nil {
		cp := *b
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memoryBookRepository) List(_ *gorm.DB) ([]models.Book, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]models.Book, 0, len(r.store.books))
	for _, b := range r.store.books {
		out = append(out, *b)
	}
	return out, nil
}

func (r *memoryBookRepository) Create(_ *gorm.DB, book *models.Book) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if book.ID == uuid.Nil {
		book.ID = uuid.New()
	}
	cp := *book
	r.store.books = append(r.store.books, &cp)
	return nil
}

func (r *memoryBookRepository) Save(_ *gorm.DB, book *models.Book) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if stored := r.store.findBook(book.ID); stored != nil {
		*stored = *book
		return nil
	}
	cp := *book
	r.store.books = append(r.store.books, &cp)
	return nil
}

type memoryLoanRepository struct {
	store *MemoryStore
}

func matches(l *models.Loan, filter LoanFilter) bool {
	if filter.MemberID != nil && l.MemberID != *filter.MemberID {
		return false
	}
	if filter.BookID != nil && l.BookID != *filter.BookID {
		return false
	}
	if filter.Open != nil && (l.ReturnDate == nil) != *filter.Open {
		return false
	}
	return true
}

func (r *memoryLoanRepository) CountWhere(_ *gorm.DB, filter LoanFilter) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var count int64
	for _, l := range r.store.loans {
		if matches(l, filter) {
			count++
		}
	}
	return count, nil
}

func (r *memoryLoanRepository) FindOpenFor(_ *gorm.DB, memberID, bookID uuid.UUID) (*models.Loan, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, l := range r.store.loans {
		if l.MemberID == memberID && l.BookID == bookID && l.ReturnDate == nil {
			cp := *l
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memoryLoanRepository) List(_ *gorm.DB) ([]models.Loan, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.collect(func(*models.Loan) bool { return true }), nil
}

func (r *memoryLoanRepository) ListOpen(_ *gorm.DB, withRelations bool) ([]models.Loan, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	loans := r.collect(func(l *models.Loan) bool { return l.ReturnDate == nil })
	if !withRelations {
		for i := range loans {
			loans[i].Member = models.Member{}
			loans[i].Book = models.Book{}
		}
	}
	return loans, nil
}

// collect copies matching loans in insertion order with relations resolved.
// Caller must hold the store mutex.
func (r *memoryLoanRepository) collect(keep func(*models.Loan) bool) []models.Loan {
	var out []models.Loan
	for _, l := range r.store.loans {
		if !keep(l) {
			continue
		}
		cp := *l
		if m := r.store.findMember(l.MemberID); m != nil {
			cp.Member = *m
		}
		if b := r.store.findBook(l.BookID); b != nil {
			cp.Book = *b
		}
		out = append(out, cp)
	}
	return out
}

func (r *memoryLoanRepository) Create(_ *gorm.DB, loan *models.Loan) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if loan.ID == uuid.Nil {
		loan.ID = uuid.New()
	}
	cp := *loan
	cp.Member = models.Member{}
	cp.Book = models.Book{}
	r.store.loans = append(r.store.loans, &cp)
	return nil
}

func (r *memoryLoanRepository) Save(_ *gorm.DB, loan *models.Loan) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, stored := range r.store.loans {
		if stored.ID == loan.ID {
			cp := *loan
			cp.Member = models.Member{}
			cp.Book = models.Book{}
			*stored = cp
			return nil
		}
	}
	cp := *loan
	cp.Member = models.Member{}
	cp.Book = models.Book{}
	r.store.loans = append(r.store.loans, &cp)
	return nil
}
